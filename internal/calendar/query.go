package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/Abbo0dio/taqweem/internal/pkg/validator"
)

const defaultListLimit = 100

// List returns the stored events matching the filter, sorted by date
// ascending (insertion order on ties), with offset/limit pagination applied
// after the total count is taken.
func (s *Store) List(filter model.EventsFilter) (*model.EventsPage, error) {
	v := validator.New()

	var from, to time.Time
	var err error
	if filter.From != "" {
		from, err = time.ParseInLocation(dateFormat, filter.From, time.Local)
		v.Check(err == nil, "start", "must be a valid YYYY-MM-DD date")
	}
	if filter.To != "" {
		to, err = time.ParseInLocation(dateFormat, filter.To, time.Local)
		v.Check(err == nil, "end", "must be a valid YYYY-MM-DD date")
	}
	if filter.Month != 0 {
		v.Check(filter.Month >= 1 && filter.Month <= 12, "month", "must be between 1 and 12")
		v.Check(filter.Year != 0, "year", "must be provided with month")
	}
	v.Check(filter.Offset >= 0, "offset", "must not be negative")
	if !v.Valid() {
		return nil, &model.ValidationError{Fields: v.Errors}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	search := strings.ToLower(filter.Search)

	s.mu.RLock()
	matched := make([]*model.Event, 0, len(s.order))
	for _, id := range s.order {
		e := s.events[id]

		date, perr := time.ParseInLocation(dateFormat, e.Date, time.Local)
		if perr != nil {
			continue
		}
		if filter.From != "" && date.Before(from) {
			continue
		}
		if filter.To != "" && date.After(to) {
			continue
		}
		if filter.Month != 0 && (int(date.Month()) != filter.Month || date.Year() != filter.Year) {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if search != "" && !matchesSearch(e, search) {
			continue
		}

		matched = append(matched, e.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date < matched[j].Date
	})

	total := len(matched)
	offset := filter.Offset
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return &model.EventsPage{
		Events:  matched[offset:end],
		Total:   total,
		HasMore: end < total,
		Limit:   limit,
		Offset:  filter.Offset,
	}, nil
}

func matchesSearch(e *model.Event, search string) bool {
	return strings.Contains(strings.ToLower(e.Title), search) ||
		strings.Contains(strings.ToLower(e.Description), search) ||
		strings.Contains(strings.ToLower(e.Type), search)
}

// Today returns the events in today's index bucket, in insertion order.
func (s *Store) Today() []*model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	today := s.now().Format(dateFormat)
	bucket := s.index[today]

	res := make([]*model.Event, 0, len(bucket))
	for _, id := range bucket {
		res = append(res, s.events[id].Clone())
	}

	return res
}

// Upcoming walks the index from today through today+days inclusive and
// returns the bucket contents sorted by date ascending, stable with respect
// to insertion order. Occurrences of repeating events that fall inside the
// window are merged in as well.
func (s *Store) Upcoming(days int) []*model.Event {
	s.mu.RLock()

	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, days)

	var res []*model.Event
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		for _, id := range s.index[day.Format(dateFormat)] {
			res = append(res, s.events[id].Clone())
		}
	}

	for _, id := range s.order {
		e := s.events[id]
		if e.Repeat == model.RepeatTypeNone {
			continue
		}

		occs, err := occurrences(e.RepeatRule, start, end.AddDate(0, 0, 1).Add(-time.Second))
		if err != nil {
			s.logger.Errorw("expanding repeat rule", "id", e.ID, "rule", e.RepeatRule, "err", err)
			continue
		}
		for _, occ := range occs {
			date := occ.Format(dateFormat)
			if date == e.Date {
				// base occurrence, already collected by the index walk
				continue
			}
			instance := e.Clone()
			instance.Date = date
			res = append(res, instance)
		}
	}

	s.mu.RUnlock()

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Date < res[j].Date
	})

	return res
}

// DueForReminder returns every event whose absolute start timestamp T
// satisfies now < T <= now+lead. Events without a time are never due.
// The scan is read-only and idempotent; overlapping windows across calls may
// report the same event again.
func (s *Store) DueForReminder(lead time.Duration) []model.Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	windowEnd := now.Add(lead)

	var res []model.Reminder
	for _, id := range s.order {
		e := s.events[id]
		if e.Time == "" {
			continue
		}

		starts, err := upcomingStarts(e, now, windowEnd)
		if err != nil {
			s.logger.Errorw("computing reminder window", "id", e.ID, "err", err)
			continue
		}
		for _, t := range starts {
			if !t.After(now) || t.After(windowEnd) {
				continue
			}
			res = append(res, model.Reminder{
				Event:        e.Clone(),
				MinutesUntil: int(t.Sub(now).Minutes()),
				ScannedAt:    now,
			})
		}
	}

	return res
}

// upcomingStarts lists the start timestamps of e that could fall inside the
// scan window: the single date+time for plain events, the expanded
// occurrences for repeating ones.
func upcomingStarts(e *model.Event, from, to time.Time) ([]time.Time, error) {
	if e.Repeat == model.RepeatTypeNone {
		t, ok := eventStart(e)
		if !ok {
			return nil, nil
		}
		return []time.Time{t}, nil
	}

	return occurrences(e.RepeatRule, from, to)
}
