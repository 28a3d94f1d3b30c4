package calendar

import (
	"sync"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/Abbo0dio/taqweem/internal/pkg/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"
)

// Store is the authoritative in-memory event set plus the date-keyed
// secondary index. Primary map, index and insertion order are guarded by one
// mutex so readers never observe a half-applied mutation. Notification
// fan-out and persistence scheduling happen after the lock is released.
type Store struct {
	mu           sync.RWMutex
	events       map[string]*model.Event
	index        map[string][]string
	order        []string
	lastModified time.Time

	logger    *zap.SugaredLogger
	notifier  changeNotifier
	persister flushScheduler
	now       func() time.Time
}

type changeNotifier interface {
	EventAdded(event *model.Event)
	EventUpdated(event *model.Event)
	EventDeleted(event *model.Event)
}

type flushScheduler interface {
	Schedule()
}

func NewStore(logger *zap.SugaredLogger, notifier changeNotifier, persister flushScheduler) *Store {
	return &Store{
		events:    map[string]*model.Event{},
		index:     map[string][]string{},
		logger:    logger,
		notifier:  notifier,
		persister: persister,
		now:       time.Now,
	}
}

func (s *Store) Create(info *model.EventCreate) (*model.Event, error) {
	v := validator.New()
	v.Check(info.Title != "", "title", "must be provided")
	v.Check(info.Date != "", "date", "must be provided")
	v.Check(info.Type != "", "type", "must be provided")
	if info.Date != "" {
		if _, err := time.ParseInLocation(dateFormat, info.Date, time.Local); err != nil {
			v.AddError("date", "must be a valid YYYY-MM-DD date")
		}
	}
	if info.Time != "" {
		if _, err := time.Parse(timeFormat, info.Time); err != nil {
			v.AddError("time", "must be a valid HH:MM time")
		}
	}
	if !v.Valid() {
		return nil, &model.ValidationError{Fields: v.Errors}
	}

	event := &model.Event{EventCreate: *info}
	event.Notifications = info.Notifications.Clone()
	if event.Notifications == nil {
		event.Notifications = model.DefaultSchedule()
	}

	if event.Repeat != model.RepeatTypeNone {
		rule, err := buildRule(event.Repeat, eventStartOrMidnight(event))
		if err != nil {
			return nil, err
		}
		event.RepeatRule = rule
	}

	s.mu.Lock()
	event.ID = s.generateID()
	event.CreatedAt = s.now()
	s.events[event.ID] = event
	s.order = append(s.order, event.ID)
	s.indexAdd(event.Date, event.ID)
	s.lastModified = event.CreatedAt
	res := event.Clone()
	s.mu.Unlock()

	s.changed()
	if s.notifier != nil {
		s.notifier.EventAdded(res.Clone())
	}

	return res, nil
}

func (s *Store) Update(id string, update *model.EventUpdate) (*model.Event, error) {
	v := validator.New()
	if update.Title != nil {
		v.Check(*update.Title != "", "title", "must not be empty")
	}
	if update.Type != nil {
		v.Check(*update.Type != "", "type", "must not be empty")
	}
	if update.Date != nil {
		if _, err := time.ParseInLocation(dateFormat, *update.Date, time.Local); err != nil {
			v.AddError("date", "must be a valid YYYY-MM-DD date")
		}
	}
	if update.Time != nil && *update.Time != "" {
		if _, err := time.Parse(timeFormat, *update.Time); err != nil {
			v.AddError("time", "must be a valid HH:MM time")
		}
	}
	if !v.Valid() {
		return nil, &model.ValidationError{Fields: v.Errors}
	}

	s.mu.Lock()
	event, ok := s.events[id]
	if !ok {
		s.mu.Unlock()
		return nil, model.ErrNoRecord
	}

	oldDate := event.Date
	applyUpdate(event, update)

	if event.Date != oldDate {
		s.indexRemove(oldDate, id)
		s.indexAdd(event.Date, id)
	}

	if event.Repeat == model.RepeatTypeNone {
		event.RepeatRule = ""
	} else {
		rule, err := buildRule(event.Repeat, eventStartOrMidnight(event))
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		event.RepeatRule = rule
	}

	ts := s.now()
	event.UpdatedAt = &ts
	s.lastModified = ts
	res := event.Clone()
	s.mu.Unlock()

	s.changed()
	if s.notifier != nil {
		s.notifier.EventUpdated(res.Clone())
	}

	return res, nil
}

// applyUpdate merges set fields over the event. The id is never part of an
// update and therefore can not be overwritten.
func applyUpdate(event *model.Event, update *model.EventUpdate) {
	if update.Title != nil {
		event.Title = *update.Title
	}
	if update.Date != nil {
		event.Date = *update.Date
	}
	if update.Time != nil {
		event.Time = *update.Time
	}
	if update.Type != nil {
		event.Type = *update.Type
	}
	if update.Description != nil {
		event.Description = *update.Description
	}
	if update.Location != nil {
		event.Location = *update.Location
	}
	if update.Repeat != nil {
		event.Repeat = *update.Repeat
	}
	if update.Notifications != nil {
		event.Notifications = update.Notifications.Clone()
	}
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	event, ok := s.events[id]
	if !ok {
		s.mu.Unlock()
		return false
	}

	delete(s.events, id)
	s.indexRemove(event.Date, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.lastModified = s.now()
	res := event.Clone()
	s.mu.Unlock()

	s.changed()
	if s.notifier != nil {
		s.notifier.EventDeleted(res)
	}

	return true
}

func (s *Store) Get(id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, model.ErrNoRecord
	}

	return event.Clone(), nil
}

// Snapshot returns a consistent copy of all events in insertion order
// together with the last-modified timestamp. Used by the persistence writer.
func (s *Store) Snapshot() ([]*model.Event, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*model.Event, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, s.events[id].Clone())
	}

	return res, s.lastModified
}

// Load replaces the store contents with a previously persisted snapshot,
// rebuilding the date index. Events keep their slice order as insertion
// order.
func (s *Store) Load(events []*model.Event, lastModified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = make(map[string]*model.Event, len(events))
	s.index = map[string][]string{}
	s.order = make([]string, 0, len(events))

	for _, e := range events {
		if e.ID == "" {
			continue
		}
		if _, ok := s.events[e.ID]; ok {
			s.logger.Warnw("skipping duplicate event in snapshot", "id", e.ID)
			continue
		}
		c := e.Clone()
		s.events[c.ID] = c
		s.order = append(s.order, c.ID)
		s.indexAdd(c.Date, c.ID)
	}

	s.lastModified = lastModified
}

func (s *Store) changed() {
	if s.persister != nil {
		s.persister.Schedule()
	}
}

// generateID must be called with the write lock held; uuids are already
// unique but the collision check keeps the at-most-once invariant explicit.
func (s *Store) generateID() string {
	for {
		id := uuid.NewString()
		if _, ok := s.events[id]; !ok {
			return id
		}
	}
}

func (s *Store) indexAdd(date, id string) {
	s.index[date] = append(s.index[date], id)
}

func (s *Store) indexRemove(date, id string) {
	bucket := s.index[date]
	for i, eid := range bucket {
		if eid == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}

	if len(bucket) == 0 {
		delete(s.index, date)
		return
	}
	s.index[date] = bucket
}

// eventStart computes the absolute start timestamp of an event, which exists
// only when both date and time are set.
func eventStart(e *model.Event) (time.Time, bool) {
	if e.Date == "" || e.Time == "" {
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(dateFormat+" "+timeFormat, e.Date+" "+e.Time, time.Local)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// eventStartOrMidnight is used as the recurrence anchor; untimed events
// repeat from midnight local time.
func eventStartOrMidnight(e *model.Event) time.Time {
	if t, ok := eventStart(e); ok {
		return t
	}

	t, _ := time.ParseInLocation(dateFormat, e.Date, time.Local)
	return t
}
