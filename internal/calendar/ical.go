package calendar

import (
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Abbo0dio/taqweem/internal/model"
)

// ExportICS serializes the whole store to iCalendar text. The mapping is
// deterministic: events ordered by date then insertion, UID from the event
// id, DTSTAMP from the creation timestamp, DTSTART from date(+time).
func (s *Store) ExportICS() string {
	events, _ := s.Snapshot()
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date < events[j].Date
	})

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//taqweem//calendar//EN")

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(e.CreatedAt.UTC())

		if start, ok := eventStart(e); ok {
			ve.SetStartAt(start)
			ve.SetEndAt(start.Add(time.Hour))
		} else {
			day, err := time.ParseInLocation(dateFormat, e.Date, time.Local)
			if err != nil {
				s.logger.Errorw("skipping event with unparsable date on export", "id", e.ID, "date", e.Date)
				continue
			}
			ve.SetAllDayStartAt(day)
		}

		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Repeat != model.RepeatTypeNone {
			if freq := icsFrequency(e.Repeat); freq != "" {
				ve.SetProperty(ics.ComponentPropertyRrule, freq)
			}
		}
	}

	return cal.Serialize()
}
