package calendar

import (
	"fmt"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/teambition/rrule-go"
)

func buildRule(t model.RepeatType, from time.Time) (string, error) {
	var freq rrule.Frequency

	switch t {
	case model.RepeatTypeNone:
		return "", nil
	case model.RepeatTypeEveryDay:
		freq = rrule.DAILY
	case model.RepeatTypeEveryWeek:
		freq = rrule.WEEKLY
	case model.RepeatTypeEveryMonth:
		freq = rrule.MONTHLY
	case model.RepeatTypeEveryYear:
		freq = rrule.YEARLY
	default:
		return "", fmt.Errorf("unknown repeat type: %v", t)
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     freq,
		Interval: 1,
		Dtstart:  from,
	})
	if err != nil {
		return "", fmt.Errorf("creating rule: %w", err)
	}

	return rule.String(), nil
}

// occurrences expands a stored repeat rule into concrete start timestamps
// within [from, to], both inclusive.
func occurrences(repeatRule string, from, to time.Time) ([]time.Time, error) {
	rOption, err := rrule.StrToROption(repeatRule)
	if err != nil {
		return nil, fmt.Errorf("parse repeat rule %q: %w", repeatRule, err)
	}
	rule, err := rrule.NewRRule(*rOption)
	if err != nil {
		return nil, fmt.Errorf("make rule: %w", err)
	}

	occs := rule.Between(from, to, true)
	// the stored rule carries its DTSTART in UTC; bring occurrences back to
	// local time so calendar dates come out right
	for i, occ := range occs {
		occs[i] = occ.In(time.Local)
	}

	return occs, nil
}

// icsFrequency maps a repeat type to the RRULE value emitted on export.
func icsFrequency(t model.RepeatType) string {
	switch t {
	case model.RepeatTypeEveryDay:
		return "FREQ=DAILY"
	case model.RepeatTypeEveryWeek:
		return "FREQ=WEEKLY"
	case model.RepeatTypeEveryMonth:
		return "FREQ=MONTHLY"
	case model.RepeatTypeEveryYear:
		return "FREQ=YEARLY"
	default:
		return ""
	}
}
