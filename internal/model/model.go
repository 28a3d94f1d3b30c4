package model

import "time"

// Schedule maps a delivery channel ("push", "email", "sms") to the list of
// lead times, in minutes before the event start, at which reminders fire.
type Schedule map[string][]int

// DefaultSchedule is applied to events created without an explicit
// notification schedule.
func DefaultSchedule() Schedule {
	return Schedule{"push": {15}}
}

// Clone returns a deep copy of the schedule.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	res := make(Schedule, len(s))
	for ch, mins := range s {
		res[ch] = append([]int(nil), mins...)
	}
	return res
}

type EventCreate struct {
	Title         string     `json:"title"`
	Date          string     `json:"date"`
	Time          string     `json:"time,omitempty"`
	Type          string     `json:"type"`
	Description   string     `json:"description,omitempty"`
	Location      string     `json:"location,omitempty"`
	Repeat        RepeatType `json:"repeat,omitempty"`
	Notifications Schedule   `json:"notifications,omitempty"`
}

type Event struct {
	ID         string     `json:"id"`
	RepeatRule string     `json:"repeat_rule,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	EventCreate
}

// Clone returns a copy safe to hand outside the store's lock.
func (e *Event) Clone() *Event {
	res := *e
	res.Notifications = e.Notifications.Clone()
	if e.UpdatedAt != nil {
		t := *e.UpdatedAt
		res.UpdatedAt = &t
	}
	return &res
}

// EventUpdate carries a partial update; nil fields are left untouched.
type EventUpdate struct {
	Title         *string     `json:"title"`
	Date          *string     `json:"date"`
	Time          *string     `json:"time"`
	Type          *string     `json:"type"`
	Description   *string     `json:"description"`
	Location      *string     `json:"location"`
	Repeat        *RepeatType `json:"repeat"`
	Notifications Schedule    `json:"notifications"`
}

type RepeatType int

const (
	RepeatTypeNone RepeatType = iota
	RepeatTypeEveryDay
	RepeatTypeEveryWeek
	RepeatTypeEveryMonth
	RepeatTypeEveryYear
)

type EventsFilter struct {
	From   string
	To     string
	Month  int
	Year   int
	Type   string
	Search string
	Limit  int
	Offset int
}

// EventsPage is a window over a filtered listing. Total and HasMore describe
// the filtered result before Limit/Offset were applied.
type EventsPage struct {
	Events  []*Event `json:"events"`
	Total   int      `json:"total"`
	HasMore bool     `json:"has_more"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Reminder is a due event produced by a reminder scan.
type Reminder struct {
	Event        *Event    `json:"event"`
	MinutesUntil int       `json:"minutes_until"`
	ScannedAt    time.Time `json:"scanned_at"`
}

type Webhook struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Matches reports whether the subscription covers the given dotted event
// type, either explicitly or via the "*" wildcard.
func (w *Webhook) Matches(eventType string) bool {
	for _, e := range w.Events {
		if e == "*" || e == eventType {
			return true
		}
	}
	return false
}

// NotificationRecord is an append-only audit entry; never read by business
// logic.
type NotificationRecord struct {
	EventID   string    `json:"event_id"`
	Channel   string    `json:"channel"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	NotificationStatusDelivered = "delivered"
	NotificationStatusFailed    = "failed"
	NotificationStatusSent      = "sent"
)

// ChangeType names a store mutation or reminder batch as seen by live
// subscribers.
type ChangeType string

const (
	ChangeEventAdded   ChangeType = "event-added"
	ChangeEventUpdated ChangeType = "event-updated"
	ChangeEventDeleted ChangeType = "event-deleted"
	ChangeRemindersDue ChangeType = "reminders-due"
)

// WebhookEventName maps a change type to the dotted name used in webhook
// bodies and subscription filters.
func (t ChangeType) WebhookEventName() string {
	switch t {
	case ChangeEventAdded:
		return "event.created"
	case ChangeEventUpdated:
		return "event.updated"
	case ChangeEventDeleted:
		return "event.deleted"
	case ChangeRemindersDue:
		return "event.reminder"
	default:
		return string(t)
	}
}

// Message is the payload pushed to live subscribers.
type Message struct {
	Type ChangeType  `json:"type"`
	Data interface{} `json:"data"`
}

// TokenInfo is the usage metadata tracked for an issued access token.
type TokenInfo struct {
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	Requests  int64      `json:"requests"`
}
