package notify

import (
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"go.uber.org/zap"
)

// Notifier fans one logical change out to both delivery paths: the live
// subscriber hub and the webhook dispatcher. It receives immutable copies
// only and runs entirely outside the store's critical section; delivery
// failures are isolated per recipient and never surface to the mutating
// caller.
type Notifier struct {
	hub      *Hub
	webhooks *Webhooks
	history  *History
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewNotifier(hub *Hub, webhooks *Webhooks, history *History, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{
		hub:      hub,
		webhooks: webhooks,
		history:  history,
		logger:   logger,
		now:      time.Now,
	}
}

func (n *Notifier) EventAdded(event *model.Event) {
	n.publish(model.ChangeEventAdded, event, event.ID)
}

func (n *Notifier) EventUpdated(event *model.Event) {
	n.publish(model.ChangeEventUpdated, event, event.ID)
}

func (n *Notifier) EventDeleted(event *model.Event) {
	n.publish(model.ChangeEventDeleted, event, event.ID)
}

// RemindersDue forwards a reminder scan result as one logical change and
// records an audit entry per due event on each of its schedule channels.
func (n *Notifier) RemindersDue(reminders []model.Reminder) {
	if len(reminders) == 0 {
		return
	}

	ids := make([]string, 0, len(reminders))
	for _, r := range reminders {
		ids = append(ids, r.Event.ID)
	}

	n.hub.Broadcast(model.Message{Type: model.ChangeRemindersDue, Data: reminders})
	n.webhooks.Dispatch(model.ChangeRemindersDue.WebhookEventName(), ids, reminders)

	if n.history != nil {
		now := n.now()
		for _, r := range reminders {
			for channel := range r.Event.Notifications {
				n.history.Append(model.NotificationRecord{
					EventID:   r.Event.ID,
					Channel:   channel,
					Status:    model.NotificationStatusSent,
					Timestamp: now,
				})
			}
		}
	}
}

func (n *Notifier) publish(t model.ChangeType, event *model.Event, eventID string) {
	n.logger.Debugw("publishing change", "type", t, "event_id", eventID)
	n.hub.Broadcast(model.Message{Type: t, Data: event})
	n.webhooks.Dispatch(t.WebhookEventName(), []string{eventID}, event)
}
