package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNotifier(t *testing.T) (*Notifier, *Hub, chan receivedDelivery, *History) {
	t.Helper()

	logger := zap.NewNop().Sugar()
	hub := NewHub(4, logger)
	t.Cleanup(hub.Close)

	server, deliveries := newReceiver(t)
	history := NewHistory(100, nil)
	webhooks := NewWebhooks(nil, 2*time.Second, nil, logger)
	_, err := webhooks.Register(server.URL, []string{"*"}, "")
	require.NoError(t, err)

	return NewNotifier(hub, webhooks, history, logger), hub, deliveries, history
}

func TestNotifier_EventAdded(t *testing.T) {
	n, hub, deliveries, _ := newTestNotifier(t)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	event := &model.Event{ID: "ev-1"}
	event.Title = "dentist"
	n.EventAdded(event)

	select {
	case msg := <-sub.C:
		assert.Equal(t, model.ChangeEventAdded, msg.Type)
		got, ok := msg.Data.(*model.Event)
		require.True(t, ok)
		assert.Equal(t, "ev-1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast message")
	}

	d := waitDelivery(t, deliveries)
	var payload struct {
		Event string `json:"event"`
	}
	require.NoError(t, json.Unmarshal(d.body, &payload))
	assert.Equal(t, "event.created", payload.Event, "webhooks see the dotted event name")
}

func TestNotifier_UpdateAndDeleteNames(t *testing.T) {
	n, _, deliveries, _ := newTestNotifier(t)

	event := &model.Event{ID: "ev-1"}

	n.EventUpdated(event)
	d := waitDelivery(t, deliveries)
	assert.Contains(t, string(d.body), `"event":"event.updated"`)

	n.EventDeleted(event)
	d = waitDelivery(t, deliveries)
	assert.Contains(t, string(d.body), `"event":"event.deleted"`)
}

func TestNotifier_RemindersDue(t *testing.T) {
	n, hub, deliveries, history := newTestNotifier(t)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	event := &model.Event{ID: "ev-1"}
	event.Notifications = model.Schedule{"push": {15}, "email": {30}}
	reminders := []model.Reminder{{Event: event, MinutesUntil: 10}}

	n.RemindersDue(reminders)

	select {
	case msg := <-sub.C:
		assert.Equal(t, model.ChangeRemindersDue, msg.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast message")
	}

	d := waitDelivery(t, deliveries)
	assert.Contains(t, string(d.body), `"event":"event.reminder"`)

	// one audit record per schedule channel of the due event
	records := history.Records()
	require.Len(t, records, 2)
	channels := map[string]bool{}
	for _, r := range records {
		assert.Equal(t, "ev-1", r.EventID)
		assert.Equal(t, model.NotificationStatusSent, r.Status)
		channels[r.Channel] = true
	}
	assert.Equal(t, map[string]bool{"push": true, "email": true}, channels)
}

func TestNotifier_RemindersDue_WebhookRecordsCarryEventIDs(t *testing.T) {
	logger := zap.NewNop().Sugar()
	hub := NewHub(4, logger)
	t.Cleanup(hub.Close)

	server, deliveries := newReceiver(t)
	history := NewHistory(100, nil)
	webhooks := NewWebhooks(nil, 2*time.Second, history, logger)
	_, err := webhooks.Register(server.URL, []string{"event.reminder"}, "")
	require.NoError(t, err)

	n := NewNotifier(hub, webhooks, nil, logger)
	n.RemindersDue([]model.Reminder{
		{Event: &model.Event{ID: "ev-1"}, MinutesUntil: 10},
		{Event: &model.Event{ID: "ev-2"}, MinutesUntil: 5},
	})
	waitDelivery(t, deliveries)

	// one webhook-channel record per event in the batch, never a blank id
	require.Eventually(t, func() bool {
		return len(history.Records()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	ids := map[string]bool{}
	for _, r := range history.Records() {
		assert.Equal(t, "webhook", r.Channel)
		assert.Equal(t, model.NotificationStatusDelivered, r.Status)
		ids[r.EventID] = true
	}
	assert.Equal(t, map[string]bool{"ev-1": true, "ev-2": true}, ids)
}

func TestNotifier_RemindersDue_EmptyIsNoop(t *testing.T) {
	n, hub, deliveries, history := newTestNotifier(t)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	n.RemindersDue(nil)

	select {
	case <-sub.C:
		t.Fatal("unexpected broadcast for an empty scan")
	case <-time.After(100 * time.Millisecond):
	}
	assertNoDelivery(t, deliveries)
	assert.Empty(t, history.Records())
}
