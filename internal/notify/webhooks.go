package notify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/Abbo0dio/taqweem/internal/pkg/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of the exact request body,
// keyed with the subscription secret.
const SignatureHeader = "X-Webhook-Signature"

type webhookSaver interface {
	SaveWebhooks(webhooks []*model.Webhook) error
}

// Webhooks holds the registered subscriptions and performs outbound
// delivery. Deliveries are fire-and-forget with at most one attempt each,
// bounded by the client timeout; a failed delivery is logged and recorded,
// never retried.
type Webhooks struct {
	mu    sync.RWMutex
	subs  map[string]*model.Webhook
	order []string

	saver   webhookSaver
	client  *http.Client
	history *History
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewWebhooks(saver webhookSaver, timeout time.Duration, history *History, logger *zap.SugaredLogger) *Webhooks {
	return &Webhooks{
		subs:    map[string]*model.Webhook{},
		saver:   saver,
		client:  &http.Client{Timeout: timeout},
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Load seeds the registry from the persisted subscription document.
func (w *Webhooks) Load(subs []*model.Webhook) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range subs {
		if sub.ID == "" {
			continue
		}
		if _, ok := w.subs[sub.ID]; ok {
			continue
		}
		w.subs[sub.ID] = sub
		w.order = append(w.order, sub.ID)
	}
}

func (w *Webhooks) Register(target string, events []string, secret string) (*model.Webhook, error) {
	v := validator.New()
	v.Check(target != "", "url", "must be provided")
	if target != "" {
		u, err := url.Parse(target)
		v.Check(err == nil && (u.Scheme == "http" || u.Scheme == "https"), "url", "must be a valid http(s) URL")
	}
	if !v.Valid() {
		return nil, &model.ValidationError{Fields: v.Errors}
	}

	if len(events) == 0 {
		events = []string{"*"}
	}

	sub := &model.Webhook{
		ID:        uuid.NewString(),
		URL:       target,
		Events:    append([]string(nil), events...),
		Secret:    secret,
		CreatedAt: w.now(),
	}

	w.mu.Lock()
	w.subs[sub.ID] = sub
	w.order = append(w.order, sub.ID)
	snapshot := w.snapshotLocked()
	w.mu.Unlock()

	w.save(snapshot)

	res := *sub
	return &res, nil
}

func (w *Webhooks) Delete(id string) bool {
	w.mu.Lock()
	if _, ok := w.subs[id]; !ok {
		w.mu.Unlock()
		return false
	}

	delete(w.subs, id)
	for i, sid := range w.order {
		if sid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	snapshot := w.snapshotLocked()
	w.mu.Unlock()

	w.save(snapshot)
	return true
}

func (w *Webhooks) List() []*model.Webhook {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.snapshotLocked()
}

func (w *Webhooks) snapshotLocked() []*model.Webhook {
	res := make([]*model.Webhook, 0, len(w.order))
	for _, id := range w.order {
		sub := *w.subs[id]
		sub.Events = append([]string(nil), w.subs[id].Events...)
		res = append(res, &sub)
	}

	return res
}

// save keeps the durable subscription document in sync with the registry.
// A write failure is logged; the in-memory registry stays authoritative.
func (w *Webhooks) save(snapshot []*model.Webhook) {
	if w.saver == nil {
		return
	}
	if err := w.saver.SaveWebhooks(snapshot); err != nil {
		w.logger.Errorw("persisting webhook subscriptions", "err", err)
	}
}

type webhookPayload struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Dispatch attempts one delivery to every subscription matching the dotted
// event type. Each attempt runs in its own goroutine with its own timeout,
// so a hanging target never stalls mutations or other deliveries. eventIDs
// lists every event covered by the payload; the history gets one record per
// id per attempt.
func (w *Webhooks) Dispatch(eventType string, eventIDs []string, data interface{}) {
	w.mu.RLock()
	var targets []*model.Webhook
	for _, id := range w.order {
		if sub := w.subs[id]; sub.Matches(eventType) {
			c := *sub
			targets = append(targets, &c)
		}
	}
	w.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	body, err := json.Marshal(webhookPayload{
		Event:     eventType,
		Data:      data,
		Timestamp: w.now().UTC(),
	})
	if err != nil {
		w.logger.Errorw("marshaling webhook payload", "event", eventType, "err", err)
		return
	}

	for _, sub := range targets {
		go w.deliver(sub, eventType, eventIDs, body)
	}
}

func (w *Webhooks) deliver(sub *model.Webhook, eventType string, eventIDs []string, body []byte) {
	status := model.NotificationStatusDelivered

	if err := w.post(sub, body); err != nil {
		status = model.NotificationStatusFailed
		w.logger.Errorw("webhook delivery failed",
			"subscription", sub.ID,
			"url", sub.URL,
			"event", eventType,
			"err", err,
		)
	} else {
		w.logger.Debugw("webhook delivered", "subscription", sub.ID, "event", eventType)
	}

	if w.history != nil {
		ts := w.now()
		for _, id := range eventIDs {
			w.history.Append(model.NotificationRecord{
				EventID:   id,
				Channel:   "webhook",
				Status:    status,
				Timestamp: ts,
			})
		}
	}
}

func (w *Webhooks) post(sub *model.Webhook, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sub.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(sub.Secret, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

// Sign computes the signature a receiver is expected to verify.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
