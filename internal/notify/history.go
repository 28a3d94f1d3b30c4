package notify

import (
	"sync"

	"github.com/Abbo0dio/taqweem/internal/model"
)

// History is the bounded append-only delivery log. Once the cap is exceeded
// the oldest entries are evicted first. Business logic never reads it; it
// exists for audit queries and for consumers that implement their own
// remind-once tracking.
type History struct {
	mu      sync.Mutex
	records []model.NotificationRecord
	limit   int
	flusher flushScheduler
}

type flushScheduler interface {
	Schedule()
}

func NewHistory(limit int, flusher flushScheduler) *History {
	if limit < 1 {
		limit = 1000
	}

	return &History{limit: limit, flusher: flusher}
}

// Load seeds the log from a persisted document, trimming to the cap.
func (h *History) Load(records []model.NotificationRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(records) > h.limit {
		records = records[len(records)-h.limit:]
	}
	h.records = append([]model.NotificationRecord(nil), records...)
}

func (h *History) Append(record model.NotificationRecord) {
	h.mu.Lock()
	h.records = append(h.records, record)
	if overflow := len(h.records) - h.limit; overflow > 0 {
		h.records = h.records[overflow:]
	}
	h.mu.Unlock()

	if h.flusher != nil {
		h.flusher.Schedule()
	}
}

// Records returns a copy of the log, oldest first.
func (h *History) Records() []model.NotificationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]model.NotificationRecord(nil), h.records...)
}
