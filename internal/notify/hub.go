package notify

import (
	"sync"

	"github.com/Abbo0dio/taqweem/internal/model"
	"go.uber.org/zap"
)

// Subscriber is an opaque sink handle for one live viewer. Messages arrive
// on C; the channel is closed when the subscriber is removed or the hub
// shuts down.
type Subscriber struct {
	C chan model.Message
}

// Hub fans mutation and reminder messages out to the currently connected
// live subscribers. Delivery is best-effort: a subscriber whose buffer is
// full is skipped without blocking the others.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	buffer      int
	closed      bool
	logger      *zap.SugaredLogger
}

func NewHub(buffer int, logger *zap.SugaredLogger) *Hub {
	if buffer < 1 {
		buffer = 16
	}

	return &Hub{
		subscribers: map[*Subscriber]struct{}{},
		buffer:      buffer,
		logger:      logger,
	}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan model.Message, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.C)
		return sub
	}
	h.subscribers[sub] = struct{}{}

	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.C)
}

func (h *Hub) Broadcast(msg model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.C <- msg:
		default:
			h.logger.Debugw("dropping message for slow subscriber", "type", msg.Type)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

// Close removes and closes every subscriber; later Subscribe calls get an
// already closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.C)
	}
}
