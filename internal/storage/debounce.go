package storage

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Debouncer schedules a flush after a quiescence delay, coalescing bursts of
// mutations into one write. There is exactly one pending flush slot: a new
// Schedule before the timer fires resets it, so only the latest state is
// ever written. A failed flush is logged and retried on the next schedule,
// never immediately.
type Debouncer struct {
	mu    sync.Mutex
	timer *time.Timer

	// flushMu serializes the flush calls themselves, so a FlushNow never
	// races a scheduled flush that already fired and loses the rename to
	// stale state.
	flushMu sync.Mutex

	delay  time.Duration
	flush  func() error
	logger *zap.SugaredLogger
}

func NewDebouncer(delay time.Duration, flush func() error, logger *zap.SugaredLogger) *Debouncer {
	return &Debouncer{
		delay:  delay,
		flush:  flush,
		logger: logger,
	}
}

func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timer = nil
	d.mu.Unlock()

	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	if err := d.flush(); err != nil {
		d.logger.Errorw("scheduled flush failed, in-memory state stays authoritative", "err", err)
	}
}

// FlushNow cancels any pending timer, waits out an in-flight scheduled
// flush, and writes synchronously. Used on graceful shutdown.
func (d *Debouncer) FlushNow() error {
	d.Stop()

	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	return d.flush()
}

// Stop cancels a pending flush without writing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
