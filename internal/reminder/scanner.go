package reminder

import (
	"context"
	"time"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type eventStore interface {
	DueForReminder(lead time.Duration) []model.Reminder
}

type notifier interface {
	RemindersDue(reminders []model.Reminder)
}

// Scanner periodically asks the store which events have entered their
// notification window and forwards them to the notifier. It keeps no state
// across ticks: an event whose window spans several ticks is reported on
// each of them, and remind-once consumers are expected to deduplicate
// against the notification history themselves.
type Scanner struct {
	cron     *cron.Cron
	store    eventStore
	notifier notifier
	interval time.Duration
	lead     time.Duration
	logger   *zap.SugaredLogger
}

func NewScanner(store eventStore, notifier notifier, interval, lead time.Duration, logger *zap.SugaredLogger) *Scanner {
	return &Scanner{
		cron:     cron.New(),
		store:    store,
		notifier: notifier,
		interval: interval,
		lead:     lead,
		logger:   logger,
	}
}

func (s *Scanner) Start() {
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.Scan))
	s.cron.Start()
	s.logger.Infow("reminder scanner started", "interval", s.interval, "lead", s.lead)
}

// Stop halts the tick and waits for a running scan to finish.
func (s *Scanner) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.logger.Warnw("shutdown before reminder scan finished")
	}
}

func (s *Scanner) Scan() {
	due := s.store.DueForReminder(s.lead)
	if len(due) == 0 {
		return
	}

	s.logger.Infow("reminders due", "count", len(due))
	s.notifier.RemindersDue(due)
}
