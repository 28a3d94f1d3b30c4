package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Abbo0dio/taqweem/internal/api"
	"github.com/Abbo0dio/taqweem/internal/auth"
	"github.com/Abbo0dio/taqweem/internal/calendar"
	"github.com/Abbo0dio/taqweem/internal/config"
	"github.com/Abbo0dio/taqweem/internal/notify"
	"github.com/Abbo0dio/taqweem/internal/reminder"
	"github.com/Abbo0dio/taqweem/internal/storage"
	"github.com/xlab/closer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("unable to initialize logger: %v", err)
	}

	docs, err := storage.NewDocuments(config.DataDir(), logger)
	if err != nil {
		logger.Fatalw("unable to initialize document storage", "err", err)
	}

	var history *notify.History
	historyFlush := storage.NewDebouncer(config.FlushDelay(), func() error {
		return docs.SaveNotifications(history.Records())
	}, logger)
	history = notify.NewHistory(config.HistoryLimit(), historyFlush)

	var store *calendar.Store
	eventsFlush := storage.NewDebouncer(config.FlushDelay(), func() error {
		events, modified := store.Snapshot()
		return docs.SaveEvents(events, modified)
	}, logger)

	hub := notify.NewHub(config.StreamBuffer(), logger)
	webhooks := notify.NewWebhooks(docs, config.WebhookTimeout(), history, logger)
	notifier := notify.NewNotifier(hub, webhooks, history, logger)
	store = calendar.NewStore(logger, notifier, eventsFlush)

	events, modified, err := docs.LoadEvents()
	if err != nil {
		logger.Fatalw("unable to load events", "err", err)
	}
	store.Load(events, modified)

	subs, err := docs.LoadWebhooks()
	if err != nil {
		logger.Fatalw("unable to load webhook subscriptions", "err", err)
	}
	webhooks.Load(subs)

	records, err := docs.LoadNotifications()
	if err != nil {
		logger.Fatalw("unable to load notification history", "err", err)
	}
	history.Load(records)

	logger.Infow("state loaded",
		"events", len(events),
		"webhooks", len(subs),
		"notification_records", len(records),
	)

	registry := auth.NewRegistry(rand.Reader, config.TokenLength())

	scanner := reminder.NewScanner(store, notifier, config.ReminderInterval(), config.ReminderLead(), logger)
	scanner.Start()

	a := api.NewApi(logger, config.Secret(), store, webhooks, history, registry, hub)

	errLogger, err := zap.NewStdLogAt(logger.Desugar(), zap.ErrorLevel)
	if err != nil {
		logger.Fatalw("error initiating server logger", "err", err)
	}

	server := &http.Server{
		Addr:     ":" + config.Port(),
		Handler:  a,
		ErrorLog: errLogger,
	}

	// closer runs cleanups in LIFO order, so the drain sequence is:
	// stop accepting requests, stop timers, final flush, close subscribers.
	closer.Bind(func() {
		hub.Close()
	})
	closer.Bind(func() {
		if err := eventsFlush.FlushNow(); err != nil {
			logger.Errorw("final event flush failed", "err", err)
		}
		if err := historyFlush.FlushNow(); err != nil {
			logger.Errorw("final notification history flush failed", "err", err)
		}
	})
	closer.Bind(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scanner.Stop(ctx)
	})
	closer.Bind(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("server shutdown", "err", err)
		}
	})

	go func() {
		logger.Infow("started server", "port", config.Port())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("server error", "err", err)
			closer.Close()
		}
	}()

	closer.Hold()
}

func initLogger() (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if config.Production() {
		logger, err = zap.NewProduction()
	} else {
		conf := zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = conf.Build()
	}

	if err != nil {
		return nil, err
	}

	closer.Bind(func() {
		_ = logger.Sync()
	})

	return logger.Sugar(), nil
}
