package api

import (
	"net/http"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/Abbo0dio/taqweem/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Api struct {
	handler http.Handler
	logger  *zap.SugaredLogger
	secret  string

	store    eventStore
	webhooks webhookRegistry
	history  historyLog
	tokens   tokenRegistry
	hub      streamHub
}

type eventStore interface {
	Create(info *model.EventCreate) (*model.Event, error)
	Update(id string, update *model.EventUpdate) (*model.Event, error)
	Delete(id string) bool
	Get(id string) (*model.Event, error)
	List(filter model.EventsFilter) (*model.EventsPage, error)
	Today() []*model.Event
	Upcoming(days int) []*model.Event
	ExportICS() string
}

type webhookRegistry interface {
	Register(url string, events []string, secret string) (*model.Webhook, error)
	Delete(id string) bool
	List() []*model.Webhook
}

type historyLog interface {
	Records() []model.NotificationRecord
}

type tokenRegistry interface {
	Issue() (string, error)
	Validate(token string) bool
	Revoke(token string) bool
	Infos() []model.TokenInfo
}

type streamHub interface {
	Subscribe() *notify.Subscriber
	Unsubscribe(sub *notify.Subscriber)
}

func NewApi(
	logger *zap.SugaredLogger,
	secret string,
	store eventStore,
	webhooks webhookRegistry,
	history historyLog,
	tokens tokenRegistry,
	hub streamHub,
) *Api {
	a := &Api{
		logger:   logger,
		secret:   secret,
		store:    store,
		webhooks: webhooks,
		history:  history,
		tokens:   tokens,
		hub:      hub,
	}
	a.setupHandler()

	return a
}

func (a *Api) setupHandler() {
	middleware.DefaultLogger = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a.logger.Debugw(r.URL.RequestURI(),
				"addr", r.RemoteAddr,
				"protocol", r.Proto,
				"method", r.Method,
			)
			next.ServeHTTP(w, r)
		})
	}

	r := chi.NewMux()

	r.Use(middleware.Logger, middleware.Recoverer, middleware.StripSlashes)
	r.NotFound(a.notFoundResponse)
	r.MethodNotAllowed(a.methodNotAllowedResponse)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/events", func(r chi.Router) {
		r.Get("/", a.listEventsHandler)
		r.Get("/today", a.todayEventsHandler)
		r.Get("/upcoming", a.upcomingEventsHandler)
		r.Get("/stream", a.streamEventsHandler)
		r.Get("/{id}", a.getEventHandler)

		r.With(a.auth).Post("/", a.createEventHandler)
		r.With(a.auth).Put("/{id}", a.updateEventHandler)
		r.With(a.auth).Patch("/{id}", a.updateEventHandler)
		r.With(a.auth).Delete("/{id}", a.deleteEventHandler)
	})

	r.Get("/calendar.ics", a.exportCalendarHandler)

	r.With(a.auth).Route("/webhooks", func(r chi.Router) {
		r.Get("/", a.listWebhooksHandler)
		r.Post("/", a.registerWebhookHandler)
		r.Delete("/{id}", a.deleteWebhookHandler)
	})

	r.With(a.auth).Get("/notifications/history", a.notificationHistoryHandler)

	r.With(a.adminAuth).Route("/auth/tokens", func(r chi.Router) {
		r.Get("/", a.listTokensHandler)
		r.Post("/", a.issueTokenHandler)
		r.Post("/revoke", a.revokeTokenHandler)
	})

	a.handler = r
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}
