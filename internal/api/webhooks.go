package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *Api) registerWebhookHandler(w http.ResponseWriter, r *http.Request) {
	req := &struct {
		URL    string   `json:"url"`
		Events []string `json:"events"`
		Secret string   `json:"secret"`
	}{}

	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	sub, err := a.webhooks.Register(req.URL, req.Events, req.Secret)
	if err != nil {
		a.storeErrorResponse(w, r, fmt.Errorf("register webhook: %w", err))
		return
	}

	resp, _ := mapToWebhookResp(sub)
	if err := a.writeJSON(w, http.StatusCreated, resp, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) listWebhooksHandler(w http.ResponseWriter, r *http.Request) {
	resp, _ := mapSlice(a.webhooks.List(), mapToWebhookResp)

	if err := a.writeJSON(w, http.StatusOK, map[string]interface{}{"webhooks": resp}, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) deleteWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if !a.webhooks.Delete(chi.URLParam(r, "id")) {
		a.notFoundResponse(w, r)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *Api) notificationHistoryHandler(w http.ResponseWriter, r *http.Request) {
	records := a.history.Records()

	if err := a.writeJSON(w, http.StatusOK, map[string]interface{}{"records": records}, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}
