package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Abbo0dio/taqweem/internal/model"
	"github.com/go-chi/chi/v5"
)

func (a *Api) createEventHandler(w http.ResponseWriter, r *http.Request) {
	req := &model.EventCreate{}
	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	event, err := a.store.Create(req)
	if err != nil {
		a.storeErrorResponse(w, r, fmt.Errorf("create event: %w", err))
		return
	}

	if err := a.writeJSON(w, http.StatusCreated, event, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) getEventHandler(w http.ResponseWriter, r *http.Request) {
	event, err := a.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.storeErrorResponse(w, r, err)
		return
	}

	if err := a.writeJSON(w, http.StatusOK, event, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) updateEventHandler(w http.ResponseWriter, r *http.Request) {
	req := &model.EventUpdate{}
	if err := a.readJSON(w, r, req); err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	event, err := a.store.Update(chi.URLParam(r, "id"), req)
	if err != nil {
		a.storeErrorResponse(w, r, err)
		return
	}

	if err := a.writeJSON(w, http.StatusOK, event, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) deleteEventHandler(w http.ResponseWriter, r *http.Request) {
	if !a.store.Delete(chi.URLParam(r, "id")) {
		a.notFoundResponse(w, r)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *Api) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventsQuery(r)
	if err != nil {
		a.badRequestResponse(w, r, err)
		return
	}

	page, err := a.store.List(*filter)
	if err != nil {
		a.storeErrorResponse(w, r, err)
		return
	}

	if err := a.writeJSON(w, http.StatusOK, page, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) todayEventsHandler(w http.ResponseWriter, r *http.Request) {
	events := a.store.Today()

	if err := a.writeJSON(w, http.StatusOK, map[string]interface{}{"events": events}, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) upcomingEventsHandler(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			a.badRequestResponse(w, r, fmt.Errorf("invalid days %q", v))
			return
		}
		days = parsed
	}

	events := a.store.Upcoming(days)

	if err := a.writeJSON(w, http.StatusOK, map[string]interface{}{"events": events, "days": days}, nil); err != nil {
		a.serverErrorResponse(w, r, err)
	}
}

func (a *Api) exportCalendarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	fmt.Fprint(w, a.store.ExportICS())
}

func parseEventsQuery(r *http.Request) (*model.EventsFilter, error) {
	res := &model.EventsFilter{
		From:   r.URL.Query().Get("start"),
		To:     r.URL.Query().Get("end"),
		Type:   r.URL.Query().Get("type"),
		Search: r.URL.Query().Get("search"),
		Limit:  100,
	}

	var err error
	if v := r.URL.Query().Get("month"); v != "" {
		if res.Month, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid month %q", v)
		}
	}
	if v := r.URL.Query().Get("year"); v != "" {
		if res.Year, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid year %q", v)
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if res.Limit, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if res.Offset, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid offset %q", v)
		}
	}

	return res, nil
}
