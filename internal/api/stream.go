package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// streamEventsHandler serves live change notifications over server-sent
// events. The subscriber is removed as soon as the client goes away; a slow
// client only ever loses messages, it never blocks the fan-out.
func (a *Api) streamEventsHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.serverErrorResponse(w, r, fmt.Errorf("streaming unsupported by connection"))
		return
	}

	sub := a.hub.Subscribe()
	defer a.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				a.logger.Errorw("marshaling stream message", "err", err)
				continue
			}

			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
