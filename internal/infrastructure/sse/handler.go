// Package sse streams progress events over Server-Sent Events for clients
// that cannot hold a websocket open.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
)

// Handler streams progress events via Server-Sent Events.
type Handler struct {
	publisher *progress.Publisher
}

// NewHandler creates a handler over the given publisher.
func NewHandler(publisher *progress.Publisher) *Handler {
	return &Handler{publisher: publisher}
}

// ServeHTTP handles one SSE connection. New clients receive the latest
// snapshot per kind first, then live updates. The optional types query
// parameter narrows the stream to the named kinds.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	kindFilter := make(map[progress.Kind]bool)
	if kinds := r.URL.Query().Get("types"); kinds != "" {
		for _, k := range strings.Split(kinds, ",") {
			kindFilter[progress.Kind(strings.TrimSpace(k))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	events, cancel := h.publisher.Subscribe()
	defer cancel()

	for _, event := range h.publisher.SnapshotAll() {
		if !writeEvent(w, flusher, event, kindFilter) {
			return
		}
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !writeEvent(w, flusher, event, kindFilter) {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event progress.Event, filter map[progress.Kind]bool) bool {
	if len(filter) > 0 && !filter[event.Kind] {
		return true
	}

	data, err := json.Marshal(event)
	if err != nil {
		return true
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
