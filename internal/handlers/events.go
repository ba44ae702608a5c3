package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"photo-gallery/internal/logging"
	"photo-gallery/internal/progress"
)

// sseBuffer is each feed's subscription buffer.
const sseBuffer = 256

// AlbumEvents handles GET /api/albums/{album}/events, streaming the
// album's progress as server-sent events until the client disconnects.
// Events are not replayed; clients re-list photos after reconnecting.
func (h *Handlers) AlbumEvents(w http.ResponseWriter, r *http.Request) {
	album := h.resolveAlbum(w, r)
	if album == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := h.hub.Subscribe(album.ID, sseBuffer)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: 3000\n: subscribed to album %d\n\n", album.ID)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				logging.Debug("event stream for album %d closed: %v", album.ID, err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev progress.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
