package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"photo-gallery/internal/logging"
	"photo-gallery/internal/queue"
)

// GetTask handles GET /api/tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	task, err := h.tasks.Status(r.Context(), id)
	switch {
	case errors.Is(err, queue.ErrNotFound):
		writeJSONError(w, "Task not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("failed to load task %s: %v", id, err)
		writeJSONError(w, "Failed to load task", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, task)
}
