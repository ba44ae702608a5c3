package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding errors are logged; nothing else can be done once headers are out.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// validationResponse lists every reason a record was rejected.
type validationResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons"`
}

// pathID parses the named route variable as a positive integer id.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

// resolveAlbum loads the album named by the {album} route variable, which
// may be a numeric id or a slug. It writes the error response itself and
// returns nil when the album cannot be served.
func (h *Handlers) resolveAlbum(w http.ResponseWriter, r *http.Request) *database.Album {
	ref := mux.Vars(r)["album"]

	var (
		album *database.Album
		err   error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		album, err = h.db.GetAlbum(r.Context(), id)
		if errors.Is(err, database.ErrNotFound) {
			album, err = h.db.GetAlbumBySlug(r.Context(), ref)
		}
	} else {
		album, err = h.db.GetAlbumBySlug(r.Context(), ref)
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Album not found", http.StatusNotFound)
		return nil
	case err != nil:
		logging.Error("failed to load album %q: %v", ref, err)
		writeJSONError(w, "Failed to load album", http.StatusInternalServerError)
		return nil
	}
	return album
}
