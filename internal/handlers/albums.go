package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
)

type createAlbumRequest struct {
	Name string `json:"name"`
}

// CreateAlbum handles POST /api/albums.
func (h *Handlers) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req createAlbumRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	album, err := h.db.CreateAlbum(r.Context(), req.Name)
	if err != nil {
		var verr *database.ValidationError
		if errors.As(err, &verr) {
			writeJSONStatusCode(w, http.StatusUnprocessableEntity, validationResponse{Error: "Album is invalid", Reasons: verr.Reasons})
			return
		}
		logging.Error("failed to create album: %v", err)
		writeJSONError(w, "Failed to create album", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "/api/albums/"+album.Slug)
	writeJSONStatusCode(w, http.StatusCreated, album)
}

// ListAlbums handles GET /api/albums.
func (h *Handlers) ListAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := h.db.ListAlbums(r.Context())
	if err != nil {
		logging.Error("failed to list albums: %v", err)
		writeJSONError(w, "Failed to list albums", http.StatusInternalServerError)
		return
	}
	if albums == nil {
		albums = []database.Album{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, albums)
}

// GetAlbum handles GET /api/albums/{album}; the album is an id or a slug.
func (h *Handlers) GetAlbum(w http.ResponseWriter, r *http.Request) {
	album := h.resolveAlbum(w, r)
	if album == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, album)
}

// ListPhotos handles GET /api/albums/{album}/photos, newest first. Clients
// re-fetch this after reconnecting to the progress feed.
func (h *Handlers) ListPhotos(w http.ResponseWriter, r *http.Request) {
	album := h.resolveAlbum(w, r)
	if album == nil {
		return
	}

	photos, err := h.db.ListPhotos(r.Context(), album.ID)
	if err != nil {
		logging.Error("failed to list photos for album %d: %v", album.ID, err)
		writeJSONError(w, "Failed to list photos", http.StatusInternalServerError)
		return
	}
	if photos == nil {
		photos = []database.Photo{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, photos)
}
