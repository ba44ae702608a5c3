package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/metrics"
	"photo-gallery/internal/rendition"
)

// FallbackHeader is set when the original is served in place of a
// rendition that has not been generated.
const FallbackHeader = "X-Rendition-Fallback"

// GetRendition handles GET /api/photos/{id}/renditions/{profile}. A cached
// rendition is served when present; otherwise the original bytes are served
// with X-Rendition-Fallback: original. Profile "original" always serves the
// original.
func (h *Handlers) GetRendition(w http.ResponseWriter, r *http.Request) {
	profile := mux.Vars(r)["profile"]
	if profile != rendition.Original {
		if _, ok := rendition.ProfileByName(profile); !ok {
			writeJSONError(w, "Unknown rendition profile", http.StatusBadRequest)
			return
		}
	}

	photo := h.loadPhoto(w, r)
	if photo == nil {
		return
	}

	if profile != rendition.Original {
		if path, ok := h.renditions.Lookup(photo.BlobKey, profile); ok {
			metrics.RenditionRequestsTotal.WithLabelValues(profile, "hit").Inc()
			w.Header().Set("Cache-Control", "public, max-age=86400")
			w.Header().Set("Content-Type", "image/jpeg")
			http.ServeFile(w, r, path)
			return
		}
		metrics.RenditionRequestsTotal.WithLabelValues(profile, "fallback").Inc()
		w.Header().Set(FallbackHeader, rendition.Original)
		// The rendition may appear shortly; keep the fallback out of caches.
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}

	data, err := h.blobs.Retrieve(r.Context(), photo.BlobKey)
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		logging.Warn("blob %s for photo %d is missing", photo.BlobKey, photo.ID)
		writeJSONError(w, "Original not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("failed to read blob %s for photo %d: %v", photo.BlobKey, photo.ID, err)
		writeJSONError(w, "Failed to read original", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", photo.ContentType)
	w.Header().Set("ETag", `"`+photo.BlobKey+`"`)
	http.ServeContent(w, r, photo.Filename, time.Time{}, bytes.NewReader(data))
}
