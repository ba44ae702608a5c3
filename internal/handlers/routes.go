package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts every endpoint on r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/albums", h.ListAlbums).Methods(http.MethodGet)
	api.HandleFunc("/albums", h.CreateAlbum).Methods(http.MethodPost)
	api.HandleFunc("/albums/{album}", h.GetAlbum).Methods(http.MethodGet)
	api.HandleFunc("/albums/{album}/photos", h.ListPhotos).Methods(http.MethodGet)
	api.HandleFunc("/albums/{album}/photos", h.UploadPhotos).Methods(http.MethodPost)
	api.HandleFunc("/albums/{album}/photos/async", h.AsyncUpload).Methods(http.MethodPost)
	api.HandleFunc("/albums/{album}/events", h.AlbumEvents).Methods(http.MethodGet)

	api.HandleFunc("/blobs", h.PreUpload).Methods(http.MethodPost)

	api.HandleFunc("/photos/{id:[0-9]+}", h.GetPhoto).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id:[0-9]+}", h.DeletePhoto).Methods(http.MethodDelete)
	api.HandleFunc("/photos/{id:[0-9]+}/renditions/{profile}", h.GetRendition).Methods(http.MethodGet)

	api.HandleFunc("/tasks/{id}", h.GetTask).Methods(http.MethodGet)
}
