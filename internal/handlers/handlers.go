package handlers

import (
	"sync/atomic"
	"time"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/database"
	"photo-gallery/internal/ingest"
	"photo-gallery/internal/progress"
	"photo-gallery/internal/queue"
	"photo-gallery/internal/rendition"
	"photo-gallery/internal/startup"
)

// DefaultMaxUploadBytes bounds request bodies when the config sets no limit.
const DefaultMaxUploadBytes = 1 << 30

type Handlers struct {
	db         *database.Database
	blobs      blobstore.Store
	renditions *rendition.Generator
	processor  *ingest.Processor
	tasks      *queue.Queue
	hub        *progress.Hub

	maxUploadBytes int64
	heartbeat      time.Duration
	startTime      time.Time
	ready          atomic.Bool
}

// Deps groups the components the handlers serve.
type Deps struct {
	DB         *database.Database
	Blobs      blobstore.Store
	Renditions *rendition.Generator
	Processor  *ingest.Processor
	Tasks      *queue.Queue
	Hub        *progress.Hub
}

func New(deps Deps, config *startup.Config) *Handlers {
	h := &Handlers{
		db:             deps.DB,
		blobs:          deps.Blobs,
		renditions:     deps.Renditions,
		processor:      deps.Processor,
		tasks:          deps.Tasks,
		hub:            deps.Hub,
		maxUploadBytes: DefaultMaxUploadBytes,
		heartbeat:      15 * time.Second,
		startTime:      time.Now(),
	}
	if config != nil && config.MaxUploadBytes > 0 {
		h.maxUploadBytes = config.MaxUploadBytes
	}
	return h
}

// SetReady marks the service ready (or not) for the readiness probe.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}
