package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photo-gallery/internal/blobstore"
	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/mediatypes"
	"photo-gallery/internal/metrics"
	"photo-gallery/internal/progress"
	"photo-gallery/internal/queue"
	"photo-gallery/internal/rendition"
)

var log = logging.For("ingest")

// DefaultAsyncThreshold is the batch size from which Submit queues work.
const DefaultAsyncThreshold = 20

// Task kinds registered on the queue.
const (
	TaskIngestBatch = "ingest_batch"
	TaskRenderPhoto = "render_photo"
)

const (
	modeSync  = "sync"
	modeAsync = "async"
)

// UploadItem is one file of a batch: either raw bytes or the key of a blob
// stored earlier. Data travels base64-encoded when the item is queued.
type UploadItem struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"content,omitempty"`
	BlobKey     string `json:"blobKey,omitempty"`
}

// ItemFailure records why the item at Index was not turned into a photo.
type ItemFailure struct {
	Index    int      `json:"index"`
	Filename string   `json:"filename"`
	Kind     Kind     `json:"kind"`
	Reasons  []string `json:"reasons"`
}

// Outcome summarises a batch for callers that need a single verdict.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
	OutcomeFailed   Outcome = "failed"
)

// BatchResult holds the photos created and the items that failed.
// len(Created)+len(Failed) always equals the number of items submitted.
type BatchResult struct {
	Created []database.Photo `json:"created"`
	Failed  []ItemFailure    `json:"failed"`
}

// Outcome is failed only when every item failed.
func (r BatchResult) Outcome() Outcome {
	switch {
	case len(r.Failed) == 0:
		return OutcomeComplete
	case len(r.Created) == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// Submission is what Submit hands back: a result for inline batches, or
// the queued task for deferred ones.
type Submission struct {
	Accepted  bool         `json:"accepted"`
	ItemCount int          `json:"itemCount"`
	TaskID    string       `json:"taskId,omitempty"`
	Result    *BatchResult `json:"result,omitempty"`
}

// PhotoStore is the persistence the processor needs.
type PhotoStore interface {
	GetAlbum(ctx context.Context, id int64) (*database.Album, error)
	InsertPhoto(ctx context.Context, p *database.Photo) error
	GetPhoto(ctx context.Context, id int64) (*database.Photo, error)
}

// TaskQueue is the background queue the processor defers work to.
type TaskQueue interface {
	Register(kind string, fn queue.HandlerFunc)
	Enqueue(ctx context.Context, kind string, payload any) (queue.Handle, error)
}

// Renderer produces renditions for a photo.
type Renderer interface {
	Generate(ctx context.Context, photo *database.Photo) rendition.Report
}

// Options configures a Processor.
type Options struct {
	// AsyncThreshold is the batch size at which Submit stops running inline.
	// 0 means DefaultAsyncThreshold.
	AsyncThreshold int
}

// Processor runs ingestion batches.
type Processor struct {
	blobs     blobstore.Store
	photos    PhotoStore
	tasks     TaskQueue
	renderer  Renderer
	progress  progress.Publisher
	threshold int
}

// NewProcessor wires a processor and registers its task handlers on tasks,
// so it must be called before the queue is started.
func NewProcessor(blobs blobstore.Store, photos PhotoStore, tasks TaskQueue, renderer Renderer, pub progress.Publisher, opts Options) *Processor {
	if opts.AsyncThreshold <= 0 {
		opts.AsyncThreshold = DefaultAsyncThreshold
	}
	p := &Processor{
		blobs:     blobs,
		photos:    photos,
		tasks:     tasks,
		renderer:  renderer,
		progress:  pub,
		threshold: opts.AsyncThreshold,
	}
	tasks.Register(TaskIngestBatch, p.handleIngestBatch)
	tasks.Register(TaskRenderPhoto, p.handleRenderPhoto)
	return p
}

// AsyncThreshold returns the batch size at which Submit defers.
func (p *Processor) AsyncThreshold() int {
	return p.threshold
}

// Submit validates the batch and either ingests it now (fewer than
// AsyncThreshold items) or queues it and returns without a result.
func (p *Processor) Submit(ctx context.Context, albumID int64, items []UploadItem) (Submission, error) {
	if err := p.checkBatch(ctx, albumID, items); err != nil {
		return Submission{}, err
	}

	if len(items) >= p.threshold {
		return p.enqueueBatch(ctx, albumID, items)
	}

	result := p.ingest(ctx, albumID, items, modeSync)
	return Submission{ItemCount: len(items), Result: &result}, nil
}

// Defer validates the batch and always queues it.
func (p *Processor) Defer(ctx context.Context, albumID int64, items []UploadItem) (Submission, error) {
	if err := p.checkBatch(ctx, albumID, items); err != nil {
		return Submission{}, err
	}
	return p.enqueueBatch(ctx, albumID, items)
}

func (p *Processor) checkBatch(ctx context.Context, albumID int64, items []UploadItem) error {
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	if _, err := p.photos.GetAlbum(ctx, albumID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrAlbumNotFound, albumID)
		}
		return fmt.Errorf("failed to load album: %w", err)
	}
	return nil
}

func (p *Processor) enqueueBatch(ctx context.Context, albumID int64, items []UploadItem) (Submission, error) {
	handle, err := p.tasks.Enqueue(ctx, TaskIngestBatch, batchPayload{AlbumID: albumID, Items: items})
	if err != nil {
		return Submission{}, fmt.Errorf("failed to queue batch: %w", err)
	}
	log.Info("queued %d items for album %d as task %s", len(items), albumID, handle.ID)
	return Submission{Accepted: true, ItemCount: len(items), TaskID: handle.ID}, nil
}

// Ingest attempts every item in order on the calling goroutine.
func (p *Processor) Ingest(ctx context.Context, albumID int64, items []UploadItem) BatchResult {
	return p.ingest(ctx, albumID, items, modeSync)
}

func (p *Processor) ingest(ctx context.Context, albumID int64, items []UploadItem, mode string) BatchResult {
	// A started batch runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	result := BatchResult{
		Created: make([]database.Photo, 0, len(items)),
		Failed:  []ItemFailure{},
	}

	for i, item := range items {
		photo, err := p.ingestItem(ctx, albumID, item)
		if err != nil {
			result.Failed = append(result.Failed, ItemFailure{
				Index:    i,
				Filename: item.Filename,
				Kind:     err.Kind,
				Reasons:  err.Reasons,
			})
			metrics.IngestItemsTotal.WithLabelValues("failed").Inc()
			metrics.IngestFailuresTotal.WithLabelValues(err.Kind.String()).Inc()
			log.Warn("item %d/%d (%s) for album %d failed: %v", i+1, len(items), item.Filename, albumID, err)
			continue
		}

		result.Created = append(result.Created, *photo)
		metrics.IngestItemsTotal.WithLabelValues("created").Inc()
		log.Debug("item %d/%d (%s) stored as photo %d", i+1, len(items), item.Filename, photo.ID)

		if _, err := p.tasks.Enqueue(ctx, TaskRenderPhoto, renderPayload{PhotoID: photo.ID}); err != nil {
			log.Error("failed to queue renditions for photo %d: %v", photo.ID, err)
		}
		p.progress.Publish(albumID, progress.PhotoReady(*photo))
	}

	p.progress.Publish(albumID, progress.BatchComplete(len(result.Created), len(result.Failed)))

	metrics.IngestBatchesTotal.WithLabelValues(mode).Inc()
	metrics.IngestBatchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	log.Info("%s batch for album %d: %d created, %d failed in %v",
		mode, albumID, len(result.Created), len(result.Failed), time.Since(start).Round(time.Millisecond))

	return result
}

func (p *Processor) ingestItem(ctx context.Context, albumID int64, item UploadItem) (*database.Photo, *Error) {
	if len(item.Data) == 0 && item.BlobKey == "" {
		return nil, newError(KindNoContent, nil, "no content")
	}

	blob, ierr := p.resolveBlob(ctx, item)
	if ierr != nil {
		return nil, ierr
	}

	filename := firstNonEmpty(item.Filename, blob.Filename)
	photo := &database.Photo{
		AlbumID:     albumID,
		BlobKey:     blob.Key,
		Filename:    filename,
		ContentType: mediatypes.ResolveContentType(firstNonEmpty(item.ContentType, blob.ContentType), filename),
		ByteSize:    blob.ByteSize,
	}
	if err := p.photos.InsertPhoto(ctx, photo); err != nil {
		var verr *database.ValidationError
		if errors.As(err, &verr) {
			return nil, newError(KindValidationFailure, err, verr.Reasons...)
		}
		return nil, newError(KindStorageFailure, err)
	}
	return photo, nil
}

func (p *Processor) resolveBlob(ctx context.Context, item UploadItem) (blobstore.StoredBlob, *Error) {
	if item.BlobKey != "" {
		blob, err := p.blobs.Exists(ctx, item.BlobKey)
		if err != nil {
			if errors.Is(err, blobstore.ErrNotFound) {
				return blob, newError(KindNotFound, err)
			}
			return blob, newError(KindStorageFailure, err)
		}
		return blob, nil
	}

	contentType := mediatypes.ResolveContentType(item.ContentType, item.Filename)
	blob, err := p.blobs.Store(ctx, item.Data, item.Filename, contentType)
	if err != nil {
		return blob, newError(KindStorageFailure, err)
	}
	return blob, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
