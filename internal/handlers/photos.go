package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"photo-gallery/internal/database"
	"photo-gallery/internal/ingest"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/mediatypes"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

// uploadResponse is the body of an inline (synchronous) batch.
type uploadResponse struct {
	Outcome ingest.Outcome       `json:"outcome"`
	Created []database.Photo     `json:"created"`
	Failed  []ingest.ItemFailure `json:"failed"`
}

// acceptedResponse is the body of a queued batch.
type acceptedResponse struct {
	Accepted  bool   `json:"accepted"`
	ItemCount int    `json:"itemCount"`
	TaskID    string `json:"taskId"`
	Message   string `json:"message"`
}

// UploadPhotos handles POST /api/albums/{album}/photos with multipart
// "images" parts. Batches below the async threshold answer 201 (or 422 when
// every item failed); larger ones answer 202 and continue in the background.
func (h *Handlers) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	album := h.resolveAlbum(w, r)
	if album == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, "Upload is too large", http.StatusRequestEntityTooLarge)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			writeJSONError(w, "Invalid multipart body", http.StatusBadRequest)
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	items, err := readUploadItems(r.MultipartForm)
	if err != nil {
		logging.Warn("failed to read upload for album %d: %v", album.ID, err)
		writeJSONError(w, "Failed to read uploaded files", http.StatusBadRequest)
		return
	}

	h.submit(w, r, album, items, false)
}

func readUploadItems(form *multipart.Form) ([]ingest.UploadItem, error) {
	if form == nil {
		return nil, nil
	}
	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["images[]"]
	}

	items := make([]ingest.UploadItem, 0, len(files))
	for _, fh := range files {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		items = append(items, ingest.UploadItem{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return items, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type blobFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content,omitempty"`
	BlobKey     string `json:"blobKey,omitempty"`
}

type filesRequest struct {
	Files []blobFile `json:"files"`
}

// AsyncUpload handles POST /api/albums/{album}/photos/async. Files name
// blobs stored earlier through PreUpload; the batch is always queued.
func (h *Handlers) AsyncUpload(w http.ResponseWriter, r *http.Request) {
	album := h.resolveAlbum(w, r)
	if album == nil {
		return
	}

	var req filesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Files) == 0 {
		writeJSONError(w, "No files provided", http.StatusBadRequest)
		return
	}

	items := make([]ingest.UploadItem, len(req.Files))
	for i, f := range req.Files {
		items[i] = ingest.UploadItem{Filename: f.Filename, ContentType: f.ContentType, BlobKey: f.BlobKey, Data: f.Content}
	}

	h.submit(w, r, album, items, true)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request, album *database.Album, items []ingest.UploadItem, always bool) {
	var (
		sub ingest.Submission
		err error
	)
	if always {
		sub, err = h.processor.Defer(r.Context(), album.ID, items)
	} else {
		sub, err = h.processor.Submit(r.Context(), album.ID, items)
	}

	switch {
	case errors.Is(err, ingest.ErrEmptyBatch):
		writeJSONStatusCode(w, http.StatusUnprocessableEntity, validationResponse{
			Error:   "Photo is invalid",
			Reasons: []string{"Images must be selected"},
		})
		return
	case errors.Is(err, ingest.ErrAlbumNotFound):
		writeJSONError(w, "Album not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("failed to submit batch for album %d: %v", album.ID, err)
		writeJSONError(w, "Failed to process upload", http.StatusInternalServerError)
		return
	}

	if sub.Accepted {
		writeJSONStatusCode(w, http.StatusAccepted, acceptedResponse{
			Accepted:  true,
			ItemCount: sub.ItemCount,
			TaskID:    sub.TaskID,
			Message:   fmt.Sprintf("%d photos are being processed. They will appear shortly.", sub.ItemCount),
		})
		return
	}

	result := sub.Result
	status := http.StatusCreated
	if result.Outcome() == ingest.OutcomeFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSONStatusCode(w, status, uploadResponse{
		Outcome: result.Outcome(),
		Created: result.Created,
		Failed:  result.Failed,
	})
}

type preUploadResult struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	BlobKey     string `json:"blobKey,omitempty"`
	ByteSize    int64  `json:"byteSize,omitempty"`
	Error       string `json:"error,omitempty"`
}

// PreUpload handles POST /api/blobs: base64 file contents are stored and
// their blob keys returned for a later AsyncUpload. Per-file failures are
// reported inline.
func (h *Handlers) PreUpload(w http.ResponseWriter, r *http.Request) {
	var req filesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes)).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Files) == 0 {
		writeJSONError(w, "No files provided", http.StatusBadRequest)
		return
	}

	results := make([]preUploadResult, len(req.Files))
	for i, f := range req.Files {
		res := preUploadResult{
			Filename:    f.Filename,
			ContentType: mediatypes.ResolveContentType(f.ContentType, f.Filename),
		}
		if len(f.Content) == 0 {
			res.Error = "no content"
			results[i] = res
			continue
		}

		blob, err := h.blobs.Store(r.Context(), f.Content, f.Filename, res.ContentType)
		if err != nil {
			logging.Error("failed to store blob for %s: %v", f.Filename, err)
			res.Error = err.Error()
		} else {
			res.BlobKey = blob.Key
			res.ByteSize = blob.ByteSize
		}
		results[i] = res
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, results)
}

// GetPhoto handles GET /api/photos/{id}.
func (h *Handlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	photo := h.loadPhoto(w, r)
	if photo == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, photo)
}

// DeletePhoto handles DELETE /api/photos/{id}. The blob is kept.
func (h *Handlers) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSONError(w, "Invalid photo id", http.StatusBadRequest)
		return
	}

	err := h.db.DeletePhoto(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Photo not found", http.StatusNotFound)
	case err != nil:
		logging.Error("failed to delete photo %d: %v", id, err)
		writeJSONError(w, "Failed to delete photo", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handlers) loadPhoto(w http.ResponseWriter, r *http.Request) *database.Photo {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSONError(w, "Invalid photo id", http.StatusBadRequest)
		return nil
	}

	photo, err := h.db.GetPhoto(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSONError(w, "Photo not found", http.StatusNotFound)
		return nil
	case err != nil:
		logging.Error("failed to load photo %d: %v", id, err)
		writeJSONError(w, "Failed to load photo", http.StatusInternalServerError)
		return nil
	}
	return photo
}
