package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"photo-gallery/internal/database"
)

type batchPayload struct {
	AlbumID int64        `json:"albumId"`
	Items   []UploadItem `json:"items"`
}

type renderPayload struct {
	PhotoID int64 `json:"photoId"`
}

// handleIngestBatch runs a queued batch. Item failures only reach the
// batch_complete counts and the logs; the task fails when nothing was
// created so the status endpoint reflects it.
func (p *Processor) handleIngestBatch(ctx context.Context, task *database.Task) error {
	var payload batchPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", TaskIngestBatch, err)
	}

	result := p.ingest(ctx, payload.AlbumID, payload.Items, modeAsync)
	if len(payload.Items) > 0 && result.Outcome() == OutcomeFailed {
		return fmt.Errorf("all %d items failed", len(result.Failed))
	}
	return nil
}

// handleRenderPhoto generates every rendition profile for one photo.
func (p *Processor) handleRenderPhoto(ctx context.Context, task *database.Task) error {
	var payload renderPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", TaskRenderPhoto, err)
	}

	photo, err := p.photos.GetPhoto(ctx, payload.PhotoID)
	if errors.Is(err, database.ErrNotFound) {
		return newError(KindNotFound, fmt.Errorf("photo %d: %w", payload.PhotoID, err))
	}
	if err != nil {
		return fmt.Errorf("failed to load photo %d: %w", payload.PhotoID, err)
	}

	report := p.renderer.Generate(ctx, photo)
	if !report.OK() {
		return newError(KindRenditionFailure, report.Err())
	}
	return nil
}
