package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics(blobBackend string) {
	for _, op := range []string{"store", "retrieve", "stat"} {
		for _, status := range []string{"success", "error", "not_found"} {
			BlobOperationsTotal.WithLabelValues(blobBackend, op, status)
		}
		BlobOperationDuration.WithLabelValues(blobBackend, op)
	}
	BlobBytesWritten.WithLabelValues(blobBackend)

	for _, mode := range []string{"sync", "async"} {
		IngestBatchesTotal.WithLabelValues(mode)
		IngestBatchDuration.WithLabelValues(mode)
	}
	for _, outcome := range []string{"created", "failed"} {
		IngestItemsTotal.WithLabelValues(outcome)
	}
	for _, kind := range []string{"no_content", "storage_failure", "validation_failure", "not_found"} {
		IngestFailuresTotal.WithLabelValues(kind)
	}

	for _, kind := range []string{"ingest_batch", "render_photo"} {
		QueueTasksEnqueued.WithLabelValues(kind)
		QueueTasksCompleted.WithLabelValues(kind, "done")
		QueueTasksCompleted.WithLabelValues(kind, "failed")
		QueueTaskDuration.WithLabelValues(kind)
	}
	for _, status := range []string{"pending", "running", "done", "failed"} {
		QueueDepth.WithLabelValues(status)
	}

	for _, profile := range []string{"thumbnail", "medium", "large"} {
		RenditionGenerationsTotal.WithLabelValues(profile, "success")
		RenditionGenerationsTotal.WithLabelValues(profile, "error")
		RenditionGenerationDuration.WithLabelValues(profile)
		RenditionRequestsTotal.WithLabelValues(profile, "hit")
		RenditionRequestsTotal.WithLabelValues(profile, "fallback")
	}

	for _, eventType := range []string{"photo_ready", "batch_complete"} {
		ProgressEventsPublished.WithLabelValues(eventType)
		ProgressEventsDropped.WithLabelValues(eventType)
	}

	for _, op := range []string{"insert_album", "get_album", "insert_photo", "get_photo",
		"list_photos", "delete_photo", "insert_task", "claim_task", "finish_task",
		"requeue_running", "prune_tasks", "count_tasks"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "read"} {
		for _, vol := range []string{"blobs", "renditions", "database", "unknown"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
