// Package metrics provides Prometheus instrumentation for the photo gallery.
//
// All metrics are prefixed with "photo_gallery_" and registered through
// promauto, so importing the package is enough to expose them.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Database Metrics
//   - DBQueryTotal, DBQueryDuration, DBConnectionsOpen, DBTransactionDuration
//
// ## Blob Store Metrics
//   - BlobOperationsTotal: by backend, operation (store/retrieve/stat) and status
//   - BlobOperationDuration, BlobBytesWritten
//
// ## Ingestion Metrics
//   - IngestBatchesTotal: by mode (sync/async)
//   - IngestItemsTotal: by outcome (created/failed)
//   - IngestFailuresTotal: by error kind
//   - IngestBatchDuration
//
// ## Queue Metrics
//   - QueueTasksEnqueued, QueueTasksCompleted, QueueTaskDuration
//   - QueueTasksInFlight, QueueDepth, QueueRedeliveredTotal, QueueWorkers
//
// ## Rendition Metrics
//   - RenditionGenerationsTotal: by profile and status
//   - RenditionGenerationDuration, RenditionRequestsTotal (hit/fallback)
//
// ## Progress Metrics
//   - ProgressEventsPublished, ProgressEventsDropped, ProgressSubscribers
//
// ## Filesystem Metrics
//
// Retry metrics for reads against network filesystems. The filesystem
// package records them through the Observer returned by
// NewFilesystemObserver, which avoids an import cycle.
//
// # Collector
//
// Collector samples gauges that are cheaper to poll than to track
// (queue depth by status, open DB connections) on a fixed interval.
package metrics
