package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"},
	)
)

// Blob store metrics
var (
	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_blob_operations_total",
			Help: "Total number of blob store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	BlobOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_blob_operation_duration_seconds",
			Help:    "Blob store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"backend", "operation"},
	)

	BlobBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_blob_bytes_written_total",
			Help: "Total bytes written to the blob store",
		},
		[]string{"backend"},
	)
)

// Ingestion metrics
var (
	IngestBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_ingest_batches_total",
			Help: "Total number of ingestion batches by execution mode",
		},
		[]string{"mode"}, // "sync" or "async"
	)

	IngestItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_ingest_items_total",
			Help: "Total number of ingested items by outcome",
		},
		[]string{"outcome"}, // "created" or "failed"
	)

	IngestFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_ingest_failures_total",
			Help: "Total number of failed items by error kind",
		},
		[]string{"kind"},
	)

	IngestBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_ingest_batch_duration_seconds",
			Help:    "Time to attempt every item of a batch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)
)

// Queue metrics
var (
	QueueTasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_queue_tasks_enqueued_total",
			Help: "Total number of tasks enqueued by kind",
		},
		[]string{"kind"},
	)

	QueueTasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_queue_tasks_completed_total",
			Help: "Total number of tasks finished by kind and status",
		},
		[]string{"kind", "status"}, // "done" or "failed"
	)

	QueueTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_queue_task_duration_seconds",
			Help:    "Task execution time in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	QueueTasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_queue_tasks_in_flight",
			Help: "Number of tasks currently executing",
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_gallery_queue_depth",
			Help: "Number of persisted tasks by status",
		},
		[]string{"status"},
	)

	QueueRedeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_gallery_queue_redelivered_total",
			Help: "Total number of interrupted tasks returned to pending at startup",
		},
	)

	QueueWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_queue_workers",
			Help: "Number of queue workers",
		},
	)
)

// Rendition metrics
var (
	RenditionGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_rendition_generations_total",
			Help: "Total number of rendition generations by profile and status",
		},
		[]string{"profile", "status"},
	)

	RenditionGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_rendition_generation_duration_seconds",
			Help:    "Rendition generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"profile"},
	)

	RenditionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_rendition_requests_total",
			Help: "Rendition lookups by profile and result",
		},
		[]string{"profile", "result"}, // "hit" or "fallback"
	)
)

// Progress feed metrics
var (
	ProgressEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_progress_events_published_total",
			Help: "Total number of progress events published by type",
		},
		[]string{"type"},
	)

	ProgressEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_progress_events_dropped_total",
			Help: "Progress events dropped because a subscriber buffer was full",
		},
		[]string{"type"},
	)

	ProgressSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_progress_subscribers",
			Help: "Number of attached progress feed subscribers",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_gallery_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_gallery_filesystem_retry_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_gallery_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_gallery_memory_paused",
			Help: "1 when task claims are paused for memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_gallery_memory_gc_pauses_total",
			Help: "Number of times memory pressure paused task claims",
		},
	)
)
