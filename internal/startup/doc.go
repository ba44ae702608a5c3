// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]
// (main loads a .env file first when one exists):
//
//   - DATA_DIR: Base directory for the defaults below (default: /data)
//   - DATABASE_DIR: sqlite directory (default: $DATA_DIR/database)
//   - BLOB_DIR: Local blob store root (default: $DATA_DIR/blobs)
//   - RENDITION_DIR: Rendition cache (default: $DATA_DIR/renditions)
//   - BLOB_BACKEND: local or s3 (default: local)
//   - S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY: S3 backend settings
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - ASYNC_THRESHOLD: Batch size from which uploads are queued (default: 20)
//   - QUEUE_WORKERS: Background workers (default: derived from CPUs)
//   - QUEUE_POLL_INTERVAL: Worker poll interval as Go duration (default: 2s)
//   - QUEUE_RETENTION: How long finished tasks are kept (default: 24h)
//   - MAX_UPLOAD_MB: Request body limit for uploads (default: 1024)
//   - VIPS_ENABLED: Use libvips for decoding when available (default: false)
//   - NATS_URL: Relay progress events to NATS when set
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT: see package memory
//
// The database and rendition directories are required and must be
// writable; so is the blob directory when BLOB_BACKEND is local.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [LogMemoryConfig], [LogDatabaseInit], [LogBlobStoreInit],
// [LogRenditionInit], [LogQueueInit], [LogRelayInit], [LogHTTPRoutes],
// [LogServerStarted], [LogShutdownInitiated] and [LogShutdownComplete]
// print the sections of the startup and shutdown log.
package startup
