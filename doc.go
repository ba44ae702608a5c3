// Package main provides the entry point for the photo gallery server.
//
// The server accepts bulk photo uploads into albums, stores the bytes in a
// content-addressed blob store, records photo metadata in SQLite, and
// renders thumbnail, medium and large JPEG renditions in the background.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT or GOMEMLIMIT
//  2. Configuration Loading: Reads .env and environment variables, validates directories
//  3. Database Initialization: Opens SQLite in WAL mode and applies the schema
//  4. Component Initialization:
//     - Blob Store: local content-addressed files or S3
//     - Rendition Generator: imaging, or libvips when VIPS_ENABLED is set
//     - Progress Hub: per-album event fan-out, relayed to NATS when NATS_URL is set
//     - Task Queue: persisted tasks, redelivered after a crash
//     - Ingestion Processor: inline batches below ASYNC_THRESHOLD, queued above
//  5. HTTP Server Setup: Registers routes and middleware, starts the metrics server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080): albums, uploads, renditions, the
//     per-album progress stream (Server-Sent Events), task status and
//     health probes.
//  2. Metrics Server (default port 9090, optional): Prometheus metrics at /metrics.
//
// # Graceful Shutdown
//
//  1. Mark the service not ready
//  2. Shut down the HTTP server, ending open progress streams
//  3. Stop the task queue (running tasks complete, pending tasks stay persisted)
//  4. Stop the memory monitor and metrics collector
//  5. Shut down the metrics server and close the NATS connection
//  6. Close the database
//
// # Build Requirements
//
// CGO is required for SQLite and libvips.
//
// # Related Packages
//
//   - [photo-gallery/internal/blobstore]: content-addressed blob storage
//   - [photo-gallery/internal/rendition]: rendition profiles and generation
//   - [photo-gallery/internal/ingest]: batch ingestion
//   - [photo-gallery/internal/queue]: background task queue
//   - [photo-gallery/internal/progress]: progress events
//   - [photo-gallery/internal/handlers]: HTTP request handlers
//   - [photo-gallery/internal/startup]: configuration and initialization logs
package main
