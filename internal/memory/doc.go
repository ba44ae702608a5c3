// Package memory controls Go's runtime memory usage in containers.
//
// [ConfigureFromEnv] derives GOMEMLIMIT from the Kubernetes Downward API
// (MEMORY_LIMIT, MEMORY_RATIO) unless GOMEMLIMIT is already set. Call it
// first thing in main.
//
// [Monitor] samples heap usage and provides backpressure to the background
// task queue: once usage crosses the critical watermark, workers block in
// [Monitor.WaitIfPaused] before claiming another task, and resume when
// usage falls below the high watermark.
package memory
