// Package logging provides the leveled logger used across the photo gallery.
//
// Levels, lowest to highest:
//   - DEBUG: per-item pipeline tracing (blob writes, task claims, renditions)
//   - INFO: batch and task lifecycle, startup and shutdown
//   - WARN: recoverable problems (dropped progress events, slow retries)
//   - ERROR: failed items, failed tasks, rendition failures
//   - FATAL: unrecoverable startup errors
//
// The level comes from DEBUG=true or LOG_LEVEL. Components that want a
// fixed prefix on every line use For("queue") and friends.
package logging
