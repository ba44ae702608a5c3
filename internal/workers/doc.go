/*
Package workers sizes worker pools from GOMAXPROCS rather than
runtime.NumCPU, so that container CPU limits are respected.

	queueWorkers := workers.ForQueue(8)      // QUEUE_WORKERS or 1.5x CPUs
	decoders := workers.ForRendition(0)      // RENDITION_WORKERS or 1x CPUs

Environment overrides must be positive integers; invalid values are
logged and ignored. Overrides are still capped by the caller's limit.
*/
package workers
