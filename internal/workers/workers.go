package workers

import (
	"os"
	"runtime"
	"strconv"

	"photo-gallery/internal/logging"
)

// Count returns the number of workers for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// ForQueue returns the background task queue worker count. Queue tasks
// read blobs and decode images, so the default is ForMixed. QUEUE_WORKERS
// overrides it.
func ForQueue(limit int) int {
	return fromEnv("QUEUE_WORKERS", limit, ForMixed)
}

// ForRendition returns how many images may be decoded concurrently.
// RENDITION_WORKERS overrides the CPU-based default.
func ForRendition(limit int) int {
	return fromEnv("RENDITION_WORKERS", limit, ForCPU)
}

func fromEnv(key string, limit int, fallback func(int) int) int {
	if override := os.Getenv(key); override != "" {
		count, err := strconv.Atoi(override)
		if err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
		logging.Warn("Invalid %s value %q, using default", key, override)
	}
	return fallback(limit)
}
