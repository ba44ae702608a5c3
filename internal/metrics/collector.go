package metrics

import (
	"context"
	"time"

	"photo-gallery/internal/logging"
)

// StatsProvider supplies the polled gauges.
type StatsProvider interface {
	// TaskCounts returns persisted task counts keyed by status.
	TaskCounts(ctx context.Context) (map[string]int, error)
	// UpdateDBMetrics refreshes connection pool gauges.
	UpdateDBMetrics()
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	c.statsProvider.UpdateDBMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	counts, err := c.statsProvider.TaskCounts(ctx)
	if err != nil {
		logging.Warn("Metrics collection: failed to count tasks: %v", err)
		return
	}

	for _, status := range []string{"pending", "running", "done", "failed"} {
		QueueDepth.WithLabelValues(status).Set(float64(counts[status]))
	}

	logging.Debug("Metrics collected: pending=%d, running=%d, failed=%d",
		counts["pending"], counts["running"], counts["failed"])
}
