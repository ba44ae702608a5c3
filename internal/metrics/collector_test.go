package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

type mockStatsProvider struct {
	mu        sync.Mutex
	counts    map[string]int
	err       error
	dbUpdates int
	calls     int
}

func (m *mockStatsProvider) TaskCounts(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.counts, m.err
}

func (m *mockStatsProvider) UpdateDBMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dbUpdates++
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectorSetsQueueDepth(t *testing.T) {
	provider := &mockStatsProvider{counts: map[string]int{"pending": 7, "running": 2, "done": 40, "failed": 1}}
	c := NewCollector(provider, time.Hour)

	c.collect()

	if got := gaugeValue(t, QueueDepth.WithLabelValues("pending")); got != 7 {
		t.Errorf("expected pending depth 7, got %v", got)
	}
	if got := gaugeValue(t, QueueDepth.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected failed depth 1, got %v", got)
	}
	if provider.dbUpdates != 1 {
		t.Errorf("expected UpdateDBMetrics to be called once, got %d", provider.dbUpdates)
	}
}

func TestCollectorKeepsGaugesOnError(t *testing.T) {
	QueueDepth.WithLabelValues("pending").Set(3)
	provider := &mockStatsProvider{err: errors.New("database is locked")}
	c := NewCollector(provider, time.Hour)

	c.collect()

	if got := gaugeValue(t, QueueDepth.WithLabelValues("pending")); got != 3 {
		t.Errorf("expected pending depth to stay 3 after error, got %v", got)
	}
}

func TestCollectorNilProvider(_ *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{counts: map[string]int{}}
	c := NewCollector(provider, 10*time.Millisecond)

	c.Start()
	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.Stop()

	if provider.callCount() < 2 {
		t.Errorf("expected at least 2 collections, got %d", provider.callCount())
	}
}
