package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	procs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{name: "cpu bound no limit", multiplier: 1.0, limit: 0, want: procs},
		{name: "io bound no limit", multiplier: 2.0, limit: 0, want: procs * 2},
		{name: "limit caps result", multiplier: 2.0, limit: 1, want: 1},
		{name: "tiny multiplier floors at one", multiplier: 0.0001, limit: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestForQueueEnvOverride(t *testing.T) {
	tests := []struct {
		name  string
		value string
		limit int
		want  int
	}{
		{name: "valid override", value: "3", limit: 0, want: 3},
		{name: "override capped by limit", value: "50", limit: 4, want: 4},
		{name: "zero ignored", value: "0", limit: 0, want: ForMixed(0)},
		{name: "garbage ignored", value: "many", limit: 0, want: ForMixed(0)},
		{name: "unset uses default", value: "", limit: 0, want: ForMixed(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QUEUE_WORKERS", tt.value)
			if got := ForQueue(tt.limit); got != tt.want {
				t.Errorf("ForQueue(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}

func TestForRenditionEnvOverride(t *testing.T) {
	t.Setenv("RENDITION_WORKERS", "2")
	if got := ForRendition(0); got != 2 {
		t.Errorf("ForRendition(0) = %d, want 2", got)
	}

	t.Setenv("RENDITION_WORKERS", "")
	if got := ForRendition(0); got != ForCPU(0) {
		t.Errorf("ForRendition(0) = %d, want %d", got, ForCPU(0))
	}
}

func TestWorkerCountOrdering(t *testing.T) {
	cpu, mixed, io := ForCPU(0), ForMixed(0), ForIO(0)
	if cpu > mixed || mixed > io {
		t.Errorf("expected ForCPU <= ForMixed <= ForIO, got %d, %d, %d", cpu, mixed, io)
	}
}
