package handlers

import (
	"net/http"
	"runtime"
	"time"

	"photo-gallery/internal/database"
	"photo-gallery/internal/logging"
	"photo-gallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Ready         bool   `json:"ready"`
	Version       string `json:"version"`
	Uptime        string `json:"uptime"`
	DatabaseError string `json:"databaseError,omitempty"`

	// Queue depth by task status
	Tasks map[string]int `json:"tasks,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()
	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if ready {
		response.Status = statusHealthy
	} else {
		response.Status = statusStarting
	}

	if err := h.db.Ping(r.Context()); err != nil {
		logging.Warn("health check: database ping failed: %v", err)
		response.DatabaseError = err.Error()
		response.Status = statusDegraded
	} else if counts, err := h.db.TaskCounts(r.Context()); err == nil {
		response.Tasks = map[string]int{
			string(database.TaskPending): counts[string(database.TaskPending)],
			string(database.TaskRunning): counts[string(database.TaskRunning)],
			string(database.TaskFailed):  counts[string(database.TaskFailed)],
		}
	}

	status := http.StatusOK
	if !ready || response.DatabaseError != "" {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready.Load() {
		writeJSONStatus(w, "ready")
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
