package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before ready status = %d, want 503", rec.Code)
	}
	if resp := decode[HealthResponse](t, rec); resp.Status != statusStarting {
		t.Errorf("status = %q", resp.Status)
	}

	s.h.SetReady(true)
	rec = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}
	resp := decode[HealthResponse](t, rec)
	if resp.Status != statusHealthy || !resp.Ready || resp.Tasks == nil {
		t.Errorf("response = %+v", resp)
	}
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	s := newTestServer(t)
	s.h.SetReady(true)
	s.db.Close()

	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if resp := decode[HealthResponse](t, rec); resp.Status != statusDegraded || resp.DatabaseError == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestLivenessCheck(t *testing.T) {
	h := &Handlers{}

	tests := []struct {
		method   string
		wantBody bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.LivenessCheck(rec, httptest.NewRequest(tt.method, "/livez", nil))

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d", rec.Code)
			}
			if (rec.Body.Len() > 0) != tt.wantBody {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestReadinessCheck(t *testing.T) {
	h := &Handlers{}

	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("not ready status = %d", rec.Code)
	}

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ready" {
		t.Errorf("body = %v", got)
	}
}
