package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solswap-engine/internal/health"
)

type fakeChecker struct {
	healthy  bool
	statuses []health.Status
}

func (f *fakeChecker) GetStatuses() []health.Status { return f.statuses }
func (f *fakeChecker) Healthy() bool                { return f.healthy }

type fakeStats struct {
	stats EngineStats
}

func (f *fakeStats) Stats() EngineStats { return f.stats }

type fakeRPCLatency struct{ ms int64 }

func (f *fakeRPCLatency) LatencyMs() int64 { return f.ms }

func TestHealthEndpointAlwaysReturns200(t *testing.T) {
	s := NewServer("127.0.0.1", 0, &fakeChecker{healthy: false}, &fakeStats{}, &fakeRPCLatency{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected /health to always report 200, got %d", resp.StatusCode)
	}
}

func TestStatusEndpointReports200WhenHealthy(t *testing.T) {
	checker := &fakeChecker{healthy: true, statuses: []health.Status{{Name: "RPC", Healthy: true}}}
	stats := &fakeStats{stats: EngineStats{StartedAt: time.Now().Add(-time.Minute), TicksServed: 42}}
	s := NewServer("127.0.0.1", 0, checker, stats, &fakeRPCLatency{ms: 37})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if ticks, ok := body["ticks_served"].(float64); !ok || ticks != 42 {
		t.Fatalf("expected ticks_served=42, got %v", body["ticks_served"])
	}
	if latency, ok := body["rpc_latency_ms"].(float64); !ok || latency != 37 {
		t.Fatalf("expected rpc_latency_ms=37, got %v", body["rpc_latency_ms"])
	}
}

func TestStatusEndpointReports503WhenUnhealthy(t *testing.T) {
	checker := &fakeChecker{healthy: false, statuses: []health.Status{{Name: "RPC", Healthy: false, Error: "timeout"}}}
	s := NewServer("127.0.0.1", 0, checker, &fakeStats{}, &fakeRPCLatency{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when unhealthy, got %d", resp.StatusCode)
	}
}
