package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Helpers
// =============================================================================

func okPing(context.Context) error   { return nil }
func downPing(context.Context) error { return errors.New("connection refused") }

func head(n uint64, err error) func(context.Context) (uint64, error) {
	return func(context.Context) (uint64, error) { return n, err }
}

// =============================================================================
// Tests
// =============================================================================

func TestMonitor_Healthy(t *testing.T) {
	monitor := NewMonitor([]Probe{
		PingProbe("database", StatusCritical, okPing),
		EndpointsProbe("rpc", []HeadSource{{Name: "primary", Head: head(1000, nil)}, {Name: "fallback-1", Head: head(998, nil)}}, 10),
	}, time.Second, 0)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.SystemStatus)
	}
	if report.Components["rpc"].Details["primary"] != "1000" {
		t.Errorf("unexpected rpc details %v", report.Components["rpc"].Details)
	}
}

func TestMonitor_Degraded(t *testing.T) {
	tests := []struct {
		name   string
		probes []Probe
	}{
		{"redis down", []Probe{PingProbe("redis", StatusDegraded, downPing)}},
		{"one endpoint down", []Probe{EndpointsProbe("rpc", []HeadSource{
			{Name: "primary", Head: head(0, errors.New("timeout"))}, {Name: "fallback-1", Head: head(1000, nil)},
		}, 10)}},
		{"endpoint unstable", []Probe{EndpointsProbe("rpc", []HeadSource{
			{Name: "primary", Head: head(1000, nil), Available: func() bool { return false }},
			{Name: "fallback-1", Head: head(1000, nil)},
		}, 10)}},
		{"endpoint lagging", []Probe{EndpointsProbe("rpc", []HeadSource{
			{Name: "primary", Head: head(1000, nil)}, {Name: "fallback-1", Head: head(900, nil)},
		}, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := NewMonitor(tt.probes, time.Second, 0).CheckHealth(context.Background())
			if report.SystemStatus != StatusDegraded {
				t.Errorf("expected degraded, got %s", report.SystemStatus)
			}
		})
	}
}

func TestMonitor_Critical(t *testing.T) {
	monitor := NewMonitor([]Probe{
		PingProbe("redis", StatusDegraded, downPing),
		EndpointsProbe("rpc", []HeadSource{{Name: "primary", Head: head(0, errors.New("502"))}}, 10),
	}, time.Second, 0)

	report := monitor.CheckHealth(context.Background())
	if report.SystemStatus != StatusCritical {
		t.Errorf("expected critical, got %s", report.SystemStatus)
	}
	if report.Components["rpc"].Error == "" {
		t.Error("expected error on rpc component")
	}
}

func TestMonitor_CachesReport(t *testing.T) {
	var calls atomic.Int32
	monitor := NewMonitor([]Probe{PingProbe("database", StatusCritical, func(context.Context) error {
		calls.Add(1)
		return nil
	})}, time.Second, time.Minute)

	monitor.CheckHealth(context.Background())
	monitor.CheckHealth(context.Background())
	if calls.Load() != 1 {
		t.Errorf("expected cached result, probe ran %d times", calls.Load())
	}
}

func TestHandler(t *testing.T) {
	h := NewHandler(NewMonitor([]Probe{PingProbe("database", StatusCritical, downPing)}, time.Second, 0))

	w := httptest.NewRecorder()
	h.ServeHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeDetailed(w, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Components["database"].Error != "connection refused" {
		t.Errorf("unexpected report %+v", report)
	}
}
