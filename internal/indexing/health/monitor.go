package health

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Probe checks one dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) ComponentHealth
}

// PingProbe reports failure of ping as failStatus.
func PingProbe(name string, failStatus SystemStatus, ping func(ctx context.Context) error) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) ComponentHealth {
			h := ComponentHealth{Name: name, Status: StatusHealthy}
			if err := ping(ctx); err != nil {
				h.Status = failStatus
				h.Error = err.Error()
			}
			return h
		},
	}
}

// HeadSource is a named endpoint that can report its chain head.
type HeadSource struct {
	Name string
	Head func(ctx context.Context) (uint64, error)

	// Available is optional. A source reporting false degrades the probe even when Head succeeds.
	Available func() bool
}

// EndpointsProbe queries every source's head. One failing source degrades the
// component; all failing makes it critical. Heads more than maxLag behind the
// highest reported head count as degraded.
func EndpointsProbe(name string, sources []HeadSource, maxLag uint64) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) ComponentHealth {
			h := ComponentHealth{Name: name, Status: StatusHealthy, Details: make(map[string]string)}
			heads := make(map[string]uint64, len(sources))
			var best uint64
			failed := 0
			for _, src := range sources {
				head, err := src.Head(ctx)
				if err != nil {
					failed++
					h.Details[src.Name] = "error: " + err.Error()
					continue
				}
				heads[src.Name] = head
				best = max(best, head)
			}
			unstable := make(map[string]bool)
			for _, src := range sources {
				if _, ok := heads[src.Name]; ok && src.Available != nil && !src.Available() {
					unstable[src.Name] = true
					h.Status = Worse(h.Status, StatusDegraded)
				}
			}
			for n, head := range heads {
				h.Details[n] = strconv.FormatUint(head, 10)
				if best-head > maxLag {
					h.Status = Worse(h.Status, StatusDegraded)
					h.Details[n] += fmt.Sprintf(" (behind by %d)", best-head)
				}
				if unstable[n] {
					h.Details[n] += " (high error rate)"
				}
			}
			switch {
			case len(sources) > 0 && failed == len(sources):
				h.Status = StatusCritical
				h.Error = "no endpoint reachable"
			case failed > 0:
				h.Status = Worse(h.Status, StatusDegraded)
			}
			return h
		},
	}
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	probes     []Probe
	timeout    time.Duration
	interval   time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. Results are reused for interval.
func NewMonitor(probes []Probe, timeout, interval time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		probes:   probes,
		timeout:  timeout,
		interval: interval,
	}
}

// CheckHealth runs every probe concurrently and returns the aggregated report.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid spamming RPC
	if m.interval > 0 && time.Since(m.lastCheck) < m.interval && m.lastReport.Components != nil {
		return m.lastReport
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results := make([]ComponentHealth, len(m.probes))
	var wg sync.WaitGroup
	for i, p := range m.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			h := p.Check(ctx)
			h.Name = p.Name
			h.LatencyMS = time.Since(start).Milliseconds()
			results[i] = h
		}()
	}
	wg.Wait()

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(results)),
	}
	for _, h := range results {
		report.Components[h.Name] = h
		report.SystemStatus = Worse(report.SystemStatus, h.Status)
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
