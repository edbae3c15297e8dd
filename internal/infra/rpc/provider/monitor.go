package provider

import (
	"strings"
	"sync"
	"time"
)

// ProviderStatus represents the health state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // Provider is working normally
	StatusDegraded                        // Provider is slow but working
	StatusThrottled                       // Provider is rate limiting
	StatusBlocked                         // Provider has blocked this client
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status           ProviderStatus `json:"status"`
	AverageLatency   time.Duration  `json:"averageLatency"`
	ThrottleCount429 int            `json:"throttleCount429"`
	ThrottleCount403 int            `json:"throttleCount403"`
	RangeRejections  int            `json:"rangeRejections"`
}

// ProviderMonitor tracks provider latency, throttling and range rejections.
type ProviderMonitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	status429Count   int
	status403Count   int
	rangeRejections  int
	throttlePatterns []string
	rangePatterns    []string
	lastThrottleTime time.Time
	throttleWindow   time.Duration

	slowResponseThreshold time.Duration
}

// NewProviderMonitor creates a new monitor with default settings.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"daily request count exceeded",
			"project rate limit",
			"monthly quota exceeded",
		},
		rangePatterns: []string{
			"block range",
			"range is too large",
			"query returned more than",
			"exceed maximum block range",
			"limit exceeded",
		},
		throttleWindow:        time.Minute,
		slowResponseThreshold: 3 * time.Second,
	}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.recentLatencies = append(pm.recentLatencies, latency)
	if len(pm.recentLatencies) > pm.maxLatencyWindow {
		pm.recentLatencies = pm.recentLatencies[1:]
	}
}

// RecordThrottle records a rate limiting or blocking response.
func (pm *ProviderMonitor) RecordThrottle(statusCode int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.lastThrottleTime = time.Now()
	switch statusCode {
	case 429:
		pm.status429Count++
	case 403:
		pm.status403Count++
	}
}

// RecordRangeRejection records a getLogs range the provider refused to serve.
func (pm *ProviderMonitor) RecordRangeRejection() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.rangeRejections++
}

// DetectThrottlePattern checks if a message contains throttle patterns.
func (pm *ProviderMonitor) DetectThrottlePattern(message string) bool {
	return containsAny(strings.ToLower(message), pm.throttlePatterns)
}

// DetectRangePattern checks if a message reports an oversized log range.
func (pm *ProviderMonitor) DetectRangePattern(message string) bool {
	return containsAny(strings.ToLower(message), pm.rangePatterns)
}

// CheckProviderStatus returns the current status of the provider.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	recent := time.Since(pm.lastThrottleTime) < pm.throttleWindow
	if pm.status403Count > 0 && recent {
		return StatusBlocked
	}
	if pm.status429Count > 0 && recent {
		return StatusThrottled
	}
	if len(pm.recentLatencies) > 10 && pm.averageLatency() > pm.slowResponseThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// GetStats returns current monitoring statistics.
func (pm *ProviderMonitor) GetStats() MonitorStats {
	status := pm.CheckProviderStatus()

	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return MonitorStats{
		Status:           status,
		AverageLatency:   pm.averageLatency(),
		ThrottleCount429: pm.status429Count,
		ThrottleCount403: pm.status403Count,
		RangeRejections:  pm.rangeRejections,
	}
}

// caller holds pm.mu
func (pm *ProviderMonitor) averageLatency() time.Duration {
	if len(pm.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(pm.recentLatencies))
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
