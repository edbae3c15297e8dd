// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

func (s SystemStatus) rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of two statuses.
func Worse(a, b SystemStatus) SystemStatus {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// ComponentHealth is the result of one probe.
type ComponentHealth struct {
	Name      string            `json:"name"`
	Status    SystemStatus      `json:"status"`
	LatencyMS int64             `json:"latency_ms"`
	Error     string            `json:"error,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus               `json:"system_status"`
	Components   map[string]ComponentHealth `json:"components"`
}
