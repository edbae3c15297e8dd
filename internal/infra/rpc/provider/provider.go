// Package provider implements JSON-RPC endpoints for ledger access.
//
// This package contains:
//   - Provider interface: core abstraction for an RPC endpoint
//   - HTTPProvider: JSON-RPC 2.0 over HTTP implementation
//   - ProviderMonitor: latency and throttle tracking
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is returned when the endpoint answers 429 or reports a quota error.
	ErrRateLimited = errors.New("rate limited")

	// ErrBlocked is returned when the endpoint answers 403.
	ErrBlocked = errors.New("ip blocked")

	// ErrRangeTooLarge is returned when the endpoint refuses a log query range.
	ErrRangeTooLarge = errors.New("log range rejected")

	// ErrResponseTooLarge is returned when a response body exceeds MaxResponseBytes.
	ErrResponseTooLarge = errors.New("response too large")
)

// Provider defines a single JSON-RPC endpoint.
type Provider interface {
	// GetName returns the provider identifier (e.g., "primary", "fallback-1")
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// Call makes a single RPC request and returns the raw result
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)

	// Close cleans up resources
	Close() error
}

// RPCError is an error object returned inside a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"errorRate"`
	LastSuccessAt time.Time     `json:"lastSuccessAt"`
	LastFailureAt time.Time     `json:"lastFailureAt"`
	MonitorStats  *MonitorStats `json:"monitorStats,omitempty"`
}
