package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64

	maxResponseBytes int64

	mu       sync.RWMutex
	health   HealthStatus
	window   [healthWindow]bool // true marks a failed call
	next     int
	samples  int
	failures int

	Monitor *ProviderMonitor
}

// NewHTTPProvider creates a new HTTP-based RPC provider.
// A zero timeout leaves request deadlines to the caller's context.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor:          NewProviderMonitor(),
		maxResponseBytes: MaxResponseBytes,
	}
}

// MaxResponseBytes caps a single response body.
const MaxResponseBytes int64 = 64 << 20

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Call makes a single JSON-RPC call.
func (p *HTTPProvider) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	start := time.Now()

	if params == nil {
		params = []any{}
	}
	jsonData, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      p.nextID.Add(1),
	})
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		p.Monitor.RecordThrottle(http.StatusTooManyRequests)
		p.recordFailure()
		return nil, fmt.Errorf("%w (429), retry after: %s", ErrRateLimited, resp.Header.Get("Retry-After"))
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		p.Monitor.RecordThrottle(http.StatusForbidden)
		p.recordFailure()
		return nil, fmt.Errorf("%w (403)", ErrBlocked)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxResponseBytes+1))
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > p.maxResponseBytes {
		p.recordFailure()
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, p.maxResponseBytes)
	}

	if resp.StatusCode != http.StatusOK {
		p.recordFailure()
		if p.Monitor.DetectThrottlePattern(string(body)) {
			return nil, fmt.Errorf("%w: %s", ErrRateLimited, string(body))
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if rpcResp.Error != nil {
		p.recordFailure()
		switch {
		case p.Monitor.DetectThrottlePattern(rpcResp.Error.Message):
			p.Monitor.RecordThrottle(http.StatusTooManyRequests)
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, rpcResp.Error)
		case method == "eth_getLogs" && p.Monitor.DetectRangePattern(rpcResp.Error.Message):
			p.Monitor.RecordRangeRejection()
			return nil, fmt.Errorf("%w: %w", ErrRangeTooLarge, rpcResp.Error)
		}
		return nil, rpcResp.Error
	}

	p.Monitor.RecordRequest(latency)
	p.recordSuccess(latency)

	return rpcResp.Result, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// Endpoint returns the URL the provider posts to.
func (p *HTTPProvider) Endpoint() string {
	return p.endpoint
}

// GetHealth returns the provider's health over its recent calls.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	health := p.health
	p.mu.RUnlock()

	stats := p.Monitor.GetStats()
	health.MonitorStats = &stats
	if stats.Status == StatusThrottled || stats.Status == StatusBlocked {
		health.Available = false
	}
	return health
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// healthWindow is the number of recent calls the error rate is computed over.
const healthWindow = 20

// minHealthSamples is the number of calls needed before a provider can be marked unavailable.
const minHealthSamples = 4

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.health.LastSuccessAt = time.Now()
	if p.health.Latency == 0 {
		p.health.Latency = latency
	} else {
		// EWMA with alpha 0.2
		p.health.Latency = (p.health.Latency*4 + latency) / 5
	}
	p.pushOutcome(false)
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.health.LastFailureAt = time.Now()
	p.pushOutcome(true)
}

// pushOutcome must be called with mu held.
func (p *HTTPProvider) pushOutcome(failed bool) {
	if p.samples == healthWindow && p.window[p.next] {
		p.failures--
	}
	p.window[p.next] = failed
	if failed {
		p.failures++
	}
	p.next = (p.next + 1) % healthWindow
	if p.samples < healthWindow {
		p.samples++
	}

	p.health.ErrorRate = float64(p.failures) / float64(p.samples)
	p.health.Available = p.samples < minHealthSamples || p.health.ErrorRate <= 0.5
}
