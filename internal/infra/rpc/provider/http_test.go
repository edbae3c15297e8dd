package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPProvider_Call(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		if req["jsonrpc"] != "2.0" {
			t.Errorf("expected jsonrpc 2.0, got %v", req["jsonrpc"])
		}
		if req["method"] != "eth_blockNumber" {
			t.Errorf("unexpected method %v", req["method"])
		}
		if params, ok := req["params"].([]any); !ok || len(params) != 0 {
			t.Errorf("expected empty params array, got %v", req["params"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  "0xf4628",
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("primary", server.URL, 5*time.Second)
	result, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		t.Fatalf("unexpected result %s: %v", result, err)
	}
	if hex != "0xf4628" {
		t.Errorf("expected 0xf4628, got %s", hex)
	}
	if !p.GetHealth().Available {
		t.Error("expected provider to be available after success")
	}
}

func TestHTTPProvider_Call_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("primary", server.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_blockNumber", nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if status := p.Monitor.CheckProviderStatus(); status != StatusThrottled {
		t.Errorf("expected throttled status, got %s", status)
	}
	if p.GetHealth().Available {
		t.Error("expected throttled provider to report unavailable")
	}
}

func TestHTTPProvider_Call_RangeRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error": map[string]any{
				"code":    -32005,
				"message": "query returned more than 10000 results",
			},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("primary", server.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_getLogs", []any{map[string]any{}})
	if !errors.Is(err, ErrRangeTooLarge) {
		t.Fatalf("expected ErrRangeTooLarge, got %v", err)
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != -32005 {
		t.Errorf("expected wrapped RPCError with code -32005, got %v", err)
	}
	if got := p.Monitor.GetStats().RangeRejections; got != 1 {
		t.Errorf("expected 1 range rejection, got %d", got)
	}
}

func TestHTTPProvider_Call_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	p := NewHTTPProvider("slow", server.URL, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := p.Call(ctx, "eth_blockNumber", nil); err == nil {
		t.Fatal("expected timeout error")
	}
	if p.GetHealth().LastFailureAt.IsZero() {
		t.Error("expected failure to be recorded")
	}
}

func TestHTTPProvider_HealthWindowRecovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("flaky", server.URL, time.Second)
	for range minHealthSamples {
		_, _ = p.Call(context.Background(), "eth_blockNumber", nil)
	}
	if p.GetHealth().Available {
		t.Fatal("expected provider to be unavailable after repeated failures")
	}

	failing.Store(false)
	for range healthWindow {
		if _, err := p.Call(context.Background(), "eth_blockNumber", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	h := p.GetHealth()
	if !h.Available || h.ErrorRate != 0 {
		t.Errorf("expected full recovery once failures leave the window, got %+v", h)
	}
	if h.Latency <= 0 {
		t.Error("expected latency to be tracked")
	}
}

func TestHTTPProvider_Call_ResponseTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + strings.Repeat("ab", 512) + `"}`))
	}))
	defer server.Close()

	p := NewHTTPProvider("primary", server.URL, 5*time.Second)
	p.maxResponseBytes = 256

	_, err := p.Call(context.Background(), "eth_getLogs", nil)
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	if p.GetHealth().LastFailureAt.IsZero() {
		t.Error("expected failure to be recorded")
	}

	p.maxResponseBytes = MaxResponseBytes
	if _, err := p.Call(context.Background(), "eth_getLogs", nil); err != nil {
		t.Errorf("expected response under the default cap to pass, got %v", err)
	}
}
