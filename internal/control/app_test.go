package control

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/h1labs/labs/internal/core/config"
)

func testConfig(rpcURL string) *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Port: 0, RequestTimeout: time.Second},
		Chain: config.ChainConfig{
			RPCURL:          rpcURL,
			FallbackURLs:    []string{rpcURL + "/backup"},
			DiamondAddress:  "0x1111111111111111111111111111111111111111",
			DeploymentBlock: 100,
			ChunkSize:       1000,
			CallTimeout:     time.Second,
		},
		Faucet:    config.FaucetConfig{Amount: "100", Cooldown: time.Hour, MaxTracked: 10},
		Analytics: config.AnalyticsConfig{CacheTTL: time.Minute},
	}
}

// rpcStub answers eth_blockNumber with a fixed head and eth_getLogs with nothing.
func rpcStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.Unmarshal(body, &req)

		var result any = []any{}
		if req.Method == "eth_blockNumber" {
			result = "0x4b0" // 1200
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewLedger(t *testing.T) {
	srv := rpcStub(t)
	ledger, err := NewLedger(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	defer ledger.Endpoints.Close()

	if ledger.Endpoints.Len() != 2 || len(ledger.Clients) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", ledger.Endpoints.Len())
	}
	if ledger.Clients[0].Name() != "primary" || ledger.Clients[1].Name() != "fallback-1" {
		t.Errorf("unexpected endpoint names %s, %s", ledger.Clients[0].Name(), ledger.Clients[1].Name())
	}

	res, err := ledger.Scanner.ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if !res.Success || res.EndpointUsed != "primary" || len(res.Logs) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestNewLedger_BadURL(t *testing.T) {
	if _, err := NewLedger(testConfig("::not-a-url"), nil); err == nil {
		t.Error("expected error for invalid rpc url")
	}
}

func TestNewApp_InMemory(t *testing.T) {
	srv := rpcStub(t)
	app, err := NewApp(context.Background(), testConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.close()

	w := httptest.NewRecorder()
	app.server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/events/labs?limit=3", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	app.server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/faucet/claim", nil))
	if w.Code != http.StatusServiceUnavailable && w.Code != http.StatusBadRequest {
		t.Errorf("faucet without key should refuse, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	app.server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d: %s", w.Code, w.Body.String())
	}
}

func TestNewApp_BadFaucetAmount(t *testing.T) {
	srv := rpcStub(t)
	cfg := testConfig(srv.URL)
	cfg.Faucet.Amount = "lots"
	if _, err := NewApp(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for invalid faucet amount")
	}
}
