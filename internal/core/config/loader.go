package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file, applies environment overrides and defaults,
// then validates the result. A missing file is not an error: everything can come from the environment.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("RPC_FALLBACK_URLS"); v != "" {
		cfg.Chain.FallbackURLs = splitList(v)
	}
	if v := os.Getenv("DIAMOND_ADDRESS"); v != "" {
		cfg.Chain.DiamondAddress = v
	}
	if v := os.Getenv("LABS_TOKEN_ADDRESS"); v != "" {
		cfg.Chain.LabsToken = v
	}
	if v := os.Getenv("DEPLOYMENT_BLOCK"); v != "" {
		block, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DEPLOYMENT_BLOCK %q: %w", v, err)
		}
		cfg.Chain.DeploymentBlock = block
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("FAUCET_PRIVATE_KEY"); v != "" {
		cfg.Faucet.PrivateKey = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"https://*", "http://*"}
	}
	if cfg.Chain.ChunkSize == 0 {
		cfg.Chain.ChunkSize = 1000
	}
	if cfg.Chain.CallTimeout == 0 {
		cfg.Chain.CallTimeout = 15 * time.Second
	}
	if cfg.Chain.HydrateConcurrency == 0 {
		cfg.Chain.HydrateConcurrency = 8
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "h1-labs-api"
	}
	if cfg.Faucet.Cooldown == 0 {
		cfg.Faucet.Cooldown = 24 * time.Hour
	}
	if cfg.Faucet.Amount == "" {
		cfg.Faucet.Amount = "100000000000000000000" // 100 $LABS
	}
	if cfg.Faucet.MaxTracked == 0 {
		cfg.Faucet.MaxTracked = 100_000
	}
	if cfg.Analytics.CacheTTL == 0 {
		cfg.Analytics.CacheTTL = 5 * time.Minute
	}
}

// Validate checks the settings required to construct the scanner.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		return fmt.Errorf("chain.rpc_url (RPC_URL) is required")
	}
	if !common.IsHexAddress(c.Chain.DiamondAddress) {
		return fmt.Errorf("chain.diamond_address (DIAMOND_ADDRESS) must be a hex address, got %q", c.Chain.DiamondAddress)
	}
	if c.Chain.LabsToken != "" && !common.IsHexAddress(c.Chain.LabsToken) {
		return fmt.Errorf("chain.labs_token must be a hex address, got %q", c.Chain.LabsToken)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
