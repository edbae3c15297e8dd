package config

import (
	"time"

	redisclient "github.com/h1labs/labs/internal/infra/redis"
	"github.com/h1labs/labs/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Chain     ChainConfig        `yaml:"chain"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
	Tracing   TracingConfig      `yaml:"tracing"`
	Faucet    FaucetConfig       `yaml:"faucet"`
	Analytics AnalyticsConfig    `yaml:"analytics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ChainConfig holds ledger access settings.
type ChainConfig struct {
	ChainID            int64         `yaml:"chain_id"`
	RPCURL             string        `yaml:"rpc_url"`
	FallbackURLs       []string      `yaml:"fallback_urls"`
	DiamondAddress     string        `yaml:"diamond_address"`
	LabsToken          string        `yaml:"labs_token"`
	DeploymentBlock    uint64        `yaml:"deployment_block"`
	ChunkSize          uint64        `yaml:"chunk_size"`
	CallTimeout        time.Duration `yaml:"call_timeout"`
	HydrateConcurrency int           `yaml:"hydrate_concurrency"`
}

// TracingConfig holds OpenTelemetry exporter settings. An empty endpoint disables export.
type TracingConfig struct {
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

// FaucetConfig holds testnet faucet settings.
type FaucetConfig struct {
	PrivateKey string        `yaml:"private_key"` // hex, empty disables dispensing
	Amount     string        `yaml:"amount"`      // wei per claim
	Cooldown   time.Duration `yaml:"cooldown"`
	MaxTracked int           `yaml:"max_tracked"` // in-memory cooldown capacity
}

// AnalyticsConfig controls the analytics cache.
type AnalyticsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}
