// Package control wires configuration into a running labs API.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/h1labs/labs/internal/api"
	"github.com/h1labs/labs/internal/core/config"
	"github.com/h1labs/labs/internal/faucet"
	"github.com/h1labs/labs/internal/indexing/health"
	"github.com/h1labs/labs/internal/indexing/hydrate"
	"github.com/h1labs/labs/internal/indexing/metrics"
	"github.com/h1labs/labs/internal/indexing/scanner"
	"github.com/h1labs/labs/internal/infra/chain/evm"
	redisclient "github.com/h1labs/labs/internal/infra/redis"
	"github.com/h1labs/labs/internal/infra/rpc/routing"
	"github.com/h1labs/labs/internal/infra/storage"
	"github.com/h1labs/labs/internal/infra/storage/memory"
	"github.com/h1labs/labs/internal/infra/storage/postgres"
	"github.com/h1labs/labs/internal/infra/telemetry"
)

// App is the labs API with all of its dependencies.
type App struct {
	cfg       *config.AppConfig
	server    *api.Server
	endpoints *routing.EndpointList
	db        *postgres.DB
	redis     *redisclient.Client
	ethClient *ethclient.Client
	shutdown  telemetry.ShutdownFunc
	log       *slog.Logger
}

// Ledger holds the scanner and the per-endpoint clients it was built from.
type Ledger struct {
	Endpoints *routing.EndpointList
	Clients   []*evm.Client
	Scanner   *scanner.Scanner
}

// NewLedger builds the ordered endpoint list and a scanner over it.
func NewLedger(cfg *config.AppConfig, log *slog.Logger) (*Ledger, error) {
	callTimeout := cfg.Chain.CallTimeout
	if callTimeout < 0 {
		callTimeout = 0
	}
	list, err := routing.NewHTTPEndpointList(cfg.Chain.RPCURL, cfg.Chain.FallbackURLs, callTimeout)
	if err != nil {
		return nil, err
	}

	clients := make([]*evm.Client, 0, list.Len())
	endpoints := make([]scanner.Endpoint, 0, list.Len())
	for _, p := range list.All() {
		c := evm.NewClient(p)
		clients = append(clients, c)
		endpoints = append(endpoints, scanner.Endpoint{Name: c.Name(), Ledger: c})
	}

	sc, err := scanner.New(scanner.Config{
		Contract:        common.HexToAddress(cfg.Chain.DiamondAddress),
		DeploymentBlock: cfg.Chain.DeploymentBlock,
		ChunkSize:       cfg.Chain.ChunkSize,
		CallTimeout:     cfg.Chain.CallTimeout,
	}, endpoints, log)
	if err != nil {
		_ = list.Close()
		return nil, err
	}
	return &Ledger{Endpoints: list, Clients: clients, Scanner: sc}, nil
}

// NewApp creates an App. Postgres and Redis are optional: without them
// storage and faucet cooldowns live in memory.
func NewApp(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &App{cfg: cfg, log: log}

	shutdown, err := telemetry.InitTracer(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		log.Warn("Tracing disabled", "error", err)
	}
	a.shutdown = shutdown

	ledger, err := NewLedger(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init ledger: %w", err)
	}
	a.endpoints = ledger.Endpoints

	// 1. Storage
	var store *storage.Store
	probes := []health.Probe{}
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		store = postgres.NewStore(db)
		probes = append(probes, health.PingProbe("database", health.StatusCritical, db.Health))
		log.Info("Using PostgreSQL storage")
	} else {
		store = memory.NewStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// 2. Faucet cooldowns
	var cooldown faucet.Cooldown
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redis = rc
		cooldown = rc
		probes = append(probes, health.PingProbe("redis", health.StatusDegraded, rc.Ping))
	} else {
		cooldown = faucet.NewMemoryCooldown(cfg.Faucet.MaxTracked, cfg.Faucet.Cooldown)
	}

	// 3. Faucet payouts
	var dispenser faucet.Dispenser
	if cfg.Faucet.PrivateKey != "" {
		d, err := a.newDispenser(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
		dispenser = d
		log.Info("Faucet enabled", "wallet", d.From().Hex())
	} else {
		log.Info("Faucet disabled, no private key configured")
	}
	amount, ok := new(big.Int).SetString(cfg.Faucet.Amount, 10)
	if !ok {
		a.close()
		return nil, fmt.Errorf("invalid faucet amount %q", cfg.Faucet.Amount)
	}
	faucetSvc := faucet.NewService(faucet.Config{Amount: amount, Cooldown: cfg.Faucet.Cooldown},
		cooldown, dispenser, store.Faucet, log)

	// 4. Health
	sources := make([]health.HeadSource, 0, len(ledger.Clients))
	for _, c := range ledger.Clients {
		sources = append(sources, health.HeadSource{Name: c.Name(), Head: c.BlockNumber, Available: c.Available})
	}
	probes = append(probes, health.EndpointsProbe("rpc", sources, 50))
	monitor := health.NewMonitor(probes, 5*time.Second, 10*time.Second)

	// 5. API
	reader := evm.NewLabReader(ledger.Clients[0], common.HexToAddress(cfg.Chain.DiamondAddress))
	server, err := api.NewServer(api.ServerOpts{
		Logger:         log,
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AnalyticsTTL:   cfg.Analytics.CacheTTL,
		Store:          store,
		Scanner:        ledger.Scanner,
		Hydrator:       hydrate.New(reader, cfg.Chain.HydrateConcurrency, log),
		Faucet:         faucetSvc,
		Health:         health.NewHandler(monitor),
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.server = server
	return a, nil
}

func (a *App) newDispenser(ctx context.Context) (*faucet.TokenDispenser, error) {
	client, err := ethclient.DialContext(ctx, a.cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial faucet rpc: %w", err)
	}
	a.ethClient = client

	var token common.Address
	if a.cfg.Chain.LabsToken != "" {
		token = common.HexToAddress(a.cfg.Chain.LabsToken)
	}
	return faucet.NewTokenDispenser(client, a.cfg.Faucet.PrivateKey, token)
}

// Run serves the API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
	go a.trackHead(ctx)

	err := a.server.Run(ctx)
	a.close()
	return err
}

// trackHead keeps the latest block gauge fresh from the primary endpoint.
func (a *App) trackHead(ctx context.Context) {
	primary := evm.NewClient(a.endpoints.Primary())
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		head, err := primary.BlockNumber(callCtx)
		cancel()
		if err == nil {
			metrics.ChainLatestBlock.Set(float64(head))
		} else if !errors.Is(err, context.Canceled) {
			a.log.Debug("Head refresh failed", "endpoint", primary.Name(), "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) close() {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	if a.endpoints != nil {
		_ = a.endpoints.Close()
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.log.Warn("Failed to flush traces", "error", err)
		}
	}
}
