package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCCallsTotal tracks RPC calls per provider and method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labs_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per provider
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labs_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"provider", "method", "error_type"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labs_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "method"},
	)

	// ScansTotal tracks scan outcomes
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labs_scans_total",
			Help: "Total number of event scans by outcome",
		},
		[]string{"outcome"},
	)

	// ScanEndpointFailures tracks endpoints abandoned mid-scan
	ScanEndpointFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labs_scan_endpoint_failures_total",
			Help: "Endpoints abandoned during a scan",
		},
		[]string{"endpoint", "error_type"},
	)

	// ScanChunks tracks getLogs chunks queried per scan
	ScanChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "labs_scan_chunks",
			Help:    "Number of getLogs chunks queried by a successful scan",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// ScanDecodeSkipped tracks logs dropped because their payload did not decode
	ScanDecodeSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "labs_scan_decode_skipped_total",
			Help: "Logs skipped during a scan because they could not be decoded",
		},
	)

	// ScanDuration tracks wall time of a scan
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "labs_scan_duration_seconds",
			Help:    "Event scan duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// ChainLatestBlock tracks the chain head seen by the last scan
	ChainLatestBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labs_chain_latest_block",
			Help: "Latest block height observed by the scanner",
		},
	)

	// HydrationErrors tracks failed contract-state reads
	HydrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labs_hydration_errors_total",
			Help: "Failed lab state reads",
		},
		[]string{"field"},
	)

	// FaucetClaims tracks faucet claim outcomes
	FaucetClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labs_faucet_claims_total",
			Help: "Faucet claims by outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequests tracks API requests
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labs_http_requests_total",
			Help: "API requests by route and status",
		},
		[]string{"route", "status"},
	)

	// DBConnectionPoolUsage tracks percentage of open database connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labs_db_connection_pool_usage_percent",
			Help: "Percentage of the maximum open connections currently in use",
		},
	)
)
