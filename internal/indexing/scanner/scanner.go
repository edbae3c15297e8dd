// Package scanner retrieves the most recent LabCreated events from the ledger.
//
// A scan walks backward from the chain head in fixed-size block chunks until it
// has collected the requested number of events or reached the contract's
// deployment block. Endpoints are tried strictly in configured order; an
// endpoint that fails any call is abandoned along with everything it returned,
// and the next endpoint starts over from its own head. Nothing is retried on
// the same endpoint.
package scanner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/indexing/metrics"
	"github.com/h1labs/labs/internal/infra/chain/evm"
	"github.com/h1labs/labs/internal/infra/rpc/routing"
)

const (
	// DefaultChunkSize keeps each eth_getLogs call under common provider range limits.
	DefaultChunkSize = 1000

	// DefaultFeedTarget is the event count used for general feeds.
	DefaultFeedTarget = 100

	// DefaultAllTarget is the event count used for "all labs" views.
	DefaultAllTarget = 1000

	// DefaultCallTimeout bounds a single eth_blockNumber or eth_getLogs call.
	DefaultCallTimeout = 15 * time.Second
)

var (
	// ErrAllEndpointsFailed is returned when every configured endpoint failed.
	ErrAllEndpointsFailed = errors.New("all RPC endpoints failed")

	// ErrInvalidTarget is returned for a non-positive target count.
	ErrInvalidTarget = errors.New("target count must be positive")

	errOutOfRange = errors.New("log outside requested range")
)

// Ledger is the read-only ledger access a scan needs. *evm.Client and
// *ethclient.Client both satisfy it.
type Ledger interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Endpoint is one named ledger connection.
type Endpoint struct {
	Name   string
	Ledger Ledger
}

// DecodeFunc turns a raw log into a LabCreated event.
type DecodeFunc func(types.Log) (domain.LabCreated, error)

// Config holds the static scan parameters.
type Config struct {
	Contract        common.Address
	EventTopic      common.Hash // defaults to evm.LabCreatedTopic
	DeploymentBlock uint64
	ChunkSize       uint64        // defaults to DefaultChunkSize
	CallTimeout     time.Duration // defaults to DefaultCallTimeout; negative disables
	Decode          DecodeFunc    // defaults to evm.DecodeLabCreated
}

// Scanner runs scans against an ordered endpoint list. A Scanner holds no
// mutable state and is safe for concurrent use.
type Scanner struct {
	cfg       Config
	endpoints []Endpoint
	log       *slog.Logger
	tracer    trace.Tracer
}

// New creates a Scanner. The endpoint order is the fallback order.
func New(cfg Config, endpoints []Endpoint, log *slog.Logger) (*Scanner, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("scanner: at least one endpoint is required")
	}
	for i, ep := range endpoints {
		if ep.Ledger == nil {
			return nil, fmt.Errorf("scanner: endpoint %d (%s) has no ledger", i, ep.Name)
		}
	}
	if cfg.Contract == (common.Address{}) {
		return nil, fmt.Errorf("scanner: contract address is required")
	}
	if cfg.EventTopic == (common.Hash{}) {
		cfg.EventTopic = evm.LabCreatedTopic
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Decode == nil {
		cfg.Decode = evm.DecodeLabCreated
	}
	if log == nil {
		log = slog.Default()
	}

	eps := make([]Endpoint, len(endpoints))
	copy(eps, endpoints)

	return &Scanner{
		cfg:       cfg,
		endpoints: eps,
		log:       log.With("component", "scanner"),
		tracer:    otel.Tracer("labs/scanner"),
	}, nil
}

// ScanAll returns up to DefaultAllTarget of the most recent events.
func (s *Scanner) ScanAll(ctx context.Context) (*domain.ScanResult, error) {
	return s.Scan(ctx, DefaultAllTarget, nil)
}

// ScanForOwner returns up to DefaultAllTarget of the most recent events created by owner.
func (s *Scanner) ScanForOwner(ctx context.Context, owner common.Address) (*domain.ScanResult, error) {
	return s.Scan(ctx, DefaultAllTarget, &owner)
}

// Scan returns up to targetCount of the most recent events, oldest first.
// If owner is non-nil only events with that indexed owner are requested.
func (s *Scanner) Scan(ctx context.Context, targetCount int, owner *common.Address) (*domain.ScanResult, error) {
	if targetCount <= 0 {
		return nil, ErrInvalidTarget
	}

	attrs := []attribute.KeyValue{attribute.Int("scan.target", targetCount)}
	if owner != nil {
		attrs = append(attrs, attribute.String("scan.owner", owner.Hex()))
	}
	ctx, span := s.tracer.Start(ctx, "scanner.Scan", trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	defer func() { metrics.ScanDuration.Observe(time.Since(start).Seconds()) }()

	var lastErr error
	for _, ep := range s.endpoints {
		logs, chunks, err := s.scanEndpoint(ctx, ep, targetCount, owner)
		if err == nil {
			metrics.ScansTotal.WithLabelValues("success").Inc()
			metrics.ScanChunks.Observe(float64(chunks))
			span.SetAttributes(attribute.String("scan.endpoint", ep.Name), attribute.Int("scan.logs", len(logs)))
			s.log.Debug("scan complete",
				"endpoint", ep.Name, "logs", len(logs), "chunks", chunks, "elapsed", time.Since(start))
			return &domain.ScanResult{Logs: logs, Success: true, EndpointUsed: ep.Name}, nil
		}

		if ctx.Err() != nil {
			metrics.ScansTotal.WithLabelValues("canceled").Inc()
			span.SetStatus(codes.Error, "canceled")
			return nil, fmt.Errorf("scan canceled: %w", ctx.Err())
		}

		lastErr = err
		class := routing.ClassifyError(err)
		metrics.ScanEndpointFailures.WithLabelValues(ep.Name, string(class)).Inc()
		span.AddEvent("endpoint_failed", trace.WithAttributes(
			attribute.String("endpoint", ep.Name),
			attribute.String("error_type", string(class)),
		))
		s.log.Warn("endpoint failed, trying next", "endpoint", ep.Name, "error_type", class, "error", err)
	}

	metrics.ScansTotal.WithLabelValues("exhausted").Inc()
	err := fmt.Errorf("%w (%d tried): %w", ErrAllEndpointsFailed, len(s.endpoints), lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, ErrAllEndpointsFailed.Error())
	return nil, err
}

// scanEndpoint runs one complete attempt against ep. On error the partial result is discarded.
func (s *Scanner) scanEndpoint(
	ctx context.Context,
	ep Endpoint,
	targetCount int,
	owner *common.Address,
) ([]domain.LabCreated, int, error) {
	head, err := s.blockNumber(ctx, ep)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: get block number: %w", ep.Name, err)
	}
	metrics.ChainLatestBlock.Set(float64(head))

	deploy := s.cfg.DeploymentBlock
	if head < deploy {
		return []domain.LabCreated{}, 0, nil
	}

	collected := make([]domain.LabCreated, 0, min(targetCount, 64))
	toBlock := head
	chunks := 0

	for len(collected) < targetCount {
		fromBlock := deploy
		if toBlock-deploy >= s.cfg.ChunkSize {
			fromBlock = toBlock - s.cfg.ChunkSize + 1
		}

		chunks++
		raw, err := s.filterLogs(ctx, ep, fromBlock, toBlock, owner)
		if err != nil {
			return nil, chunks, fmt.Errorf("%s: get logs [%d, %d]: %w", ep.Name, fromBlock, toBlock, err)
		}
		chunk, err := s.decodeChunk(raw, domain.BlockRange{From: fromBlock, To: toBlock})
		if err != nil {
			return nil, chunks, fmt.Errorf("%s: chunk [%d, %d]: %w", ep.Name, fromBlock, toBlock, err)
		}

		// Every chunk is strictly older than what has been collected.
		collected = append(chunk, collected...)

		if fromBlock == deploy {
			break
		}
		toBlock = fromBlock - 1
	}

	if len(collected) > targetCount {
		collected = collected[len(collected)-targetCount:]
	}
	return collected, chunks, nil
}

func (s *Scanner) blockNumber(ctx context.Context, ep Endpoint) (uint64, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return ep.Ledger.BlockNumber(ctx)
}

func (s *Scanner) filterLogs(
	ctx context.Context,
	ep Endpoint,
	from, to uint64,
	owner *common.Address,
) ([]types.Log, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return ep.Ledger.FilterLogs(ctx, s.query(from, to, owner))
}

func (s *Scanner) query(from, to uint64, owner *common.Address) ethereum.FilterQuery {
	topics := [][]common.Hash{{s.cfg.EventTopic}}
	if owner != nil {
		topics = append(topics, nil, []common.Hash{evm.OwnerTopic(*owner)})
	}
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{s.cfg.Contract},
		Topics:    topics,
	}
}

func (s *Scanner) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

// decodeChunk sorts a chunk by (block, log index) and decodes it. Providers are
// not trusted to return ascending order. Logs that fail to decode are skipped;
// a log outside the requested range fails the chunk.
func (s *Scanner) decodeChunk(raw []types.Log, r domain.BlockRange) ([]domain.LabCreated, error) {
	slices.SortStableFunc(raw, func(a, b types.Log) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	out := make([]domain.LabCreated, 0, len(raw))
	for _, lg := range raw {
		if lg.Removed {
			continue
		}
		if lg.BlockNumber < r.From || lg.BlockNumber > r.To {
			return nil, fmt.Errorf("%w: block %d", errOutOfRange, lg.BlockNumber)
		}
		ev, err := s.cfg.Decode(lg)
		if err != nil {
			// Payload faults are identical on every endpoint.
			metrics.ScanDecodeSkipped.Inc()
			s.log.Warn("skipping undecodable log",
				"tx", lg.TxHash.Hex(), "index", lg.Index, "block", lg.BlockNumber, "error", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
