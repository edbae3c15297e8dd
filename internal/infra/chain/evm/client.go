package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/h1labs/labs/internal/indexing/metrics"
	"github.com/h1labs/labs/internal/infra/rpc/provider"
	"github.com/h1labs/labs/internal/infra/rpc/routing"
)

// Client is a ledger client bound to a single RPC provider.
// It exposes the subset of ethclient.Client used by the scanner and hydrator.
type Client struct {
	provider provider.Provider
}

// NewClient creates a ledger client over p.
func NewClient(p provider.Provider) *Client {
	return &Client{provider: p}
}

// Name returns the underlying provider name.
func (c *Client) Name() string {
	return c.provider.GetName()
}

// Available reports whether the provider's recent error rate is acceptable.
func (c *Client) Available() bool {
	return c.provider.GetHealth().Available
}

// BlockNumber returns the most recent block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var number hexutil.Uint64
	if err := c.call(ctx, &number, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(number), nil
}

// FilterLogs executes an eth_getLogs query.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	arg, err := toFilterArg(q)
	if err != nil {
		return nil, err
	}
	var logs []types.Log
	if err := c.call(ctx, &logs, "eth_getLogs", arg); err != nil {
		return nil, err
	}
	return logs, nil
}

// CallContract executes a read-only message call. A nil blockNumber means latest.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	call := map[string]any{
		"to":   msg.To,
		"data": hexutil.Bytes(msg.Data),
	}
	if msg.From != (common.Address{}) {
		call["from"] = msg.From
	}
	var out hexutil.Bytes
	if err := c.call(ctx, &out, "eth_call", call, toBlockNumArg(blockNumber)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, result any, method string, params ...any) error {
	name := c.provider.GetName()
	ctx, span := startRPCSpan(ctx, method, name)
	defer span.End()

	start := time.Now()
	metrics.RPCCallsTotal.WithLabelValues(name, method).Inc()

	raw, err := c.provider.Call(ctx, method, params)
	metrics.RPCLatency.WithLabelValues(name, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(name, method, string(routing.ClassifyError(err))).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s failed: %w", method, err)
	}

	if len(raw) == 0 || string(raw) == "null" {
		metrics.RPCErrorsTotal.WithLabelValues(name, method, string(routing.ClassDecode)).Inc()
		span.SetStatus(codes.Error, "empty result")
		return fmt.Errorf("%s failed: decode result: empty", method)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(name, method, string(routing.ClassDecode)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s failed: decode result: %w", method, err)
	}
	return nil
}

func toFilterArg(q ethereum.FilterQuery) (any, error) {
	arg := map[string]any{
		"address": q.Addresses,
		"topics":  q.Topics,
	}
	if q.BlockHash != nil {
		if q.FromBlock != nil || q.ToBlock != nil {
			return nil, fmt.Errorf("cannot specify both BlockHash and FromBlock/ToBlock")
		}
		arg["blockHash"] = *q.BlockHash
		return arg, nil
	}
	if q.FromBlock == nil {
		arg["fromBlock"] = "0x0"
	} else {
		arg["fromBlock"] = toBlockNumArg(q.FromBlock)
	}
	arg["toBlock"] = toBlockNumArg(q.ToBlock)
	return arg, nil
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}

func startRPCSpan(ctx context.Context, method, providerName string) (context.Context, trace.Span) {
	return otel.Tracer("labs/evm").Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("rpc.provider", providerName),
		),
	)
}
