package routing

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/h1labs/labs/internal/infra/rpc/provider"
)

// ErrorClass labels why an endpoint attempt failed.
type ErrorClass string

const (
	ClassRateLimited ErrorClass = "rate_limited"
	ClassBlocked     ErrorClass = "blocked"
	ClassRange       ErrorClass = "range_rejected"
	ClassTimeout     ErrorClass = "timeout"
	ClassCanceled    ErrorClass = "canceled"
	ClassNetwork     ErrorClass = "network"
	ClassRPC         ErrorClass = "rpc"
	ClassDecode      ErrorClass = "decode"
	ClassUnknown     ErrorClass = "unknown"
)

// ClassifyError determines the failure class for metrics and logs.
// Every class is handled the same way by callers: move to the next endpoint.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ClassUnknown
	}

	switch {
	case errors.Is(err, provider.ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, provider.ErrBlocked):
		return ClassBlocked
	case errors.Is(err, provider.ErrRangeTooLarge), errors.Is(err, provider.ErrResponseTooLarge):
		return ClassRange
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	var rpcErr *provider.RPCError
	if errors.As(err, &rpcErr) {
		return ClassRPC
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "429") || strings.Contains(s, "too many requests") ||
		strings.Contains(s, "quota") || strings.Contains(s, "rate limit"):
		return ClassRateLimited
	case strings.Contains(s, "decode") || strings.Contains(s, "unmarshal") ||
		strings.Contains(s, "parse response"):
		return ClassDecode
	case strings.Contains(s, "connection refused") || strings.Contains(s, "no such host") ||
		strings.Contains(s, "eof"):
		return ClassNetwork
	}
	return ClassUnknown
}
