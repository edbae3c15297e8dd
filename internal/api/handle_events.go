package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/indexing/scanner"
)

type hydratedScan struct {
	Logs         []domain.LabView `json:"logs"`
	Success      bool             `json:"success"`
	EndpointUsed string           `json:"endpointUsed"`
}

// scanParams reads limit, all and owner. all=true asks for the "all labs" target.
func scanParams(r *http.Request) (int, *common.Address, error) {
	q := r.URL.Query()

	target := scanner.DefaultFeedTarget
	if q.Get("all") == "true" {
		target = scanner.DefaultAllTarget
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > scanner.DefaultAllTarget {
			return 0, nil, fmt.Errorf("limit must be between 1 and %d", scanner.DefaultAllTarget)
		}
		target = n
	}

	var owner *common.Address
	if v := q.Get("owner"); v != "" {
		if !common.IsHexAddress(v) {
			return 0, nil, fmt.Errorf("owner must be a hex address")
		}
		addr := common.HexToAddress(v)
		owner = &addr
	}
	return target, owner, nil
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) (*domain.ScanResult, bool) {
	target, owner, err := scanParams(r)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return nil, false
	}

	res, err := s.opts.Scanner.Scan(r.Context(), target, owner)
	switch {
	case err == nil:
		return res, true
	case errors.Is(err, scanner.ErrAllEndpointsFailed):
		s.log.Warn("Lab event scan failed on every endpoint", "error", err)
		JSON(w, http.StatusBadGateway, map[string]any{
			"error":        scanner.ErrAllEndpointsFailed.Error(),
			"success":      false,
			"logs":         []domain.LabCreated{},
			"endpointUsed": "",
		})
	case errors.Is(err, scanner.ErrInvalidTarget):
		ERROR(w, http.StatusBadRequest, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		ERROR(w, http.StatusGatewayTimeout, err)
	default:
		s.log.Error("Lab event scan failed", "error", err)
		ERROR(w, http.StatusInternalServerError, err)
	}
	return nil, false
}

func (s *Server) handleLabEvents(w http.ResponseWriter, r *http.Request) {
	res, ok := s.scan(w, r)
	if !ok {
		return
	}
	if res.Logs == nil {
		res.Logs = []domain.LabCreated{}
	}
	JSON(w, http.StatusOK, res)
}

func (s *Server) handleHydratedLabEvents(w http.ResponseWriter, r *http.Request) {
	if s.opts.Hydrator == nil {
		ERROR(w, http.StatusNotImplemented, errors.New("hydration is not configured"))
		return
	}
	res, ok := s.scan(w, r)
	if !ok {
		return
	}

	views, err := s.opts.Hydrator.Hydrate(r.Context(), res.Logs)
	if err != nil {
		ERROR(w, http.StatusGatewayTimeout, err)
		return
	}
	if views == nil {
		views = []domain.LabView{}
	}
	JSON(w, http.StatusOK, hydratedScan{Logs: views, Success: res.Success, EndpointUsed: res.EndpointUsed})
}
