package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/faucet"
)

type claimRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

func (s *Server) handleFaucetClaim(w http.ResponseWriter, r *http.Request) {
	if s.opts.Faucet == nil {
		ERROR(w, http.StatusServiceUnavailable, faucet.ErrDisabled)
		return
	}
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	claim, err := s.opts.Faucet.Claim(r.Context(), req.Address)
	var cdErr *faucet.CooldownError
	switch {
	case err == nil:
		JSON(w, http.StatusOK, claim)
	case errors.As(err, &cdErr):
		secs := int64(math.Ceil(cdErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
		JSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      faucet.ErrCooldown.Error(),
			"retryAfter": secs,
		})
	case errors.Is(err, faucet.ErrInvalidAddress):
		ERROR(w, http.StatusBadRequest, err)
	case errors.Is(err, faucet.ErrDisabled):
		ERROR(w, http.StatusServiceUnavailable, err)
	default:
		s.log.Error("Faucet claim failed", "address", req.Address, "error", err)
		ERROR(w, http.StatusBadGateway, errors.New("faucet payout failed"))
	}
}

func (s *Server) handleFaucetClaims(w http.ResponseWriter, r *http.Request) {
	if s.opts.Faucet == nil {
		ERROR(w, http.StatusServiceUnavailable, faucet.ErrDisabled)
		return
	}
	addr := r.URL.Query().Get("address")
	if !common.IsHexAddress(addr) {
		ERROR(w, http.StatusBadRequest, errBadAddress("address"))
		return
	}
	claims, err := s.opts.Faucet.History(r.Context(), addr, pageParams(r))
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if claims == nil {
		claims = []*domain.FaucetClaim{}
	}
	JSON(w, http.StatusOK, claims)
}
