package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/h1labs/labs/internal/core/domain"
)

type depositRequest struct {
	LabID       int64  `json:"labId"       validate:"required,gt=0"`
	User        string `json:"user"        validate:"required,eth_addr"`
	Amount      string `json:"amount"      validate:"required,positive_wei"`
	SharesOut   string `json:"sharesOut"   validate:"omitempty,wei"`
	TxHash      string `json:"txHash"      validate:"required,len=66,hexadecimal"`
	BlockNumber uint64 `json:"blockNumber"`
}

type redemptionRequest struct {
	LabID       int64  `json:"labId"       validate:"required,gt=0"`
	User        string `json:"user"        validate:"required,eth_addr"`
	SharesIn    string `json:"sharesIn"    validate:"required,positive_wei"`
	AssetsOut   string `json:"assetsOut"   validate:"omitempty,wei"`
	TxHash      string `json:"txHash"      validate:"required,len=66,hexadecimal"`
	BlockNumber uint64 `json:"blockNumber"`
}

func (s *Server) handleDepositCreate(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	d := &domain.Deposit{
		LabID:       req.LabID,
		User:        strings.ToLower(req.User),
		Amount:      req.Amount,
		SharesOut:   req.SharesOut,
		TxHash:      strings.ToLower(req.TxHash),
		BlockNumber: req.BlockNumber,
	}
	if err := s.opts.Store.Deposits.Record(r.Context(), d); err != nil {
		s.storageError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, d)
}

func (s *Server) handleRedemptionCreate(w http.ResponseWriter, r *http.Request) {
	var req redemptionRequest
	if err := decodeBody(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	rd := &domain.Redemption{
		LabID:       req.LabID,
		User:        strings.ToLower(req.User),
		SharesIn:    req.SharesIn,
		AssetsOut:   req.AssetsOut,
		TxHash:      strings.ToLower(req.TxHash),
		BlockNumber: req.BlockNumber,
	}
	if err := s.opts.Store.Redemptions.Record(r.Context(), rd); err != nil {
		s.storageError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, rd)
}

func (s *Server) handleRedemptionsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter domain.RedemptionFilter
	if v := q.Get("user"); v != "" {
		if !common.IsHexAddress(v) {
			ERROR(w, http.StatusBadRequest, errBadAddress("user"))
			return
		}
		filter.User = strings.ToLower(v)
	}
	if v := q.Get("labId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			ERROR(w, http.StatusBadRequest, errBadLabID)
			return
		}
		filter.LabID = id
	}

	out, err := s.opts.Store.Redemptions.List(r.Context(), filter, pageParams(r))
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if out == nil {
		out = []*domain.Redemption{}
	}
	JSON(w, http.StatusOK, out)
}
