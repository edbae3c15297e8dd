package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/h1labs/labs/internal/core/domain"
)

type labRequest struct {
	ID           int64  `json:"id"           validate:"required,gt=0"`
	Owner        string `json:"owner"        validate:"required,eth_addr"`
	Name         string `json:"name"         validate:"required,max=128"`
	Symbol       string `json:"symbol"       validate:"required,max=16"`
	Domain       string `json:"domain"       validate:"max=64"`
	H1Token      string `json:"h1Token"      validate:"omitempty,eth_addr"`
	Description  string `json:"description"  validate:"max=2000"`
	CreatedBlock uint64 `json:"createdBlock"`
}

type labList struct {
	Items    []*domain.Lab `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

func labID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("lab id must be a positive integer")
	}
	return id, nil
}

func (s *Server) handleLabsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.LabFilter{
		Owner:  q.Get("owner"),
		Search: q.Get("q"),
	}
	if d := q.Get("domain"); d != "" {
		for _, part := range strings.Split(d, ",") {
			if p := strings.TrimSpace(part); p != "" {
				filter.Domains = append(filter.Domains, p)
			}
		}
	}

	page := pageParams(r)
	labs, total, err := s.opts.Store.Labs.List(r.Context(), filter, page)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if labs == nil {
		labs = []*domain.Lab{}
	}
	JSON(w, http.StatusOK, labList{Items: labs, Total: total, Page: page.Number, PageSize: page.Size})
}

func (s *Server) handleLabGet(w http.ResponseWriter, r *http.Request) {
	id, err := labID(r)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	lab, err := s.opts.Store.Labs.GetByID(r.Context(), id)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, lab)
}

func (s *Server) handleLabUpsert(w http.ResponseWriter, r *http.Request) {
	var req labRequest
	if err := decodeBody(r, &req); err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}

	lab := &domain.Lab{
		ID:           req.ID,
		Owner:        strings.ToLower(req.Owner),
		Name:         req.Name,
		Symbol:       req.Symbol,
		Domain:       req.Domain,
		H1Token:      strings.ToLower(req.H1Token),
		Description:  req.Description,
		CreatedBlock: req.CreatedBlock,
	}
	if err := s.opts.Store.Labs.Upsert(r.Context(), lab); err != nil {
		s.storageError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, lab)
}

func (s *Server) handleLabDeposits(w http.ResponseWriter, r *http.Request) {
	id, err := labID(r)
	if err != nil {
		ERROR(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.opts.Store.Labs.GetByID(r.Context(), id); err != nil {
		s.storageError(w, r, err)
		return
	}
	deposits, err := s.opts.Store.Deposits.ListByLab(r.Context(), id, pageParams(r))
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if deposits == nil {
		deposits = []*domain.Deposit{}
	}
	JSON(w, http.StatusOK, deposits)
}
