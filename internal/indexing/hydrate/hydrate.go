// Package hydrate enriches discovered labs with live contract state.
package hydrate

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/indexing/metrics"
)

// DefaultConcurrency caps in-flight reads per Hydrate call.
const DefaultConcurrency = 8

// StateReader reads per-lab state. *evm.LabReader implements it.
type StateReader interface {
	LabPrice(ctx context.Context, labID *big.Int) (*big.Int, error)
	LabTVL(ctx context.Context, labID *big.Int) (*big.Int, error)
}

// Hydrator fans out price and TVL reads over a set of labs.
// Reads go to a single endpoint; a failed read marks that lab only.
type Hydrator struct {
	reader      StateReader
	concurrency int
	log         *slog.Logger
}

// New creates a Hydrator. concurrency <= 0 uses DefaultConcurrency.
func New(reader StateReader, concurrency int, log *slog.Logger) *Hydrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hydrator{reader: reader, concurrency: concurrency, log: log.With("component", "hydrate")}
}

// Hydrate returns one view per event, in input order.
// It only returns an error if ctx is done before all reads finish.
func (h *Hydrator) Hydrate(ctx context.Context, events []domain.LabCreated) ([]domain.LabView, error) {
	views := make([]domain.LabView, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.concurrency)

	for i := range events {
		views[i].LabCreated = events[i]
		g.Go(func() error {
			view := &views[i]
			price, priceErr := h.reader.LabPrice(gctx, view.LabID)
			tvl, tvlErr := h.reader.LabTVL(gctx, view.LabID)

			if err := gctx.Err(); err != nil {
				return err
			}

			view.Price, view.TVL = price, tvl
			if priceErr != nil {
				metrics.HydrationErrors.WithLabelValues("price").Inc()
			}
			if tvlErr != nil {
				metrics.HydrationErrors.WithLabelValues("tvl").Inc()
			}
			if err := errors.Join(priceErr, tvlErr); err != nil {
				view.HydrateError = err.Error()
				h.log.Debug("lab state read failed", "lab_id", view.LabID, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
