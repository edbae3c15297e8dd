package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/h1labs/labs/internal/infra/storage"
)

const analyticsCacheKey = "global"

// handleAnalytics serves the cached snapshot while it is younger than AnalyticsTTL.
// refresh=true forces recomputation.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	repo := s.opts.Store.Analytics

	if r.URL.Query().Get("refresh") != "true" {
		cached, err := repo.GetCached(ctx, analyticsCacheKey)
		switch {
		case err == nil && time.Since(cached.ComputedAt) < s.opts.AnalyticsTTL:
			w.Header().Set("X-Cache", "hit")
			JSON(w, http.StatusOK, cached)
			return
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			s.log.Warn("Failed to read analytics cache", "error", err)
		}
	}

	a, err := repo.Compute(ctx)
	if err != nil {
		s.storageError(w, r, err)
		return
	}
	if err := repo.PutCached(ctx, analyticsCacheKey, a); err != nil {
		s.log.Warn("Failed to write analytics cache", "error", err)
	}
	w.Header().Set("X-Cache", "miss")
	JSON(w, http.StatusOK, a)
}
