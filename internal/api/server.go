package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/h1labs/labs/internal/core/domain"
	"github.com/h1labs/labs/internal/indexing/health"
	"github.com/h1labs/labs/internal/infra/storage"
)

// EventScanner finds the most recent LabCreated events.
type EventScanner interface {
	Scan(ctx context.Context, targetCount int, owner *common.Address) (*domain.ScanResult, error)
}

// LabHydrator enriches events with live contract state.
type LabHydrator interface {
	Hydrate(ctx context.Context, events []domain.LabCreated) ([]domain.LabView, error)
}

// Faucet pays out test tokens.
type Faucet interface {
	Claim(ctx context.Context, address string) (*domain.FaucetClaim, error)
	History(ctx context.Context, address string, page storage.Page) ([]*domain.FaucetClaim, error)
}

// API server
type Server struct {
	r    chi.Router
	log  *slog.Logger
	opts ServerOpts
}

type ServerOpts struct {
	Logger         *slog.Logger
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string
	AnalyticsTTL   time.Duration

	Store    *storage.Store
	Scanner  EventScanner
	Hydrator LabHydrator
	Faucet   Faucet
	Health   *health.Handler
}

// Create API server
func NewServer(opts ServerOpts) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("api: store is required")
	}
	if opts.Scanner == nil {
		return nil, errors.New("api: scanner is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}
	if opts.AnalyticsTTL <= 0 {
		opts.AnalyticsTTL = 5 * time.Minute
	}

	s := &Server{
		log:  opts.Logger.With("component", "api"),
		opts: opts,
	}
	s.routes()
	return s, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Turns server into http server
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Returns JSON response to the API user. HTTP status code
// and data must be provided
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Fprintf(w, "%s", err.Error())
	}
}

// Returns an error to the API user
func ERROR(w http.ResponseWriter, statusCode int, err error) {
	JSON(w, statusCode, map[string]any{"error": err.Error()})
}

// storageError maps repository sentinels to status codes.
func (s *Server) storageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		ERROR(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		ERROR(w, http.StatusConflict, err)
	case errors.Is(err, storage.ErrInsufficientTVL):
		ERROR(w, http.StatusUnprocessableEntity, err)
	default:
		s.log.Error("Storage error", "path", r.URL.Path, "error", err)
		ERROR(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
