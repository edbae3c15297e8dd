package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/h1labs/labs/internal/infra/telemetry"
)

// Sets up chi router, middlewares and defines all api endpoints
func (s *Server) routes() {
	s.r = chi.NewRouter()

	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "traceparent"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(telemetry.HTTPMiddleware("labs/api"))
	s.r.Use(s.requestLogger)
	s.r.Use(requestMetrics)
	s.r.Use(middleware.Recoverer)
	s.r.Use(middleware.SetHeader("Content-Type", "application/json"))
	s.r.Use(middleware.Timeout(s.opts.RequestTimeout))

	if s.opts.Health != nil {
		s.r.Get("/health", s.opts.Health.ServeHealth)
		s.r.Get("/health/detailed", s.opts.Health.ServeDetailed)
	} else {
		s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		})
	}
	s.r.Handle("/metrics", promhttp.Handler())

	s.r.Route("/v1", func(r chi.Router) {
		r.Route("/events/labs", func(r chi.Router) {
			r.Get("/", s.handleLabEvents)
			r.Get("/hydrated", s.handleHydratedLabEvents)
		})

		r.Route("/labs", func(r chi.Router) {
			r.Get("/", s.handleLabsList)
			r.Post("/", s.handleLabUpsert)
			r.Get("/{id}", s.handleLabGet)
			r.Get("/{id}/deposits", s.handleLabDeposits)
		})

		r.Post("/deposits", s.handleDepositCreate)

		r.Get("/redemptions", s.handleRedemptionsList)
		r.Post("/redemptions", s.handleRedemptionCreate)

		r.Get("/analytics", s.handleAnalytics)

		r.Post("/faucet/claim", s.handleFaucetClaim)
		r.Get("/faucet/claims", s.handleFaucetClaims)
	})
}
