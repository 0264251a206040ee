// Package server provides the HTTP server and routing for the vault engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/risk"
	"github.com/ballastfi/ballast/internal/vault"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Log     zerolog.Logger
	Vault   *vault.Service
	Bus     *events.Bus
	Journal *events.Journal
	Advisor *risk.Advisor
}

// Server is the HTTP front of the vault engine. Callers identify themselves
// with the X-Caller header; the vault enforces authorization per operation.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	handlers *Handlers
	stream   *EventsStreamHandler
	system   *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		handlers: NewHandlers(cfg.Vault, cfg.Journal, cfg.Advisor, cfg.Log),
		stream:   NewEventsStreamHandler(cfg.Bus, cfg.Log),
		system:   NewSystemHandlers(cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Caller"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handlers.HandleHealth)

		r.Route("/vault", func(r chi.Router) {
			r.Get("/config", s.handlers.HandleGetConfig)
			r.Get("/balances", s.handlers.HandleGetBalances)
			r.Get("/status", s.handlers.HandleGetStatus)
			r.Get("/shares/{holder}", s.handlers.HandleGetShares)

			r.Post("/deposit", s.handlers.HandleDeposit)
			r.Post("/redeem", s.handlers.HandleRedeem)
			r.Post("/rebalance", s.handlers.HandleTriggerRebalance)

			r.Post("/guard", s.handlers.HandleSetGuard)
			r.Post("/pause", s.handlers.HandlePause)
			r.Post("/unpause", s.handlers.HandleUnpause)

			r.Post("/gas/topup", s.handlers.HandleTopUpGasBank)

			r.Post("/autonomy/start", s.handlers.HandleStartAutonomy)
			r.Post("/autonomy/stop", s.handlers.HandleStopAutonomy)

			r.Put("/targets", s.handlers.HandleUpdateTargets)
			r.Put("/drift", s.handlers.HandleUpdateMaxDrift)
			r.Put("/epoch", s.handlers.HandleUpdateEpoch)
			r.Post("/ownership", s.handlers.HandleTransferOwnership)
			r.Post("/emergency-withdraw", s.handlers.HandleEmergencyWithdraw)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/recent", s.handlers.HandleRecentEvents)
			r.Get("/stream", s.stream.ServeHTTP)
		})

		r.Get("/risk/advisories", s.handlers.HandleRiskAdvisories)
		r.Get("/system/status", s.system.HandleStatus)
	})
}

// loggingMiddleware logs each request with timing.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Start begins listening. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}
