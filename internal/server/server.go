// Package server is the composition root for the HTTP API: it mounts the
// handlers on a chi router, layers the middleware, and runs the listener
// with graceful shutdown.
//
// ROUTES:
//
//	GET    /health                 liveness + Redis reachability
//	GET    /metrics                Prometheus exposition
//	POST   /api/run                sandbox execution          (optional auth)
//	POST   /api/simulate           model-emulated execution   (optional auth)
//	POST   /api/generate           code generation            (bearer token)
//	POST   /api/refactor           refactoring                (bearer token)
//	POST   /api/assist             explain/debug/optimize/... (bearer token)
//	POST   /api/web/generate       HTML/CSS/JS generation     (bearer token)
//	POST   /api/web/refactor       HTML/CSS/JS refactoring    (bearer token)
//	POST   /api/shares             create a share             (optional auth)
//	GET    /api/shares/{shareId}   read a share
//	DELETE /api/shares/{shareId}   delete a share             (bearer token)
//	GET    /api/me/usage           per-user counters          (bearer token)
//	GET    /api/me/shares          the caller's live shares   (bearer token)
//
// Feature switches decide which optional groups are mounted: /api/run needs
// an executor, /api/simulate needs Simulation, and the model routes need AI.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/sakif/codeagentix/internal/auth"
	"github.com/sakif/codeagentix/internal/config"
	"github.com/sakif/codeagentix/internal/handler"
	"github.com/sakif/codeagentix/internal/middleware"
)

// shareTimeout matches the 15 second abort the editor applies to share calls.
const shareTimeout = 15 * time.Second

// Dependencies are the collaborators the routes are built from. Runner and
// Assistant may be nil; their routes are then left unmounted.
type Dependencies struct {
	Tokens    *auth.TokenService
	Redis     handler.Pinger
	Shares    handler.Sharer
	Account   handler.Account
	Runner    handler.Runner
	Assistant handler.Assistant
	// Metrics defaults to promhttp.Handler().
	Metrics http.Handler
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Server owns the router and the listener settings.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
}

// New builds the router. It fails only when a required dependency is missing.
func New(cfg config.Config, deps Dependencies, logger *slog.Logger) (*Server, error) {
	if deps.Shares == nil || deps.Redis == nil || deps.Account == nil {
		return nil, errors.New("server: shares, redis and account dependencies are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	if deps.Tokens == nil {
		logger.Warn("no JWT secret configured; authenticated routes will answer 401")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes layers middleware in this order: request id, real IP, tracing,
// metrics, logging, panic recovery, CORS. Per-group middleware (auth, rate limit,
// timeout) comes after, so rejected requests are still logged and counted.
func (s *Server) setupRoutes(deps Dependencies) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(deps.TracerProvider, "/health", "/metrics"))
	r.Use(middleware.Metrics)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", handler.ShareIDHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	health := handler.NewHealthHandler(deps.Redis, s.logger)
	r.Get("/health", health.HandleHealth)
	r.Handle("/metrics", deps.Metrics)

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RPS, s.config.RateLimit.Burst, middleware.KeyByUserOrIP)
	optional := auth.OptionalAuth(deps.Tokens)
	required := auth.RequireAuth(deps.Tokens)

	shares := handler.NewShareHandler(deps.Shares, s.config.ShareBaseURL, s.logger)
	account := handler.NewAccountHandler(deps.Account, s.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(shareTimeout))
			r.With(optional).Post("/shares", shares.HandleCreate)
			r.Get("/shares/{shareId}", shares.HandleGet)
			r.With(required).Delete("/shares/{shareId}", shares.HandleDelete)
		})

		r.Group(func(r chi.Router) {
			r.Use(required)
			r.Get("/me/usage", account.HandleUsage)
			r.Get("/me/shares", account.HandleShares)
		})

		if deps.Runner != nil {
			run := handler.NewExecuteHandler(deps.Runner, s.logger)
			r.With(optional, limiter.Handler).Post("/run", run.HandleRun)
		} else {
			s.logger.Warn("no executor configured; /api/run is disabled")
		}

		if deps.Assistant == nil {
			return
		}
		assist := handler.NewAssistHandler(deps.Assistant, s.logger)

		if s.config.Simulation {
			r.With(optional, limiter.Handler).Post("/simulate", assist.HandleSimulate)
		}

		if s.config.AI {
			r.Group(func(r chi.Router) {
				r.Use(required, limiter.Handler)
				r.Post("/generate", assist.HandleGenerate)
				r.Post("/refactor", assist.HandleRefactor)
				r.Post("/assist", assist.HandleAssist)
				r.Post("/web/generate", assist.HandleWebGenerate)
				r.Post("/web/refactor", assist.HandleWebRefactor)
			})
		}
	})
}

// Start runs the server until ctx is cancelled or SIGINT/SIGTERM arrives.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for up to Server.ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.Bool("ai", s.config.AI),
			slog.Bool("simulation", s.config.Simulation),
			slog.String("executor", s.config.Executor.Backend),
		)
		serverErrors <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
