// Package server exposes the validation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/jonathan/job-validator/internal/config"
	"github.com/jonathan/job-validator/internal/metrics"
	"github.com/jonathan/job-validator/internal/pipeline"
	"github.com/jonathan/job-validator/internal/ratelimit"
	"github.com/jonathan/job-validator/internal/server/middleware"
	"github.com/jonathan/job-validator/internal/types"
)

// Validator is the part of the orchestrator the server needs.
type Validator interface {
	Validate(ctx context.Context, rawURL string) *types.UnifiedValidationResult
	ValidateBatch(ctx context.Context, urls []string) []*types.UnifiedValidationResult
	Health() pipeline.HealthSnapshot
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	validator       Validator
	rateLimiter     *ratelimit.Limiter
	jwtService      *JWTService
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// New creates a new server instance. Bearer auth is enabled only when a JWT
// secret is configured.
func New(cfg config.ServerConfig, v Validator, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		validator:       v,
		logger:          logger.Named("server"),
		shutdownTimeout: cfg.ShutdownTimeout.D(),
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 30 * time.Second
	}

	jwtConfig, err := cfg.JWT()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	if jwtConfig != nil {
		s.jwtService = NewJWTService(jwtConfig)
	} else {
		s.logger.Warn("no JWT secret configured, API is unauthenticated")
	}

	s.rateLimiter = ratelimit.NewLimiter(clientLimits(cfg.ClientLimit))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.routes(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      300 * time.Second, // batches and streams run the full pipeline
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// clientLimits builds per-client API limits around the default per-minute budget.
func clientLimits(perMinute int) *ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	if perMinute > 0 {
		cfg.DefaultLimit = perMinute
		cfg.DefaultBurst = max(1, perMinute/10)
	}
	cfg.EndpointConfigs = ratelimit.DefaultEndpointConfigs()
	return cfg
}

func (s *Server) routes(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var validator middleware.TokenValidator
	if s.jwtService != nil {
		validator = s.jwtService.AsTokenValidator()
	}

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		middleware.Logger(s.logger),
		chiMiddleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
			MaxAge:         300,
		}),
		s.withRateLimit,
	)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(validator))
		r.Post("/validate", s.handleValidate)
		r.Post("/validate/batch", s.handleValidateBatch)
		r.Post("/validate/stream", s.handleValidateStream)
	})

	return r
}

// Handler returns the root handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured port and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	defer s.rateLimiter.Stop()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

// withRateLimit applies per-client, per-endpoint limits.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		clientID := middleware.ClientIP(r)
		allowed, info := s.rateLimiter.AllowEndpoint(clientID, r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.logger.Warn("Rate limit exceeded",
				zap.String("client", clientID),
				zap.String("path", r.URL.Path),
				zap.Int("limit", info.Limit),
				zap.Duration("retry_after", info.RetryAfter),
			)
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	retryAfter := max(1, int(info.RetryAfter.Round(time.Second).Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	s.jsonResponse(w, r, http.StatusTooManyRequests, RateLimitReply{
		Error:      "rate_limit_exceeded",
		Message:    "Rate limit exceeded. Please try again later.",
		Limit:      info.Limit,
		Remaining:  info.Remaining,
		RetryAfter: retryAfter,
	})
}
