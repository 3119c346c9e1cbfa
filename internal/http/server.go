package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"rbudget/internal/core"
	applog "rbudget/internal/log"
	"rbudget/internal/middleware/ratelimit"
	"rbudget/internal/middleware/security"
	"rbudget/internal/middleware/trace"
	"rbudget/internal/scenario"
	"rbudget/internal/services"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	TrustedProxies []string
	RateLimit      ratelimit.Config
	DefaultDays    int
	MaxCompare     int
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// DefaultConfig returns the settings used when the environment sets nothing.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		AllowedOrigins: []string{"*"},
		RateLimit:      ratelimit.DefaultConfig(),
		DefaultDays:    365,
		MaxCompare:     8,
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 30 * time.Second,
	}
}

type Server struct {
	http.Server

	router      chi.Router
	projections *services.ProjectionService
	writer      scenario.Writer
	logger      *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	defaultDays  int
	maxCompare   int
	maxBodyBytes int64
	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer wires middleware and routes. writer may be nil, in which case
// scenarios are read only.
func NewServer(cfg Config, projections *services.ProjectionService, writer scenario.Writer, logger *applog.Logger) (*Server, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	def := DefaultConfig()
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = def.DefaultDays
	}
	if cfg.MaxCompare <= 0 {
		cfg.MaxCompare = def.MaxCompare
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = def.AllowedOrigins
	}

	httpLogger := logger.WithComponent(applog.ComponentHTTP)
	detector, err := security.NewDetector(httpLogger, cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:       chi.NewRouter(),
		projections:  projections,
		writer:       writer,
		logger:       httpLogger,
		limiter:      ratelimit.NewLimiter(cfg.RateLimit),
		detector:     detector,
		tracer:       trace.NewMiddleware(httpLogger, detector.ExtractClientIP),
		defaultDays:  cfg.DefaultDays,
		maxCompare:   cfg.MaxCompare,
		maxBodyBytes: cfg.MaxBodyBytes,
		started:      time.Now(),
		now:          time.Now,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(s.tracer.Handler)
	s.router.Use(middleware.Recoverer)
	s.router.Use(security.Headers(security.DefaultHeadersConfig()))
	s.router.Use(s.detector.Middleware)
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)
	s.router.Get("/metrics", s.handleMetrics)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited))
		r.Get("/scenarios", s.handleListScenarios)
		r.Put("/scenarios/{name}", s.handleSaveScenario)
		r.Get("/scenarios/{name}/projection", s.handleProjection)
		r.Get("/compare", s.handleCompare)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError(r.Context(), "no such route").Write(w)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(r.Context(), http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		"client_ip", s.detector.ExtractClientIP(r),
		"path", r.URL.Path)
	ErrorResponse(r.Context(), http.StatusTooManyRequests, "rate limit exceeded").Write(w)
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now().UTC())
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
	err := s.Server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
