package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Options configures the routes a Server exposes.
type Options struct {
	Addr      string
	Assessor  Assessor
	Users     UserService // nil disables the /users routes
	Readiness sharedobs.ReadinessChecker

	// Per-IP limit on the /solar routes. Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Server exposes the solar assessment API plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	assessor   Assessor
	users      UserService
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer creates an HTTP server with its routes mounted on a chi router.
func NewServer(opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second, // irradiance fetches can take tens of seconds
			IdleTimeout:  60 * time.Second,
		},
		assessor: opts.Assessor,
		users:    opts.Users,
		validate: newValidator(),
		logger:   logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(opts.Readiness))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/solar", func(r chi.Router) {
		if opts.RateLimitRequests > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitRequests, opts.RateLimitWindow))
		}
		r.Post("/impact", s.handleImpact)
		r.Post("/viability", s.handleViability)
	})

	if s.users != nil {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/", s.handleListUsers)
			r.Get("/{id}", s.handleGetUser)
			r.Put("/{id}", s.handleUpdateUser)
			r.Delete("/{id}", s.handleDeleteUser)
		})
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"message": "solar feasibility service"})
}
