// Package server provides the HTTP server and routing for stockcart.
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

	"github.com/aristath/stockcart/internal/auth"
	"github.com/aristath/stockcart/internal/database"
	"github.com/aristath/stockcart/internal/modules/automation"
	carthandlers "github.com/aristath/stockcart/internal/modules/cart/handlers"
	"github.com/aristath/stockcart/internal/modules/market"
	markethandlers "github.com/aristath/stockcart/internal/modules/market/handlers"
	rulehandlers "github.com/aristath/stockcart/internal/modules/rules/handlers"
	"github.com/aristath/stockcart/internal/notify"
	"github.com/aristath/stockcart/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log            zerolog.Logger
	Port           int
	DevMode        bool
	AllowedOrigins []string

	DB        *database.DB
	Simulator *market.Simulator
	Engine    *automation.Engine
	Scheduler *scheduler.Scheduler
	Hub       *notify.Hub

	CartHandler    *carthandlers.Handler
	RulesHandler   *rulehandlers.Handler
	SessionOptions notify.SessionOptions
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		port:   cfg.Port,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.DB,
			cfg.Engine,
			cfg.Hub,
			cfg.Scheduler,
			cfg.Simulator,
		),
	}

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,

		// Read and write deadlines would also apply to hijacked websocket connections
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Router exposes the configured router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(allowedOrigins []string) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.UserIDHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes(cfg Config) {
	// Websockets are long-lived: no request timeout, no compression
	if cfg.Hub != nil {
		notify.NewHandler(cfg.Hub, cfg.SessionOptions, cfg.Log).RegisterRoutes(s.router)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		if !cfg.DevMode {
			r.Use(middleware.Compress(5))
		}

		r.Get("/health", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Post("/contact", s.handleContact)

			if cfg.Simulator != nil {
				markethandlers.NewHandler(cfg.Simulator, cfg.Log).RegisterRoutes(r)
			}
			if cfg.CartHandler != nil {
				cfg.CartHandler.RegisterRoutes(r)
			}
			if cfg.RulesHandler != nil {
				cfg.RulesHandler.RegisterRoutes(r)
			}

			r.With(auth.RequireUser).Get("/orders", s.handleListOrders)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Post("/jobs/{name}/run", s.systemHandlers.HandleTriggerJob)
			})
		})
	})
}

// RegisterJob makes job triggerable through the system API
func (s *Server) RegisterJob(job scheduler.Job) {
	s.systemHandlers.RegisterJob(job)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
