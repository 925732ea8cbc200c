// Package api serves the journal over a local JSON HTTP API for a
// presentation layer.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"trading-journal/internal/analytics"
	"trading-journal/internal/coach"
	"trading-journal/internal/extract"
	"trading-journal/internal/journal"
	"trading-journal/internal/logging"
	"trading-journal/internal/models"
	"trading-journal/internal/store"
)

// Journal is the journal service as used by the API.
type Journal interface {
	Trades() []models.Trade
	Recent(limit int) []models.Trade
	Favorites() []models.Trade
	Strategies() []string
	CreateTrade(ctx context.Context, in journal.TradeInput) (models.Trade, error)
	DeleteTrade(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Query(timeframe models.Timeframe, strategy string) analytics.Query
	Stats(q analytics.Query) models.PerformanceStats
	Heatmap() models.Heatmap
	SyncStatus() []*store.SyncStatus
	InitialBalance() float64
	SetInitialBalance(ctx context.Context, v float64) error
	Currency() string
	SetCurrency(ctx context.Context, code string) error
}

// Config holds server configuration
type Config struct {
	Port      int
	Log       zerolog.Logger
	Journal   Journal
	Extractor extract.Extractor // optional
	Coach     *coach.Coach      // optional
	DevMode   bool
	// AIRate and AIBurst limit requests to the AI endpoints.
	AIRate  float64
	AIBurst int
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	journal   Journal
	extractor extract.Extractor
	coach     *coach.Coach
	aiLimiter *rate.Limiter
	port      int
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.AIRate <= 0 {
		cfg.AIRate = 0.5
	}
	if cfg.AIBurst <= 0 {
		cfg.AIBurst = 3
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		journal:   cfg.Journal,
		extractor: cfg.Extractor,
		coach:     cfg.Coach,
		aiLimiter: rate.NewLimiter(rate.Limit(cfg.AIRate), cfg.AIBurst),
		port:      cfg.Port,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	origins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if devMode {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Get("/", s.handleListTrades)
			r.Post("/", s.handleCreateTrade)
			r.Delete("/{id}", s.handleDeleteTrade)
			r.Post("/{id}/favorite", s.handleToggleFavorite)
		})

		r.Get("/stats", s.handleStats)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/monthly", s.handleMonthly)
		r.Get("/heatmap", s.handleHeatmap)
		r.Get("/strategies", s.handleStrategies)
		r.Get("/sync", s.handleSyncStatus)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Post("/calculator", s.handleCalculator)
		r.Post("/extract", s.handleExtract)
		r.Post("/coach", s.handleCoach)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
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

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(logging.WithLogger(r.Context(), reqLog))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Msg("HTTP request")
	})
}
