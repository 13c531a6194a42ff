// Package server provides the HTTP API over the analysis, backtest and trade
// output files.
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

	"github.com/aristath/bullbear/internal/database"
	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/trades"
	"github.com/aristath/bullbear/internal/scheduler"
)

// SummarySource provides the summary of the last backtest run
type SummarySource interface {
	LatestSummary() (*backtest.Summary, error)
}

// TradeSource provides the most recent trade candidates
type TradeSource interface {
	ReadLatest() (string, []trades.Candidate, error)
}

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Analyses  *analysis.Store
	Backtests SummarySource
	Trades    TradeSource
	ReportDir string
	CacheDB   *database.DB // optional, reported by the status endpoint
	Jobs      []scheduler.Job
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	port      int
	analyses  *analysis.Store
	backtests SummarySource
	trades    TradeSource
	reportDir string
	system    *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		port:      cfg.Port,
		analyses:  cfg.Analyses,
		backtests: cfg.Backtests,
		trades:    cfg.Trades,
		reportDir: cfg.ReportDir,
		system:    NewSystemHandlers(cfg.CacheDB, cfg.Jobs, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
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

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.system.HandleSystemStatus)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.system.HandleListJobs)
			r.Post("/{name}", s.system.HandleTriggerJob)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Get("/latest", s.handleLatestAnalysis)
			r.Get("/{date}", s.handleAnalysisByDate)
			r.Get("/{date}/signals", s.handleAnalysisSignals)
		})

		r.Get("/backtest/summary", s.handleBacktestSummary)
		r.Get("/trades/latest", s.handleLatestTrades)
		r.Get("/report/daily", s.handleDailyReport)
	})
}

// Handler exposes the router, mainly for tests.
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
	s.system.Wait()
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
