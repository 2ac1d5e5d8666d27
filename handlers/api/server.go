package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/nijaru/yt-digest/cache"
	"github.com/nijaru/yt-digest/config"
	"github.com/nijaru/yt-digest/ledger"
	"github.com/nijaru/yt-digest/middleware"
	"github.com/nijaru/yt-digest/prompts"
	"github.com/nijaru/yt-digest/repository"
	"github.com/nijaru/yt-digest/services/analysis"
	"github.com/nijaru/yt-digest/session"
	"github.com/nijaru/yt-digest/validation"
	"github.com/sirupsen/logrus"
)

// Services are the dependencies the HTTP layer talks to.
type Services struct {
	Analysis analysis.Service
	History  *ledger.History
	Costs    *ledger.Costs
	Prompts  *prompts.Store
	Runs     repository.RunRepository
	Sessions *session.Store
	Cache    *cache.Fetcher
}

type Server struct {
	analysis  *AnalysisHandler
	history   *HistoryHandler
	prompts   *PromptsHandler
	sessions  *session.Store
	cache     *cache.Fetcher
	config    *config.Config
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer creates the API server. WithServices must be among the options.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func WithServices(svc Services) ServerOption {
	return func(s *Server) {
		validator := validation.NewValidator(s.config.Transcription.MaxUploadBytes)
		s.analysis = NewAnalysisHandler(svc.Analysis, validator, s.config.Transcription.MaxUploadBytes)
		s.history = NewHistoryHandler(svc.History, svc.Costs, svc.Runs, s.config.ServerName)
		s.prompts = NewPromptsHandler(svc.Prompts)
		s.sessions = svc.Sessions
		s.cache = svc.Cache
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /analyze", s.analysis.HandleAnalyze)
	mux.HandleFunc("POST /transcribe-file", s.analysis.HandleTranscribeFile)
	mux.HandleFunc("POST /generate-article", s.analysis.HandleGenerateArticle)
	mux.HandleFunc("GET /transcript", s.analysis.HandleTranscript)
	mux.HandleFunc("POST /load-from-history", s.analysis.HandleLoadFromHistory)
	mux.HandleFunc("POST /save-article", s.analysis.HandleSaveArticle)

	mux.HandleFunc("GET /history", s.history.HandleList)
	mux.HandleFunc("GET /history/{videoId}/view", s.history.HandleView)
	mux.HandleFunc("DELETE /history/{videoId}", s.history.HandleDelete)
	mux.HandleFunc("GET /costs", s.history.HandleCosts)
	mux.HandleFunc("GET /session-costs", s.history.HandleSessionCosts)
	mux.HandleFunc("GET /runs", s.history.HandleRuns)

	mux.HandleFunc("GET /prompts", s.prompts.HandleList)
	mux.HandleFunc("POST /prompts/save", s.prompts.HandleSave)

	return s.middleware(mux)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	var rateLimiter middleware.RateLimiter
	if s.config.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		)
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Session(s.sessions, s.config.Session.CookieName),
		middleware.Logging(s.logger),
		middleware.CORS(s.config.CORS),
		middleware.Timeout(s.config.RequestTimeout),
	}

	if rateLimiter != nil {
		middlewares = append(middlewares, rateLimiter.Middleware)
	}

	return middleware.Chain(handler, middlewares...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   s.config.Version,
		"uptime":    time.Since(s.startTime).String(),
	}

	if s.config.Debug {
		status["debug"] = true
		status["goroutines"] = runtime.NumGoroutine()
		status["sessions"] = s.sessions.Len()
		if s.cache != nil {
			status["cache"] = s.cache.Stats()
		}
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status["memory"] = map[string]any{
			"allocated": m.Alloc,
			"total":     m.TotalAlloc,
			"system":    m.Sys,
			"gc_cycles": m.NumGC,
		}
	}

	respondJSON(w, r, http.StatusOK, status)
}
