// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/config"
	"github.com/drdave-teaching/craigslist-scraper/internal/crawl"
	"github.com/drdave-teaching/craigslist-scraper/internal/database"
	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
)

// Runner executes one crawl run.
type Runner interface {
	Run(ctx context.Context, maxPages int, prefix string) (crawl.RunSummary, error)
}

// Extractor processes one finalized detail-record object.
type Extractor interface {
	ProcessObject(ctx context.Context, objectKey string) (extract.Listing, error)
}

// Server wires HTTP handlers to the crawl and extraction pipelines.
type Server struct {
	router    chi.Router
	runner    Runner
	extractor Extractor
	db        database.Store
	clock     func() time.Time
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, extractor Extractor, db database.Store, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		runner:    runner,
		extractor: extractor,
		db:        db,
		clock:     time.Now,
		cfg:       cfg,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.startRun)
		r.Post("/extract", s.extractObject)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"}, s.logger)
}

type runRequest struct {
	MaxPages int    `json:"max_pages"`
	Prefix   string `json:"prefix"`
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", s.logger)
		return
	}
	if req.MaxPages <= 0 {
		req.MaxPages = s.cfg.Crawler.MaxPagesDefault
	}
	if req.Prefix == "" {
		req.Prefix = s.cfg.Storage.Prefix
	}

	summary, err := s.runner.Run(r.Context(), req.MaxPages, req.Prefix)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, crawl.ErrNoStore) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error(), s.logger)
		return
	}

	if err := s.db.RecordRun(r.Context(), summary, s.clock().UTC()); err != nil {
		s.logger.Warn("record run failed", zap.String("run_id", summary.RunID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, summary, s.logger)
}

type extractRequest struct {
	ObjectKey string `json:"object_key"`
}

func (s *Server) extractObject(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ObjectKey == "" {
		writeError(w, http.StatusBadRequest, "missing object_key", s.logger)
		return
	}

	listing, err := s.extractor.ProcessObject(r.Context(), req.ObjectKey)
	if err != nil {
		// Paths outside the pipeline's input shape are not failures.
		if errors.Is(err, extract.ErrNotEligible) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"}, s.logger)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error(), s.logger)
		return
	}
	writeJSON(w, http.StatusOK, listing, s.logger)
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error", s.logger)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}
