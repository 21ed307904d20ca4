// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes blog generation and the post archive over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/pipeline"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/store"
	"github.com/Lingesh-S/multi-agent-blog-generator/internal/telemetry"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

// Generator runs one blog generation. *pipeline.Pipeline satisfies it.
type Generator interface {
	Generate(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// Archive reads persisted posts and runs. *store.Store satisfies it.
type Archive interface {
	GetPost(ctx context.Context, id string) (*types.Post, error)
	ListPosts(ctx context.Context, limit int) ([]*types.Post, error)
	SearchPosts(ctx context.Context, query string, limit int) ([]*types.Post, error)
	GetRun(ctx context.Context, id string) (*store.Run, error)
}

// Server is the HTTP API.
type Server struct {
	cfg     types.APIConfig
	gen     Generator
	archive Archive
	logger  *zap.Logger
	limiter *clientLimiter
	proxies proxyList
	handler http.Handler
	version string
}

// New returns a server for cfg. logger may be nil.
func New(cfg types.APIConfig, gen Generator, archive Archive, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		gen:     gen,
		archive: archive,
		logger:  logger.Named("http"),
		version: version,
	}
	proxies, err := parseProxies(cfg.TrustedProxies)
	if err != nil {
		s.logger.Warn("ignoring trusted proxies", zap.Error(err))
	}
	s.proxies = proxies
	if cfg.RateLimitEnabled && cfg.RateLimitRequests > 0 && cfg.RateLimitPeriod > 0 {
		s.limiter = newClientLimiter(cfg.RateLimitRequests, time.Duration(cfg.RateLimitPeriod)*time.Second)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/v1/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/v1/posts", s.handleListPosts)
	mux.HandleFunc("GET /api/v1/posts/{id}", s.handleGetPost)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)

	var h http.Handler = s.rateLimit(mux)
	if len(cfg.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: cfg.CORSAllowCredentials,
			MaxAge:           600,
		}).Handler(h)
	}
	s.handler = s.logRequests(h)
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Addr returns the listen address from the configuration.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errc
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

// GenerateResponse is the body of a successful generation.
type GenerateResponse struct {
	RunID            string              `json:"run_id"`
	PostID           string              `json:"post_id,omitempty"`
	Title            string              `json:"title"`
	Post             string              `json:"post"`
	Metadata         *types.PostMetadata `json:"metadata,omitempty"`
	QualityScore     *float64            `json:"quality_score,omitempty"`
	DraftIterations  int                 `json:"draft_iterations"`
	Sources          []types.Source      `json:"sources"`
	ExecutionTime    map[string]float64  `json:"execution_time"`
	Errors           []types.ErrorEntry  `json:"errors,omitempty"`
	UnknownCitations []int               `json:"unknown_citations,omitempty"`
	Path             string              `json:"path,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var in pipeline.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	res, err := s.gen.Generate(r.Context(), in)
	switch {
	case errors.Is(err, types.ErrInvalidState):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error("generation failed", zap.Error(err))
		body := map[string]any{"error": err.Error()}
		if res != nil {
			body["run_id"] = res.RunID
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	st := res.State
	writeJSON(w, http.StatusOK, GenerateResponse{
		RunID:            res.RunID,
		PostID:           res.PostID,
		Title:            st.BlogTitle,
		Post:             st.BlogPost,
		Metadata:         st.BlogMetadata,
		QualityScore:     st.QualityScore,
		DraftIterations:  st.DraftIterations,
		Sources:          st.ResearchSources,
		ExecutionTime:    st.ExecutionTime,
		Errors:           st.ErrorLog,
		UnknownCitations: res.UnknownCitations,
		Path:             res.Path,
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var posts []*types.Post
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		posts, err = s.archive.SearchPosts(r.Context(), q, limit)
	} else {
		posts, err = s.archive.ListPosts(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error("listing posts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing posts failed")
		return
	}
	if posts == nil {
		posts = []*types.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "count": len(posts)})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.archive.GetPost(r.Context(), r.PathValue("id"))
	if s.lookupFailed(w, "post", err) {
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.archive.GetRun(r.Context(), r.PathValue("id"))
	if s.lookupFailed(w, "run", err) {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) lookupFailed(w http.ResponseWriter, kind string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, kind+" not found")
	default:
		s.logger.Error("reading "+kind, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reading "+kind+" failed")
	}
	return true
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxLimit {
		return 0, fmt.Errorf("limit must be an integer within [1, %d]", maxLimit)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- middleware ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := telemetry.Tracer().Start(r.Context(), "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if ok, retry := s.limiter.allow(s.proxies.clientKey(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds()+0.999)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
