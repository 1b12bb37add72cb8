package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yangwenmai/storeops/internal/chat"
	"github.com/yangwenmai/storeops/internal/engine"
	"github.com/yangwenmai/storeops/internal/intent"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/scan"
	"github.com/yangwenmai/storeops/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Deps are the components the API exposes.
type Deps struct {
	Store           store.Repository
	Pipeline        *engine.Pipeline
	Scans           *scan.Analyzer
	Chat            *chat.Session
	Prompts         []model.SuggestionEntry
	SuggestionLimit int
	CORSOrigin      string
	Logger          zerolog.Logger
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store      store.Repository
	pipeline   *engine.Pipeline
	scans      *scan.Analyzer
	chat       *chat.Session
	prompts    []model.SuggestionEntry
	limit      int
	corsOrigin string
	log        zerolog.Logger
	mux        *http.ServeMux
}

// New creates a new API server.
func New(d Deps) *Server {
	srv := &Server{
		store:      d.Store,
		pipeline:   d.Pipeline,
		scans:      d.Scans,
		chat:       d.Chat,
		prompts:    d.Prompts,
		limit:      d.SuggestionLimit,
		corsOrigin: d.CORSOrigin,
		log:        d.Logger.With().Str("component", "api").Logger(),
		mux:        http.NewServeMux(),
	}
	if srv.limit <= 0 {
		srv.limit = intent.DefaultMaxSuggestions
	}
	if srv.corsOrigin == "" {
		srv.corsOrigin = "*"
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.corsMiddleware(limitBody(jsonContent(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/state", s.handleGetState)
	s.mux.HandleFunc("PUT /api/state", s.handlePutState)

	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("PATCH /api/tasks/{id}/status", s.handleUpdateTaskStatus)
	s.mux.HandleFunc("POST /api/tasks/{id}/pause", s.handlePauseTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/resume", s.handleResumeTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/escalate", s.handleEscalateTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleCompleteTask)

	s.mux.HandleFunc("GET /api/recommendations", s.handleListRecommendations)
	s.mux.HandleFunc("POST /api/recommendations/{id}/convert", s.handleConvertRecommendation)
	s.mux.HandleFunc("DELETE /api/recommendations/{id}", s.handleDismissRecommendation)

	s.mux.HandleFunc("GET /api/insights", s.handleListInsights)
	s.mux.HandleFunc("POST /api/insights/{id}/convert", s.handleConvertInsight)
	s.mux.HandleFunc("DELETE /api/insights/{id}", s.handleDismissInsight)

	s.mux.HandleFunc("GET /api/alerts", s.handleListAlerts)
	s.mux.HandleFunc("DELETE /api/alerts/{id}", s.handleDismissAlert)

	s.mux.HandleFunc("POST /api/scans", s.handleRunScan)
	s.mux.HandleFunc("POST /api/scans/{session}/restock", s.handleRestock)
	s.mux.HandleFunc("POST /api/score", s.handleScore)

	s.mux.HandleFunc("GET /api/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("GET /api/chat", s.handleGetChat)
	s.mux.HandleFunc("POST /api/chat", s.handlePostChat)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers for the configured origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

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
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeOptional decodes a JSON body into v, treating an empty body as {}.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
