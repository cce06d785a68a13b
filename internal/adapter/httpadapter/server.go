package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultPublishCount = 10

// BatchEmitter publishes a burst of synthetic incidents.
type BatchEmitter interface {
	EmitBatch(ctx context.Context, n int) (int, error)
}

// Option registers an extra route on the server.
type Option func(s *Server, mux *http.ServeMux)

// WithRules exposes the routing table at GET /rules.
func WithRules() Option {
	return func(_ *Server, mux *http.ServeMux) {
		mux.HandleFunc("GET /rules", handleRules)
	}
}

// WithPublish exposes POST /publish?count=N, which emits N synthetic
// incidents (default 10, at most 50).
func WithPublish(e BatchEmitter) Option {
	return func(s *Server, mux *http.ServeMux) {
		mux.HandleFunc("POST /publish", s.handlePublish(e))
	}
}

// Server exposes health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics routes
// plus any routes added by opts.
func NewServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	for _, opt := range opts {
		opt(s, mux)
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

type ruleView struct {
	Name     string          `json:"name"`
	Agencies []domain.Agency `json:"agencies"`
	Reason   string          `json:"reason"`
}

func handleRules(w http.ResponseWriter, _ *http.Request) {
	rules := domain.Rules()
	out := make([]ruleView, len(rules))
	for i, r := range rules {
		out[i] = ruleView{Name: r.Name, Agencies: r.Agencies, Reason: r.Reason}
	}
	writeJSON(w, http.StatusOK, out)
}

type publishResponse struct {
	OK        bool   `json:"ok"`
	Published int    `json:"published"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handlePublish(e BatchEmitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := defaultPublishCount
		if v := r.URL.Query().Get("count"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				count = n
			}
		}

		n, err := e.EmitBatch(r.Context(), count)
		if err != nil {
			s.logger.Error("publish batch failed", "error", err, "published", n)
			writeJSON(w, http.StatusInternalServerError, publishResponse{Published: n, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, publishResponse{OK: true, Published: n})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
