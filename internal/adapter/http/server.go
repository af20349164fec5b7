package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flare-heat-flux/internal/calculator"
	"github.com/couchcryptid/flare-heat-flux/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the calculation API, interactive sessions, and the
// health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	calc       *calculator.Calculator
	sessions   *session.Store
	validate   *validator.Validate
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewServer wires all routes onto a fresh mux. The session store doubles as
// the readiness checker. allowedOrigins lists cross-site origins that may
// open session WebSockets in addition to same-origin pages.
func NewServer(addr string, calc *calculator.Calculator, sessions *session.Store, allowedOrigins []string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		calc:     calc,
		sessions: sessions,
		validate: newValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(sessions))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/thresholds", s.handleThresholds)
	mux.HandleFunc("GET /api/v1/heat-release", s.handleHeatRelease)
	mux.HandleFunc("GET /api/v1/flux", s.handleFlux)
	mux.HandleFunc("GET /api/v1/safe-distance", s.handleSafeDistance)
	mux.HandleFunc("POST /api/v1/report", s.handleReport)

	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /api/v1/sessions/{id}", s.handleEditSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/ws", s.handleSessionWS)

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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
