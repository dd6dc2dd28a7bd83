package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/miiguelriios/WasteLessApp/pkg/auth"
	"github.com/miiguelriios/WasteLessApp/pkg/inventory"
	"github.com/miiguelriios/WasteLessApp/pkg/model"
	"github.com/miiguelriios/WasteLessApp/pkg/reconciler"
	"github.com/miiguelriios/WasteLessApp/pkg/storage"
)

const requestTimeout = 10 * time.Second

// Runner executes one reconciliation pass.
type Runner interface {
	Run(ctx context.Context, windowDays int) (*model.RunSummary, error)
}

// Options configures a Server.
type Options struct {
	// WindowDays is used by POST /alerts/run when the request does not name one.
	WindowDays int
	CORSOrigin string
	// RequireAuth protects every route except health and login with a bearer token.
	RequireAuth bool
}

// Server exposes the inventory and alert API over HTTP.
type Server struct {
	inventory *inventory.Service
	runner    Runner
	users     auth.UserStore
	tokens    *auth.TokenService
	opts      Options
	mux       *http.ServeMux
	logger    *slog.Logger
}

// NewServer creates an API server. tokens may be nil when auth is disabled, in which
// case the login route is not registered.
func NewServer(inv *inventory.Service, runner Runner, users auth.UserStore, tokens *auth.TokenService, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		inventory: inv,
		runner:    runner,
		users:     users,
		tokens:    tokens,
		opts:      opts,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.tokens != nil {
		s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	}

	s.mux.HandleFunc("GET /items", s.handleListItems)
	s.mux.HandleFunc("POST /items", s.handleCreateItem)
	s.mux.HandleFunc("GET /items/stats", s.handleStats)
	s.mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	s.mux.HandleFunc("PUT /items/{id}", s.handleUpdateItem)
	s.mux.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)

	s.mux.HandleFunc("GET /categories", s.handleListCategories)
	s.mux.HandleFunc("POST /categories", s.handleCreateCategory)
	s.mux.HandleFunc("GET /suppliers", s.handleListSuppliers)
	s.mux.HandleFunc("POST /suppliers", s.handleCreateSupplier)

	s.mux.HandleFunc("GET /alerts", s.handleListAlerts)
	s.mux.HandleFunc("POST /alerts", s.handleCreateAlert)
	s.mux.HandleFunc("POST /alerts/run", s.handleRunAlerts)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.opts.RequireAuth {
		h = s.requireAuth(h)
	}
	h = withCORS(s.opts.CORSOrigin, h)
	return requestLogger(s.logger, h)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps err onto a status code. Unexpected errors are logged and reported
// with fallback as the message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	case errors.Is(err, storage.ErrInvalidReference):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Referenced category, supplier or item does not exist"})
	case errors.Is(err, inventory.ErrInvalid), errors.Is(err, reconciler.ErrInvalidWindow):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "Already exists"})
	default:
		s.logger.Error(fallback, "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fallback})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", inventory.ErrInvalid, err)
	}
	return nil
}
