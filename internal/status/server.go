// Package status serves the local read-only HTTP API: connection health,
// gate zone views, the audit log and Prometheus metrics.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/parkwatch/internal/audit"
	"github.com/rickgao/parkwatch/internal/connection"
	"github.com/rickgao/parkwatch/internal/model"
	"github.com/rickgao/parkwatch/internal/zones"
)

// ConnectionInfo is the part of the Connection Manager the API reports on.
type ConnectionInfo interface {
	Status() connection.Status
	Topics() []string
}

// ZoneViewer serves the zone view of one gate.
type ZoneViewer interface {
	GateID() string
	View(ctx context.Context) zones.View
}

// AuditLog serves the admin surface.
type AuditLog interface {
	Entries() []model.AuditEntry
	Gates() []model.Gate
	Report() audit.Report
}

// Deps are the components the API reads from. Gates and Audit are optional.
type Deps struct {
	Connection ConnectionInfo
	Gates      []ZoneViewer
	Audit      AuditLog
	Metrics    http.Handler // nil → promhttp.Handler()
}

// Health is the /health response body.
type Health struct {
	Status        string   `json:"status"`
	Connection    string   `json:"connection"`
	State         string   `json:"state"`
	Attempt       int      `json:"attempt,omitempty"`
	Subscriptions []string `json:"subscriptions"`
}

// Server is the status HTTP server.
type Server struct {
	deps   Deps
	gates  map[string]ZoneViewer
	logger *slog.Logger
	srv    *http.Server
}

// New creates a server listening on :port.
func New(port int, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	s := &Server{
		deps:   deps,
		gates:  make(map[string]ZoneViewer, len(deps.Gates)),
		logger: logger.With("component", "status"),
	}
	for _, g := range deps.Gates {
		s.gates[g.GateID()] = g
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/gates", s.listGates)
	r.Get("/gates/{gateID}/zones", s.gateZones)
	r.Get("/audit", s.auditEntries)
	r.Get("/audit/report", s.auditReport)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics)

	return r
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting status server", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	st := s.deps.Connection.Status()
	topics := s.deps.Connection.Topics()
	if topics == nil {
		topics = []string{}
	}

	h := Health{
		Status:        "healthy",
		Connection:    st.Label(),
		State:         st.State.String(),
		Attempt:       st.Attempt,
		Subscriptions: topics,
	}
	// Offline operation is supported, so a lost stream degrades rather than fails.
	if st.State != connection.StateConnected {
		h.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, h)
}

// GET /gates
func (s *Server) listGates(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit != nil {
		writeJSON(w, http.StatusOK, s.deps.Audit.Gates())
		return
	}
	ids := make([]string, 0, len(s.deps.Gates))
	for _, g := range s.deps.Gates {
		ids = append(ids, g.GateID())
	}
	writeJSON(w, http.StatusOK, ids)
}

// GET /gates/{gateID}/zones
func (s *Server) gateZones(w http.ResponseWriter, r *http.Request) {
	gateID := chi.URLParam(r, "gateID")
	g, ok := s.gates[gateID]
	if !ok {
		writeError(w, http.StatusNotFound, "gate not served: "+gateID)
		return
	}
	writeJSON(w, http.StatusOK, g.View(r.Context()))
}

// GET /audit?limit=
func (s *Server) auditEntries(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		writeError(w, http.StatusNotFound, "audit log not enabled")
		return
	}
	entries := s.deps.Audit.Entries()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(entries) {
			entries = entries[:n]
		}
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GET /audit/report
func (s *Server) auditReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Audit == nil {
		writeError(w, http.StatusNotFound, "audit log not enabled")
		return
	}
	rep := s.deps.Audit.Report()
	if rep.Zones == nil {
		rep.Zones = []model.ZoneReport{}
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
