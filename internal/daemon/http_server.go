package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/docrunner/internal/history"
	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/metrics"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

// Server exposes the daemon's HTTP API.
type Server struct {
	addr   string
	daemon *Daemon
	srv    *http.Server
}

// NewServer builds the API server. Routes are registered up front so a bad
// mux pattern fails at construction, not mid-request.
func NewServer(addr string, d *Daemon) *Server {
	s := &Server{addr: addr, daemon: d}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/builds", s.handleListBuilds)
	mux.HandleFunc("GET /api/builds/{id}", s.handleGetBuild)
	mux.HandleFunc("POST /api/builds", s.handleTriggerBuild)
	if handler, ok := d.recorder.(*metrics.PrometheusRecorder); ok {
		mux.Handle("GET /metrics", handler.Handler())
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start binds the listener and serves in the background. Binding happens
// here so an occupied port surfaces before the daemon reports ready.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	observability.InfoContext(ctx, "http api listening", logfields.URL(ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.ErrorContext(ctx, "http server error", logfields.Error(err))
		}
	}()
	return nil
}

// Stop drains in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.status())
}

func (s *Server) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	builds, err := s.daemon.store.ListBuilds(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if builds == nil {
		builds = []history.BuildRecord{}
	}
	writeJSON(w, http.StatusOK, builds)
}

func (s *Server) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	record, err := s.daemon.store.GetBuild(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrBuildNotFound) {
			writeError(w, http.StatusNotFound, "build not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summary, err := history.SummarizeFromStore(r.Context(), s.daemon.store, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, buildDetail{Record: *record, Summary: summary})
}

func (s *Server) handleTriggerBuild(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ref string `json:"ref,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if !s.daemon.TriggerRef("api", body.Ref) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "already queued"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// buildDetail joins the stored record with the event-stream summary.
type buildDetail struct {
	Record  history.BuildRecord  `json:"record"`
	Summary history.BuildSummary `json:"summary"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		observability.ErrorContext(context.Background(), "encode response failed", logfields.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
