// Package web exposes the calendar state over HTTP: the published
// snapshot, refresh and navigation endpoints, and a health probe.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lunacal/internal/config"
	appLog "lunacal/internal/log"
	"lunacal/internal/refresh"
)

// Server provides the HTTP API over a running Orchestrator. All state
// lives in the orchestrator; handlers only translate requests into
// orchestrator calls and snapshots into JSON.
type Server struct {
	// ctx is the daemon's root context. Navigation and refresh calls
	// spawn work that outlives the HTTP request, so they must not be
	// tied to the request context.
	ctx        context.Context
	settings   config.Settings
	configPath string
	orch       *refresh.Orchestrator
	loc        *time.Location
	mux        *http.ServeMux
}

// NewServer constructs a new Server. configPath is re-read by the
// settings reload endpoint; empty disables it.
func NewServer(ctx context.Context, settings config.Settings, configPath string, orch *refresh.Orchestrator, loc *time.Location) *Server {
	s := &Server{
		ctx:        ctx,
		settings:   settings,
		configPath: configPath,
		orch:       orch,
		loc:        loc,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.settings.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	ba := s.settings.BasicAuth
	if ba == nil {
		return false
	}
	// An empty username or password counts as disabled.
	if ba.Username == "" || ba.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.settings.BasicAuth.Username
	password := s.settings.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable without credentials.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="LunaCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/api/select", s.handleSelect)
	s.mux.HandleFunc("/api/today", s.handleToday)
	s.mux.HandleFunc("/api/month", s.handleMonth)
	s.mux.HandleFunc("/api/month/previous", s.handleMonthPrevious)
	s.mux.HandleFunc("/api/month/next", s.handleMonthNext)
	s.mux.HandleFunc("/api/settings/reload", s.handleSettingsReload)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleSnapshot returns the currently published calendar snapshot.
//
// GET /api/snapshot
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, s.orch.Snapshot())
}

// handleRefresh triggers a refresh and returns immediately. The caller
// polls /api/snapshot (or watches the generation field) for the result.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	s.orch.NotifyExternalChange(s.ctx)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "refreshing"})
}

// handleSelect changes the selected date.
//
// POST /api/select?date=2026-02-17
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	raw := r.URL.Query().Get("date")
	date, err := time.ParseInLocation("2006-01-02", raw, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	s.orch.SelectDate(s.ctx, date)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "refreshing"})
}

// handleToday reselects the current day.
//
// POST /api/today
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	s.orch.GoToToday(s.ctx)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "refreshing"})
}

// handleMonth steps the display month forward or backward.
//
// POST /api/month?step=1
// POST /api/month?step=-1
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	step, err := strconv.Atoi(r.URL.Query().Get("step"))
	if err != nil || step == 0 {
		writeError(w, http.StatusBadRequest, "step must be a non-zero integer")
		return
	}
	s.orch.StepMonth(s.ctx, step)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "refreshing"})
}

// handleMonthPrevious shows the previous month.
//
// POST /api/month/previous
func (s *Server) handleMonthPrevious(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	s.orch.ShowPreviousMonth(s.ctx)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "refreshing"})
}

// handleMonthNext shows the next month.
//
// POST /api/month/next
func (s *Server) handleMonthNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	s.orch.ShowNextMonth(s.ctx)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "refreshing"})
}

// handleSettingsReload re-reads the configuration file and applies it
// to the running calendar state. Listen address and credential changes
// still need a restart.
//
// POST /api/settings/reload
func (s *Server) handleSettingsReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if s.configPath == "" {
		writeError(w, http.StatusNotFound, "no configuration file")
		return
	}
	settings, err := config.Load(s.configPath)
	if err != nil {
		appLog.Error("settings reload failed", err, "path", s.configPath)
		writeError(w, http.StatusInternalServerError, "settings reload failed")
		return
	}
	s.orch.UpdateSettings(s.ctx, *settings)
	writeJSON(w, http.StatusAccepted, statusResponse{Status: "refreshing"})
}

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
