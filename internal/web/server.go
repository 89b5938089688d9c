// Package web provides the HTTP control surface and status page for the
// garden-controller daemon: schedule rule CRUD, pause/resume overrides,
// manual watering, settings, and status.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sweeney/garden-controller/internal/hardware"
	"github.com/sweeney/garden-controller/internal/notify"
	"github.com/sweeney/garden-controller/internal/rules"
	"github.com/sweeney/garden-controller/internal/schedule"
	"github.com/sweeney/garden-controller/internal/settings"
	"github.com/sweeney/garden-controller/internal/status"
)

// Server serves the status page and the JSON control API.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	rules      *rules.Store
	settings   *settings.Store
	pump       hardware.Pump
	events     schedule.EventSink
	notifier   notify.Notifier
	now        func() time.Time
}

// New creates a Server. events and notifier may be nil.
func New(addr string, tracker *status.Tracker, ruleStore *rules.Store, settingsStore *settings.Store, pump hardware.Pump, events schedule.EventSink, notifier notify.Notifier) *Server {
	s := &Server{
		tracker:  tracker,
		rules:    ruleStore,
		settings: settingsStore,
		pump:     pump,
		events:   events,
		notifier: notifier,
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/status.json", s.handleStatusJSON)
	mux.HandleFunc("/api/rules", s.handleRules)
	mux.HandleFunc("/api/rules/", s.handleRule)
	mux.HandleFunc("/api/pause/light", s.handlePause(rules.TypeLight))
	mux.HandleFunc("/api/pause/pump", s.handlePause(rules.TypePump))
	mux.HandleFunc("/api/resume/light", s.handleResume(rules.TypeLight))
	mux.HandleFunc("/api/resume/pump", s.handleResume(rules.TypePump))
	mux.HandleFunc("/api/watering/start", s.handleWateringStart)
	mux.HandleFunc("/api/watering/stop", s.handleWateringStop)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/notify/test", s.handleNotifyTest)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleStatusJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// addRuleRequest is the POST /api/rules body. Enabled defaults to true when
// omitted.
type addRuleRequest struct {
	Type            rules.Type `json:"type"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	BrightnessPct   int        `json:"brightness_pct"`
	Time            string     `json:"time"`
	DurationMinutes int        `json:"duration_minutes"`
	Enabled         *bool      `json:"enabled"`
	Paused          bool       `json:"paused"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.rules.Load())
	case http.MethodPost:
		var req addRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		rule := rules.Rule{
			Type:            req.Type,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			BrightnessPct:   req.BrightnessPct,
			Time:            req.Time,
			DurationMinutes: req.DurationMinutes,
			Enabled:         req.Enabled == nil || *req.Enabled,
			Paused:          req.Paused,
		}
		if err := validateRule(rule); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		stored, err := s.rules.AddRule(rule)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/rules/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var patch rules.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if err := validatePatch(patch); err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := s.rules.UpdateRule(id, patch)
		if errors.Is(err, rules.ErrNotFound) {
			httpError(w, http.StatusNotFound, "rule not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		removed, err := s.rules.DeleteRule(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !removed {
			httpError(w, http.StatusNotFound, "rule not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// pauseRequest is the body for pause endpoints.
type pauseRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) handlePause(t rules.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req pauseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Minutes <= 0 {
			httpError(w, http.StatusBadRequest, "minutes must be a positive integer")
			return
		}
		until := s.now().Add(time.Duration(req.Minutes) * time.Minute)
		var err error
		if t == rules.TypeLight {
			err = s.rules.SetLightPausedUntil(&until)
		} else {
			err = s.rules.SetPumpPausedUntil(&until)
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"paused_until": until.Format(time.RFC3339)})
	}
}

func (s *Server) handleResume(t rules.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var err error
		if t == rules.TypeLight {
			err = s.rules.SetLightPausedUntil(nil)
		} else {
			err = s.rules.SetPumpPausedUntil(nil)
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"resumed": true})
	}
}

func (s *Server) handleWateringStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Minutes <= 0 {
		httpError(w, http.StatusBadRequest, "minutes must be a positive integer")
		return
	}
	if err := s.pump.On(); err != nil {
		httpError(w, http.StatusBadGateway, "pump on: "+err.Error())
		return
	}
	if err := s.pump.SetSpeed(100); err != nil {
		httpError(w, http.StatusBadGateway, "pump speed: "+err.Error())
		return
	}
	now := s.now()
	offAt := now.Add(time.Duration(req.Minutes) * time.Minute)
	if err := s.rules.SetManualPumpOffAt(&offAt); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logPumpEvent(now, true)
	writeJSON(w, http.StatusOK, map[string]string{"off_at": offAt.Format(time.RFC3339)})
}

func (s *Server) handleWateringStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.pump.Off(); err != nil {
		httpError(w, http.StatusBadGateway, "pump off: "+err.Error())
		return
	}
	if err := s.rules.SetManualPumpOffAt(nil); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logPumpEvent(s.now(), false)
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.settings.Get())
	case http.MethodPut, http.MethodPatch:
		var patch settings.Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		updated, err := s.settings.Update(patch)
		if err != nil {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.notifier == nil {
		httpError(w, http.StatusServiceUnavailable, "notifier not configured")
		return
	}
	if err := s.notifier.Send("🧪 *Garden – Test notification*\nIf you can read this, notifications are working."); err != nil {
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (s *Server) logPumpEvent(ts time.Time, on bool) {
	if s.events == nil {
		return
	}
	if err := s.events.LogPumpEvent(ts, on, schedule.TriggerManual, ""); err != nil {
		log.Printf("web: could not log pump event: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
