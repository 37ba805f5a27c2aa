// Package api serves the outage calendars and entity states over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"svitlo/internal/calendar"
	"svitlo/internal/clock"
	"svitlo/internal/entity"
	"svitlo/internal/integration"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	defaultLookBehind = 24 * time.Hour
	defaultLookAhead  = 48 * time.Hour
)

// Calendar is what the calendar endpoints need from an entity.
type Calendar interface {
	entity.Entity
	Events(ctx context.Context, from, to time.Time) ([]calendar.Event, error)
	Event() (calendar.Event, bool)
}

// Server provides HTTP API endpoints for the loaded entries.
type Server struct {
	manager *integration.Manager
	clock   clock.Clock
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a new API server listening on port.
func NewServer(manager *integration.Manager, clk clock.Clock, logger *zap.Logger, port int) *Server {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	s := &Server{
		manager: manager,
		clock:   clk,
		logger:  logger.Named("api"),
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleSitemap)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/entities", s.handleEntities)
		r.Route("/calendar", func(r chi.Router) {
			r.Get("/", s.handleCalendar)
			r.Get("/current", s.handleCurrent)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such endpoint, see / for a list")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})
	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EntityResponse is one entity in /api/entities.
type EntityResponse struct {
	UniqueID   string            `json:"unique_id"`
	Name       string            `json:"name"`
	State      string            `json:"state"`
	Available  bool              `json:"available"`
	Attributes map[string]any    `json:"attributes"`
	Device     entity.DeviceInfo `json:"device"`
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	ents := s.manager.Entities()
	resp := make([]EntityResponse, 0, len(ents))
	for _, e := range ents {
		resp = append(resp, EntityResponse{
			UniqueID:   e.UniqueID(),
			Name:       e.Name(r.Context()),
			State:      e.State(),
			Available:  e.Available(),
			Attributes: e.Attributes(),
			Device:     e.DeviceInfo(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CalendarResponse holds the events of one calendar.
type CalendarResponse struct {
	EntityID string           `json:"entity_id"`
	Name     string           `json:"name"`
	Events   []calendar.Event `json:"events"`
	Warning  string           `json:"warning,omitempty"`
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	from, err := parseTime(r.URL.Query().Get("start"), now.Add(-defaultLookBehind))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid start: "+err.Error())
		return
	}
	to, err := parseTime(r.URL.Query().Get("end"), now.Add(defaultLookAhead))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid end: "+err.Error())
		return
	}
	if !from.Before(to) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "start must be before end")
		return
	}

	cals, ok := s.calendars(w, r)
	if !ok {
		return
	}

	resp := make([]CalendarResponse, 0, len(cals))
	for _, c := range cals {
		events, err := c.Events(r.Context(), from, to)
		item := CalendarResponse{
			EntityID: c.UniqueID(),
			Name:     c.Name(r.Context()),
			Events:   events,
		}
		if item.Events == nil {
			item.Events = []calendar.Event{}
		}
		if err != nil {
			item.Warning = err.Error()
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CurrentResponse is the current or next event of one calendar.
type CurrentResponse struct {
	EntityID string          `json:"entity_id"`
	State    string          `json:"state"`
	Event    *calendar.Event `json:"event"`
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	cals, ok := s.calendars(w, r)
	if !ok {
		return
	}

	resp := make([]CurrentResponse, 0, len(cals))
	for _, c := range cals {
		item := CurrentResponse{EntityID: c.UniqueID(), State: c.State()}
		if ev, ok := c.Event(); ok {
			item.Event = &ev
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// calendars returns the available calendars, optionally narrowed down by
// the entry query parameter. It writes the error response itself.
func (s *Server) calendars(w http.ResponseWriter, r *http.Request) ([]Calendar, bool) {
	entry := r.URL.Query().Get("entry")

	var matched, available []Calendar
	for _, h := range s.manager.Handles() {
		if entry != "" && h.Entry().UniqueID() != entry {
			continue
		}
		for _, e := range h.Entities() {
			c, ok := e.(Calendar)
			if !ok {
				continue
			}
			matched = append(matched, c)
			if c.Available() {
				available = append(available, c)
			}
		}
	}

	switch {
	case entry != "" && len(matched) == 0:
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "unknown entry "+entry)
		return nil, false
	case len(available) == 0:
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "schedule data unavailable")
		return nil, false
	}
	return available, true
}

func parseTime(v string, fallback time.Time) (time.Time, error) {
	if v == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, v)
}

// Endpoint documents one route in the sitemap.
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap"},
	{Path: "/health", Method: "GET", Description: `Health check, returns {"status": "ok"}`},
	{Path: "/api/entities", Method: "GET", Description: "State and attributes of every entity"},
	{Path: "/api/calendar", Method: "GET", Description: "Outage events; optional start, end (RFC 3339) and entry"},
	{Path: "/api/calendar/current", Method: "GET", Description: "Current or next outage per calendar; optional entry"},
}

// handleSitemap lists the endpoints, as HTML for browsers and plain text
// otherwise.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<!DOCTYPE html>\n<html>\n<head><title>Svitlo API</title></head>\n<body>\n<h1>Svitlo API</h1>\n")
		for _, ep := range endpoints {
			fmt.Fprintf(w, "<p><b>%s</b> <a href=\"%s\">%s</a> %s</p>\n", ep.Method, ep.Path, ep.Path, ep.Description)
		}
		fmt.Fprint(w, "</body>\n</html>\n")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Svitlo API\n==========\n\nAvailable endpoints:\n\n")
	for _, ep := range endpoints {
		fmt.Fprintf(w, "  %-6s %-24s %s\n", ep.Method, ep.Path, ep.Description)
	}
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
