// Package http exposes the service's REST surface plus health, readiness,
// and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// Monitor is the orchestrator surface the server drives.
type Monitor interface {
	CheckReadiness(ctx context.Context) error
	Refresh(ctx context.Context)
	Ingest(ctx context.Context, a domain.LocationAlert)
	UpdateLocation(ctx context.Context, loc domain.UserLocation)
	Location() domain.UserLocation
}

// AlertReader reads the stored alert collection.
type AlertReader interface {
	GetActive() []domain.LocationAlert
	All() []domain.LocationAlert
}

// NotificationStore reads and mutates the notification history.
type NotificationStore interface {
	StoredNotifications() []domain.NotificationRecord
	UnreadCount() int
	MarkRead(ctx context.Context, id string)
	MarkAllRead(ctx context.Context)
	Delete(ctx context.Context, id string)
	ClearAll(ctx context.Context)
}

// Server exposes the REST API over stdlib net/http.
type Server struct {
	httpServer    *http.Server
	monitor       Monitor
	alerts        AlertReader
	notifications NotificationStore
	bands         domain.RankBands
	logger        *slog.Logger
}

// NewServer wires all routes.
func NewServer(addr string, monitor Monitor, alerts AlertReader, notifications NotificationStore, bands domain.RankBands, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		monitor:       monitor,
		alerts:        alerts,
		notifications: notifications,
		bands:         bands,
		logger:        logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/alerts", s.handleConsolidatedAlerts)
	mux.HandleFunc("GET /api/v1/alerts/all", s.handleAllAlerts)
	mux.HandleFunc("POST /api/v1/alerts/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/v1/alerts/ndma", s.handleNDMAAlert)

	mux.HandleFunc("GET /api/v1/notifications", s.handleListNotifications)
	mux.HandleFunc("GET /api/v1/notifications/unread_count", s.handleUnreadCount)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", s.handleMarkRead)
	mux.HandleFunc("POST /api/v1/notifications/read_all", s.handleMarkAllRead)
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", s.handleDeleteNotification)
	mux.HandleFunc("DELETE /api/v1/notifications", s.handleClearNotifications)

	mux.HandleFunc("POST /api/v1/location", s.handleUpdateLocation)
	mux.HandleFunc("GET /api/v1/location", s.handleGetLocation)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.monitor.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleConsolidatedAlerts returns the ranked view: official advisories as
// the primary list, each derived feed as a supplementary list, capped by the
// rank bands.
func (s *Server) handleConsolidatedAlerts(w http.ResponseWriter, _ *http.Request) {
	active := s.alerts.GetActive()

	var primary []domain.LocationAlert
	groups := make(map[string][]domain.LocationAlert)
	var order []string
	for _, a := range active {
		if a.DataSource == "ndma" {
			primary = append(primary, a)
			continue
		}
		if _, seen := groups[a.DataSource]; !seen {
			order = append(order, a.DataSource)
		}
		groups[a.DataSource] = append(groups[a.DataSource], a)
	}

	supplementary := make([][]domain.LocationAlert, 0, len(order))
	for _, src := range order {
		supplementary = append(supplementary, groups[src])
	}

	consolidated := domain.Consolidate(s.bands, primary, supplementary...)
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": consolidated,
		"count":  len(consolidated),
	})
}

func (s *Server) handleAllAlerts(w http.ResponseWriter, _ *http.Request) {
	all := s.alerts.All()
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": all,
		"count":  len(all),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.monitor.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

type ndmaAlertRequest struct {
	Title         string  `json:"title"`
	Message       string  `json:"message"`
	Severity      string  `json:"severity"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	RadiusKm      float64 `json:"radiusKm"`
	ValidityHours int     `json:"validityHours"`
	IsEvacuation  bool    `json:"isEvacuation"`
}

// handleNDMAAlert ingests an official advisory. It enters the store like any
// feed candidate and notifies immediately if the subscriber is inside its
// geofence.
func (s *Server) handleNDMAAlert(w http.ResponseWriter, r *http.Request) {
	var req ndmaAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Title == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and message are required"})
		return
	}

	severity := domain.Severity(req.Severity)
	if severity.Rank() == 0 {
		severity = domain.SeverityHigh
	}
	radius := req.RadiusKm
	if radius <= 0 {
		radius = 50
	}
	validity := 24 * time.Hour
	if req.ValidityHours > 0 {
		validity = time.Duration(req.ValidityHours) * time.Hour
	}
	alertType := domain.AlertGeneral
	if req.IsEvacuation {
		alertType = domain.AlertEvacuation
	}

	now := domain.Now()
	expires := now.Add(validity)
	a := domain.LocationAlert{
		ID:       fmt.Sprintf("ndma-%d", now.UnixMilli()),
		Type:     alertType,
		Title:    req.Title,
		Message:  req.Message,
		Severity: severity,
		Area: domain.AlertArea{
			Latitude:  req.Latitude,
			Longitude: req.Longitude,
			RadiusKm:  radius,
		},
		Timestamp:  now,
		ExpiresAt:  &expires,
		IsActive:   true,
		DataSource: "ndma",
		AlertHash:  domain.AlertHash(alertType, req.Title, req.Latitude, req.Longitude, now),
	}

	s.monitor.Ingest(r.Context(), a)
	writeJSON(w, http.StatusCreated, map[string]any{"alert": a})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, _ *http.Request) {
	recs := s.notifications.StoredNotifications()
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": recs,
		"count":         len(recs),
	})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"unread": s.notifications.UnreadCount()})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	s.notifications.MarkRead(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.notifications.MarkAllRead(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	s.notifications.Delete(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.notifications.ClearAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "coordinates out of range"})
		return
	}

	s.monitor.UpdateLocation(r.Context(), domain.UserLocation{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Accuracy:  req.Accuracy,
		Timestamp: domain.Now().UnixMilli(),
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetLocation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Location())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
