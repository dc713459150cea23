package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/muhafiz-app/alert-service/internal/adapter/http"
	"github.com/muhafiz-app/alert-service/internal/domain"
)

type fakeMonitor struct {
	readyErr  error
	refreshed int
	ingested  []domain.LocationAlert
	loc       domain.UserLocation
	updates   []domain.UserLocation
}

func (m *fakeMonitor) CheckReadiness(_ context.Context) error { return m.readyErr }
func (m *fakeMonitor) Refresh(_ context.Context)              { m.refreshed++ }
func (m *fakeMonitor) Ingest(_ context.Context, a domain.LocationAlert) {
	m.ingested = append(m.ingested, a)
}
func (m *fakeMonitor) UpdateLocation(_ context.Context, loc domain.UserLocation) {
	m.loc = loc
	m.updates = append(m.updates, loc)
}
func (m *fakeMonitor) Location() domain.UserLocation { return m.loc }

type fakeAlerts struct {
	active []domain.LocationAlert
	all    []domain.LocationAlert
}

func (f *fakeAlerts) GetActive() []domain.LocationAlert { return f.active }
func (f *fakeAlerts) All() []domain.LocationAlert       { return f.all }

type fakeNotifications struct {
	records []domain.NotificationRecord
	unread  int
	read    []string
	readAll bool
	deleted []string
	cleared bool
}

func (f *fakeNotifications) StoredNotifications() []domain.NotificationRecord { return f.records }
func (f *fakeNotifications) UnreadCount() int                                 { return f.unread }
func (f *fakeNotifications) MarkRead(_ context.Context, id string)            { f.read = append(f.read, id) }
func (f *fakeNotifications) MarkAllRead(_ context.Context)                    { f.readAll = true }
func (f *fakeNotifications) Delete(_ context.Context, id string) {
	f.deleted = append(f.deleted, id)
}
func (f *fakeNotifications) ClearAll(_ context.Context) { f.cleared = true }

type testServer struct {
	srv           *httpadapter.Server
	monitor       *fakeMonitor
	alerts        *fakeAlerts
	notifications *fakeNotifications
}

func newTestServer() *testServer {
	monitor := &fakeMonitor{}
	alerts := &fakeAlerts{}
	notifications := &fakeNotifications{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httpadapter.NewServer(":0", monitor, alerts, notifications, domain.DefaultRankBands(), logger)
	return &testServer{srv: srv, monitor: monitor, alerts: alerts, notifications: notifications}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func alertWithSource(id, source string, severity domain.Severity) domain.LocationAlert {
	return domain.LocationAlert{
		ID:         id,
		Type:       domain.AlertWeather,
		Title:      id,
		Severity:   severity,
		Timestamp:  time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC),
		IsActive:   true,
		DataSource: source,
	}
}

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.monitor.readyErr = errors.New("no pass yet")
	rec = ts.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no pass yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestConsolidatedAlerts(t *testing.T) {
	ts := newTestServer()
	// One official advisory plus two feeds; the moderate official advisory
	// must outrank the critical derived alert.
	ts.alerts.active = []domain.LocationAlert{
		alertWithSource("derived-critical", "usgs", domain.SeverityCritical),
		alertWithSource("official-moderate", "ndma", domain.SeverityModerate),
		alertWithSource("derived-high", "open-meteo", domain.SeverityHigh),
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Alerts []domain.LocationAlert `json:"alerts"`
		Count  int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Count)
	assert.Equal(t, "official-moderate", body.Alerts[0].ID)
	assert.Equal(t, "derived-critical", body.Alerts[1].ID)
	assert.Equal(t, "derived-high", body.Alerts[2].ID)
}

func TestConsolidatedAlertsAreCapped(t *testing.T) {
	ts := newTestServer()
	for i := 0; i < 12; i++ {
		ts.alerts.active = append(ts.alerts.active,
			alertWithSource(string(rune('a'+i)), "open-meteo", domain.SeverityHigh))
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 8, body.Count)
}

func TestAllAlerts(t *testing.T) {
	ts := newTestServer()
	ts.alerts.all = []domain.LocationAlert{
		alertWithSource("one", "usgs", domain.SeverityLow),
		alertWithSource("two", "ndma", domain.SeverityHigh),
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/alerts/all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestRefresh(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodPost, "/api/v1/alerts/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.monitor.refreshed)
}

func TestNDMAAlert(t *testing.T) {
	t.Run("valid advisory is ingested", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/api/v1/alerts/ndma", `{
			"title": "Evacuation Order",
			"message": "Leave low-lying areas immediately.",
			"severity": "critical",
			"latitude": 33.68,
			"longitude": 73.04,
			"radiusKm": 30,
			"isEvacuation": true
		}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, ts.monitor.ingested, 1)
		a := ts.monitor.ingested[0]
		assert.Equal(t, domain.AlertEvacuation, a.Type)
		assert.Equal(t, domain.SeverityCritical, a.Severity)
		assert.Equal(t, "ndma", a.DataSource)
		assert.Equal(t, 30.0, a.Area.RadiusKm)
		assert.NotEmpty(t, a.AlertHash)
		assert.True(t, a.IsActive)
	})

	t.Run("defaults applied for omitted fields", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/api/v1/alerts/ndma",
			`{"title": "Advisory", "message": "Stay alert.", "latitude": 33.68, "longitude": 73.04}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, ts.monitor.ingested, 1)
		a := ts.monitor.ingested[0]
		assert.Equal(t, domain.AlertGeneral, a.Type)
		assert.Equal(t, domain.SeverityHigh, a.Severity)
		assert.Equal(t, 50.0, a.Area.RadiusKm)
	})

	t.Run("missing title is rejected", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/api/v1/alerts/ndma", `{"message": "m"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, ts.monitor.ingested)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/api/v1/alerts/ndma", `not-json{{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNotificationEndpoints(t *testing.T) {
	ts := newTestServer()
	ts.notifications.records = []domain.NotificationRecord{
		{ID: "n1", Title: "one"},
		{ID: "n2", Title: "two"},
	}
	ts.notifications.unread = 2

	rec := ts.do(t, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)

	rec = ts.do(t, http.MethodGet, "/api/v1/notifications/unread_count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":2}`, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/v1/notifications/n1/read", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n1"}, ts.notifications.read)

	rec = ts.do(t, http.MethodPost, "/api/v1/notifications/read_all", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ts.notifications.readAll)

	rec = ts.do(t, http.MethodDelete, "/api/v1/notifications/n2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"n2"}, ts.notifications.deleted)

	rec = ts.do(t, http.MethodDelete, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ts.notifications.cleared)
}

func TestLocationEndpoints(t *testing.T) {
	t.Run("valid update is forwarded", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/api/v1/location",
			`{"latitude": 31.5497, "longitude": 74.3436, "accuracy": 12.5}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, ts.monitor.updates, 1)
		assert.Equal(t, 31.5497, ts.monitor.updates[0].Latitude)
		assert.Equal(t, 12.5, ts.monitor.updates[0].Accuracy)
		assert.NotZero(t, ts.monitor.updates[0].Timestamp)
	})

	t.Run("out-of-range coordinates are rejected", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/api/v1/location", `{"latitude": 95, "longitude": 0}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, ts.monitor.updates)
	})

	t.Run("current location is readable", func(t *testing.T) {
		ts := newTestServer()
		ts.monitor.loc = domain.UserLocation{Latitude: 33.6844, Longitude: 73.0479}
		rec := ts.do(t, http.MethodGet, "/api/v1/location", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var loc domain.UserLocation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
		assert.Equal(t, 33.6844, loc.Latitude)
	})
}
