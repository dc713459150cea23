package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhafiz-app/alert-service/internal/alertstore"
	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/domain"
	"github.com/muhafiz-app/alert-service/internal/feeds"
	"github.com/muhafiz-app/alert-service/internal/notify"
	"github.com/muhafiz-app/alert-service/internal/observability"
	"github.com/muhafiz-app/alert-service/internal/storage"
)

var (
	islamabad = domain.UserLocation{Latitude: 33.6844, Longitude: 73.0479}
	lahore    = domain.UserLocation{Latitude: 31.5497, Longitude: 74.3436}
)

type stubSource struct {
	name string

	mu     sync.Mutex
	alerts []domain.LocationAlert
	err    error
	calls  int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(_ context.Context, _ domain.UserLocation) ([]domain.LocationAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.LocationAlert, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) setAlerts(alerts []domain.LocationAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
}

type recordingBackend struct {
	mu        sync.Mutex
	delivered []domain.NotificationRecord
}

func (b *recordingBackend) Name() string { return "recording" }

func (b *recordingBackend) Deliver(_ context.Context, rec domain.NotificationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delivered = append(b.delivered, rec)
	return nil
}

func (b *recordingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.delivered)
}

type fixture struct {
	monitor  *Monitor
	backend  *recordingBackend
	store    *alertstore.Store
	kv       storage.KV
	clock    *clockwork.FakeClock
	ledger   *storage.HashSet
	notifier *notify.Service
}

func newFixture(t *testing.T, sources ...*stubSource) *fixture {
	t.Helper()

	fake := clockwork.NewFakeClockAt(time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	kv := storage.NewMemoryKV()

	ledger := storage.NewHashSet(kv, "alerts:processed", logger)
	shown := storage.NewHashSet(kv, "notifications:shown", logger)
	store := alertstore.New(kv, ledger, 3, time.Hour, logger)

	backend := &recordingBackend{}
	notifier := notify.New(kv, shown, backend, nil, 100, metrics, logger)
	notifier.Initialize(context.Background(), nil)

	cfg := &config.Config{
		PollInterval: 10 * time.Minute,
		FetchTimeout: 5 * time.Second,
		DefaultLat:   islamabad.Latitude,
		DefaultLon:   islamabad.Longitude,
		Policy:       config.DefaultPolicy(),
	}

	srcs := make([]feeds.Source, 0, len(sources))
	for _, s := range sources {
		srcs = append(srcs, s)
	}

	m := New(cfg, srcs, store, ledger, notifier, kv, fake, metrics, logger)
	m.Initialize(context.Background())

	return &fixture{monitor: m, backend: backend, store: store, kv: kv, clock: fake, ledger: ledger, notifier: notifier}
}

func makeAlert(id, title string, center domain.UserLocation, radiusKm float64, severity domain.Severity) domain.LocationAlert {
	now := domain.Now()
	expires := now.Add(24 * time.Hour)
	return domain.LocationAlert{
		ID:       id,
		Type:     domain.AlertWeather,
		Title:    title,
		Message:  "test alert",
		Severity: severity,
		Area: domain.AlertArea{
			Latitude:  center.Latitude,
			Longitude: center.Longitude,
			RadiusKm:  radiusKm,
		},
		Timestamp:  now,
		ExpiresAt:  &expires,
		IsActive:   true,
		DataSource: "test",
		AlertHash:  domain.AlertHash(domain.AlertWeather, title, center.Latitude, center.Longitude, now),
	}
}

func TestMonitor_PassNotifiesOnlyInRange(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{name: "weather", alerts: []domain.LocationAlert{
		makeAlert("near", "Heavy Rainfall Warning", islamabad, 15, domain.SeverityHigh),
		makeAlert("far", "Dangerous Wind Warning", lahore, 10, domain.SeverityHigh),
	}}
	f := newFixture(t, src)

	f.monitor.Refresh(ctx)

	require.Equal(t, 1, f.backend.count())
	assert.Contains(t, f.backend.delivered[0].Title, "Heavy Rainfall Warning")

	// Both candidates are stored; only the in-range one notified.
	assert.Len(t, f.store.GetActive(), 2)
}

func TestMonitor_LedgerSuppressesRepeatPasses(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{name: "weather", alerts: []domain.LocationAlert{
		makeAlert("near", "Heavy Rainfall Warning", islamabad, 15, domain.SeverityHigh),
	}}
	f := newFixture(t, src)

	f.monitor.Refresh(ctx)
	f.monitor.Refresh(ctx)
	f.monitor.Refresh(ctx)

	assert.Equal(t, 1, f.backend.count())
	assert.Len(t, f.store.GetActive(), 1)
}

func TestMonitor_ContentSuppressedAlertStaysOffLedger(t *testing.T) {
	ctx := context.Background()
	alert := makeAlert("near", "Heavy Rainfall Warning", islamabad, 15, domain.SeverityHigh)
	src := &stubSource{name: "weather", alerts: []domain.LocationAlert{alert}}
	f := newFixture(t, src)

	// The same visible content already reached the subscriber through
	// another path, under a different hash.
	_, ok := f.notifier.ScheduleAlert(ctx, notify.AlertNotification{
		Type:     domain.NotifyWeather,
		Title:    alert.Title,
		Message:  alert.Message,
		Location: "33.6844,73.0479",
		Priority: domain.PriorityHigh,
		Source:   domain.SourceLocation,
	})
	require.True(t, ok)

	f.monitor.Refresh(ctx)

	// The suppressed candidate must not be marked processed under its own
	// hash; it never made it to the subscriber as itself.
	assert.Equal(t, 1, f.backend.count())
	assert.False(t, f.ledger.Contains(alert.AlertHash))
}

func TestMonitor_UpdateLocationReEvaluatesWithoutFetch(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{name: "weather", alerts: []domain.LocationAlert{
		makeAlert("lhr", "Flood Risk Warning", lahore, 10, domain.SeverityCritical),
	}}
	f := newFixture(t, src)

	f.monitor.Refresh(ctx)
	assert.Equal(t, 0, f.backend.count())
	fetches := src.callCount()

	f.monitor.UpdateLocation(ctx, lahore)

	assert.Equal(t, 1, f.backend.count())
	assert.Equal(t, fetches, src.callCount(), "location update must not trigger a fetch")
	assert.Equal(t, lahore.Latitude, f.monitor.Location().Latitude)
}

func TestMonitor_LocationSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{name: "weather"})

	f.monitor.UpdateLocation(ctx, lahore)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	ledger := storage.NewHashSet(f.kv, "alerts:processed", logger)
	shown := storage.NewHashSet(f.kv, "notifications:shown", logger)
	store := alertstore.New(f.kv, ledger, 3, time.Hour, logger)
	notifier := notify.New(f.kv, shown, &recordingBackend{}, nil, 100, metrics, logger)
	notifier.Initialize(ctx, nil)

	cfg := &config.Config{PollInterval: 10 * time.Minute, FetchTimeout: time.Second, DefaultLat: islamabad.Latitude, DefaultLon: islamabad.Longitude}
	second := New(cfg, nil, store, ledger, notifier, f.kv, f.clock, metrics, logger)
	second.Initialize(ctx)

	assert.Equal(t, lahore.Latitude, second.Location().Latitude)
	assert.Equal(t, lahore.Longitude, second.Location().Longitude)
}

func TestMonitor_SourceFailureDoesNotHaltOthers(t *testing.T) {
	ctx := context.Background()
	broken := &stubSource{name: "seismic", err: errors.New("upstream 503")}
	healthy := &stubSource{name: "weather", alerts: []domain.LocationAlert{
		makeAlert("near", "Extreme Heat Warning", islamabad, 25, domain.SeverityCritical),
	}}
	f := newFixture(t, broken, healthy)

	f.monitor.Refresh(ctx)

	assert.Equal(t, 1, f.backend.count())
	assert.NoError(t, f.monitor.CheckReadiness(ctx))
}

func TestMonitor_ExpiredAlertsArePruned(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{name: "weather", alerts: []domain.LocationAlert{
		makeAlert("near", "Heavy Rainfall Warning", islamabad, 15, domain.SeverityHigh),
	}}
	f := newFixture(t, src)

	f.monitor.Refresh(ctx)
	require.Len(t, f.store.GetActive(), 1)

	// Past the 24h validity, with the source gone quiet, the next pass prunes.
	src.setAlerts(nil)
	f.clock.Advance(25 * time.Hour)
	f.monitor.Refresh(ctx)

	assert.Empty(t, f.store.GetActive())
}

func TestMonitor_CheckReadiness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &stubSource{name: "weather"})

	assert.Error(t, f.monitor.CheckReadiness(ctx))
	f.monitor.Refresh(ctx)
	assert.NoError(t, f.monitor.CheckReadiness(ctx))
}

func TestMonitor_RunLoopPolls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &stubSource{name: "weather", alerts: []domain.LocationAlert{
		makeAlert("near", "Heavy Rainfall Warning", islamabad, 15, domain.SeverityHigh),
	}}
	f := newFixture(t, src)

	errCh := make(chan error, 1)
	go func() { errCh <- f.monitor.Run(ctx) }()

	require.Eventually(t, func() bool { return f.backend.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Wait for the ticker to be armed, then advance one interval with a new
	// hazard on the feed.
	f.clock.BlockUntil(1)
	src.setAlerts([]domain.LocationAlert{
		makeAlert("wind", "Dangerous Wind Warning", islamabad, 20, domain.SeverityCritical),
	})
	f.clock.Advance(10 * time.Minute)

	require.Eventually(t, func() bool { return f.backend.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.GreaterOrEqual(t, src.callCount(), 2)

	cancel()
	require.NoError(t, <-errCh)
}
