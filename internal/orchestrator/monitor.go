// Package orchestrator runs the monitoring loop: poll every source, merge
// candidates into the alert store, prune what has expired, and notify about
// active alerts whose geofence contains the subscriber.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/muhafiz-app/alert-service/internal/alertstore"
	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/domain"
	"github.com/muhafiz-app/alert-service/internal/feeds"
	"github.com/muhafiz-app/alert-service/internal/notify"
	"github.com/muhafiz-app/alert-service/internal/observability"
	"github.com/muhafiz-app/alert-service/internal/storage"
)

// locationKey is the KV key holding the last known subscriber position.
const locationKey = "location:last"

// Monitor coordinates sources, store, and notifier. One pass runs at startup
// and then every poll interval; location updates re-evaluate against stored
// alerts without waiting for the next poll.
type Monitor struct {
	sources      []feeds.Source
	store        *alertstore.Store
	ledger       *storage.HashSet
	notifier     *notify.Service
	kv           storage.KV
	interval     time.Duration
	fetchTimeout time.Duration
	clock        clockwork.Clock
	metrics      *observability.Metrics
	logger       *slog.Logger

	ready atomic.Bool

	mu  sync.Mutex
	loc domain.UserLocation
}

// New creates a Monitor. The ledger is the persisted set of alert hashes
// already handed to the notifier; clock is injectable for tests.
func New(cfg *config.Config, sources []feeds.Source, store *alertstore.Store, ledger *storage.HashSet, notifier *notify.Service, kv storage.KV, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Monitor {
	return &Monitor{
		sources:      sources,
		store:        store,
		ledger:       ledger,
		notifier:     notifier,
		kv:           kv,
		interval:     cfg.PollInterval,
		fetchTimeout: cfg.FetchTimeout,
		clock:        clock,
		metrics:      metrics,
		logger:       logger,
		loc: domain.UserLocation{
			Latitude:  cfg.DefaultLat,
			Longitude: cfg.DefaultLon,
		},
	}
}

// Initialize loads persisted state: the alert collection, the delivery
// ledger, and the last known location. The configured default position stands
// in until a real fix arrives.
func (m *Monitor) Initialize(ctx context.Context) {
	m.store.Load(ctx)
	m.ledger.Load(ctx)

	raw, ok, err := m.kv.GetItem(ctx, locationKey)
	if err != nil {
		m.logger.Warn("location load failed, using default", "error", err)
		return
	}
	if !ok {
		m.logger.Info("no stored location, using default", "lat", m.loc.Latitude, "lon", m.loc.Longitude)
		return
	}
	var loc domain.UserLocation
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		m.logger.Warn("stored location corrupt, using default", "error", err)
		return
	}
	m.mu.Lock()
	m.loc = loc
	m.mu.Unlock()
	m.logger.Info("location restored", "lat", loc.Latitude, "lon", loc.Longitude)
}

// CheckReadiness returns nil once at least one full pass has completed.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("monitor has not completed a pass yet")
	}
	return nil
}

// Run executes the monitoring loop until the context is cancelled. The first
// pass runs immediately so a fresh start does not wait a full interval.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started", "poll_interval", m.interval, "sources", len(m.sources))
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	m.runPass(ctx)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			m.runPass(ctx)
		}
	}
}

// Refresh runs one full pass on demand.
func (m *Monitor) Refresh(ctx context.Context) {
	m.runPass(ctx)
}

// Ingest merges an externally reported alert (an official advisory relayed
// over the REST surface) and immediately re-evaluates against the current
// position.
func (m *Monitor) Ingest(ctx context.Context, a domain.LocationAlert) {
	res := m.store.Merge(ctx, []domain.LocationAlert{a})
	m.logger.Info("alert ingested", "alert_id", a.ID, "type", a.Type, "added", res.Added, "refreshed", res.Refreshed)
	m.evaluate(ctx, m.Location())
}

// Location returns the current subscriber position.
func (m *Monitor) Location() domain.UserLocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loc
}

// UpdateLocation replaces the subscriber position, persists it, and
// immediately re-evaluates stored alerts against the new position without
// fetching.
func (m *Monitor) UpdateLocation(ctx context.Context, loc domain.UserLocation) {
	if loc.Timestamp == 0 {
		loc.Timestamp = domain.Now().UnixMilli()
	}

	m.mu.Lock()
	m.loc = loc
	m.mu.Unlock()

	data, err := json.Marshal(loc)
	if err == nil {
		err = m.kv.SetItem(ctx, locationKey, string(data))
	}
	if err != nil {
		m.logger.Warn("location persist failed", "error", err)
	}

	m.logger.Info("location updated", "lat", loc.Latitude, "lon", loc.Longitude, "accuracy", loc.Accuracy)
	m.evaluate(ctx, loc)
}

// runPass is one fetch-merge-prune-evaluate cycle. Source failures are
// logged and skipped; they never halt the loop.
func (m *Monitor) runPass(ctx context.Context) {
	start := time.Now()
	loc := m.Location()

	candidates := m.fetchAll(ctx, loc)

	res := m.store.Merge(ctx, candidates)
	if res.Refreshed > 0 {
		m.metrics.DuplicatesSuppressed.WithLabelValues("store_hash").Add(float64(res.Refreshed))
	}
	if res.SuppressedProximity > 0 {
		m.metrics.DuplicatesSuppressed.WithLabelValues("store_proximity").Add(float64(res.SuppressedProximity))
	}

	pruned := m.store.PruneExpired(ctx, domain.Now())
	m.notifier.Cleanup(ctx)

	m.evaluate(ctx, loc)

	m.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	m.ready.Store(true)

	m.logger.Info("pass complete",
		"candidates", len(candidates),
		"added", res.Added,
		"refreshed", res.Refreshed,
		"suppressed_proximity", res.SuppressedProximity,
		"pruned", pruned,
		"duration", time.Since(start),
	)
}

// fetchAll polls every source concurrently, bounding each fetch with the
// configured timeout.
func (m *Monitor) fetchAll(ctx context.Context, loc domain.UserLocation) []domain.LocationAlert {
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		candidates []domain.LocationAlert
	)
	for _, src := range m.sources {
		wg.Add(1)
		go func(src feeds.Source) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, m.fetchTimeout)
			defer cancel()

			fetchStart := time.Now()
			alerts, err := src.Fetch(fetchCtx, loc)
			m.metrics.FetchDuration.WithLabelValues(src.Name()).Observe(time.Since(fetchStart).Seconds())
			if err != nil {
				m.metrics.FetchErrors.WithLabelValues(src.Name()).Inc()
				m.logger.Warn("source fetch failed, skipping cycle", "source", src.Name(), "error", err)
				return
			}
			m.metrics.CandidatesFetched.WithLabelValues(src.Name()).Add(float64(len(alerts)))

			mu.Lock()
			candidates = append(candidates, alerts...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return candidates
}

// evaluate notifies about every active alert whose geofence contains the
// position and whose hash has not already been delivered. The hash enters
// the ledger only when the notifier accepts the alert; a candidate the
// content gate turned away keeps its own hash clear and is judged on its
// own content again next pass.
func (m *Monitor) evaluate(ctx context.Context, loc domain.UserLocation) {
	active := m.store.GetActive()
	m.metrics.ActiveAlerts.Set(float64(len(active)))

	for _, a := range active {
		m.metrics.GeofenceChecks.Inc()
		if !domain.IsWithinAlertArea(loc, a.Area) {
			continue
		}
		if a.AlertHash != "" && m.ledger.Contains(a.AlertHash) {
			m.metrics.DuplicatesSuppressed.WithLabelValues("ledger").Inc()
			continue
		}

		if _, ok := m.notifier.ScheduleLocationAlert(ctx, a); ok {
			m.logger.Info("alert notified", "alert_id", a.ID, "type", a.Type, "severity", a.Severity)
			if a.AlertHash != "" {
				m.ledger.Add(ctx, a.AlertHash)
			}
		}
	}
}
