// Package alertstore owns the canonical collection of known location alerts.
// Source adapters only ever produce ephemeral candidates; everything the rest
// of the pipeline sees comes from here.
package alertstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/muhafiz-app/alert-service/internal/domain"
	"github.com/muhafiz-app/alert-service/internal/storage"
)

// storeKey is the KV key holding the serialized alert collection.
const storeKey = "alerts:store"

// MergeResult summarizes one merge pass for logging and metrics.
type MergeResult struct {
	Added               int
	Refreshed           int
	SuppressedProximity int
}

// Store is the persistent alert collection. All mutations rewrite the full
// collection (read-modify-write) under one mutex, so concurrent passes
// observe whole merges, never partial ones.
type Store struct {
	kv      storage.KV
	ledger  *storage.HashSet
	logger  *slog.Logger
	dupKm   float64
	dupSpan time.Duration

	mu     sync.Mutex
	alerts []domain.LocationAlert
}

// New creates a Store whose prune pass also evicts hashes from the
// processed-alert ledger, so a hazard that recurs after expiry is not
// permanently suppressed.
func New(kv storage.KV, ledger *storage.HashSet, dupRadiusKm float64, dupWindow time.Duration, logger *slog.Logger) *Store {
	return &Store{
		kv:      kv,
		ledger:  ledger,
		logger:  logger,
		dupKm:   dupRadiusKm,
		dupSpan: dupWindow,
	}
}

// Load reads the persisted collection. Failures are logged and leave the
// store empty (no prior state).
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.GetItem(ctx, storeKey)
	if err != nil {
		s.logger.Warn("alert store load failed, starting empty", "error", err)
		return
	}
	if !ok {
		return
	}
	var alerts []domain.LocationAlert
	if err := json.Unmarshal([]byte(raw), &alerts); err != nil {
		s.logger.Warn("alert store corrupt, starting empty", "error", err)
		return
	}
	s.alerts = alerts
}

// Merge folds candidates into the collection:
//   - hash match: replace in place (refresh)
//   - no hash match but an active alert of the same type+severity within the
//     proximity window: drop as a near-duplicate
//   - otherwise: append as new
//
// The full collection is persisted once per merge.
func (s *Store) Merge(ctx context.Context, candidates []domain.LocationAlert) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res MergeResult
	for _, c := range candidates {
		switch {
		case s.refreshByHashLocked(c):
			res.Refreshed++
		case s.isNearDuplicateLocked(c):
			res.SuppressedProximity++
		default:
			s.alerts = append(s.alerts, c)
			res.Added++
		}
	}

	if res.Added > 0 || res.Refreshed > 0 {
		s.persistLocked(ctx)
	}
	return res
}

// PruneExpired removes expired alerts, evicting their hashes from the
// processed-alert ledger. Returns the number removed.
func (s *Store) PruneExpired(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	var evicted []string
	for _, a := range s.alerts {
		if a.Expired(now) {
			if a.AlertHash != "" {
				evicted = append(evicted, a.AlertHash)
			}
			continue
		}
		kept = append(kept, a)
	}

	removed := len(s.alerts) - len(kept)
	if removed == 0 {
		return 0
	}
	s.alerts = kept
	s.persistLocked(ctx)
	s.ledger.Remove(ctx, evicted...)

	s.logger.Debug("pruned expired alerts", "removed", removed, "remaining", len(s.alerts))
	return removed
}

// GetActive returns active alerts sorted by severity (critical first) then
// recency descending.
func (s *Store) GetActive() []domain.LocationAlert {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]domain.LocationAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if a.IsActive {
			active = append(active, a)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if ri, rj := active[i].Severity.Rank(), active[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		return active[i].Timestamp.After(active[j].Timestamp)
	})
	return active
}

// All returns every stored alert, newest first.
func (s *Store) All() []domain.LocationAlert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.LocationAlert, len(s.alerts))
	copy(out, s.alerts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (s *Store) refreshByHashLocked(c domain.LocationAlert) bool {
	if c.AlertHash == "" {
		return false
	}
	for i, a := range s.alerts {
		if a.AlertHash == c.AlertHash {
			s.alerts[i] = c
			return true
		}
	}
	return false
}

// isNearDuplicateLocked catches adapters producing slightly different but
// logically identical alerts: same type and severity, close in space and time.
func (s *Store) isNearDuplicateLocked(c domain.LocationAlert) bool {
	for _, a := range s.alerts {
		if !a.IsActive || a.Type != c.Type || a.Severity != c.Severity {
			continue
		}
		dt := c.Timestamp.Sub(a.Timestamp)
		if dt < 0 {
			dt = -dt
		}
		if dt > s.dupSpan {
			continue
		}
		d := domain.DistanceKm(a.Area.Latitude, a.Area.Longitude, c.Area.Latitude, c.Area.Longitude)
		if d <= s.dupKm {
			return true
		}
	}
	return false
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.alerts)
	if err != nil {
		s.logger.Warn("alert store marshal failed", "error", err)
		return
	}
	if err := s.kv.SetItem(ctx, storeKey, string(data)); err != nil {
		s.logger.Warn("alert store persist failed", "error", err)
	}
}
