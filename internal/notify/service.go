// Package notify records and delivers user-facing notifications. Every
// scheduled notification passes a dedup gate keyed on content hash, is
// persisted to a capped history, and is then dispatched over the configured
// backend.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/muhafiz-app/alert-service/internal/domain"
	"github.com/muhafiz-app/alert-service/internal/observability"
	"github.com/muhafiz-app/alert-service/internal/storage"
)

const storeKey = "notifications:store"

// Exporter publishes delivered notifications to an external sink. Export
// failures are logged and counted but never block delivery.
type Exporter interface {
	Export(ctx context.Context, rec domain.NotificationRecord) error
}

// Listener observes every notification after dispatch. Called synchronously
// from the scheduling goroutine.
type Listener func(rec domain.NotificationRecord)

// AlertNotification describes one notification to schedule.
type AlertNotification struct {
	Type      domain.NotificationType
	Title     string
	Message   string
	Location  string
	Priority  domain.Priority
	Source    domain.NotificationSource
	Data      map[string]string
	AlertHash string
}

// Service is the notification pipeline: dedup gate, persisted history,
// backend dispatch, optional export.
type Service struct {
	kv       storage.KV
	shown    *storage.HashSet
	backend  Backend
	exporter Exporter
	maxKept  int
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	records  []domain.NotificationRecord
	listener Listener
}

// New creates the notification service. The shown set is the persisted ledger
// of content hashes that have already been presented to the subscriber;
// exporter may be nil.
func New(kv storage.KV, shown *storage.HashSet, backend Backend, exporter Exporter, maxKept int, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		kv:       kv,
		shown:    shown,
		backend:  backend,
		exporter: exporter,
		maxKept:  maxKept,
		metrics:  metrics,
		logger:   logger,
	}
}

// Initialize loads persisted state and registers the listener. It never
// fails: unreadable state starts empty and is rebuilt over time.
func (s *Service) Initialize(ctx context.Context, listener Listener) {
	s.shown.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = listener

	raw, ok, err := s.kv.GetItem(ctx, storeKey)
	if err != nil {
		s.logger.Warn("notification history load failed, starting empty", "error", err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(raw), &s.records); err != nil {
		s.logger.Warn("notification history corrupt, starting empty", "error", err)
		s.records = nil
		return
	}
	s.logger.Info("notification history loaded", "count", len(s.records))
}

// ScheduleAlert runs one notification through the pipeline. It returns the
// new record's ID and true, or "" and false when the notification was
// suppressed as a duplicate of one already shown. Suppression is a normal
// outcome, not an error.
func (s *Service) ScheduleAlert(ctx context.Context, n AlertNotification) (string, bool) {
	// The coarse content hash gates every delivery, so identical visible
	// content collapses even when the upstream alert hashes differ. A
	// non-empty alert hash is checked as well, catching a refreshed alert
	// whose wording changed.
	content := domain.NotificationHash(n.Title, n.Message, n.Location)
	if s.shown.Contains(content) || (n.AlertHash != "" && s.shown.Contains(n.AlertHash)) {
		s.metrics.DuplicatesSuppressed.WithLabelValues("shown").Inc()
		s.logger.Debug("notification suppressed, already shown", "content_hash", content, "title", n.Title)
		return "", false
	}

	rec := domain.NotificationRecord{
		ID:          uuid.NewString(),
		Type:        n.Type,
		Title:       formatTitle(n.Priority, n.Title),
		Message:     n.Message,
		Timestamp:   domain.Now(),
		Location:    n.Location,
		Priority:    n.Priority,
		Source:      n.Source,
		Data:        n.Data,
		AlertHash:   n.AlertHash,
		ContentHash: content,
	}

	s.append(ctx, rec)
	s.shown.Add(ctx, content)
	if n.AlertHash != "" {
		s.shown.Add(ctx, n.AlertHash)
	}

	if err := s.backend.Deliver(ctx, rec); err != nil {
		s.metrics.DeliveryErrors.Inc()
		s.logger.Error("notification dispatch failed", "backend", s.backend.Name(), "notification_id", rec.ID, "error", err)
	} else {
		s.metrics.NotificationsDelivered.WithLabelValues(s.backend.Name()).Inc()
	}

	if s.exporter != nil {
		if err := s.exporter.Export(ctx, rec); err != nil {
			s.metrics.ExportErrors.Inc()
			s.logger.Warn("notification export failed", "notification_id", rec.ID, "error", err)
		}
	}

	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener(rec)
	}
	return rec.ID, true
}

// formatTitle prefixes the title according to priority so urgency is visible
// on channels without native priority display.
func formatTitle(p domain.Priority, title string) string {
	switch p {
	case domain.PriorityCritical:
		return "🚨 " + title
	case domain.PriorityHigh:
		return "⚠️ " + title
	default:
		return title
	}
}

// append adds a record to the history, evicting the oldest past the cap, and
// persists. A non-empty AlertHash already present in the history is replaced
// rather than duplicated.
func (s *Service) append(ctx context.Context, rec domain.NotificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.AlertHash != "" {
		for i := range s.records {
			if s.records[i].AlertHash == rec.AlertHash {
				s.records[i] = rec
				s.persistLocked(ctx)
				return
			}
		}
	}

	s.records = append(s.records, rec)
	if len(s.records) > s.maxKept {
		s.records = s.records[len(s.records)-s.maxKept:]
	}
	s.persistLocked(ctx)
}

// StoredNotifications returns the history, newest first.
func (s *Service) StoredNotifications() []domain.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NotificationRecord, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		out = append(out, s.records[i])
	}
	return out
}

// UnreadCount returns the number of unread records.
func (s *Service) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if !r.Read {
			n++
		}
	}
	return n
}

// MarkRead marks one record read. Unknown IDs are a no-op.
func (s *Service) MarkRead(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			if !s.records[i].Read {
				s.records[i].Read = true
				s.persistLocked(ctx)
			}
			return
		}
	}
}

// MarkAllRead marks every record read.
func (s *Service) MarkAllRead(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i := range s.records {
		if !s.records[i].Read {
			s.records[i].Read = true
			changed = true
		}
	}
	if changed {
		s.persistLocked(ctx)
	}
}

// Delete removes one record. Unknown IDs are a no-op. The shown ledger is
// untouched so a deleted notification does not come back on the next poll.
func (s *Service) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.persistLocked(ctx)
			return
		}
	}
}

// ClearAll removes the entire history.
func (s *Service) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return
	}
	s.records = nil
	s.persistLocked(ctx)
}

// Cleanup drops records older than the alert lifetime ceiling and evicts
// their hashes from the shown ledger so a genuinely recurring hazard can
// notify again.
func (s *Service) Cleanup(ctx context.Context) int {
	now := domain.Now()

	s.mu.Lock()
	kept := s.records[:0]
	var evicted []string
	for _, r := range s.records {
		if now.Sub(r.Timestamp) > domain.MaxAlertAge {
			if r.AlertHash != "" {
				evicted = append(evicted, r.AlertHash)
			}
			if r.ContentHash != "" {
				evicted = append(evicted, r.ContentHash)
			}
			continue
		}
		kept = append(kept, r)
	}
	removed := len(s.records) - len(kept)
	s.records = kept
	if removed > 0 {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if len(evicted) > 0 {
		s.shown.Remove(ctx, evicted...)
	}
	if removed > 0 {
		s.logger.Info("notification history cleaned", "removed", removed)
	}
	return removed
}

func (s *Service) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.records)
	if err != nil {
		s.logger.Warn("notification history marshal failed", "error", err)
		return
	}
	if err := s.kv.SetItem(ctx, storeKey, string(data)); err != nil {
		s.logger.Warn("notification history persist failed", "error", err)
	}
}
