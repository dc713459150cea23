package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// maxDelivered bounds the in-memory delivery log so a long-running process
// does not grow it without limit.
const maxDelivered = 100

// LocalBackend is the in-process fallback channel used when push delivery is
// unavailable. Delivered notifications are logged and the most recent ones
// retained in memory so the REST surface and tests can observe them.
type LocalBackend struct {
	logger *slog.Logger

	mu        sync.Mutex
	delivered []domain.NotificationRecord
}

// NewLocalBackend creates the fallback backend.
func NewLocalBackend(logger *slog.Logger) *LocalBackend {
	return &LocalBackend{logger: logger}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Deliver(_ context.Context, rec domain.NotificationRecord) error {
	b.mu.Lock()
	b.delivered = append(b.delivered, rec)
	if len(b.delivered) > maxDelivered {
		b.delivered = b.delivered[len(b.delivered)-maxDelivered:]
	}
	b.mu.Unlock()

	b.logger.Info("notification delivered locally",
		"notification_id", rec.ID,
		"title", rec.Title,
		"priority", rec.Priority,
	)
	return nil
}

// Delivered returns a copy of everything delivered so far, oldest first.
func (b *LocalBackend) Delivered() []domain.NotificationRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.NotificationRecord, len(b.delivered))
	copy(out, b.delivered)
	return out
}
