package notify

import (
	"context"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// Backend delivers a notification to the subscriber over one channel.
type Backend interface {
	Name() string
	Deliver(ctx context.Context, rec domain.NotificationRecord) error
}
