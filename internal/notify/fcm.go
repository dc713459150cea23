package notify

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// FCMBackend delivers notifications through Firebase Cloud Messaging to a
// single registered device token.
type FCMBackend struct {
	client *messaging.Client
	token  string
	logger *slog.Logger
}

// NewFCMBackend initializes a Firebase app from the given service-account
// credentials file and verifies a messaging client can be obtained. Callers
// fall back to local delivery when this fails.
func NewFCMBackend(ctx context.Context, credentialsFile, deviceToken string, logger *slog.Logger) (*FCMBackend, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtaining messaging client: %w", err)
	}
	return &FCMBackend{client: client, token: deviceToken, logger: logger}, nil
}

func (b *FCMBackend) Name() string { return "fcm" }

func (b *FCMBackend) Deliver(ctx context.Context, rec domain.NotificationRecord) error {
	msg := &messaging.Message{
		Token: b.token,
		Notification: &messaging.Notification{
			Title: rec.Title,
			Body:  rec.Message,
		},
	}
	if len(rec.Data) > 0 {
		msg.Data = rec.Data
	}

	id, err := b.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending fcm message: %w", err)
	}
	b.logger.Debug("fcm message sent", "message_id", id, "notification_id", rec.ID)
	return nil
}
