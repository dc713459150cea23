// Package feeds translates external hazard feeds into candidate location
// alerts. Each source applies its own severity thresholds so that routine
// conditions never reach the subscriber, only genuinely dangerous ones.
package feeds

import (
	"context"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// Source produces candidate alerts for a location.
//
// Implementations never return partial or malformed candidates: on any fetch
// or parse failure they return an error, the caller skips the source for the
// cycle, and the next poll retries naturally.
type Source interface {
	Name() string
	Fetch(ctx context.Context, loc domain.UserLocation) ([]domain.LocationAlert, error)
}
