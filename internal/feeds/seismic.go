package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/domain"
)

// SeismicSource turns recent nearby earthquakes into alerts. The alert radius
// scales with magnitude (magnitude × 30 km) to reflect the wider felt impact
// of larger events.
type SeismicSource struct {
	provider domain.SeismicProvider
	policy   config.Policy
	logger   *slog.Logger
}

// NewSeismicSource creates the seismic adapter.
func NewSeismicSource(provider domain.SeismicProvider, policy config.Policy, logger *slog.Logger) *SeismicSource {
	return &SeismicSource{provider: provider, policy: policy, logger: logger}
}

func (s *SeismicSource) Name() string { return "seismic" }

func (s *SeismicSource) Fetch(ctx context.Context, loc domain.UserLocation) ([]domain.LocationAlert, error) {
	events, err := s.provider.RecentEvents(ctx, domain.SeismicQuery{
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		RadiusKm:     s.policy.QuakeSearchRadiusKm,
		MinMagnitude: s.policy.QuakeMinMagnitude,
		Limit:        s.policy.QuakeMaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching seismic events: %w", err)
	}

	now := domain.Now()
	var candidates []domain.LocationAlert
	for _, e := range events {
		// The provider already filters by magnitude; re-check locally so a
		// lenient feed cannot push sub-threshold events through.
		if e.Magnitude < s.policy.QuakeMinMagnitude {
			continue
		}
		if now.Sub(e.Time) > s.policy.QuakeMaxAge {
			s.logger.Debug("stale seismic event dropped", "event_id", e.ID, "age", now.Sub(e.Time))
			continue
		}
		candidates = append(candidates, s.toAlert(e, now))
	}
	return candidates, nil
}

func (s *SeismicSource) toAlert(e domain.SeismicEvent, now time.Time) domain.LocationAlert {
	severity := domain.SeverityModerate
	switch {
	case e.Magnitude >= 7.0:
		severity = domain.SeverityCritical
	case e.Magnitude >= 6.0:
		severity = domain.SeverityHigh
	}

	title := fmt.Sprintf("Magnitude %.1f Earthquake", e.Magnitude)
	expires := now.Add(24 * time.Hour)

	return domain.LocationAlert{
		ID:       fmt.Sprintf("seismic-%s", e.ID),
		Type:     domain.AlertSeismic,
		Title:    title,
		Message:  fmt.Sprintf("A magnitude %.1f earthquake occurred %s. Expect possible aftershocks; move away from damaged structures.", e.Magnitude, e.Place),
		Severity: severity,
		Area: domain.AlertArea{
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			RadiusKm:  e.Magnitude * 30,
		},
		Timestamp:  e.Time,
		ExpiresAt:  &expires,
		IsActive:   true,
		DataSource: "usgs",
		AlertHash:  domain.AlertHash(domain.AlertSeismic, title, e.Latitude, e.Longitude, e.Time),
	}
}
