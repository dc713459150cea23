package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/domain"
)

const floodForecastHours = 24

// FloodSource runs a dedicated flood-risk pass over the 24-hour
// precipitation forecast, separate from the 12-hour heavy-rain rule: flood
// risk accumulates over a longer window and triggers on volume, not
// probability.
type FloodSource struct {
	provider domain.WeatherProvider
	policy   config.Policy
	logger   *slog.Logger
}

// NewFloodSource creates the flood adapter.
func NewFloodSource(provider domain.WeatherProvider, policy config.Policy, logger *slog.Logger) *FloodSource {
	return &FloodSource{provider: provider, policy: policy, logger: logger}
}

func (s *FloodSource) Name() string { return "flood" }

func (s *FloodSource) Fetch(ctx context.Context, loc domain.UserLocation) ([]domain.LocationAlert, error) {
	forecast, err := s.provider.HourlyForecast(ctx, loc.Latitude, loc.Longitude, floodForecastHours)
	if err != nil {
		return nil, fmt.Errorf("fetching precipitation forecast: %w", err)
	}

	total := domain.SumOf(forecast.PrecipitationMM)
	peak := domain.MaxOf(forecast.PrecipitationMM)
	if total < s.policy.FloodTotalMM && peak < s.policy.FloodPeakMM {
		return nil, nil
	}

	severity := domain.SeverityHigh
	if total >= s.policy.FloodTotalCriticalMM || peak >= s.policy.FloodPeakCriticalMM {
		severity = domain.SeverityCritical
	}

	now := domain.Now()
	expires := now.Add(24 * time.Hour)
	title := "Flood Risk Warning"
	s.logger.Debug("flood candidate produced", "total_mm", total, "peak_mm", peak, "severity", severity)

	return []domain.LocationAlert{{
		ID:       fmt.Sprintf("flood-%d", now.UnixMilli()),
		Type:     domain.AlertFlood,
		Title:    title,
		Message:  fmt.Sprintf("%.0fmm of rain forecast over the next 24 hours (peak %.0fmm/h). Move valuables off the ground and prepare to leave flood-prone areas.", total, peak),
		Severity: severity,
		Area: domain.AlertArea{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			RadiusKm:  10,
		},
		Timestamp:  now,
		ExpiresAt:  &expires,
		IsActive:   true,
		DataSource: "open-meteo",
		AlertHash:  domain.AlertHash(domain.AlertFlood, title, loc.Latitude, loc.Longitude, now),
	}}, nil
}
