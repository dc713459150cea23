package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/domain"
)

const weatherForecastHours = 12

// WeatherSource derives rain, heat, cold, and wind alerts from the hourly
// forecast. Each rule independently yields zero or one candidate with its own
// hash, so a single fetch can produce several simultaneous alert types.
type WeatherSource struct {
	provider domain.WeatherProvider
	policy   config.Policy
	logger   *slog.Logger
}

// NewWeatherSource creates the weather adapter.
func NewWeatherSource(provider domain.WeatherProvider, policy config.Policy, logger *slog.Logger) *WeatherSource {
	return &WeatherSource{provider: provider, policy: policy, logger: logger}
}

func (s *WeatherSource) Name() string { return "weather" }

func (s *WeatherSource) Fetch(ctx context.Context, loc domain.UserLocation) ([]domain.LocationAlert, error) {
	forecast, err := s.provider.HourlyForecast(ctx, loc.Latitude, loc.Longitude, weatherForecastHours)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}

	now := domain.Now()
	var candidates []domain.LocationAlert

	if a, ok := s.heavyRain(forecast, loc, now); ok {
		candidates = append(candidates, a)
	}
	if a, ok := s.extremeHeat(forecast, loc, now); ok {
		candidates = append(candidates, a)
	}
	if a, ok := s.extremeCold(forecast, loc, now); ok {
		candidates = append(candidates, a)
	}
	if a, ok := s.dangerousWind(forecast, loc, now); ok {
		candidates = append(candidates, a)
	}
	if len(candidates) > 0 {
		s.logger.Debug("weather candidates produced", "count", len(candidates))
	}
	return candidates, nil
}

// heavyRain requires both a high probability and meaningful accumulated
// volume; either alone is routine.
func (s *WeatherSource) heavyRain(f domain.Forecast, loc domain.UserLocation, now time.Time) (domain.LocationAlert, bool) {
	maxProb := domain.MaxOf(f.PrecipProbability)
	totalMM := domain.SumOf(f.PrecipitationMM)
	if maxProb < s.policy.RainProbabilityMin || totalMM < s.policy.RainSumMinMM {
		return domain.LocationAlert{}, false
	}

	severity := domain.SeverityHigh
	if maxProb >= s.policy.RainProbabilityCritical {
		severity = domain.SeverityCritical
	}

	return newCandidate(candidateSpec{
		idPrefix: "weather-rain",
		typ:      domain.AlertWeather,
		title:    "Heavy Rainfall Warning",
		message:  fmt.Sprintf("Up to %.0f%% chance of rain with %.1fmm expected over the next 12 hours. Avoid unnecessary travel and stay clear of low-lying areas.", maxProb, totalMM),
		severity: severity,
		loc:      loc,
		radiusKm: 15,
		validity: 12 * time.Hour,
		now:      now,
	}), true
}

func (s *WeatherSource) extremeHeat(f domain.Forecast, loc domain.UserLocation, now time.Time) (domain.LocationAlert, bool) {
	maxTemp := domain.MaxOf(f.TemperatureC)
	if len(f.TemperatureC) == 0 || maxTemp < s.policy.HeatMaxC {
		return domain.LocationAlert{}, false
	}

	severity := domain.SeverityHigh
	if maxTemp >= s.policy.HeatCriticalC {
		severity = domain.SeverityCritical
	}

	return newCandidate(candidateSpec{
		idPrefix: "weather-heat",
		typ:      domain.AlertWeather,
		title:    "Extreme Heat Warning",
		message:  fmt.Sprintf("Temperatures up to %.0f°C expected. Stay hydrated, avoid outdoor activity at midday, and check on vulnerable people.", maxTemp),
		severity: severity,
		loc:      loc,
		radiusKm: 25,
		validity: 24 * time.Hour,
		now:      now,
	}), true
}

func (s *WeatherSource) extremeCold(f domain.Forecast, loc domain.UserLocation, now time.Time) (domain.LocationAlert, bool) {
	minTemp := domain.MinOf(f.TemperatureC)
	if len(f.TemperatureC) == 0 || minTemp > s.policy.ColdMinC {
		return domain.LocationAlert{}, false
	}

	severity := domain.SeverityHigh
	if minTemp <= s.policy.ColdCriticalC {
		severity = domain.SeverityCritical
	}

	return newCandidate(candidateSpec{
		idPrefix: "weather-cold",
		typ:      domain.AlertWeather,
		title:    "Extreme Cold Warning",
		message:  fmt.Sprintf("Temperatures down to %.0f°C expected. Limit time outdoors and protect exposed water pipes.", minTemp),
		severity: severity,
		loc:      loc,
		radiusKm: 25,
		validity: 24 * time.Hour,
		now:      now,
	}), true
}

func (s *WeatherSource) dangerousWind(f domain.Forecast, loc domain.UserLocation, now time.Time) (domain.LocationAlert, bool) {
	maxWind := domain.MaxOf(f.WindSpeedKmh)
	if maxWind < s.policy.WindMaxKmh {
		return domain.LocationAlert{}, false
	}

	severity := domain.SeverityHigh
	if maxWind >= s.policy.WindCriticalKmh {
		severity = domain.SeverityCritical
	}

	return newCandidate(candidateSpec{
		idPrefix: "weather-wind",
		typ:      domain.AlertWeather,
		title:    "Dangerous Wind Warning",
		message:  fmt.Sprintf("Wind speeds up to %.0f km/h expected. Secure loose objects and stay away from trees and power lines.", maxWind),
		severity: severity,
		loc:      loc,
		radiusKm: 20,
		validity: 12 * time.Hour,
		now:      now,
	}), true
}

// candidateSpec collects the per-rule fields for building one candidate.
type candidateSpec struct {
	idPrefix string
	typ      domain.AlertType
	title    string
	message  string
	severity domain.Severity
	loc      domain.UserLocation
	radiusKm float64
	validity time.Duration
	now      time.Time
}

func newCandidate(c candidateSpec) domain.LocationAlert {
	expires := c.now.Add(c.validity)
	return domain.LocationAlert{
		ID:       fmt.Sprintf("%s-%d", c.idPrefix, c.now.UnixMilli()),
		Type:     c.typ,
		Title:    c.title,
		Message:  c.message,
		Severity: c.severity,
		Area: domain.AlertArea{
			Latitude:  c.loc.Latitude,
			Longitude: c.loc.Longitude,
			RadiusKm:  c.radiusKm,
		},
		Timestamp:  c.now,
		ExpiresAt:  &expires,
		IsActive:   true,
		DataSource: "open-meteo",
		AlertHash:  domain.AlertHash(c.typ, c.title, c.loc.Latitude, c.loc.Longitude, c.now),
	}
}
