package notify

import (
	"context"
	"fmt"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// ScheduleLocationAlert notifies about a stored alert whose geofence contains
// the subscriber. The alert's own content hash carries through so the same
// logical event never notifies twice.
func (s *Service) ScheduleLocationAlert(ctx context.Context, a domain.LocationAlert) (string, bool) {
	return s.ScheduleAlert(ctx, AlertNotification{
		Type:      notificationTypeFor(a.Type),
		Title:     a.Title,
		Message:   a.Message,
		Location:  fmt.Sprintf("%.4f,%.4f", a.Area.Latitude, a.Area.Longitude),
		Priority:  domain.PriorityFor(a.Severity),
		Source:    domain.SourceLocation,
		Data:      map[string]string{"alertId": a.ID, "alertType": string(a.Type)},
		AlertHash: a.AlertHash,
	})
}

// ScheduleWeatherAlert notifies about a weather hazard outside the normal
// poll cycle.
func (s *Service) ScheduleWeatherAlert(ctx context.Context, title, message string, priority domain.Priority) (string, bool) {
	return s.ScheduleAlert(ctx, AlertNotification{
		Type:     domain.NotifyWeather,
		Title:    title,
		Message:  message,
		Priority: priority,
		Source:   domain.SourceSystem,
	})
}

// ScheduleSeismicAlert notifies about a seismic event outside the normal
// poll cycle.
func (s *Service) ScheduleSeismicAlert(ctx context.Context, title, message string, priority domain.Priority) (string, bool) {
	return s.ScheduleAlert(ctx, AlertNotification{
		Type:     domain.NotifySeismic,
		Title:    title,
		Message:  message,
		Priority: priority,
		Source:   domain.SourceSystem,
	})
}

// ScheduleNDMAAlert notifies about an advisory relayed from the national
// disaster management authority.
func (s *Service) ScheduleNDMAAlert(ctx context.Context, title, message string, priority domain.Priority) (string, bool) {
	return s.ScheduleAlert(ctx, AlertNotification{
		Type:     domain.NotifyWarning,
		Title:    title,
		Message:  message,
		Priority: priority,
		Source:   domain.SourceNDMA,
	})
}

// ScheduleEmergencyAlert notifies at critical priority regardless of source
// severity.
func (s *Service) ScheduleEmergencyAlert(ctx context.Context, title, message string) (string, bool) {
	return s.ScheduleAlert(ctx, AlertNotification{
		Type:     domain.NotifyEmergency,
		Title:    title,
		Message:  message,
		Priority: domain.PriorityCritical,
		Source:   domain.SourceManual,
	})
}

func notificationTypeFor(t domain.AlertType) domain.NotificationType {
	switch t {
	case domain.AlertWeather:
		return domain.NotifyWeather
	case domain.AlertSeismic:
		return domain.NotifySeismic
	case domain.AlertFlood:
		return domain.NotifyFlood
	case domain.AlertEvacuation:
		return domain.NotifyEvacuation
	default:
		return domain.NotifyWarning
	}
}
