package domain

import "time"

// Severity classifies how dangerous a hazard is, from routine to life-threatening.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the sort weight of a severity (critical=4 … low=1).
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AlertType identifies the hazard category of a location alert.
type AlertType string

const (
	AlertWeather    AlertType = "weather"
	AlertSeismic    AlertType = "seismic"
	AlertFlood      AlertType = "flood"
	AlertEvacuation AlertType = "evacuation"
	AlertGeneral    AlertType = "general"
)

// AlertArea is the circular geofence an alert applies to.
type AlertArea struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radiusKm"`
}

// LocationAlert is a geofenced hazard alert, either a fresh candidate from a
// source adapter or the canonical stored copy.
//
// AlertHash is deterministic over (type, title, lat, lon, calendar date): two
// alerts with the same hash are the same logical event regardless of which
// fetch produced them. See [AlertHash].
type LocationAlert struct {
	ID         string     `json:"id"`
	Type       AlertType  `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Severity   Severity   `json:"severity"`
	Area       AlertArea  `json:"location"`
	Timestamp  time.Time  `json:"timestamp"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	IsActive   bool       `json:"isActive"`
	DataSource string     `json:"dataSource"`
	AlertHash  string     `json:"alertHash,omitempty"`
}

// MaxAlertAge is the hard ceiling on alert lifetime when ExpiresAt is absent.
const MaxAlertAge = 7 * 24 * time.Hour

// Expired reports whether the alert should be pruned at the given instant:
// past its ExpiresAt, or older than [MaxAlertAge] when no expiry is set.
func (a LocationAlert) Expired(now time.Time) bool {
	if a.ExpiresAt != nil {
		return now.After(*a.ExpiresAt)
	}
	return now.Sub(a.Timestamp) > MaxAlertAge
}

// UserLocation is the last known subscriber position. Overwrite semantics:
// a new fix replaces the previous one, no history is kept.
type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// Priority drives notification channel selection and title prefixing.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityFor maps alert severity onto notification priority.
func PriorityFor(s Severity) Priority {
	switch s {
	case SeverityCritical:
		return PriorityCritical
	case SeverityHigh:
		return PriorityHigh
	case SeverityModerate:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// NotificationType identifies the kind of user-facing notification.
type NotificationType string

const (
	NotifyEmergency  NotificationType = "emergency"
	NotifyWeather    NotificationType = "weather"
	NotifySeismic    NotificationType = "seismic"
	NotifyFlood      NotificationType = "flood"
	NotifyEvacuation NotificationType = "evacuation"
	NotifyWarning    NotificationType = "warning"
	NotifyInfo       NotificationType = "info"
	NotifySuccess    NotificationType = "success"
)

// NotificationSource records which path produced a notification.
type NotificationSource string

const (
	SourceLocation NotificationSource = "location"
	SourceSystem   NotificationSource = "system"
	SourceManual   NotificationSource = "manual"
	SourcePush     NotificationSource = "push"
	SourceLocal    NotificationSource = "local"
	SourceNDMA     NotificationSource = "ndma"
)

// NotificationRecord is a delivered user-facing notification.
//
// At most one record with a given non-empty AlertHash is ever persisted.
// ContentHash is the coarse fingerprint (see [NotificationHash]) the delivery
// gate keyed this record on. Read starts false and only ever flips to true.
type NotificationRecord struct {
	ID          string             `json:"id"`
	Type        NotificationType   `json:"type"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
	Timestamp   time.Time          `json:"timestamp"`
	Read        bool               `json:"read"`
	Location    string             `json:"location,omitempty"`
	Priority    Priority           `json:"priority"`
	Source      NotificationSource `json:"source"`
	Data        map[string]string  `json:"data,omitempty"`
	AlertHash   string             `json:"alertHash,omitempty"`
	ContentHash string             `json:"contentHash,omitempty"`
}
