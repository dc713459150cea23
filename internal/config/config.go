package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// DatabasePath is the SQLite file backing the key-value store.
	DatabasePath string

	// PollInterval is how often all source adapters are re-invoked.
	PollInterval time.Duration
	// FetchTimeout bounds each upstream feed request.
	FetchTimeout time.Duration

	// DefaultLat/DefaultLon are monitored until a real location fix arrives.
	DefaultLat float64
	DefaultLon float64

	// FCM push delivery configuration.
	FCMCredentialsFile string
	FCMDeviceToken     string
	FCMEnabled         bool

	// Kafka notification export configuration.
	KafkaBrokers   []string
	KafkaSinkTopic string
	ExportEnabled  bool

	Policy Policy
}

// Policy is the tunable alerting policy table: severity thresholds, dedup
// windows, and ranking bands. Defaults encode the shipped behavior; only
// values that plausibly vary per deployment are exposed as environment
// variables.
type Policy struct {
	// Heavy rain (12h window).
	RainProbabilityMin      float64 // percent
	RainProbabilityCritical float64
	RainSumMinMM            float64

	// Temperature extremes (24h validity).
	HeatMaxC      float64
	HeatCriticalC float64
	ColdMinC      float64
	ColdCriticalC float64

	// Dangerous wind (12h window).
	WindMaxKmh      float64
	WindCriticalKmh float64

	// Flood risk (24h precipitation window).
	FloodTotalMM         float64
	FloodPeakMM          float64
	FloodTotalCriticalMM float64
	FloodPeakCriticalMM  float64

	// Seismic feed filters.
	QuakeMinMagnitude   float64
	QuakeSearchRadiusKm float64
	QuakeMaxAge         time.Duration
	QuakeMaxResults     int

	// Near-duplicate suppression: an unhashed candidate matching an active
	// alert of the same type+severity within this distance and time window is
	// dropped at merge time.
	DuplicateRadiusKm float64
	DuplicateWindow   time.Duration

	// Notification record retention cap.
	MaxNotifications int

	RankBands domain.RankBands
}

// DefaultPolicy returns the shipped alerting thresholds.
func DefaultPolicy() Policy {
	return Policy{
		RainProbabilityMin:      80,
		RainProbabilityCritical: 90,
		RainSumMinMM:            10,
		HeatMaxC:                40,
		HeatCriticalC:           45,
		ColdMinC:                -10,
		ColdCriticalC:           -20,
		WindMaxKmh:              70,
		WindCriticalKmh:         100,
		FloodTotalMM:            50,
		FloodPeakMM:             20,
		FloodTotalCriticalMM:    100,
		FloodPeakCriticalMM:     30,
		QuakeMinMagnitude:       4.5,
		QuakeSearchRadiusKm:     200,
		QuakeMaxAge:             6 * time.Hour,
		QuakeMaxResults:         5,
		DuplicateRadiusKm:       3,
		DuplicateWindow:         time.Hour,
		MaxNotifications:        100,
		RankBands:               domain.DefaultRankBands(),
	}
}

// Load reads configuration from the environment (and a .env file when
// present), applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("POLL_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	defaultLat, err := parseFloat("DEFAULT_LAT", 33.6844)
	if err != nil {
		return nil, err
	}
	defaultLon, err := parseFloat("DEFAULT_LON", 73.0479)
	if err != nil {
		return nil, err
	}

	fcmCredentials := os.Getenv("FCM_CREDENTIALS_FILE")
	fcmToken := os.Getenv("FCM_DEVICE_TOKEN")
	fcmEnabled := fcmCredentials != "" && fcmToken != ""
	if v := os.Getenv("FCM_ENABLED"); v != "" {
		fcmEnabled = v == "true"
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	exportEnabled := len(brokers) > 0
	if v := os.Getenv("EXPORT_ENABLED"); v != "" {
		exportEnabled = v == "true"
	}

	policy := DefaultPolicy()
	if err := loadPolicyOverrides(&policy); err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DatabasePath:    envOrDefault("DATABASE_PATH", "alertd.db"),
		PollInterval:    pollInterval,
		FetchTimeout:    fetchTimeout,
		DefaultLat:      defaultLat,
		DefaultLon:      defaultLon,

		FCMCredentialsFile: fcmCredentials,
		FCMDeviceToken:     fcmToken,
		FCMEnabled:         fcmEnabled,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "delivered-notifications"),
		ExportEnabled:  exportEnabled,

		Policy: policy,
	}

	if cfg.PollInterval < time.Minute {
		return nil, errors.New("POLL_INTERVAL must be at least 1m")
	}
	if cfg.FCMEnabled && (cfg.FCMCredentialsFile == "" || cfg.FCMDeviceToken == "") {
		return nil, errors.New("FCM_ENABLED is true but FCM_CREDENTIALS_FILE or FCM_DEVICE_TOKEN is not set")
	}
	if cfg.ExportEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("EXPORT_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// loadPolicyOverrides applies the deployment-tunable subset of the policy
// table from the environment.
func loadPolicyOverrides(p *Policy) error {
	var err error
	if p.DuplicateRadiusKm, err = parseFloat("DUPLICATE_RADIUS_KM", p.DuplicateRadiusKm); err != nil {
		return err
	}
	if v := os.Getenv("DUPLICATE_WINDOW"); v != "" {
		d, derr := time.ParseDuration(v)
		if derr != nil || d <= 0 {
			return errors.New("invalid DUPLICATE_WINDOW")
		}
		p.DuplicateWindow = d
	}
	if v := os.Getenv("MAX_NOTIFICATIONS"); v != "" {
		n, nerr := strconv.Atoi(v)
		if nerr != nil || n <= 0 {
			return errors.New("invalid MAX_NOTIFICATIONS")
		}
		p.MaxNotifications = n
	}
	if p.QuakeMinMagnitude, err = parseFloat("QUAKE_MIN_MAGNITUDE", p.QuakeMinMagnitude); err != nil {
		return err
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	v := envOrDefault(key, fallback)
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
