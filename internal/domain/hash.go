package domain

import (
	"fmt"
	"strconv"
	"time"
)

// AlertHash produces the deterministic fingerprint used to suppress duplicate
// alerts across fetches and restarts. The timestamp contributes only its
// calendar date: the same hazard reported repeatedly within a day collapses to
// one alert, while a recurrence the next day hashes differently and is treated
// as a new event.
//
// The hash is intentionally non-cryptographic; collisions are accepted in
// exchange for determinism with no external state.
func AlertHash(alertType AlertType, title string, lat, lon float64, ts time.Time) string {
	input := fmt.Sprintf("%s_%s_%v_%v_%s", alertType, title, lat, lon, ts.UTC().Format("2006-01-02"))
	return rollingHash(input)
}

// NotificationHash is the coarser fingerprint used by the delivery layer.
// It deliberately omits type and date so that identical content arriving
// through different source adapters still collapses to one notification.
func NotificationHash(title, message, location string) string {
	return rollingHash(title + "|" + message + "|" + location)
}

// rollingHash runs a 32-bit multiply-and-subtract hash over the input
// (h = h*31 + c with wraparound) and formats the absolute value as decimal.
func rollingHash(s string) string {
	var h int32
	for _, r := range s {
		h = (h << 5) - h + int32(r)
	}
	// Negate in 64-bit space: math.MinInt32 has no int32 absolute value.
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 10)
}
