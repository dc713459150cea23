package domain

import (
	"context"
	"time"
)

// Forecast holds parallel hourly arrays for one location, index 0 being the
// current hour. All slices have the same length.
type Forecast struct {
	TemperatureC      []float64
	PrecipProbability []float64 // percent, 0–100
	PrecipitationMM   []float64
	WindSpeedKmh      []float64
}

// MaxOf returns the maximum of an hourly series, or 0 for an empty series.
func MaxOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	maxV := series[0]
	for _, v := range series[1:] {
		if v > maxV {
			maxV = v
		}
	}
	return maxV
}

// MinOf returns the minimum of an hourly series, or 0 for an empty series.
func MinOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	minV := series[0]
	for _, v := range series[1:] {
		if v < minV {
			minV = v
		}
	}
	return minV
}

// SumOf returns the sum of an hourly series.
func SumOf(series []float64) float64 {
	var total float64
	for _, v := range series {
		total += v
	}
	return total
}

// WeatherProvider fetches an hourly forecast for a coordinate.
type WeatherProvider interface {
	// HourlyForecast returns up to hours entries starting at the current hour.
	HourlyForecast(ctx context.Context, lat, lon float64, hours int) (Forecast, error)
}

// SeismicEvent is one earthquake record from the seismic feed.
type SeismicEvent struct {
	ID        string
	Magnitude float64
	Place     string
	Time      time.Time
	Latitude  float64
	Longitude float64
}

// SeismicQuery bounds a seismic feed request.
type SeismicQuery struct {
	Latitude     float64
	Longitude    float64
	RadiusKm     float64
	MinMagnitude float64
	Limit        int
}

// SeismicProvider fetches recent earthquake events, newest first.
type SeismicProvider interface {
	RecentEvents(ctx context.Context, q SeismicQuery) ([]SeismicEvent, error)
}
