// Package openmeteo implements domain.WeatherProvider using the Open-Meteo
// forecast API (no API key required).
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/muhafiz-app/alert-service/internal/domain"
)

// Client fetches hourly forecasts from Open-Meteo.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client with the given request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.open-meteo.com/v1/forecast",
		logger:  logger,
	}
}

// HourlyForecast returns up to hours entries of temperature, precipitation
// probability, precipitation volume, and wind speed starting at the current
// hour.
func (c *Client) HourlyForecast(ctx context.Context, lat, lon float64, hours int) (domain.Forecast, error) {
	params := url.Values{
		"latitude":       {formatCoord(lat)},
		"longitude":      {formatCoord(lon)},
		"hourly":         {"temperature_2m,precipitation_probability,precipitation,wind_speed_10m"},
		"forecast_hours": {strconv.Itoa(hours)},
		"timezone":       {"UTC"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Forecast{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("forecast fetched", "lat", lat, "lon", lon, "hours", len(payload.Hourly.Temperature))

	return domain.Forecast{
		TemperatureC:      payload.Hourly.Temperature,
		PrecipProbability: payload.Hourly.PrecipProbability,
		PrecipitationMM:   payload.Hourly.Precipitation,
		WindSpeedKmh:      payload.Hourly.WindSpeed,
	}, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Open-Meteo API response types.

type response struct {
	Hourly hourly `json:"hourly"`
}

type hourly struct {
	Temperature       []float64 `json:"temperature_2m"`
	PrecipProbability []float64 `json:"precipitation_probability"`
	Precipitation     []float64 `json:"precipitation"`
	WindSpeed         []float64 `json:"wind_speed_10m"`
}
