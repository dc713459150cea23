// Package usgs implements domain.SeismicProvider using the USGS earthquake
// catalog (fdsnws GeoJSON feed).
package usgs

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

// Client queries the USGS earthquake catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a USGS client with the given request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://earthquake.usgs.gov/fdsnws/event/1/query",
		logger:  logger,
	}
}

// RecentEvents returns events matching the query, newest first.
func (c *Client) RecentEvents(ctx context.Context, q domain.SeismicQuery) ([]domain.SeismicEvent, error) {
	params := url.Values{
		"format":       {"geojson"},
		"latitude":     {strconv.FormatFloat(q.Latitude, 'f', 4, 64)},
		"longitude":    {strconv.FormatFloat(q.Longitude, 'f', 4, 64)},
		"maxradiuskm":  {strconv.FormatFloat(q.RadiusKm, 'f', 0, 64)},
		"minmagnitude": {strconv.FormatFloat(q.MinMagnitude, 'f', 1, 64)},
		"orderby":      {"time"},
		"limit":        {strconv.Itoa(q.Limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("seismic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	events := make([]domain.SeismicEvent, 0, len(payload.Features))
	for _, f := range payload.Features {
		e := domain.SeismicEvent{
			ID:        f.ID,
			Magnitude: f.Properties.Mag,
			Place:     f.Properties.Place,
			Time:      time.UnixMilli(f.Properties.Time).UTC(),
		}
		// GeoJSON coordinate order is [lon, lat, depth].
		if len(f.Geometry.Coordinates) >= 2 {
			e.Longitude = f.Geometry.Coordinates[0]
			e.Latitude = f.Geometry.Coordinates[1]
		}
		events = append(events, e)
	}
	c.logger.Debug("seismic events fetched", "count", len(events), "min_magnitude", q.MinMagnitude)
	return events, nil
}

// USGS API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

type properties struct {
	Mag   float64 `json:"mag"`
	Place string  `json:"place"`
	Time  int64   `json:"time"` // epoch milliseconds
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"`
}
