package feeds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhafiz-app/alert-service/internal/config"
	"github.com/muhafiz-app/alert-service/internal/domain"
)

type stubSeismic struct {
	events    []domain.SeismicEvent
	err       error
	lastQuery domain.SeismicQuery
}

func (s *stubSeismic) RecentEvents(_ context.Context, q domain.SeismicQuery) ([]domain.SeismicEvent, error) {
	s.lastQuery = q
	return s.events, s.err
}

func TestSeismicSource_Fetch(t *testing.T) {
	now := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	freezeClock(t, now)
	policy := config.DefaultPolicy()

	t.Run("query carries the policy thresholds", func(t *testing.T) {
		stub := &stubSeismic{}
		_, err := NewSeismicSource(stub, policy, discardLogger()).Fetch(context.Background(), testLoc)
		require.NoError(t, err)

		assert.Equal(t, testLoc.Latitude, stub.lastQuery.Latitude)
		assert.Equal(t, policy.QuakeSearchRadiusKm, stub.lastQuery.RadiusKm)
		assert.Equal(t, policy.QuakeMinMagnitude, stub.lastQuery.MinMagnitude)
		assert.Equal(t, policy.QuakeMaxResults, stub.lastQuery.Limit)
	})

	t.Run("sub-threshold magnitude is dropped even if the feed returns it", func(t *testing.T) {
		stub := &stubSeismic{events: []domain.SeismicEvent{
			{ID: "ev1", Magnitude: 4.2, Place: "10km NE of Rawalpindi", Time: now.Add(-time.Hour), Latitude: 33.7, Longitude: 73.1},
		}}
		alerts, err := NewSeismicSource(stub, policy, discardLogger()).Fetch(context.Background(), testLoc)
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("recent M6.5 becomes a high alert with magnitude-scaled radius", func(t *testing.T) {
		stub := &stubSeismic{events: []domain.SeismicEvent{
			{ID: "ev2", Magnitude: 6.5, Place: "52km W of Muzaffarabad", Time: now.Add(-3 * time.Hour), Latitude: 34.3, Longitude: 73.2},
		}}
		alerts, err := NewSeismicSource(stub, policy, discardLogger()).Fetch(context.Background(), testLoc)
		require.NoError(t, err)

		require.Len(t, alerts, 1)
		a := alerts[0]
		assert.Equal(t, "seismic-ev2", a.ID)
		assert.Equal(t, domain.AlertSeismic, a.Type)
		assert.Equal(t, "Magnitude 6.5 Earthquake", a.Title)
		assert.Equal(t, domain.SeverityHigh, a.Severity)
		assert.InDelta(t, 195.0, a.Area.RadiusKm, 0.001)
		assert.Equal(t, 34.3, a.Area.Latitude)
		assert.Equal(t, now.Add(-3*time.Hour), a.Timestamp)
		require.NotNil(t, a.ExpiresAt)
		assert.Equal(t, now.Add(24*time.Hour), *a.ExpiresAt)
	})

	t.Run("M7.2 is critical, M5.0 moderate", func(t *testing.T) {
		stub := &stubSeismic{events: []domain.SeismicEvent{
			{ID: "big", Magnitude: 7.2, Time: now.Add(-time.Hour)},
			{ID: "small", Magnitude: 5.0, Time: now.Add(-time.Hour)},
		}}
		alerts, err := NewSeismicSource(stub, policy, discardLogger()).Fetch(context.Background(), testLoc)
		require.NoError(t, err)

		require.Len(t, alerts, 2)
		assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
		assert.Equal(t, domain.SeverityModerate, alerts[1].Severity)
	})

	t.Run("events older than the freshness window are dropped", func(t *testing.T) {
		stub := &stubSeismic{events: []domain.SeismicEvent{
			{ID: "stale", Magnitude: 6.0, Time: now.Add(-7 * time.Hour)},
		}}
		alerts, err := NewSeismicSource(stub, policy, discardLogger()).Fetch(context.Background(), testLoc)
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("provider failure surfaces as an error", func(t *testing.T) {
		stub := &stubSeismic{err: errors.New("503")}
		alerts, err := NewSeismicSource(stub, policy, discardLogger()).Fetch(context.Background(), testLoc)
		assert.Error(t, err)
		assert.Nil(t, alerts)
	})
}
