package waypoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	threshold = 50.0
	dwell     = 15 * time.Second
)

func TestNewSequencer(t *testing.T) {
	s, err := NewSequencer(6, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Active())
	assert.True(t, s.LastAdvanceAt().IsZero())

	_, err = NewSequencer(6, 6)
	assert.ErrorIs(t, err, ErrInvalidStart)

	_, err = NewSequencer(6, -1)
	assert.ErrorIs(t, err, ErrInvalidStart)

	_, err = NewSequencer(0, 0)
	assert.ErrorIs(t, err, ErrInvalidRoute)
}

func TestFirstTickInRangeAdvances(t *testing.T) {
	s, err := NewSequencer(6, 0)
	require.NoError(t, err)
	now := time.Unix(1000, 0)

	adv, ok := s.Tick(10, now, threshold, dwell)
	require.True(t, ok)
	assert.Equal(t, Advance{From: 0, To: 1, At: now}, adv)
	assert.Equal(t, 1, s.Active())
	assert.Equal(t, now, s.LastAdvanceAt())
}

func TestOutOfRangeNeverAdvances(t *testing.T) {
	s, err := NewSequencer(6, 0)
	require.NoError(t, err)

	tests := []struct {
		name     string
		distance float64
	}{
		{"far", 800},
		{"on threshold", threshold},
		{"just over", threshold + 0.001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := s.Tick(tt.distance, time.Unix(5000, 0), threshold, dwell)
			assert.False(t, ok)
			assert.Equal(t, 0, s.Active())
		})
	}
}

func TestDwellGuard(t *testing.T) {
	s, err := NewSequencer(6, 0)
	require.NoError(t, err)
	start := time.Unix(1000, 0)

	_, ok := s.Tick(10, start, threshold, dwell)
	require.True(t, ok)

	// Still in range of what is now the active waypoint, but inside
	// the dwell window.
	for ms := 0; ms <= 15000; ms += 100 {
		_, ok := s.Tick(10, start.Add(time.Duration(ms)*time.Millisecond), threshold, dwell)
		assert.False(t, ok, "advanced %dms after the last advance", ms)
	}
	assert.Equal(t, 1, s.Active())

	adv, ok := s.Tick(10, start.Add(dwell+time.Millisecond), threshold, dwell)
	require.True(t, ok)
	assert.Equal(t, 2, adv.To)
}

func TestWraparound(t *testing.T) {
	s, err := NewSequencer(6, 5)
	require.NoError(t, err)

	adv, ok := s.Tick(1, time.Unix(1000, 0), threshold, dwell)
	require.True(t, ok)
	assert.Equal(t, 0, s.Active())
	assert.Equal(t, 5, adv.From)
	assert.True(t, adv.Wrapped)
}

func TestSingleWaypointRoute(t *testing.T) {
	s, err := NewSequencer(1, 0)
	require.NoError(t, err)

	adv, ok := s.Tick(1, time.Unix(1000, 0), threshold, dwell)
	require.True(t, ok)
	assert.Equal(t, 0, adv.To)
	assert.True(t, adv.Wrapped)
}
