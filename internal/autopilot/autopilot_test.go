package autopilot

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Speshl/gorrc_autopilot/internal/config"
	"github.com/Speshl/gorrc_autopilot/internal/guidance"
	"github.com/Speshl/gorrc_autopilot/internal/models"
	"github.com/Speshl/gorrc_autopilot/internal/telemetry"
	"github.com/Speshl/gorrc_autopilot/internal/waypoint"
)

type fakeSink struct {
	moves []models.Move
	err   error
}

func (s *fakeSink) Move(m models.Move) error {
	if s.err != nil {
		return s.err
	}
	s.moves = append(s.moves, m)
	return nil
}

func testConfig() config.AutopilotConfig {
	cfg := config.GetAutopilotConfig()
	cfg.TickPeriod = time.Millisecond
	return cfg
}

func newDriver(t *testing.T, store *telemetry.Store, start int) (*Driver, *fakeSink) {
	t.Helper()
	sink := &fakeSink{}
	d, err := New(testConfig(), store, waypoint.Default(), start, sink)
	require.NoError(t, err)
	return d, sink
}

func TestRollFilterSequence(t *testing.T) {
	f := rollFilter{limit: 50}
	rolls := []float64{10, 10, 10, 50, 50, 49}
	expected := []bool{true, false, false, true, true, true}

	for i, roll := range rolls {
		assert.Equal(t, expected[i], f.ShouldEmit(roll), "tick %d roll %v", i, roll)
	}
}

func TestRollFilterNegativeExtreme(t *testing.T) {
	f := rollFilter{limit: 50}
	assert.True(t, f.ShouldEmit(-50))
	assert.True(t, f.ShouldEmit(-50))
	assert.True(t, f.ShouldEmit(0))
	assert.False(t, f.ShouldEmit(0))
}

func TestStepMissingTelemetry(t *testing.T) {
	store := telemetry.NewStore()
	store.UpdateHeading(90)
	d, sink := newDriver(t, store, 0)

	res, err := d.Step(time.Unix(1000, 0))
	assert.ErrorIs(t, err, guidance.ErrMissingTelemetry)
	assert.True(t, Skippable(err))
	assert.Nil(t, res.Advance)
	assert.False(t, res.Emitted)
	assert.Empty(t, sink.moves)
	assert.Equal(t, 0, d.Active())
	assert.True(t, d.seq.LastAdvanceAt().IsZero(), "sequencer untouched")
}

func TestStepKeepsPreviousRollWhileDegraded(t *testing.T) {
	store := telemetry.NewStore()
	store.UpdateHeading(90)
	store.UpdateLocation(telemetry.Location{Latitude: 53.35, Longitude: 17.65})
	d, sink := newDriver(t, store, 0)

	_, err := d.Step(time.Unix(1000, 0))
	require.NoError(t, err)
	require.Len(t, sink.moves, 1)

	// Garbage heading makes the tick non-finite, nothing is sent.
	store.UpdateHeading(math.NaN())
	_, err = d.Step(time.Unix(1001, 0))
	assert.ErrorIs(t, err, guidance.ErrNonFinite)
	assert.Len(t, sink.moves, 1)

	// Same situation as before the gap, so the roll is suppressed.
	store.UpdateHeading(90)
	res, err := d.Step(time.Unix(1002, 0))
	require.NoError(t, err)
	assert.False(t, res.Emitted)
	assert.Len(t, sink.moves, 1)
}

func TestStepEmitsAndSuppresses(t *testing.T) {
	store := telemetry.NewStore()
	store.UpdateHeading(90)
	store.UpdateLocation(telemetry.Location{Latitude: 53.35, Longitude: 17.65})
	d, sink := newDriver(t, store, 0)

	res, err := d.Step(time.Unix(1000, 0))
	require.NoError(t, err)
	assert.True(t, res.Emitted)
	assert.Equal(t, 0, res.Waypoint)
	assert.Equal(t, -46.0, res.Guidance.Roll)
	assert.InDelta(t, 869, res.Guidance.DistanceMeters, 5)

	res, err = d.Step(time.Unix(1000, int64(100*time.Millisecond)))
	require.NoError(t, err)
	assert.False(t, res.Emitted)

	require.Len(t, sink.moves, 1)
	assert.Equal(t, models.Move{Roll: -46}, sink.moves[0])
}

func TestStepSaturatedRollReasserted(t *testing.T) {
	store := telemetry.NewStore()
	store.UpdateHeading(270) // flying away from the first waypoint
	store.UpdateLocation(telemetry.Location{Latitude: 53.35, Longitude: 17.65})
	d, sink := newDriver(t, store, 0)

	for i := 0; i < 3; i++ {
		res, err := d.Step(time.Unix(1000+int64(i), 0))
		require.NoError(t, err)
		assert.True(t, res.Emitted)
	}
	require.Len(t, sink.moves, 3)
	assert.Equal(t, 50.0, sink.moves[2].Roll)
}

func TestStepAdvancesAndWraps(t *testing.T) {
	route := waypoint.Default()
	last := route[len(route)-1]

	store := telemetry.NewStore()
	store.UpdateHeading(0)
	store.UpdateLocation(last.Location())
	sink := &fakeSink{}
	d, err := New(testConfig(), store, route, len(route)-1, sink)
	require.NoError(t, err)

	now := time.Unix(1000, 0)
	res, err := d.Step(now)
	require.NoError(t, err)
	require.NotNil(t, res.Advance)
	assert.Equal(t, len(route)-1, res.Waypoint)
	assert.True(t, res.Advance.Wrapped)
	assert.Equal(t, 0, d.Active())

	// Put the vehicle on waypoint 0, but inside the dwell window.
	store.UpdateLocation(route[0].Location())
	res, err = d.Step(now.Add(time.Second))
	require.NoError(t, err)
	assert.Nil(t, res.Advance)
	assert.Equal(t, 0, d.Active())

	res, err = d.Step(now.Add(16 * time.Second))
	require.NoError(t, err)
	require.NotNil(t, res.Advance)
	assert.Equal(t, 1, d.Active())
	assert.False(t, res.Advance.Wrapped)
}

func TestStepSinkError(t *testing.T) {
	store := telemetry.NewStore()
	store.UpdateHeading(90)
	store.UpdateLocation(telemetry.Location{Latitude: 53.35, Longitude: 17.65})
	d, sink := newDriver(t, store, 0)
	sink.err = errors.New("link down")

	_, err := d.Step(time.Unix(1000, 0))
	assert.ErrorIs(t, err, sink.err)
	assert.False(t, Skippable(err))
}

func TestRunStopsOnCancel(t *testing.T) {
	store := telemetry.NewStore()
	d, _ := newDriver(t, store, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "missing telemetry does not stop the loop")
}

func TestRunStopsOnSinkError(t *testing.T) {
	store := telemetry.NewStore()
	store.UpdateHeading(90)
	store.UpdateLocation(telemetry.Location{Latitude: 53.35, Longitude: 17.65})
	d, sink := newDriver(t, store, 0)
	sink.err = errors.New("link down")

	err := d.Run(context.Background())
	assert.ErrorIs(t, err, sink.err)
}

func TestNewRejects(t *testing.T) {
	store := telemetry.NewStore()

	_, err := New(testConfig(), store, nil, 0, &fakeSink{})
	assert.ErrorIs(t, err, waypoint.ErrInvalidRoute)

	_, err = New(testConfig(), store, waypoint.Default(), 6, &fakeSink{})
	assert.ErrorIs(t, err, waypoint.ErrInvalidStart)

	cfg := testConfig()
	cfg.TickPeriod = 0
	_, err = New(cfg, store, waypoint.Default(), 0, &fakeSink{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestThrottleIsComputedNotSent(t *testing.T) {
	store := telemetry.NewStore()
	store.UpdateHeading(90)
	store.UpdateLocation(telemetry.Location{Latitude: 53.35, Longitude: 17.65})
	sink := &fakeSink{}
	policy := guidance.ThrottleFunc(func(_, _ telemetry.Snapshot) float64 { return 77 })
	d, err := New(testConfig(), store, waypoint.Default(), 0, sink, WithThrottlePolicy(policy))
	require.NoError(t, err)

	res, err := d.Step(time.Unix(1000, 0))
	require.NoError(t, err)
	assert.Equal(t, 77.0, res.Guidance.Throttle)
	assert.Equal(t, []models.Move{{Roll: res.Guidance.Roll}}, sink.moves)
}
