// Package autopilot runs the fixed rate control loop: it flies the
// vehicle towards the active waypoint, advances along the route and
// sends roll commands over the link.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/Speshl/gorrc_autopilot/internal/config"
	"github.com/Speshl/gorrc_autopilot/internal/guidance"
	"github.com/Speshl/gorrc_autopilot/internal/metrics"
	"github.com/Speshl/gorrc_autopilot/internal/models"
	"github.com/Speshl/gorrc_autopilot/internal/telemetry"
	"github.com/Speshl/gorrc_autopilot/internal/waypoint"
)

// CommandSink is where move commands go, normally the telemetry link.
type CommandSink interface {
	Move(models.Move) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option { return func(d *Driver) { d.l = l.Named("autopilot") } }

// WithMetrics records loop activity into m.
func WithMetrics(m *metrics.Metrics) Option { return func(d *Driver) { d.m = m } }

// WithClock replaces time.Now for tick timestamps.
func WithClock(now func() time.Time) Option { return func(d *Driver) { d.now = now } }

// WithThrottlePolicy replaces the altitude hold built from config.
func WithThrottlePolicy(p guidance.ThrottlePolicy) Option {
	return func(d *Driver) { d.throttle = p }
}

// Driver owns the route state and the last emitted roll.  Step is not
// safe for concurrent use; Run calls it from a single goroutine.
type Driver struct {
	l   hclog.Logger
	m   *metrics.Metrics
	now func() time.Time

	cfg      config.AutopilotConfig
	store    *telemetry.Store
	route    []waypoint.Waypoint
	seq      *waypoint.Sequencer
	engine   *guidance.Engine
	throttle guidance.ThrottlePolicy
	sink     CommandSink
	filter   rollFilter

	degraded bool
}

// StepResult reports what one tick did.
type StepResult struct {
	// Waypoint is the index guidance was computed against.
	Waypoint int
	Guidance guidance.Result
	Advance  *waypoint.Advance
	Emitted  bool
}

// New validates the configuration and route and returns a driver
// positioned at start.
func New(cfg config.AutopilotConfig, store *telemetry.Store, route []waypoint.Waypoint, start int, sink CommandSink, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := waypoint.Validate(route); err != nil {
		return nil, err
	}
	seq, err := waypoint.NewSequencer(len(route), start)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		l:     hclog.NewNullLogger(),
		m:     metrics.New(),
		now:   time.Now,
		cfg:   cfg,
		store: store,
		route: route,
		seq:   seq,
		sink:  sink,
		throttle: guidance.AltitudeHold{
			Base: cfg.ThrottleBase,
			Gain: cfg.ThrottleGain,
			Min:  cfg.ThrottleMin,
			Max:  cfg.ThrottleMax,
		},
		filter: rollFilter{limit: cfg.RollLimit},
	}
	for _, o := range opts {
		o(d)
	}

	d.engine = guidance.New(
		guidance.WithRollLaw(guidance.RollLaw{Gain: cfg.RollGain, Limit: cfg.RollLimit}),
		guidance.WithThrottlePolicy(d.throttle),
	)
	d.m.ActiveWaypoint(seq.Active())
	return d, nil
}

// Active is the index of the waypoint being flown to.
func (d *Driver) Active() int { return d.seq.Active() }

// Waypoints is the length of the route.
func (d *Driver) Waypoints() int { return len(d.route) }

// Run ticks until ctx is cancelled or the sink fails.  Ticks where
// guidance could not be computed are skipped, not fatal.
func (d *Driver) Run(ctx context.Context) error {
	d.l.Info("Starting control loop", "tick", d.cfg.TickPeriod, "waypoints", len(d.route), "start", d.seq.Active())

	ticker := time.NewTicker(d.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		if _, err := d.Step(d.now()); err != nil && !Skippable(err) {
			return fmt.Errorf("control loop stopped: %w", err)
		}

		select {
		case <-ctx.Done():
			d.l.Info("Stopping control loop", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Skippable reports whether a Step error only costs the current tick.
func Skippable(err error) bool {
	return errors.Is(err, guidance.ErrMissingTelemetry) || errors.Is(err, guidance.ErrNonFinite)
}

// Step runs one tick at now.
func (d *Driver) Step(now time.Time) (StepResult, error) {
	res := StepResult{Waypoint: d.seq.Active()}

	g, err := d.engine.Compute(d.store.Snapshot(), d.target(now))
	if err != nil {
		d.skip(err)
		return res, err
	}
	if d.degraded {
		d.l.Info("Guidance recovered")
		d.degraded = false
	}
	res.Guidance = g
	d.m.Guidance(g.Roll, g.Throttle, g.DistanceMeters, g.Bearing)
	d.l.Trace("Guidance", "waypoint", res.Waypoint, "roll", g.Roll, "throttle", g.Throttle, "distance", g.DistanceMeters, "bearing", g.Bearing)

	if adv, ok := d.seq.Tick(g.DistanceMeters, now, d.cfg.Proximity, d.cfg.MinDwell); ok {
		res.Advance = &adv
		d.m.Advanced(adv.Wrapped)
		d.m.ActiveWaypoint(adv.To)
		d.l.Info("Waypoint reached", "reached", adv.From, "next", adv.To, "distance", g.DistanceMeters)
		if adv.Wrapped {
			d.l.Info("That was last waypoint, starting from first waypoint")
		}
	}

	res.Emitted = d.filter.ShouldEmit(g.Roll)
	d.m.Command(res.Emitted)
	if res.Emitted {
		if err := d.sink.Move(models.Move{Roll: g.Roll}); err != nil {
			return res, fmt.Errorf("failed sending move: %w", err)
		}
	}
	return res, nil
}

// target synthesizes the snapshot of the active waypoint.
func (d *Driver) target(now time.Time) telemetry.Snapshot {
	wp := d.route[d.seq.Active()]
	return telemetry.Snapshot{
		Altitude: &telemetry.Reading[float64]{Value: d.cfg.TargetAltitude, ReceivedAt: now},
		Location: &telemetry.Reading[telemetry.Location]{Value: wp.Location(), ReceivedAt: now},
		Heading:  &telemetry.Reading[float64]{Value: d.cfg.TargetHeading, ReceivedAt: now},
		Speed:    &telemetry.Reading[float64]{Value: d.cfg.TargetSpeed, ReceivedAt: now},
	}
}

// skip warns once when guidance starts failing and stays quiet at
// 10Hz until it recovers.
func (d *Driver) skip(err error) {
	reason := "non_finite"
	if errors.Is(err, guidance.ErrMissingTelemetry) {
		reason = "missing_telemetry"
	}
	d.m.Skipped(reason)

	if !d.degraded {
		d.l.Warn("Skipping guidance, keeping previous roll", "error", err)
		d.degraded = true
		return
	}
	d.l.Debug("Skipping guidance", "error", err)
}
