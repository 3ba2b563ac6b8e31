// Package guidance turns a pair of telemetry snapshots, the vehicle
// and the point it is flying to, into steering and throttle commands.
//
// The computation keeps no state between calls.  Degenerate geometry
// is not special cased: when both locations coincide the bearing is 0
// and the distance is 0, and antipodal points get whatever bearing the
// great circle formula produces.  Only non-finite output is rejected.
package guidance

import (
	"errors"
	"fmt"
	"math"

	geo "github.com/kellydunn/golang-geo"

	"github.com/Speshl/gorrc_autopilot/internal/telemetry"
)

// EarthRadiusMeters is the mean radius of the sphere the geodesy is
// done on.  golang-geo uses the same radius in kilometers.
const EarthRadiusMeters = 6371000.0

var (
	// ErrMissingTelemetry is returned when a field needed for the
	// computation has not been received.
	ErrMissingTelemetry = errors.New("missing telemetry")

	// ErrNonFinite is returned when the inputs produce NaN or Inf
	// commands, usually because the link delivered garbage values.
	ErrNonFinite = errors.New("non-finite guidance result")
)

// Result is recomputed every tick.
type Result struct {
	Roll           float64
	Throttle       float64
	DistanceMeters float64

	// Bearing from self to target in [0, 360).
	Bearing float64
	// HeadingError is Bearing minus the current heading in [-180, 180].
	HeadingError float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithRollLaw replaces the default roll law.
func WithRollLaw(r RollLaw) Option { return func(e *Engine) { e.roll = r } }

// WithThrottlePolicy replaces the default altitude hold.
func WithThrottlePolicy(p ThrottlePolicy) Option { return func(e *Engine) { e.throttle = p } }

// Engine holds the control laws.  It is safe for concurrent use.
type Engine struct {
	roll     RollLaw
	throttle ThrottlePolicy
}

// New returns an engine with the default laws unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		roll:     DefaultRollLaw(),
		throttle: DefaultAltitudeHold(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Compute runs one guidance step for self flying towards target.
func (e *Engine) Compute(self, target telemetry.Snapshot) (Result, error) {
	switch {
	case self.Location == nil:
		return Result{}, fmt.Errorf("%w: self location", ErrMissingTelemetry)
	case self.Heading == nil:
		return Result{}, fmt.Errorf("%w: self heading", ErrMissingTelemetry)
	case target.Location == nil:
		return Result{}, fmt.Errorf("%w: target location", ErrMissingTelemetry)
	}

	from := self.Location.Value
	to := target.Location.Value

	bearing := Bearing(from, to)
	headingErr := HeadingError(bearing, self.Heading.Value)

	res := Result{
		Roll:           e.roll.Roll(headingErr),
		Throttle:       e.throttle.Throttle(self, target),
		DistanceMeters: Distance(from, to),
		Bearing:        bearing,
		HeadingError:   headingErr,
	}

	if !finite(res.Roll) || !finite(res.DistanceMeters) {
		return Result{}, fmt.Errorf("%w: roll=%v distance=%v", ErrNonFinite, res.Roll, res.DistanceMeters)
	}
	return res, nil
}

// Bearing is the initial great circle bearing from a to b in degrees,
// 0 being north and increasing clockwise, normalized to [0, 360).
func Bearing(a, b telemetry.Location) float64 {
	return NormalizeBearing(point(a).BearingTo(point(b)))
}

// Distance is the haversine distance between a and b in meters.
func Distance(a, b telemetry.Location) float64 {
	return point(a).GreatCircleDistance(point(b)) * 1000
}

// NormalizeBearing wraps any angle into [0, 360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		// -1e-15 + 360 rounds up to 360
		deg = 0
	}
	return deg
}

// HeadingError is the signed turn from heading to bearing, wrapped to
// [-180, 180].  Positive means the target is to the right.
func HeadingError(bearing, heading float64) float64 {
	diff := math.Mod(bearing-heading, 360)
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return diff
}

func point(l telemetry.Location) *geo.Point {
	return geo.NewPoint(l.Latitude, l.Longitude)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(value, min, max float64) float64 {
	if value > max {
		return max
	} else if value < min {
		return min
	} else {
		return value
	}
}
