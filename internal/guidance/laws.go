package guidance

import (
	"math"

	"github.com/Speshl/gorrc_autopilot/internal/config"
	"github.com/Speshl/gorrc_autopilot/internal/telemetry"
)

// RollLaw maps heading error to a bank command.  The output is rounded
// to whole units so that an unchanged situation yields an identical
// command, which is what lets the driver suppress repeats.
type RollLaw struct {
	Gain  float64
	Limit float64
}

func DefaultRollLaw() RollLaw {
	return RollLaw{Gain: config.DefaultRollGain, Limit: config.DefaultRollLimit}
}

// Roll returns Gain*headingError clamped to [-Limit, Limit].
func (r RollLaw) Roll(headingError float64) float64 {
	roll := clamp(math.Round(r.Gain*headingError), -r.Limit, r.Limit)
	if roll == 0 {
		roll = 0 // no negative zero on the wire
	}
	return roll
}

// Saturated reports whether roll sits on either clamp extreme.
func (r RollLaw) Saturated(roll float64) bool {
	return math.Abs(roll) >= r.Limit
}

// ThrottlePolicy produces the throttle command.  The control loop
// computes it every tick but nothing on the link consumes it yet.
type ThrottlePolicy interface {
	Throttle(self, target telemetry.Snapshot) float64
}

// ThrottleFunc adapts a plain function to ThrottlePolicy.
type ThrottleFunc func(self, target telemetry.Snapshot) float64

func (f ThrottleFunc) Throttle(self, target telemetry.Snapshot) float64 { return f(self, target) }

// AltitudeHold is a proportional altitude controller around a base
// throttle.  Target speed is always zero for waypoints, so speed
// plays no part.
type AltitudeHold struct {
	Base float64
	Gain float64
	Min  float64
	Max  float64
}

func DefaultAltitudeHold() AltitudeHold {
	return AltitudeHold{
		Base: config.DefaultThrottleBase,
		Gain: config.DefaultThrottleGain,
		Min:  config.DefaultThrottleMin,
		Max:  config.DefaultThrottleMax,
	}
}

func (a AltitudeHold) Throttle(self, target telemetry.Snapshot) float64 {
	if self.Altitude == nil || target.Altitude == nil {
		return clamp(a.Base, a.Min, a.Max)
	}
	return clamp(a.Base+a.Gain*(target.Altitude.Value-self.Altitude.Value), a.Min, a.Max)
}
