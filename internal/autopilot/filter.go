package autopilot

import "math"

// rollFilter drops repeated roll commands.  A saturated roll is always
// sent.
type rollFilter struct {
	limit float64

	last float64
	seen bool
}

// ShouldEmit records roll as the last one and reports whether it has
// to be sent.
func (f *rollFilter) ShouldEmit(roll float64) bool {
	emit := !f.seen || roll != f.last || math.Abs(roll) >= f.limit
	f.last = roll
	f.seen = true
	return emit
}
