package waypoint

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidStart is returned when the start index is outside the route.
var ErrInvalidStart = errors.New("start index out of range")

// Advance describes one waypoint switch.
type Advance struct {
	From int
	To   int
	At   time.Time

	// Wrapped is set when the switch went from the last waypoint back
	// to the first one.
	Wrapped bool
}

// Sequencer has a single guarded transition: when the vehicle is
// closer than the proximity threshold and more than the dwell interval
// has passed since the previous advance, it moves to the next waypoint.
// The route wraps forever.
//
// The dwell guard stops a vehicle loitering around the threshold from
// skipping several waypoints in a row.
type Sequencer struct {
	count         int
	activeIndex   int
	lastAdvanceAt time.Time
}

// NewSequencer starts at start with no previous advance, so the first
// time the vehicle is in range it advances immediately.
func NewSequencer(count, start int) (*Sequencer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: no waypoints", ErrInvalidRoute)
	}
	if start < 0 || start >= count {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidStart, start, count)
	}
	return &Sequencer{count: count, activeIndex: start}, nil
}

// Active is the index of the waypoint currently being flown to.
func (s *Sequencer) Active() int { return s.activeIndex }

// LastAdvanceAt is the zero time until the first advance.
func (s *Sequencer) LastAdvanceAt() time.Time { return s.lastAdvanceAt }

// Tick feeds the distance to the active waypoint into the sequencer.
func (s *Sequencer) Tick(distanceMeters float64, now time.Time, proximityThresholdMeters float64, minDwell time.Duration) (Advance, bool) {
	if !(distanceMeters < proximityThresholdMeters) {
		return Advance{}, false
	}
	if !s.lastAdvanceAt.IsZero() && now.Sub(s.lastAdvanceAt) <= minDwell {
		return Advance{}, false
	}

	adv := Advance{
		From: s.activeIndex,
		To:   (s.activeIndex + 1) % s.count,
		At:   now,
	}
	adv.Wrapped = adv.To == 0

	s.activeIndex = adv.To
	s.lastAdvanceAt = now
	return adv, true
}
