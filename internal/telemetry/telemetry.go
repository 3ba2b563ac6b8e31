// Package telemetry keeps the latest value received for each field
// of a vehicle's telemetry stream.
package telemetry

import (
	"sync"
	"time"
)

// Reading is a value together with the time it was received.
type Reading[T any] struct {
	Value      T
	ReceivedAt time.Time
}

// Location is a position in decimal degrees.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Snapshot is a copy of every field seen so far.  A nil field has not
// been received yet, which is not the same thing as a zero reading.
type Snapshot struct {
	Altitude *Reading[float64]
	Location *Reading[Location]
	Heading  *Reading[float64]
	Speed    *Reading[float64]
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of receive timestamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// Store holds the most recent snapshot for one entity.  Updates come
// from transport goroutines while the control loop reads, so every
// access goes through a single lock.
type Store struct {
	lock sync.RWMutex
	now  func() time.Time

	current Snapshot
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) UpdateAltitude(altitude float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.Altitude = stamp(s.current.Altitude, altitude, s.now())
}

func (s *Store) UpdateLocation(loc Location) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.Location = stamp(s.current.Location, loc, s.now())
}

func (s *Store) UpdateHeading(heading float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.Heading = stamp(s.current.Heading, heading, s.now())
}

func (s *Store) UpdateSpeed(speed float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current.Speed = stamp(s.current.Speed, speed, s.now())
}

// Snapshot returns a copy that later updates do not touch.
func (s *Store) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return Snapshot{
		Altitude: clone(s.current.Altitude),
		Location: clone(s.current.Location),
		Heading:  clone(s.current.Heading),
		Speed:    clone(s.current.Speed),
	}
}

func (s *Store) Altitude() (Reading[float64], bool) {
	return read(s, func(c Snapshot) *Reading[float64] { return c.Altitude })
}

func (s *Store) Location() (Reading[Location], bool) {
	return read(s, func(c Snapshot) *Reading[Location] { return c.Location })
}

func (s *Store) Heading() (Reading[float64], bool) {
	return read(s, func(c Snapshot) *Reading[float64] { return c.Heading })
}

func (s *Store) Speed() (Reading[float64], bool) {
	return read(s, func(c Snapshot) *Reading[float64] { return c.Speed })
}

// stamp builds the replacement reading.  ReceivedAt must strictly
// increase per field, so a clock that did not move forward is bumped
// by one nanosecond past the previous reading.
func stamp[T any](prev *Reading[T], value T, now time.Time) *Reading[T] {
	if prev != nil && !now.After(prev.ReceivedAt) {
		now = prev.ReceivedAt.Add(time.Nanosecond)
	}
	return &Reading[T]{Value: value, ReceivedAt: now}
}

func clone[T any](r *Reading[T]) *Reading[T] {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func read[T any](s *Store, field func(Snapshot) *Reading[T]) (Reading[T], bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	r := field(s.current)
	if r == nil {
		return Reading[T]{}, false
	}
	return *r, true
}
