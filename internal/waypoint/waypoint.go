// Package waypoint loads the route the autopilot flies and tracks
// which point of it is active.
package waypoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/Speshl/gorrc_autopilot/internal/telemetry"
)

// ErrInvalidRoute is returned for routes that cannot be flown.
var ErrInvalidRoute = errors.New("invalid route")

// Waypoint is immutable once loaded.
type Waypoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location converts the waypoint for the guidance engine.
func (w Waypoint) Location() telemetry.Location {
	return telemetry.Location{Latitude: w.Latitude, Longitude: w.Longitude}
}

// Default is the built-in loop flown when no waypoint file is given.
func Default() []Waypoint {
	return []Waypoint{
		{Latitude: 53.35562, Longitude: 17.6591},
		{Latitude: 53.3619, Longitude: 17.64755},
		{Latitude: 53.35738, Longitude: 17.62547},
		{Latitude: 53.33989, Longitude: 17.61825},
		{Latitude: 53.33252, Longitude: 17.64618},
		{Latitude: 53.34049, Longitude: 17.65853},
	}
}

// Load reads a JSON array of {latitude, longitude} objects and
// validates it.  An empty path returns the default route.
func Load(path string) ([]Waypoint, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading waypoints file: %w", err)
	}

	var route []Waypoint
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidRoute, path, err)
	}

	if err := Validate(route); err != nil {
		return nil, err
	}
	return route, nil
}

// Validate rejects empty routes and coordinates that would turn into
// NaN commands mid flight.
func Validate(route []Waypoint) error {
	if len(route) == 0 {
		return fmt.Errorf("%w: no waypoints", ErrInvalidRoute)
	}
	for i, w := range route {
		if math.IsNaN(w.Latitude) || w.Latitude < -90 || w.Latitude > 90 {
			return fmt.Errorf("%w: waypoint %d latitude %v out of range", ErrInvalidRoute, i, w.Latitude)
		}
		if math.IsNaN(w.Longitude) || w.Longitude < -180 || w.Longitude > 180 {
			return fmt.Errorf("%w: waypoint %d longitude %v out of range", ErrInvalidRoute, i, w.Longitude)
		}
	}
	return nil
}
