package models

// Events received from the telemetry link.
const (
	EventAltitude = "altitude"
	EventLocation = "location"
	EventHeading  = "heading"
	EventSpeed    = "speed"

	// EventMove is the only command the autopilot sends.
	EventMove = "move"
)

type AltitudeMsg struct {
	Altitude float64 `json:"altitude"`
}

type LocationMsg struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type HeadingMsg struct {
	Heading float64 `json:"heading"`
}

type SpeedMsg struct {
	Speed float64 `json:"speed"`
}

// Move is the steering command.  Roll is already clamped to the roll
// limit of the guidance law.
type Move struct {
	Roll float64 `json:"roll"`
}
