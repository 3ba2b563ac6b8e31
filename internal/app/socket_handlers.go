package app

import (
	socketio "github.com/googollee/go-socket.io"

	"github.com/Speshl/gorrc_autopilot/internal/models"
	"github.com/Speshl/gorrc_autopilot/internal/telemetry"
)

func (a *App) onAltitude(_ socketio.Conn, msg models.AltitudeMsg) {
	a.store.UpdateAltitude(msg.Altitude)
	a.metrics.TelemetryUpdate(models.EventAltitude)
}

func (a *App) onLocation(_ socketio.Conn, msg models.LocationMsg) {
	a.store.UpdateLocation(telemetry.Location{Latitude: msg.Latitude, Longitude: msg.Longitude})
	a.metrics.TelemetryUpdate(models.EventLocation)
}

func (a *App) onHeading(_ socketio.Conn, msg models.HeadingMsg) {
	a.store.UpdateHeading(msg.Heading)
	a.metrics.TelemetryUpdate(models.EventHeading)
}

func (a *App) onSpeed(_ socketio.Conn, msg models.SpeedMsg) {
	a.store.UpdateSpeed(msg.Speed)
	a.metrics.TelemetryUpdate(models.EventSpeed)
}

// onDisconnect only signals; the errgroup turns it into a fatal error.
func (a *App) onDisconnect(_ socketio.Conn, reason string) {
	select {
	case a.disconnected <- reason:
	default:
	}
}

func (a *App) onError(_ socketio.Conn, err error) {
	a.l.Warn("Link error", "error", err)
}
