package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	socketio "github.com/googollee/go-socket.io"

	"github.com/Speshl/gorrc_autopilot/internal/models"
)

// Link is the part of the socket.io client the app uses.
// *socketio.Client satisfies it.
type Link interface {
	OnEvent(event string, f interface{})
	OnDisconnect(f func(socketio.Conn, string))
	OnError(f func(socketio.Conn, error))
	Connect() error
	Emit(event string, args ...interface{})
	Close() error
}

// linkSink sends autopilot commands down the link.
type linkSink struct {
	link Link
}

func (s linkSink) Move(m models.Move) error {
	s.link.Emit(models.EventMove, m)
	return nil
}

// defaultBackOff retries forever: there is no timeout on waiting for
// the link to come up.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// connect dials the link, retrying until it succeeds or ctx is done.
func (a *App) connect(ctx context.Context) error {
	attempt := 0
	op := func() error {
		attempt++
		return a.link.Connect() //Client must have atleast 1 event handler to work
	}
	notify := func(err error, next time.Duration) {
		a.l.Warn("Error connecting to link, retrying", "attempt", attempt, "next", next, "error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(a.newBackOff(), ctx), notify); err != nil {
		return fmt.Errorf("error connecting to %s: %w", a.Cfg.ServerCfg.Target, err)
	}
	return nil
}
