package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/Speshl/gorrc_autopilot/internal/autopilot"
	"github.com/Speshl/gorrc_autopilot/internal/config"
	"github.com/Speshl/gorrc_autopilot/internal/metrics"
	"github.com/Speshl/gorrc_autopilot/internal/models"
	"github.com/Speshl/gorrc_autopilot/internal/telemetry"
	"github.com/Speshl/gorrc_autopilot/internal/waypoint"
)

// ErrTransportDisconnected is fatal, there is no reconnect.
var ErrTransportDisconnected = errors.New("transport disconnected")

type App struct {
	ctx       context.Context
	ctxCancel context.CancelFunc

	l hclog.Logger

	link Link
	Cfg  config.Config

	store   *telemetry.Store
	driver  *autopilot.Driver
	metrics *metrics.Metrics

	runID        string
	disconnected chan string
	newBackOff   func() backoff.BackOff
}

// NewApp wires the telemetry store, the control loop and the metrics
// around link.  Route and config problems are reported here, before
// anything is connected.
func NewApp(cfg config.Config, link Link, route []waypoint.Waypoint, l hclog.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	runID := uuid.New().String()
	l = l.With("run", runID)

	a := &App{
		runID:        runID,
		ctx:          ctx,
		ctxCancel:    cancel,
		l:            l,
		link:         link,
		Cfg:          cfg,
		store:        telemetry.NewStore(),
		metrics:      metrics.New(metrics.WithLogger(l)),
		disconnected: make(chan string, 1),
		newBackOff:   defaultBackOff,
	}

	driver, err := autopilot.New(cfg.AutopilotCfg, a.store, route, cfg.RouteCfg.StartIndex, linkSink{link: link},
		autopilot.WithLogger(l),
		autopilot.WithMetrics(a.metrics),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error creating autopilot: %w", err)
	}
	a.driver = driver
	return a, nil
}

// RegisterHandlers attaches the telemetry handlers.  The socket.io
// client only dispatches events to handlers that exist when it
// connects, so this runs before Start.
func (a *App) RegisterHandlers() {
	a.link.OnEvent(models.EventAltitude, a.onAltitude)
	a.link.OnEvent(models.EventLocation, a.onLocation)
	a.link.OnEvent(models.EventHeading, a.onHeading)

	speedEvents := []string{a.Cfg.ServerCfg.SpeedEvent}
	if legacy := a.Cfg.ServerCfg.LegacySpeedEvent; legacy != "" && legacy != a.Cfg.ServerCfg.SpeedEvent {
		speedEvents = append(speedEvents, legacy)
	}
	for _, ev := range speedEvents {
		a.link.OnEvent(ev, a.onSpeed)
	}

	a.link.OnDisconnect(a.onDisconnect)
	a.link.OnError(a.onError)
	a.l.Info("Events attached", "speed_events", speedEvents)
}

// RunID identifies this run in every log line.
func (a *App) RunID() string { return a.runID }

// Start connects, waits for telemetry to settle and then flies the
// route until the link drops, a signal arrives or the loop fails.
func (a *App) Start() error {
	group, groupCtx := errgroup.WithContext(a.ctx)

	//kill listener, up before connect so a signal also ends the wait for the link
	group.Go(func() error {
		signalChannel := make(chan os.Signal, 1)
		signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signalChannel)
		select {
		case sig := <-signalChannel:
			a.l.Info("Received signal", "signal", sig)
			a.ctxCancel()
			return nil
		case <-groupCtx.Done():
			return groupCtx.Err()
		}
	})

	a.l.Info("Connecting", "target", a.Cfg.ServerCfg.Target)
	if err := a.connect(groupCtx); err != nil {
		a.ctxCancel()
		group.Wait()
		if errors.Is(err, context.Canceled) {
			a.l.Info("Context was cancelled before the link came up")
			return nil
		}
		return err
	}
	a.l.Info("Link connected")

	defer func() {
		a.l.Info("Closing link")
		a.link.Close()
	}()

	//disconnect watcher
	group.Go(func() error {
		select {
		case reason := <-a.disconnected:
			a.l.Error("Connection lost, aborting", "reason", reason)
			return fmt.Errorf("%w: %s", ErrTransportDisconnected, reason)
		case <-groupCtx.Done():
			return groupCtx.Err()
		}
	})

	if bind := a.Cfg.MetricsCfg.Bind; bind != "" {
		group.Go(func() error {
			return a.metrics.Serve(groupCtx, bind)
		})
	}

	group.Go(func() error {
		a.l.Info("Waiting for telemetry to settle", "delay", a.Cfg.ServerCfg.SettleDelay)
		settle := time.NewTimer(a.Cfg.ServerCfg.SettleDelay)
		defer settle.Stop()
		select {
		case <-groupCtx.Done():
			return groupCtx.Err()
		case <-settle.C:
		}
		a.l.Info("Starting..", "target", a.Cfg.ServerCfg.Target, "waypoints", a.driver.Waypoints(), "start", a.driver.Active())
		return a.driver.Run(groupCtx)
	})

	err := group.Wait()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.l.Info("Context was cancelled")
			return nil
		}
		return fmt.Errorf("autopilot stopping due to error: %w", err)
	}
	return nil
}

// Stop cancels everything Start is running.
func (a *App) Stop() {
	a.ctxCancel()
}
