// Package metrics exposes what the control loop is doing to
// Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autopilot"

// Option changes features on the metrics instance.
type Option func(*Metrics)

// WithLogger sets the logger used by the builtin webserver.
func WithLogger(l hclog.Logger) Option { return func(m *Metrics) { m.l = l.Named("metrics") } }

// Metrics holds the registry and every collector the autopilot writes.
type Metrics struct {
	l hclog.Logger
	r *prometheus.Registry

	roll       prometheus.Gauge
	throttle   prometheus.Gauge
	distance   prometheus.Gauge
	bearing    prometheus.Gauge
	activeWP   prometheus.Gauge
	advances   prometheus.Counter
	wraps      prometheus.Counter
	emitted    prometheus.Counter
	suppressed prometheus.Counter
	skipped    *prometheus.CounterVec
	updates    *prometheus.CounterVec
	link       *linkCollector
}

// New returns an initialized instance of the metrics system.
func New(opts ...Option) *Metrics {
	m := &Metrics{
		l: hclog.NewNullLogger(),
		r: prometheus.NewRegistry(),

		roll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guidance",
			Name:      "roll",
			Help:      "Last roll command computed.",
		}),
		throttle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guidance",
			Name:      "throttle",
			Help:      "Last throttle computed.  Not sent to the vehicle.",
		}),
		distance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guidance",
			Name:      "distance_meters",
			Help:      "Great circle distance to the active waypoint.",
		}),
		bearing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "guidance",
			Name:      "bearing_degrees",
			Help:      "Bearing to the active waypoint.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guidance",
			Name:      "skipped_total",
			Help:      "Ticks where no guidance could be computed.",
		}, []string{"reason"}),

		activeWP: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "route",
			Name:      "active_waypoint",
			Help:      "Index of the waypoint being flown to.",
		}),
		advances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route",
			Name:      "advances_total",
			Help:      "Waypoints reached.",
		}),
		wraps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "route",
			Name:      "wraps_total",
			Help:      "Times the route started over from the first waypoint.",
		}),

		emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "emitted_total",
			Help:      "Move commands sent.",
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "suppressed_total",
			Help:      "Move commands not sent because the roll did not change.",
		}),

		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "updates_total",
			Help:      "Telemetry events received per field.",
		}, []string{"field"}),

		link: newLinkCollector(),
	}

	m.r.MustRegister(m.roll)
	m.r.MustRegister(m.throttle)
	m.r.MustRegister(m.distance)
	m.r.MustRegister(m.bearing)
	m.r.MustRegister(m.skipped)
	m.r.MustRegister(m.activeWP)
	m.r.MustRegister(m.advances)
	m.r.MustRegister(m.wraps)
	m.r.MustRegister(m.emitted)
	m.r.MustRegister(m.suppressed)
	m.r.MustRegister(m.updates)
	m.r.MustRegister(m.link)
	m.r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}))

	for _, o := range opts {
		o(m)
	}
	m.link.l = m.l
	return m
}

// Registry provides access to the registry that this instance
// manages.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.r
}

// Guidance records one successful guidance step.
func (m *Metrics) Guidance(roll, throttle, distance, bearing float64) {
	m.roll.Set(roll)
	m.throttle.Set(throttle)
	m.distance.Set(distance)
	m.bearing.Set(bearing)
}

// Skipped counts a tick without guidance.
func (m *Metrics) Skipped(reason string) { m.skipped.WithLabelValues(reason).Inc() }

// ActiveWaypoint sets the index gauge.
func (m *Metrics) ActiveWaypoint(idx int) { m.activeWP.Set(float64(idx)) }

// Advanced counts a waypoint switch.
func (m *Metrics) Advanced(wrapped bool) {
	m.advances.Inc()
	if wrapped {
		m.wraps.Inc()
	}
}

// Command counts a tick's command as either sent or suppressed.
func (m *Metrics) Command(emitted bool) {
	if emitted {
		m.emitted.Inc()
		return
	}
	m.suppressed.Inc()
}

// TelemetryUpdate counts an inbound telemetry event.
func (m *Metrics) TelemetryUpdate(field string) { m.updates.WithLabelValues(field).Inc() }

// Serve runs the metrics webserver until ctx is done.
func (m *Metrics) Serve(ctx context.Context, bind string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.r, promhttp.HandlerOpts{Registry: m.r}))
	s := &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			m.l.Warn("Error shutting down metrics server", "error", err)
		}
	}()

	m.l.Info("Serving metrics", "bind", bind)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
