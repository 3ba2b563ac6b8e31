package config

import "time"

const (
	AppEnvBase = "AUTOPILOT_"

	DefaultTarget        = ""
	DefaultWaypointsFile = ""
	DefaultMetricsBind   = ""
	DefaultLogLevel      = "INFO"

	// Sequencing
	DefaultStartIndex = 0
	DefaultProximity  = 50.0 //meters, some routes fly with 125
	DefaultMinDwell   = 15 * time.Second

	// Loop timing
	DefaultSettleDelay = 15 * time.Second
	DefaultTickPeriod  = 100 * time.Millisecond

	// Roll law
	DefaultRollGain  = 1.0
	DefaultRollLimit = 50.0

	// Throttle policy, computed but never sent
	DefaultThrottleBase = 50.0
	DefaultThrottleGain = 0.5
	DefaultThrottleMin  = 0.0
	DefaultThrottleMax  = 100.0

	// Synthetic target
	DefaultTargetAltitude = 100.0
	DefaultTargetHeading  = 0.0
	DefaultTargetSpeed    = 0.0

	// Transport event names
	DefaultSpeedEvent       = "speed"
	DefaultLegacySpeedEvent = "speed "
)

type Config struct {
	ServerCfg    ServerConfig
	RouteCfg     RouteConfig
	AutopilotCfg AutopilotConfig
	MetricsCfg   MetricsConfig
	LogLevel     string
}

type ServerConfig struct {
	Target           string
	SpeedEvent       string
	LegacySpeedEvent string
	SettleDelay      time.Duration
}

type RouteConfig struct {
	WaypointsFile string
	StartIndex    int
}

type AutopilotConfig struct {
	TickPeriod time.Duration
	Proximity  float64
	MinDwell   time.Duration

	RollGain  float64
	RollLimit float64

	ThrottleBase float64
	ThrottleGain float64
	ThrottleMin  float64
	ThrottleMax  float64

	TargetAltitude float64
	TargetHeading  float64
	TargetSpeed    float64
}

type MetricsConfig struct {
	Bind string
}
