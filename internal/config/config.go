package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Logger is used to report env values that could not be parsed.  It
// is replaced by main once the application logger exists.
var Logger = hclog.NewNullLogger()

func GetConfig() Config {
	cfg := Config{
		ServerCfg:    GetServerConfig(),
		RouteCfg:     GetRouteConfig(),
		AutopilotCfg: GetAutopilotConfig(),
		MetricsCfg:   GetMetricsConfig(),
		LogLevel:     GetLogLevel(),
	}
	return cfg
}

// GetLogLevel reads LOG_LEVEL without the app prefix, so the level can
// be known before the rest of the config is parsed.
func GetLogLevel() string {
	envValue, found := os.LookupEnv("LOG_LEVEL")
	if !found || envValue == "" {
		return strings.ToLower(DefaultLogLevel)
	}
	return strings.ToLower(strings.Trim(envValue, "\r"))
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Target:           GetRawStringEnv("TARGET", DefaultTarget),
		SpeedEvent:       GetRawStringEnv("SPEED_EVENT", DefaultSpeedEvent),
		LegacySpeedEvent: GetRawStringEnv("LEGACY_SPEED_EVENT", DefaultLegacySpeedEvent),
		SettleDelay:      GetDurationEnv("SETTLE_DELAY", DefaultSettleDelay),
	}
}

func GetRouteConfig() RouteConfig {
	return RouteConfig{
		WaypointsFile: GetRawStringEnv("WAYPOINTS", DefaultWaypointsFile),
		StartIndex:    GetIntEnv("START_INDEX", DefaultStartIndex),
	}
}

func GetAutopilotConfig() AutopilotConfig {
	return AutopilotConfig{
		TickPeriod: GetDurationEnv("TICK_PERIOD", DefaultTickPeriod),
		Proximity:  GetFloatEnv("PROXIMITY", DefaultProximity),
		MinDwell:   GetDurationEnv("MIN_DWELL", DefaultMinDwell),

		RollGain:  GetFloatEnv("ROLL_GAIN", DefaultRollGain),
		RollLimit: GetFloatEnv("ROLL_LIMIT", DefaultRollLimit),

		ThrottleBase: GetFloatEnv("THROTTLE_BASE", DefaultThrottleBase),
		ThrottleGain: GetFloatEnv("THROTTLE_GAIN", DefaultThrottleGain),
		ThrottleMin:  GetFloatEnv("THROTTLE_MIN", DefaultThrottleMin),
		ThrottleMax:  GetFloatEnv("THROTTLE_MAX", DefaultThrottleMax),

		TargetAltitude: GetFloatEnv("TARGET_ALTITUDE", DefaultTargetAltitude),
		TargetHeading:  GetFloatEnv("TARGET_HEADING", DefaultTargetHeading),
		TargetSpeed:    GetFloatEnv("TARGET_SPEED", DefaultTargetSpeed),
	}
}

func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Bind: GetRawStringEnv("METRICS_BIND", DefaultMetricsBind),
	}
}

// ErrInvalidConfig is returned by Validate for values the control loop
// cannot run with.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the loop parameters.  Route parameters are checked
// against the loaded route by the waypoint package.
func (c AutopilotConfig) Validate() error {
	switch {
	case c.TickPeriod <= 0:
		return fmt.Errorf("%w: tick period must be positive, got %s", ErrInvalidConfig, c.TickPeriod)
	case c.MinDwell < 0:
		return fmt.Errorf("%w: min dwell must not be negative, got %s", ErrInvalidConfig, c.MinDwell)
	case !(c.Proximity > 0) || math.IsInf(c.Proximity, 0):
		return fmt.Errorf("%w: proximity must be a positive distance, got %v", ErrInvalidConfig, c.Proximity)
	case !(c.RollLimit > 0) || math.IsInf(c.RollLimit, 0):
		return fmt.Errorf("%w: roll limit must be positive, got %v", ErrInvalidConfig, c.RollLimit)
	case math.IsNaN(c.RollGain) || math.IsInf(c.RollGain, 0):
		return fmt.Errorf("%w: roll gain must be finite, got %v", ErrInvalidConfig, c.RollGain)
	case c.ThrottleMin > c.ThrottleMax:
		return fmt.Errorf("%w: throttle min %v above max %v", ErrInvalidConfig, c.ThrottleMin, c.ThrottleMax)
	}
	return nil
}

func GetIntEnv(env string, defaultValue int) int {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}
	value, err := strconv.ParseInt(strings.Trim(envValue, "\r"), 10, 32)
	if err != nil {
		Logger.Warn("env value not parsed", "env", env, "error", err)
		return defaultValue
	}
	return int(value)
}

func GetRawStringEnv(env string, defaultValue string) string {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}
	return strings.Trim(envValue, "\r")
}

func GetFloatEnv(env string, defaultValue float64) float64 {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strings.Trim(envValue, "\r"), 64)
	if err != nil {
		Logger.Warn("env value not parsed", "env", env, "error", err)
		return defaultValue
	}
	return value
}

// GetDurationEnv accepts anything time.ParseDuration does ("15s",
// "100ms").
func GetDurationEnv(env string, defaultValue time.Duration) time.Duration {
	envValue, found := os.LookupEnv(AppEnvBase + env)
	if !found {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.Trim(envValue, "\r"))
	if err != nil {
		Logger.Warn("env value not parsed", "env", env, "error", err)
		return defaultValue
	}
	return value
}
