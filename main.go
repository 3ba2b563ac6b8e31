package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	socketio "github.com/googollee/go-socket.io"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/Speshl/gorrc_autopilot/internal/app"
	"github.com/Speshl/gorrc_autopilot/internal/config"
	"github.com/Speshl/gorrc_autopilot/internal/waypoint"
)

var (
	rootCmd = &cobra.Command{
		Use:   "gorrc_autopilot [target]",
		Short: "Fly a vehicle around a waypoint loop over its telemetry link",
		Long:  rootCmdLongDocs,
		Args:  cobra.MaximumNArgs(1),
		RunE:  rootCmdRun,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmdLongDocs = `Connects to the socket.io telemetry link at target, listens for altitude, location, heading and speed, and steers towards each waypoint of the route in turn by sending move commands with a roll value.  The target may also be given as AUTOPILOT_TARGET.`

	errNoTarget = errors.New("no target given")

	// Flag values only override the env config when set.
	flagCfg config.Config
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagCfg.RouteCfg.WaypointsFile, "waypoints", config.DefaultWaypointsFile, "JSON file with the route, the built-in loop is flown when empty")
	f.IntVar(&flagCfg.RouteCfg.StartIndex, "start-index", config.DefaultStartIndex, "Index of the first waypoint to fly to")
	f.Float64Var(&flagCfg.AutopilotCfg.Proximity, "proximity", config.DefaultProximity, "Distance in meters at which a waypoint counts as reached")
	f.DurationVar(&flagCfg.AutopilotCfg.MinDwell, "dwell", config.DefaultMinDwell, "Minimum time between two waypoint advances")
	f.DurationVar(&flagCfg.ServerCfg.SettleDelay, "settle", config.DefaultSettleDelay, "Time to let telemetry arrive before steering")
	f.DurationVar(&flagCfg.AutopilotCfg.TickPeriod, "tick", config.DefaultTickPeriod, "Control loop period")
	f.StringVar(&flagCfg.MetricsCfg.Bind, "metrics-bind", config.DefaultMetricsBind, "Address to serve /metrics on, disabled when empty")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func rootCmdRun(c *cobra.Command, args []string) error {
	appLogger := hclog.New(&hclog.LoggerOptions{
		Name:  "autopilot",
		Level: hclog.LevelFromString(config.GetLogLevel()),
	})

	cfg := loadConfig(c, appLogger)
	if len(args) == 1 {
		cfg.ServerCfg.Target = args[0]
	}
	if cfg.ServerCfg.Target == "" {
		return errNoTarget
	}
	appLogger.Debug("Config", "config", fmt.Sprintf("%+v", cfg))

	route, err := waypoint.Load(cfg.RouteCfg.WaypointsFile)
	if err != nil {
		appLogger.Error("Error loading waypoints", "error", err)
		return err
	}

	client, err := socketio.NewClient(socketURI(cfg.ServerCfg.Target), nil)
	if err != nil {
		return fmt.Errorf("error creating client: %w", err)
	}

	a, err := app.NewApp(cfg, client, route, appLogger)
	if err != nil {
		appLogger.Error("Error during startup", "error", err)
		return err
	}

	a.RegisterHandlers()

	if err := a.Start(); err != nil {
		appLogger.Error("Autopilot shutdown with error", "error", err)
		return err
	}
	appLogger.Info("Autopilot shutdown successfully")
	return nil
}

// loadConfig reads the env config, reporting bad values through l, and
// applies the flags given on the command line on top of it.
func loadConfig(c *cobra.Command, l hclog.Logger) config.Config {
	config.Logger = l.Named("config")
	cfg := config.GetConfig()

	f := c.Flags()
	if f.Changed("waypoints") {
		cfg.RouteCfg.WaypointsFile = flagCfg.RouteCfg.WaypointsFile
	}
	if f.Changed("start-index") {
		cfg.RouteCfg.StartIndex = flagCfg.RouteCfg.StartIndex
	}
	if f.Changed("proximity") {
		cfg.AutopilotCfg.Proximity = flagCfg.AutopilotCfg.Proximity
	}
	if f.Changed("dwell") {
		cfg.AutopilotCfg.MinDwell = flagCfg.AutopilotCfg.MinDwell
	}
	if f.Changed("settle") {
		cfg.ServerCfg.SettleDelay = flagCfg.ServerCfg.SettleDelay
	}
	if f.Changed("tick") {
		cfg.AutopilotCfg.TickPeriod = flagCfg.AutopilotCfg.TickPeriod
	}
	if f.Changed("metrics-bind") {
		cfg.MetricsCfg.Bind = flagCfg.MetricsCfg.Bind
	}
	return cfg
}

// socketURI accepts bare host:port targets like the rest of the fleet
// tooling does.
func socketURI(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return "http://" + target
}
