package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/sarchlab/greenstep/config"
	"github.com/sarchlab/greenstep/examples"
	"github.com/sarchlab/greenstep/faults"
	"github.com/sarchlab/greenstep/render"
	"github.com/sarchlab/greenstep/sim"
	"github.com/sarchlab/greenstep/simulation"
	"github.com/sarchlab/greenstep/tracing"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <demo>",
	Short: "Run a bundled demo.",
	Long: "`run <demo>` runs a demo until it is interrupted or until the " +
		"number of cycles given with --cycles has been stepped. Use `list` " +
		"to see the demos.",
	Args: cobra.ExactArgs(1),
	RunE: runDemo,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(c *cobra.Command) {
	f := c.Flags()
	f.String("config", "", "YAML config file, reloaded when it changes")
	f.Int("speed", sim.DefaultSpeed, "simulation speed in [0, 100]")
	f.Duration("delay", 0, "delay between cycle starts, overrides --speed")
	f.Bool("paused", false, "start paused")
	f.Int("monitor-port", 0, "port of the monitoring server")
	f.Bool("no-monitor", false, "do not start the monitoring server")
	f.Bool("open-browser", false, "open the monitoring page in a browser")
	f.Bool("record", false, "record cycles into a SQLite database")
	f.String("output", "", "name of the recording database, implies --record")
	f.Uint64("record-from", 0, "first recorded cycle, implies --record")
	f.Uint64("record-to", 0, "last recorded cycle, 0 records to the end, implies --record")
	f.Uint64("cycles", 0, "stop after this many cycles, 0 runs until interrupted")
	f.Int64("seed", 0, "seed used to populate the demo world")
	f.Duration("log-rate", 0, "log the cycle rate at this interval")
	f.Bool("no-render", false, "do not draw the world")
}

func runDemo(cmd *cobra.Command, args []string) error {
	demo, err := examples.Lookup(args[0])
	if err != nil {
		return err
	}

	if err = config.LoadDotEnv(); err != nil {
		return err
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(),
		&slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, watcher, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}

	if watcher != nil {
		defer watcher.Stop()
	}

	level.Set(cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Statsview.Addr != "" {
		stopStatsview := startStatsview(cfg.Statsview.Addr)
		defer stopStatsview()
	}

	target, canvas := renderTarget(cmd)

	builder, err := simulationBuilder(cfg, logger, target)
	if err != nil {
		return err
	}

	cycles, _ := cmd.Flags().GetUint64("cycles")

	s, err := builder.WithCycleLimit(cycles).Build()
	if err != nil {
		return err
	}

	defer func() {
		if err := s.Terminate(); err != nil {
			logger.Error("failed to terminate simulation", "error", err)
		}
	}()

	if canvas != nil {
		canvas.Attach(s.Scheduler())

		go func() {
			if err := canvas.Run(ctx); err != nil {
				logger.Error("render failed", "error", err)
			}
		}()
	}

	if interval, _ := cmd.Flags().GetDuration("log-rate"); interval > 0 {
		go s.RateTracer().LogEvery(ctx, logger, interval)
	}

	if watcher != nil {
		watcher.OnChange(func(oldCfg, newCfg *config.Config) {
			level.Set(newCfg.SlogLevel())
			applyChange(s.Scheduler(), oldCfg, newCfg)
		})

		if err := watcher.Start(); err != nil {
			return err
		}
	}

	seed, _ := cmd.Flags().GetInt64("seed")
	s.InstallWorld(demo.New(seed))
	s.Scheduler().SetPaused(cfg.StartPaused)

	logger.Info("demo started",
		"demo", demo.Name,
		"simulation", s.ID(),
		"speed", s.Scheduler().Speed())

	select {
	case <-ctx.Done():
	case <-s.Done():
	}

	cancel()
	s.Scheduler().SetPaused(true)

	events := s.EventCountTracer()
	logger.Info("demo finished",
		"demo", demo.Name,
		"cycles", s.Scheduler().Cycle(),
		"average_cycle_time", s.CycleTimeTracer().AverageTime(),
		"faults", events.GetEventCount(tracing.EventFault),
		"stops", events.GetEventCount(tracing.EventStopped))

	return nil
}

// loadConfig reads the configuration and overlays the flags the user set. A
// watcher is returned when a config file is used.
func loadConfig(
	cmd *cobra.Command,
	logger *slog.Logger,
) (*config.Config, *config.Watcher, error) {
	var (
		cfg     *config.Config
		watcher *config.Watcher
		err     error
	)

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		watcher, err = config.NewWatcher(path, logger)
		if err != nil {
			return nil, nil, err
		}

		loaded := *watcher.Config()
		cfg = &loaded
	} else {
		cfg, err = config.Load("")
		if err != nil {
			return nil, nil, err
		}
	}

	applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		if watcher != nil {
			watcher.Stop()
		}

		return nil, nil, err
	}

	return cfg, watcher, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("speed") {
		cfg.Speed, _ = flags.GetInt("speed")
	}

	if flags.Changed("delay") {
		delay, _ := flags.GetDuration("delay")
		cfg.Delay = &delay
	}

	if flags.Changed("paused") {
		cfg.StartPaused, _ = flags.GetBool("paused")
	}

	if flags.Changed("monitor-port") {
		cfg.Monitor.Port, _ = flags.GetInt("monitor-port")
	}

	if flags.Changed("no-monitor") {
		off, _ := flags.GetBool("no-monitor")
		cfg.Monitor.Enabled = !off
	}

	if flags.Changed("open-browser") {
		cfg.Monitor.OpenBrowser, _ = flags.GetBool("open-browser")
	}

	if flags.Changed("record") {
		cfg.Recording.Enabled, _ = flags.GetBool("record")
	}

	if flags.Changed("output") {
		cfg.Recording.Output, _ = flags.GetString("output")
		cfg.Recording.Enabled = true
	}

	if flags.Changed("record-from") {
		cfg.Recording.StartCycle, _ = flags.GetUint64("record-from")
		cfg.Recording.Enabled = true
	}

	if flags.Changed("record-to") {
		cfg.Recording.EndCycle, _ = flags.GetUint64("record-to")
		cfg.Recording.Enabled = true
	}
}

func simulationBuilder(
	cfg *config.Config,
	logger *slog.Logger,
	target sim.RenderTarget,
) (simulation.Builder, error) {
	b := simulation.MakeBuilder().
		WithLogger(logger).
		WithRenderTarget(target).
		WithSpeed(cfg.Speed)

	if cfg.Delay != nil {
		b = b.WithDelay(*cfg.Delay)
	}

	if cfg.Monitor.Enabled {
		b = b.WithMonitorPort(cfg.Monitor.Port)
		if cfg.Monitor.OpenBrowser {
			b = b.WithBrowser()
		}
	} else {
		b = b.WithoutMonitoring()
	}

	if cfg.Recording.Enabled {
		b = b.WithOutputFileName(cfg.Recording.Output).
			WithCycleRange(cfg.Recording.StartCycle, cfg.Recording.EndCycle)
	} else {
		b = b.WithoutRecording()
	}

	if cfg.Sentry.DSN != "" {
		hub, err := faults.InitSentry(cfg.Sentry.DSN, version)
		if err != nil {
			return b, err
		}

		b = b.WithFaultReporter(faults.NewSentryReporter(hub))
	}

	return b, nil
}

func renderTarget(cmd *cobra.Command) (sim.RenderTarget, *render.TextCanvas) {
	if off, _ := cmd.Flags().GetBool("no-render"); off {
		return &render.Headless{}, nil
	}

	canvas := render.NewTextCanvas(cmd.OutOrStdout()).WithClearScreen()

	return canvas, canvas
}

func startStatsview(addr string) func() {
	viewer.SetConfiguration(viewer.WithAddr(addr))

	mgr := statsview.New()
	go mgr.Start()

	return func() { mgr.Stop() }
}

// tunable is the part of the scheduler a config reload can change.
type tunable interface {
	SetSpeed(speed int)
	SetDelay(delay time.Duration)
	SetPaused(paused bool)
}

// applyChange pushes the settings that differ between two configurations to
// a running scheduler.
func applyChange(s tunable, oldCfg, newCfg *config.Config) {
	if newCfg.Speed != oldCfg.Speed {
		s.SetSpeed(newCfg.Speed)
	}

	if newCfg.Delay != nil &&
		(oldCfg.Delay == nil || *newCfg.Delay != *oldCfg.Delay) {
		s.SetDelay(*newCfg.Delay)
	}

	if newCfg.StartPaused != oldCfg.StartPaused {
		s.SetPaused(newCfg.StartPaused)
	}
}
