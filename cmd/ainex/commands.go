package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-ainex/internal/config"
	"github.com/teslashibe/go-ainex/internal/log"
	"github.com/teslashibe/go-ainex/internal/pidfile"
	"github.com/teslashibe/go-ainex/pkg/ainex"
)

// options are the command-line overrides applied on top of the config file.
type options struct {
	configPath string
	noSim      bool
	noMotion   bool
	noROS      bool
	logLevel   string
	webPort    string
	stop       bool
}

func (o options) apply(cfg *config.Config) {
	if o.noSim {
		cfg.Simulation = false
	}
	if o.noMotion || o.noROS {
		cfg.Motion.Enabled = false
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.webPort != "" {
		cfg.Web.Enabled = true
		cfg.Web.Port = o.webPort
	}
}

type runFunc func(ctx context.Context, cfg config.Config, out io.Writer) error

func newRootCmd(run runFunc) *cobra.Command {
	var opts options

	load := func() (config.Config, error) {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		opts.apply(&cfg)
		return cfg, nil
	}

	start := func(cmd *cobra.Command, args []string) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		if opts.stop {
			return stopRunning(cfg, cmd.OutOrStdout())
		}
		return run(cmd.Context(), cfg, cmd.OutOrStdout())
	}

	root := &cobra.Command{
		Use:           "ainex",
		Short:         "Voice interface for the AiNex humanoid robot",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          start,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	pf.BoolVar(&opts.noSim, "no-sim", false, "require real hardware instead of simulating missing devices")
	pf.BoolVar(&opts.noMotion, "no-motion", false, "disable the motion middleware")
	pf.BoolVar(&opts.noROS, "no-ros", false, "alias for --no-motion")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&opts.webPort, "web", "", "serve the dashboard on this port")
	root.Flags().BoolVar(&opts.stop, "stop", false, "stop a running instance and exit")
	_ = pf.MarkHidden("no-ros")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the robot (default)",
			Args:  cobra.NoArgs,
			RunE:  start,
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop a running instance",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				return stopRunning(cfg, cmd.OutOrStdout())
			},
		},
	)
	return root
}

func stopRunning(cfg config.Config, out io.Writer) error {
	pid, err := pidfile.Signal(pidfile.DefaultPath(cfg.LockDir), syscall.SIGTERM)
	if err != nil {
		if errors.Is(err, pidfile.ErrNotRunning) {
			return errors.New("no running ainex instance")
		}
		return err
	}
	fmt.Fprintf(out, "stopping ainex (pid %d)\n", pid)
	return nil
}

func runRobot(ctx context.Context, cfg config.Config, out io.Writer) error {
	if err := log.InitWithOptions(log.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir}); err != nil {
		fmt.Fprintf(out, "log file disabled: %v\n", err)
	}
	defer log.Close()
	logger := log.L()

	pidPath := pidfile.DefaultPath(cfg.LockDir)
	if err := pidfile.Write(pidPath); err != nil {
		logger.Warn("pidfile not written; --stop will not find this instance", "error", err)
	}
	defer func() {
		if err := pidfile.Remove(pidPath); err != nil {
			logger.Warn("remove pidfile", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := ainex.New(ctx, cfg, ainex.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	fmt.Fprintf(out, "ainex %s (simulation=%t, motion=%t)\n", version, cfg.Simulation, cfg.Motion.Enabled)
	if err := app.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "goodbye")
	return nil
}
