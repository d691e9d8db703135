package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/timzifer/hcm/engine"
	"github.com/timzifer/hcm/internal/config"
	"github.com/timzifer/hcm/internal/logging"
	"github.com/timzifer/hcm/report"
	"github.com/timzifer/hcm/telemetry"
)

type globalFlags struct {
	settings    string
	logLevel    string
	logFormat   string
	workers     int
	metricsFile string
}

// environment is the state shared by all subcommands of one invocation.
type environment struct {
	cfg       *config.Config
	logger    zerolog.Logger
	cleanup   func()
	registry  *prometheus.Registry
	collector telemetry.Collector
	engine    *engine.Engine
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "hcm",
		Short:         "Merge layered configuration modules into one content tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.settings, "settings", "s", "", "Settings file (optional)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format (json or text)")
	cmd.PersistentFlags().IntVar(&flags.workers, "workers", 0, "Maximum number of concurrent builds (0 means unlimited)")
	cmd.PersistentFlags().StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after every build")

	cmd.AddCommand(buildCmd(&flags))
	cmd.AddCommand(checkCmd(&flags))
	cmd.AddCommand(modulesCmd(&flags))
	return cmd
}

func loadSettings(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg := &config.Config{}
	if flags.settings != "" {
		loaded, err := config.Load(flags.settings)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	pf := cmd.Flags()
	if pf.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if pf.Changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}
	if pf.Changed("workers") {
		if flags.workers < 0 {
			return nil, fmt.Errorf("workers must not be negative")
		}
		cfg.Workers = flags.workers
	}
	if pf.Changed("metrics-file") {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.MetricsFile = flags.metricsFile
	}
	return cfg, nil
}

func newEnvironment(cmd *cobra.Command, flags *globalFlags) (*environment, error) {
	cfg, err := loadSettings(cmd, flags)
	if err != nil {
		return nil, err
	}
	logger, cleanup, err := logging.Setup(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	log.Logger = logger

	env := &environment{
		cfg:       cfg,
		logger:    logger,
		cleanup:   cleanup,
		collector: telemetry.Noop(),
	}
	if cfg.Telemetry.Enabled {
		env.registry = prometheus.NewRegistry()
		collector, err := telemetry.NewPrometheusCollector(env.registry)
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry disabled")
		} else {
			env.collector = collector
		}
	}

	env.engine, err = engine.New(
		engine.WithLogger(logger),
		engine.WithReporter(report.NewLogReporter(logger)),
		engine.WithTelemetry(env.collector),
		engine.WithWorkers(cfg.Workers),
	)
	if err != nil {
		cleanup()
		return nil, err
	}
	return env, nil
}

func (e *environment) close() {
	if e != nil && e.cleanup != nil {
		e.cleanup()
	}
}

// moduleDirs resolves positional arguments, falling back to the modules of
// the settings file.
func (e *environment) moduleDirs(args []string) ([]string, error) {
	cfg := *e.cfg
	if len(args) > 0 {
		cfg.Modules = args
	}
	if len(cfg.Modules) == 0 {
		return nil, fmt.Errorf("no module directories given")
	}
	dirs, err := config.ModuleDirs(&cfg)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no modules found in %s", strings.Join(cfg.Modules, ", "))
	}
	return dirs, nil
}

func (e *environment) writeMetrics() {
	if e.registry == nil || e.cfg.Telemetry.MetricsFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(e.cfg.Telemetry.MetricsFile), 0o755); err != nil {
		e.logger.Error().Err(err).Msg("failed to create metrics directory")
		return
	}
	if err := prometheus.WriteToTextfile(e.cfg.Telemetry.MetricsFile, e.registry); err != nil {
		e.logger.Error().Err(err).Str("file", e.cfg.Telemetry.MetricsFile).Msg("failed to write metrics")
	}
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
