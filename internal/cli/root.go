// Package cli implements the tableio command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/VanDung-dev/tableio/format"
	"github.com/VanDung-dev/tableio/format/rootformat"
	"github.com/VanDung-dev/tableio/internal/config"
	"github.com/VanDung-dev/tableio/metrics"
	"github.com/VanDung-dev/tableio/registry"
)

// Version is set at build time via ldflags:
//
//	go build -ldflags "-X github.com/VanDung-dev/tableio/internal/cli.Version=v1.0.0"
var Version = "dev"

// app is the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg      config.Config
	logger   *slog.Logger
	promReg  *prometheus.Registry
	metrics  *metrics.Metrics
	registry *registry.Registry
}

// Execute runs the tableio command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree with its own configuration.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "tableio",
		Short: "Read, convert and inspect tables stored in ROOT, Arrow, Parquet and Avro files",
		Long: `tableio reads tables out of ROOT trees and other columnar files through a
format registry. It lists the trees of ROOT files, previews tables with
branch and row selections, and converts files between formats.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./tableio.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	a.mustBindPFlag("log_level", flags.Lookup("log-level"))
	a.mustBindPFlag("log_format", flags.Lookup("log-format"))
	a.mustBindPFlag("metrics_addr", flags.Lookup("metrics-addr"))

	root.AddCommand(
		a.treesCmd(),
		a.readCmd(),
		a.convertCmd(),
		a.rateCmd(),
		a.formatsCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	if err := a.initConfig(); err != nil {
		return err
	}
	if err := a.setupLogger(stderr); err != nil {
		return err
	}

	a.promReg = prometheus.NewRegistry()
	a.metrics = metrics.NewMetrics("tableio", a.promReg)
	a.registry = registry.New(registry.WithLogger(a.logger), registry.WithMetrics(a.metrics))
	return format.RegisterAll(a.registry, rootformat.WithWriteDefaults(a.cfg.Root.WriteOptions()))
}

func (a *app) initConfig() error {
	def := config.Default()
	a.v.SetDefault("log_level", def.LogLevel)
	a.v.SetDefault("log_format", def.LogFormat)
	a.v.SetDefault("jobs", def.Jobs)
	a.v.SetDefault("root.tree_name", def.Root.TreeName)
	a.v.SetDefault("root.title", def.Root.Title)
	a.v.SetDefault("root.compression", def.Root.Compression)
	a.v.SetDefault("root.compression_level", def.Root.CompressionLevel)
	a.v.SetDefault("root.basket_size", def.Root.BasketSize)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("tableio")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
	}

	a.v.SetEnvPrefix("TABLEIO")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || a.cfgFile != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg := def
	if err := a.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func (a *app) setupLogger(w io.Writer) error {
	var level slog.Level
	switch strings.ToLower(a.cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level: %q (expected debug, info, warn, error)", a.cfg.LogLevel)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(a.cfg.LogFormat) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format: %q (expected text, json)", a.cfg.LogFormat)
	}

	a.logger = slog.New(handler)
	return nil
}

// startMetrics serves the metrics endpoint when metrics_addr is set. The
// returned function stops it.
func (a *app) startMetrics() func() {
	if a.cfg.MetricsAddr == "" {
		return func() {}
	}
	srv := metrics.NewMetricsServer(a.cfg.MetricsAddr, a.promReg)
	errs := make(chan error, 1)
	srv.StartAsync(errs)
	a.logger.Info("serving metrics", "addr", a.cfg.MetricsAddr)
	return func() {
		select {
		case err := <-errs:
			a.logger.Warn("metrics server failed", "error", err)
		default:
		}
		if err := srv.Stop(); err != nil {
			a.logger.Warn("stop metrics server", "error", err)
		}
	}
}

func (a *app) mustBindPFlag(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("viper.BindPFlag(%q): %v", key, err))
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tableio version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "tableio "+Version)
		},
	}
}
