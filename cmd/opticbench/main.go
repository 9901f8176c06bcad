// Command opticbench analyses optical bench documents and keeps an archive
// of the results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-opticbench/pkg/document"
	"github.com/dd0wney/cluso-opticbench/pkg/logging"
	"github.com/dd0wney/cluso-opticbench/pkg/metrics"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	configPath string
	cfg        Config
	logger     logging.Logger
	metrics    *metrics.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(metrics.DefaultRegistry()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd(reg *metrics.Registry) *cobra.Command {
	a := &app{cfg: DefaultConfig(), logger: logging.NewNopLogger(), metrics: reg}
	var logLevel, logFormat, metricsFile string

	root := &cobra.Command{
		Use:           "opticbench",
		Short:         "Simulate light on optical bench setups",
		Long:          `opticbench loads optical bench documents (.opm, .opm.sz, .opm.zst), runs energy, ray trace and ghost focus analyses and archives the reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.configPath != "" {
				cfg, err := LoadConfig(a.configPath)
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			if cmd.Flags().Changed("log-level") {
				a.cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				a.cfg.LogFormat = logFormat
			}
			if cmd.Flags().Changed("metrics-file") {
				a.cfg.MetricsFile = metricsFile
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			a.logger = logging.New(a.cfg.LogFormat, logging.ParseLevel(a.cfg.LogLevel))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "text", "log format: json or text")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		a.analyzeCmd(),
		a.infoCmd(),
		a.convertCmd(),
		a.validateCmd(),
		a.runsCmd(),
		a.s3Cmd(),
	)
	return root
}

// documentOptions passes the command's logger and metrics to the
// document package.
func (a *app) documentOptions() []document.Option {
	return []document.Option{document.WithLogger(a.logger), document.WithMetrics(a.metrics)}
}

// writeMetrics dumps the registry in the Prometheus text format for the
// node exporter textfile collector.
func (a *app) writeMetrics() error {
	if a.cfg.MetricsFile == "" || a.metrics == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.metrics.GetPrometheusRegistry()); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
