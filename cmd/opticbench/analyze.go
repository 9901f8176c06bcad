package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-opticbench/pkg/analyzer"
	"github.com/dd0wney/cluso-opticbench/pkg/archive"
	"github.com/dd0wney/cluso-opticbench/pkg/document"
	"github.com/dd0wney/cluso-opticbench/pkg/events"
	"github.com/dd0wney/cluso-opticbench/pkg/logging"
	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/report"
)

func (a *app) analyzeCmd() *cobra.Command {
	var (
		mode    string
		format  string
		archURL string
		fromS3  bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file|pattern>...",
		Short: "Run the analyses of one or more documents",
		Long: `Runs the analyzers stored in each document and prints one report per
analysis. Patterns like 'setups/**/*.opm' are expanded. With --mode only
that analysis runs; the document's settings for it are used when present.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("format") {
				a.cfg.Format = format
			}
			if cmd.Flags().Changed("archive") {
				a.cfg.Archive = archURL
			}
			f, err := report.ParseFormat(a.cfg.Format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			l := &loader{app: a, fromS3: fromS3}
			sources, err := l.sources(args)
			if err != nil {
				return err
			}

			var store archive.Store
			if a.cfg.Archive != "" {
				if store, err = archive.Open(ctx, a.cfg.Archive); err != nil {
					return err
				}
				defer store.Close()
			}

			publisher, err := a.publisher()
			if err != nil {
				return err
			}
			defer publisher.Close()

			opts := []analyzer.Option{
				analyzer.WithLogger(a.logger),
				analyzer.WithMetrics(a.metrics),
				analyzer.WithPublisher(publisher),
			}

			var errs []error
			for _, src := range sources {
				d, err := l.load(ctx, src)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if err := selectMode(d, mode); err != nil {
					return err
				}
				analyzers, err := d.BuildAnalyzers(opts...)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", src, err))
					continue
				}
				for _, an := range analyzers {
					rep, err := an.Analyze(ctx, d.Scenery)
					if err != nil {
						errs = append(errs, fmt.Errorf("%s: %w", src, err))
						continue
					}
					rep.Document = src
					rep.Fingerprint = d.Fingerprint
					if err := rep.Write(cmd.OutOrStdout(), f); err != nil {
						return err
					}
					if store != nil {
						if err := store.Save(ctx, rep); err != nil {
							errs = append(errs, err)
							continue
						}
						a.logger.Info("run archived",
							logging.String("run", rep.Run.String()),
							logging.String("archive", a.cfg.Archive))
					}
				}
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "run only this analysis: energy, ray_trace or ghost_focus")
	cmd.Flags().StringVar(&format, "format", "table", "report format: table, yaml or json")
	cmd.Flags().StringVar(&archURL, "archive", "", "archive reports to a SQLite path or postgres:// URL")
	cmd.Flags().BoolVar(&fromS3, "s3", false, "read documents from the configured S3 bucket")
	return cmd
}

// selectMode narrows the document's analyzers to mode. A document without
// analyzers gets an energy analysis.
func selectMode(d *document.Document, mode string) error {
	if mode == "" {
		if len(d.Analyzers) == 0 {
			d.Analyzers = []analyzer.Spec{{Mode: optic.ModeEnergy}}
		}
		return nil
	}
	m, err := optic.ParseMode(mode)
	if err != nil {
		return err
	}
	for _, s := range d.Analyzers {
		if s.Mode == m {
			d.Analyzers = []analyzer.Spec{s}
			return nil
		}
	}
	d.Analyzers = []analyzer.Spec{{Mode: m}}
	return nil
}

// publisher opens the configured network publisher, or a no-op one.
func (a *app) publisher() (events.Publisher, error) {
	if a.cfg.Events.Transport == "" {
		return events.Nop{}, nil
	}
	p, err := events.Open(a.cfg.Events.Transport, a.cfg.Events.Addr)
	if err != nil {
		return nil, fmt.Errorf("opening event publisher: %w", err)
	}
	a.logger.Info("publishing events",
		logging.String("transport", a.cfg.Events.Transport),
		logging.String("addr", a.cfg.Events.Addr))
	return p, nil
}
