package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/archive"
	"github.com/dd0wney/cluso-opticbench/pkg/report"
)

func (a *app) runsCmd() *cobra.Command {
	var archURL string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse archived analysis runs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if cmd.Flags().Changed("archive") {
				a.cfg.Archive = archURL
			}
			if a.cfg.Archive == "" {
				return errors.New("no archive configured, use --archive or the config file")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&archURL, "archive", "", "SQLite path or postgres:// URL of the archive")
	cmd.AddCommand(a.runsListCmd(), a.runsShowCmd())
	return cmd
}

func (a *app) runsListCmd() *cobra.Command {
	var (
		filter archive.Filter
		format string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := archive.Open(cmd.Context(), a.cfg.Archive)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeRuns(cmd.OutOrStdout(), runs, f)
		},
	}
	cmd.Flags().StringVar(&filter.Scenery, "scenery", "", "only runs of this scenery")
	cmd.Flags().StringVar(&filter.Mode, "mode", "", "only runs of this analysis mode")
	cmd.Flags().StringVar(&filter.Fingerprint, "fingerprint", "", "only runs of this document fingerprint")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of runs, 0 for all")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, yaml or json")
	return cmd
}

func (a *app) runsShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the report of an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("run id %q: %w", args[0], err)
			}
			store, err := archive.Open(cmd.Context(), a.cfg.Archive)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rep.Write(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, yaml or json")
	return cmd
}

func writeRuns(w io.Writer, runs []archive.Run, f report.Format) error {
	switch f {
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(runs); err != nil {
			return err
		}
		return enc.Close()
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	t := newTable("run", "started", "scenery", "mode", "nodes", "failed", "duration")
	for _, r := range runs {
		failed := fmt.Sprint(r.Failed)
		if r.Failed > 0 {
			failed = errorStyle.Render(failed)
		}
		t.Row(
			r.ID.String(),
			r.Started.Local().Format(time.DateTime),
			r.Scenery,
			r.Mode,
			fmt.Sprint(r.Nodes),
			failed,
			time.Duration(r.Duration*float64(time.Second)).Round(time.Microsecond).String(),
		)
	}
	_, err := io.WriteString(w, t.String()+"\n")
	return err
}
