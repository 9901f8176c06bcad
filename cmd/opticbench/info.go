package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/report"
	"github.com/dd0wney/cluso-opticbench/pkg/scenery"
)

func (a *app) infoCmd() *cobra.Command {
	var (
		format string
		from   string
		hops   int
		fromS3 bool
	)
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Summarise the scene graph of a document",
		Long: `Prints node and edge counts, sources and sinks, feedback loops and the
shortest beam path from every source to every sink it reaches. With
--from the nodes downstream of that node are listed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			l := &loader{app: a, fromS3: fromS3}
			d, err := l.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			g := d.Scenery
			out := cmd.OutOrStdout()

			if from != "" {
				n, ok := g.NodeByName(from)
				if !ok {
					return fmt.Errorf("%q: %w", from, scenery.ErrNodeNotFound)
				}
				down, err := g.Downstream(n.ID(), hops)
				if err != nil {
					return err
				}
				for _, m := range down {
					fmt.Fprintf(out, "%s\t%s\n", m.Name(), m.NodeType())
				}
				return nil
			}
			return writeTopology(out, g.Name(), g.Topology(), f)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, yaml or json")
	cmd.Flags().StringVar(&from, "from", "", "list the nodes downstream of this node")
	cmd.Flags().IntVar(&hops, "hops", 1, "how far downstream to look with --from")
	cmd.Flags().BoolVar(&fromS3, "s3", false, "read the document from the configured S3 bucket")
	return cmd
}

func writeTopology(w io.Writer, name string, t scenery.Topology, f report.Format) error {
	switch f {
	case report.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}

	none := func(s []string) string {
		if len(s) == 0 {
			return "-"
		}
		return strings.Join(s, ", ")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(name))
	b.WriteString("\n")
	summary := newTable().
		Row("nodes", fmt.Sprint(t.Nodes)).
		Row("edges", fmt.Sprint(t.Edges)).
		Row("sources", none(t.Sources)).
		Row("sinks", none(t.Sinks)).
		Row("isolated", none(t.Isolated)).
		Row("connected", fmt.Sprint(t.Connected))
	b.WriteString(summary.String())
	b.WriteString("\n")

	for _, loop := range t.Loops {
		b.WriteString(errorStyle.Render("loop: " + strings.Join(loop, " → ")))
		b.WriteString("\n")
	}
	if len(t.Paths) > 0 {
		paths := newTable("from", "to", "length", "path")
		for _, p := range t.Paths {
			paths.Row(p.From, p.To, p.Length.String(), strings.Join(p.Nodes, " → "))
		}
		b.WriteString(paths.String())
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
