package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-opticbench/pkg/optic"
	"github.com/dd0wney/cluso-opticbench/pkg/scenery"
)

func (a *app) validateCmd() *cobra.Command {
	var fromS3 bool
	cmd := &cobra.Command{
		Use:   "validate <file|pattern>...",
		Short: "Check documents without analysing them",
		Long: `Decodes every document, builds its analyzers and checks the scene
graph for feedback loops. Problems are reported per file; the command
fails if any file has one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := &loader{app: a, fromS3: fromS3}
			sources, err := l.sources(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var errs []error
			for _, src := range sources {
				if err := check(ctx, l, src); err != nil {
					fmt.Fprintf(out, "%s %s: %v\n", errorStyle.Render("FAIL"), src, err)
					errs = append(errs, fmt.Errorf("%s: %w", src, err))
					continue
				}
				fmt.Fprintf(out, "%s %s\n", okStyle.Render("ok"), src)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d documents invalid: %w", len(errs), len(sources), errors.Join(errs...))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromS3, "s3", false, "read documents from the configured S3 bucket")
	return cmd
}

// check loads src and looks for problems an analysis would hit: invalid
// analyzer settings and feedback loops in any group.
func check(ctx context.Context, l *loader, src string) error {
	d, err := l.load(ctx, src)
	if err != nil {
		return err
	}
	if _, err := d.BuildAnalyzers(); err != nil {
		return err
	}
	groups := []*scenery.Group{d.Scenery}
	d.Scenery.Walk(func(_ []string, n optic.Node) {
		if g, ok := n.(*scenery.Group); ok {
			groups = append(groups, g)
		}
	})
	for _, g := range groups {
		if loops := g.Topology().Loops; len(loops) > 0 {
			return fmt.Errorf("feedback loop in %s through %s", g.Name(), strings.Join(loops[0], ", "))
		}
	}
	return nil
}
