package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-opticbench/pkg/document"
)

func (a *app) convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Rewrite a document, changing its compression",
		Long: `Reads src and writes dst. The codec of each side follows the file
extension: .opm is plain YAML, .opm.sz snappy and .opm.zst zstd. The
fingerprint of the document is printed; it does not depend on the codec.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := document.Convert(args[0], args[1], a.documentOptions()...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", fp, args[1])
			return nil
		},
	}
}
