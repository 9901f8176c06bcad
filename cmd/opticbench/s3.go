package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-opticbench/pkg/document"
)

// s3Store connects to the bucket of the config file.
func (a *app) s3Store(ctx context.Context) (*document.S3Store, error) {
	if a.cfg.S3 == nil {
		return nil, errors.New("no s3 bucket configured")
	}
	return document.NewS3Store(ctx, *a.cfg.S3, a.documentOptions()...)
}

func (a *app) s3Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "s3",
		Short: "Exchange documents with the configured S3 bucket",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "push <file> [key]",
			Short: "Upload a document; the key defaults to the file name",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				key := filepath.Base(args[0])
				if len(args) == 2 {
					key = args[1]
				}
				d, err := document.Load(args[0], a.documentOptions()...)
				if err != nil {
					return err
				}
				store, err := a.s3Store(cmd.Context())
				if err != nil {
					return err
				}
				if err := store.Put(cmd.Context(), key, d); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", d.Fingerprint, key)
				return nil
			},
		},
		&cobra.Command{
			Use:   "pull <key> <file>",
			Short: "Download a document, converting it to the codec of file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.s3Store(cmd.Context())
				if err != nil {
					return err
				}
				d, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := document.Save(args[1], d, a.documentOptions()...); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", d.Fingerprint, args[1])
				return nil
			},
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List the documents in the bucket",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := a.s3Store(cmd.Context())
				if err != nil {
					return err
				}
				objects, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				t := newTable("key", "size", "modified")
				for _, o := range objects {
					t.Row(o.Key, fmt.Sprint(o.Size), o.Modified.Local().Format(time.DateTime))
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.String())
				return nil
			},
		},
	)
	return cmd
}
