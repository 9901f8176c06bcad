package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dd0wney/cluso-opticbench/pkg/document"
)

// expandPatterns resolves file arguments. Patterns may use ** to match
// across directories; plain paths are kept as given. Every pattern must
// match at least one file. The result is sorted and free of duplicates.
func expandPatterns(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		if !hasMeta(p) {
			out = append(out, p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matches no files", p)
		}
		out = append(out, matches...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func hasMeta(p string) bool {
	for _, r := range p {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

// loader reads documents from the local disk or, with fromS3, from the
// configured bucket.
type loader struct {
	app    *app
	fromS3 bool
	store  *document.S3Store
}

func (l *loader) sources(args []string) ([]string, error) {
	if l.fromS3 {
		return args, nil
	}
	return expandPatterns(args)
}

func (l *loader) load(ctx context.Context, src string) (*document.Document, error) {
	if !l.fromS3 {
		return document.Load(src, l.app.documentOptions()...)
	}
	if l.store == nil {
		store, err := l.app.s3Store(ctx)
		if err != nil {
			return nil, err
		}
		l.store = store
	}
	return l.store.Get(ctx, src)
}
