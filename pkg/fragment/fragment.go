// Package fragment builds one annotation tree out of independently produced
// parse units. Units are annotated in parallel into private trees and private
// file tables. Files are then registered and trees merged in input order, so
// file IDs and iteration order do not depend on scheduling.
package fragment

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/dump"
	"github.com/walteh/annotree/pkg/location"
)

// Source produces the facts of one parse unit. Annotate owns tree and files
// exclusively for the duration of the call and registers any file it refers
// to in files. Collect re-keys those IDs into the shared table afterwards.
type Source interface {
	Name() string
	Annotate(ctx context.Context, files *location.FileTable, tree *annotation.Tree) error
}

type funcSource struct {
	name string
	fn   func(ctx context.Context, files *location.FileTable, tree *annotation.Tree) error
}

// Func adapts a plain function to Source.
func Func(name string, fn func(ctx context.Context, files *location.FileTable, tree *annotation.Tree) error) Source {
	return funcSource{name: name, fn: fn}
}

func (s funcSource) Name() string { return s.name }

func (s funcSource) Annotate(ctx context.Context, files *location.FileTable, tree *annotation.Tree) error {
	return s.fn(ctx, files, tree)
}

type Options struct {
	// Jobs bounds the number of sources annotated at once. Zero means GOMAXPROCS.
	Jobs int
	// FailFast stops at the first failing source and returns no tree.
	FailFast bool
	// Resolve finalizes the merged tree with Tree.Resolve.
	Resolve bool
	// Files is the table the result's IDs come from. A fresh one is made when nil.
	Files *location.FileTable
}

type Result struct {
	Tree  *annotation.Tree
	Files *location.FileTable
	// Failed names the sources whose facts were left out.
	Failed []string
}

// Collect annotates every source and merges the successful ones. Without
// FailFast a failing source is skipped and its error is combined into the
// returned error next to a usable Result.
func Collect(ctx context.Context, sources []Source, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	files := opts.Files
	if files == nil {
		files = location.NewFileTable()
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	trees := make([]*annotation.Tree, len(sources))
	tables := make([]*location.FileTable, len(sources))
	errs := make([]error, len(sources))

	var g *errgroup.Group
	gctx := ctx
	if opts.FailFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = &errgroup.Group{}
	}
	g.SetLimit(max(1, min(jobs, len(sources))))

	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return err
			}

			start := time.Now()
			tree := annotation.NewTree()
			local := location.NewFileTable()
			if err := src.Annotate(gctx, local, tree); err != nil {
				errs[i] = errors.Errorf("annotating %s: %w", src.Name(), err)
				logger.Debug().Err(err).Str("source", src.Name()).Msg("source failed")
				if opts.FailFast {
					return errs[i]
				}
				return nil
			}

			trees[i], tables[i] = tree, local
			logger.Trace().Str("source", src.Name()).Int("facts", tree.Len()).Dur("took", time.Since(start)).Msg("source annotated")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Tree: annotation.NewTree(), Files: files}
	for i, tree := range trees {
		if tree == nil {
			res.Failed = append(res.Failed, sources[i].Name())
			continue
		}
		rebased, err := dump.Rebase(tree, tables[i], files)
		if err != nil {
			errs[i] = errors.Errorf("annotating %s: %w", sources[i].Name(), err)
			if opts.FailFast {
				return nil, errs[i]
			}
			res.Failed = append(res.Failed, sources[i].Name())
			continue
		}
		res.Tree.Merge(rebased)
	}

	if opts.Resolve {
		res.Tree = res.Tree.Resolve()
	}

	logger.Debug().
		Int("sources", len(sources)).
		Int("failed", len(res.Failed)).
		Int("facts", res.Tree.Len()).
		Int("files", files.Len()).
		Msg("collected fragments")

	return res, multierr.Combine(errs...)
}
