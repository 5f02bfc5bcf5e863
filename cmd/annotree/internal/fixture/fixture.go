// Package fixture writes small dumps for command tests.
package fixture

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/dump"
	"github.com/walteh/annotree/pkg/location"
)

func Loc(file location.FileID, line uint32, col uint16) location.Location {
	return location.Location{File: file, Line: line, Column: col}
}

func Span(file location.FileID, line uint32, from, to uint16) location.Range {
	return location.NewRange(Loc(file, line, from), Loc(file, line, to))
}

// Context logs to the test output.
func Context(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel).WithContext(context.Background())
}

// WriteDump registers source, lets fill annotate it, and writes the result to
// path on fs.
func WriteDump(t *testing.T, fs afero.Fs, path, source string, fill func(file location.FileID, tree *annotation.Tree)) {
	t.Helper()

	files := location.NewFileTable()
	id, err := files.Register(source)
	require.NoError(t, err)

	tree := annotation.NewTree()
	fill(id, tree)
	require.NoError(t, dump.Write(context.Background(), fs, path, dump.FromTree(tree, files)))
}

// Proc writes a dump of one proc in source: a local "count" and a call to
// "step" whose argument holds an unfinished "src." member access.
//
//	line 1: /mob/proc/walk()
//	line 2:     var/count = 1
//	line 3:     step(src.)
//	line 4:     return count
func Proc(t *testing.T, fs afero.Fs, path, source string) {
	WriteDump(t, fs, path, source, func(f location.FileID, tree *annotation.Tree) {
		proc := []string{"mob", "walk"}
		tree.Insert(Span(f, 1, 1, 17), annotation.ProcHeader{Path: proc})
		tree.Insert(location.NewRange(Loc(f, 2, 1), Loc(f, 5, 1)), annotation.ProcBody{Path: proc})
		tree.Insert(location.NewRange(Loc(f, 2, 9), Loc(f, 5, 1)), annotation.LocalVarScope{Name: "count"})
		tree.Insert(Span(f, 3, 5, 9), annotation.UnscopedCall{Name: "step"})
		tree.Insert(Span(f, 3, 9, 15), annotation.ProcArguments{Name: "step"})
		tree.Insert(Span(f, 3, 10, 14), annotation.ProcArgument{Index: 0})
		tree.Insert(Span(f, 3, 10, 14), annotation.ScopedMissingIdent{Scope: []string{"src"}})
		tree.Insert(Span(f, 4, 12, 17), annotation.UnscopedVar{Name: "count"})
		tree.Insert(Span(f, 4, 5, 17), annotation.ReturnOperation{Range: Span(f, 4, 12, 17)})
	})
}
