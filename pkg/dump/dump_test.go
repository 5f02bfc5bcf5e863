package dump_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/docs"
	"github.com/walteh/annotree/pkg/dump"
	"github.com/walteh/annotree/pkg/location"
)

func at(file location.FileID, line uint32, col uint16) location.Location {
	return location.Location{File: file, Line: line, Column: col}
}

func sampleTree(t *testing.T) (*annotation.Tree, *location.FileTable) {
	t.Helper()

	files := location.NewFileTable()
	code, err := files.Register("code/mob.dm")
	require.NoError(t, err)
	defs, err := files.Register("code/defines.dm")
	require.NoError(t, err)

	tree := annotation.NewTree()
	tree.Insert(location.NewRange(at(code, 1, 1), at(code, 9, 1)), annotation.ProcBody{Path: []string{"mob", "proc", "move"}})
	tree.Insert(location.NewRange(at(code, 2, 5), at(code, 2, 8)), annotation.MacroUse{
		Name:               "STEP",
		DefinitionLocation: at(defs, 3, 9),
		Docs:               docs.NewCollection(docs.Comment{Text: "one tile"}),
	})
	tree.Insert(location.NewRange(at(code, 4, 2), at(code, 4, 20)), annotation.ReturnOperation{
		Range: location.NewRange(at(code, 4, 9), at(code, 4, 20)),
	})
	return tree, files
}

func TestFromTreeRoundTrip(t *testing.T) {
	ctx := context.Background()
	tree, files := sampleTree(t)

	for _, name := range []string{"out/unit.json", "out/unit.mp", "out/unit.msgpack"} {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()

			d := dump.FromTree(tree, files)
			require.Len(t, d.Annotations, 3)
			require.NoError(t, dump.Write(ctx, fs, name, d))

			got, err := dump.Read(ctx, fs, name)
			require.NoError(t, err)
			assert.Equal(t, d, got)

			rebuilt, err := got.Tree()
			require.NoError(t, err)
			assert.Equal(t, tree.Len(), rebuilt.Len())
			assert.Equal(t, annotation.Facts(tree.Iter()), annotation.Facts(rebuilt.Iter()))
		})
	}
}

func TestRecordsAreHalfOpen(t *testing.T) {
	tree := annotation.NewTree()
	r := location.NewRange(at(0, 1, 3), at(0, 1, 7))
	tree.Insert(r, annotation.UnscopedVar{Name: "x"})

	d := dump.FromTree(tree, nil)
	require.Len(t, d.Annotations, 1)
	assert.Equal(t, r, d.Annotations[0].Range)
	assert.Empty(t, d.Files)
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path    string
		want    dump.Format
		wantErr bool
	}{
		{path: "a.json", want: dump.FormatJSON},
		{path: "dir/a.JSON", want: dump.FormatJSON},
		{path: "a.mp", want: dump.FormatMsgpack},
		{path: "a.msgpack", want: dump.FormatMsgpack},
		{path: "a.yaml", wantErr: true},
		{path: "noext", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := dump.FormatFor(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, dump.ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *dump.Dump {
		return &dump.Dump{
			Version: dump.Version,
			Files:   []location.FileEntry{{ID: 1, Path: "a.dm"}},
			Annotations: []dump.Record{{
				Range: location.NewRange(at(1, 1, 1), at(1, 1, 4)),
				Fact:  annotation.Envelope{Fact: annotation.UnscopedCall{Name: "f"}},
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(d *dump.Dump)
		wantErr string
	}{
		{name: "valid", mutate: func(*dump.Dump) {}},
		{name: "version", mutate: func(d *dump.Dump) { d.Version = 99 }, wantErr: "unsupported dump version"},
		{name: "builtins id", mutate: func(d *dump.Dump) { d.Files[0].ID = 0 }, wantErr: "reserved builtins id"},
		{name: "duplicate id", mutate: func(d *dump.Dump) {
			d.Files = append(d.Files, location.FileEntry{ID: 1, Path: "b.dm"})
		}, wantErr: "listed twice"},
		{name: "unlisted file", mutate: func(d *dump.Dump) {
			d.Annotations[0].Range.End.File = 4
		}, wantErr: "unlisted file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTreeRejectsEmptyRecord(t *testing.T) {
	d := &dump.Dump{
		Version: dump.Version,
		Annotations: []dump.Record{{
			Range: location.NewRange(at(0, 1, 4), at(0, 1, 4)),
			Fact:  annotation.Envelope{Fact: annotation.ReturnVal{}},
		}},
	}
	_, err := d.Tree()
	assert.Error(t, err)
}

func TestRemap(t *testing.T) {
	table := location.NewFileTable()
	_, err := table.Register("code/defines.dm")
	require.NoError(t, err)

	tree, files := sampleTree(t)
	d := dump.FromTree(tree, files)
	require.NoError(t, d.Remap(table))

	code, ok := table.Lookup("code/mob.dm")
	require.True(t, ok)
	defs, ok := table.Lookup("code/defines.dm")
	require.True(t, ok)
	assert.Equal(t, location.FileID(1), defs, "existing registration is reused")
	assert.Equal(t, location.FileID(2), code)
	assert.Equal(t, table.Entries(), d.Files)

	for _, rec := range d.Annotations {
		assert.Equal(t, code, rec.Range.Start.File)
		switch f := rec.Fact.Fact.(type) {
		case annotation.MacroUse:
			assert.Equal(t, at(defs, 3, 9), f.DefinitionLocation)
		case annotation.ReturnOperation:
			assert.Equal(t, code, f.Range.Start.File)
			assert.Equal(t, code, f.Range.End.File)
		}
	}
	require.NoError(t, d.Validate())
}

func TestRebase(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		wantCode location.FileID
		wantDefs location.FileID
	}{
		{name: "empty target", wantCode: 1, wantDefs: 2},
		{name: "target holds another file", existing: []string{"code/area.dm"}, wantCode: 2, wantDefs: 3},
		{name: "target holds a shared file", existing: []string{"code/defines.dm"}, wantCode: 2, wantDefs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to := location.NewFileTable()
			for _, p := range tt.existing {
				_, err := to.Register(p)
				require.NoError(t, err)
			}

			tree, from := sampleTree(t)
			rebased, err := dump.Rebase(tree, from, to)
			require.NoError(t, err)
			require.Equal(t, tree.Len(), rebased.Len())

			var kinds []annotation.Kind
			for span, f := range rebased.Iter() {
				kinds = append(kinds, f.Kind())
				assert.Equal(t, tt.wantCode, span.Start.File)
				switch f := f.(type) {
				case annotation.MacroUse:
					assert.Equal(t, at(tt.wantDefs, 3, 9), f.DefinitionLocation)
				case annotation.ReturnOperation:
					assert.Equal(t, tt.wantCode, f.Range.Start.File)
				}
			}
			assert.Equal(t, []annotation.Kind{annotation.KindProcBody, annotation.KindMacroUse, annotation.KindReturnOperation}, kinds)
		})
	}
}

func TestGlob(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{
		"dumps/a.json",
		"dumps/b.mp",
		"dumps/nested/c.json",
		"dumps/notes.txt",
		"other/d.json",
	} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("{}"), 0644))
	}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{name: "single level", patterns: []string{"dumps/*.json"}, want: []string{"dumps/a.json"}},
		{name: "recursive", patterns: []string{"dumps/**/*.json"}, want: []string{"dumps/a.json", "dumps/nested/c.json"}},
		{name: "alternatives", patterns: []string{"dumps/*.{json,mp}"}, want: []string{"dumps/a.json", "dumps/b.mp"}},
		{name: "deduplicated", patterns: []string{"dumps/*.json", "dumps/a.json"}, want: []string{"dumps/a.json"}},
		{name: "literal passthrough", patterns: []string{"missing.json"}, want: []string{"missing.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dump.Glob(fs, tt.patterns...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := dump.Glob(fs, "dumps/[.json")
	assert.Error(t, err)
}

func TestReadMissing(t *testing.T) {
	_, err := dump.Read(context.Background(), afero.NewMemMapFs(), "nope.json")
	assert.Error(t, err)
}
