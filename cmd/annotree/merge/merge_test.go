package merge_test

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/annotree/cmd/annotree/internal/fixture"
	"github.com/walteh/annotree/cmd/annotree/merge"
	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/config"
	"github.com/walteh/annotree/pkg/dump"
	"github.com/walteh/annotree/pkg/location"
)

func setup(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	fixture.Proc(t, fs, "dumps/walk.json", "code/walk.dm")
	fixture.WriteDump(t, fs, "dumps/defs.mp", "code/defs.dm", func(f location.FileID, tree *annotation.Tree) {
		tree.Insert(fixture.Span(f, 1, 9, 13), annotation.MacroDefinition{Name: "TILE"})
	})
	return fs
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		handler merge.Handler
		output  string
		want    map[annotation.Kind]int
	}{
		{
			name:    "json",
			handler: merge.Handler{Output: "out/all.json"},
			output:  "out/all.json",
			want:    map[annotation.Kind]int{annotation.KindReturnOperation: 1, annotation.KindMacroDefinition: 1},
		},
		{
			name:    "msgpack resolved",
			handler: merge.Handler{Output: "out/all.msgpack", Resolve: true},
			output:  "out/all.msgpack",
			want:    map[annotation.Kind]int{annotation.KindReturnStatement: 1, annotation.KindMacroDefinition: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := fixture.Context(t)
			h := tt.handler
			h.Fs = setup(t)

			require.NoError(t, h.Run(ctx, &bytes.Buffer{}, []string{"dumps/*"}))

			d, err := dump.Read(ctx, h.Fs, tt.output)
			require.NoError(t, err)
			assert.Len(t, d.Files, 2)
			assert.Len(t, d.Annotations, 10)

			tree, err := d.Tree()
			require.NoError(t, err)
			counts := tree.CountByKind()
			for k, n := range tt.want {
				assert.Equal(t, n, counts[k], k.String())
			}
		})
	}
}

func TestMergeStdout(t *testing.T) {
	h := merge.Handler{Fs: setup(t), Output: "-"}

	var out bytes.Buffer
	require.NoError(t, h.Run(fixture.Context(t), &out, []string{"dumps/walk.json"}))

	d, err := dump.Decode(out.Bytes(), dump.FormatJSON)
	require.NoError(t, err)
	assert.Len(t, d.Annotations, 9)
}

func TestMergeUsesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Inputs = []string{"dumps/defs.mp"}
	cfg.Output = &config.Output{Path: "merged.json"}
	ctx := config.WithContext(fixture.Context(t), cfg)

	h := merge.Handler{Fs: setup(t)}
	require.NoError(t, h.Run(ctx, &bytes.Buffer{}, nil))

	d, err := dump.Read(ctx, h.Fs, "merged.json")
	require.NoError(t, err)
	assert.Len(t, d.Annotations, 1)
	assert.Equal(t, "merged.json", cfg.Output.Path, "config left untouched")
}

func TestMergeErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler merge.Handler
	}{
		{name: "no output", handler: merge.Handler{}},
		{name: "format disagrees with extension", handler: merge.Handler{Output: "out.json", Format: "msgpack"}},
		{name: "unknown extension", handler: merge.Handler{Output: "out.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.handler
			h.Fs = setup(t)
			assert.Error(t, h.Run(fixture.Context(t), &bytes.Buffer{}, []string{"dumps/*"}))
		})
	}
}
