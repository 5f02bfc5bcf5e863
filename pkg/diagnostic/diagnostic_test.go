package diagnostic_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/ast"
	"github.com/walteh/annotree/pkg/diagnostic"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/position"
)

type fixture struct {
	tree  *annotation.Tree
	files *location.FileTable
	a, b  location.FileID
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	files := location.NewFileTable()
	a, err := files.Register("code/a.dm")
	require.NoError(t, err)
	b, err := files.Register("code/b.dm")
	require.NoError(t, err)

	span := func(file location.FileID, line uint32, from, to uint16) location.Range {
		return location.NewRange(
			location.Location{File: file, Line: line, Column: from},
			location.Location{File: file, Line: line, Column: to},
		)
	}

	tree := annotation.NewTree()
	tree.Insert(span(b, 2, 1, 6), annotation.ScopedMissingIdent{Scope: []string{"src", "loc"}})
	tree.Insert(span(a, 5, 3, 9), annotation.IncompleteTypePath{
		Path: ast.TypePath{{Op: ast.PathOpSlash, Name: "obj"}},
		Op:   ast.PathOpDot,
	})
	tree.Insert(span(a, 1, 1, 5), annotation.IncompleteTreePath{Absolute: true, Path: []string{"mob"}})
	tree.Insert(span(a, 7, 1, 20), annotation.ReturnOperation{Range: span(a, 7, 8, 20)})
	tree.Insert(span(a, 1, 1, 5), annotation.UnscopedCall{Name: "fine"})

	return fixture{tree: tree, files: files, a: a, b: b}
}

func TestGenerate(t *testing.T) {
	fx := newFixture(t)
	diags := diagnostic.Generate(context.Background(), fx.tree)

	assert.Equal(t, 4, diags.Count())
	assert.Len(t, diags.Errors, 3)
	assert.Empty(t, diags.Warnings)
	require.Len(t, diags.Hints, 1)
	assert.Equal(t, annotation.KindReturnOperation, diags.Hints[0].Code)

	messages := []string{}
	for _, d := range diags.All() {
		messages = append(messages, d.Message)
	}
	assert.Equal(t, []string{
		`incomplete tree path "/mob/"`,
		`incomplete type path "/obj."`,
		"return value has not been resolved",
		`expected an identifier after "src.loc."`,
	}, messages)
}

func TestGenerateResolvedTree(t *testing.T) {
	fx := newFixture(t)
	diags := diagnostic.Generate(context.Background(), fx.tree.Resolve())
	assert.Empty(t, diags.Hints)
	assert.Len(t, diags.Errors, 3)
}

func TestPublish(t *testing.T) {
	fx := newFixture(t)
	diags := diagnostic.Generate(context.Background(), fx.tree)

	params := diags.Publish(position.Mapper{Files: fx.files, Root: "/work"})
	require.Len(t, params, 2)
	assert.Equal(t, uri.File("/work/code/a.dm"), params[0].URI)
	assert.Len(t, params[0].Diagnostics, 3)
	assert.Equal(t, uri.File("/work/code/b.dm"), params[1].URI)

	got := params[1].Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityError, got.Severity)
	assert.Equal(t, "ScopedMissingIdent", got.Code)
	assert.Equal(t, diagnostic.Source, got.Source)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 1, Character: 5},
	}, got.Range)
}

func TestJSONFormatter(t *testing.T) {
	fx := newFixture(t)
	diags := diagnostic.Generate(context.Background(), fx.tree)

	out, err := diagnostic.JSONFormatter{Mapper: position.Mapper{Files: fx.files, Root: "/work"}}.Format(diags)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "file:///work/code/a.dm", decoded[0]["uri"])

	_, err = diagnostic.JSONFormatter{}.Format(nil)
	assert.Error(t, err)
}

func TestTextFormatter(t *testing.T) {
	fx := newFixture(t)
	diags := diagnostic.Generate(context.Background(), fx.tree)

	out, err := diagnostic.TextFormatter{Files: fx.files}.Format(diags)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"code/a.dm:1:1: error: incomplete tree path \"/mob/\"\n"+
		"code/a.dm:5:3: error: incomplete type path \"/obj.\"\n"+
		"code/a.dm:7:1: hint: return value has not been resolved\n"+
		"code/b.dm:2:1: error: expected an identifier after \"src.loc.\"\n",
		string(out))
}
