package diagnose_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/walteh/annotree/cmd/annotree/diagnose"
	"github.com/walteh/annotree/cmd/annotree/internal/fixture"
)

func setup(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	fixture.Proc(t, fs, "walk.json", "code/walk.dm")
	return fs
}

func TestDiagnoseText(t *testing.T) {
	h := diagnose.Handler{Fs: setup(t), Format: "text"}

	var out bytes.Buffer
	require.NoError(t, h.Run(fixture.Context(t), &out, []string{"walk.json"}))
	assert.Equal(t,
		"code/walk.dm:3:10: error: expected an identifier after \"src.\"\n"+
			"code/walk.dm:4:5: hint: return value has not been resolved\n",
		out.String())
}

func TestDiagnoseJSON(t *testing.T) {
	h := diagnose.Handler{Fs: setup(t), Format: "json", Root: "/work"}

	var out bytes.Buffer
	require.NoError(t, h.Run(fixture.Context(t), &out, []string{"walk.json"}))

	var params []protocol.PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(out.Bytes(), &params))
	require.Len(t, params, 1)
	assert.Equal(t, "file:///work/code/walk.dm", string(params[0].URI))
	assert.Len(t, params[0].Diagnostics, 2)
}

func TestDiagnoseFail(t *testing.T) {
	h := diagnose.Handler{Fs: setup(t), Format: "text", Fail: true}

	err := h.Run(fixture.Context(t), &bytes.Buffer{}, []string{"walk.json"})
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnose.ErrFound)
}

func TestDiagnoseUnknownFormat(t *testing.T) {
	h := diagnose.Handler{Fs: setup(t), Format: "xml"}
	assert.Error(t, h.Run(fixture.Context(t), &bytes.Buffer{}, []string{"walk.json"}))
}
