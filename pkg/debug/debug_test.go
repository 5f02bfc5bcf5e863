package debug_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/walteh/annotree/pkg/debug"
)

func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		name     string
		wantPkg  string
		wantFunc string
	}{
		{name: "github.com/walteh/annotree/pkg/dump.Read", wantPkg: "github.com/walteh/annotree/pkg/dump", wantFunc: "Read"},
		{name: "github.com/walteh/annotree/pkg/dump.(*Dump).Remap", wantPkg: "github.com/walteh/annotree/pkg/dump", wantFunc: "(*Dump).Remap"},
		{name: "main.main", wantPkg: "main", wantFunc: "main"},
		{name: "nodot", wantPkg: "nodot", wantFunc: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, fn := debug.SplitFuncName(tt.name)
			assert.Equal(t, tt.wantPkg, pkg)
			assert.Equal(t, tt.wantFunc, fn)
		})
	}
}

func TestFormatCaller(t *testing.T) {
	got := debug.FormatCaller("github.com/walteh/annotree/pkg/dump", "/src/pkg/dump/io.go", 42, false)
	assert.Equal(t, "dump:io.go:42", got)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := debug.WithLogger(context.Background(), &buf, debug.LoggerOptions{
		Level:  zerolog.DebugLevel,
		Caller: true,
	})

	zerolog.Ctx(ctx).Trace().Msg("hidden")
	zerolog.Ctx(ctx).Debug().Str("path", "a.json").Msg("read dump")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "read dump")
	assert.Contains(t, out, "path=a.json")
	assert.Contains(t, out, "debug_test.go:")
}
