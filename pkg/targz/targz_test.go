package targz_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/annotree/pkg/targz"
)

func createTestTarGz(t *testing.T, names []string, files map[string]string) []byte {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for _, name := range names {
		content := files[name]
		hdr := &tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	files := map[string]string{
		"out/a.json":      `{"a":1}`,
		"out/nested/b.mp": "b",
		"out/notes.txt":   "skip me",
		"./out/c.json":    `{}`,
	}
	names := []string{"out/a.json", "out/nested/b.mp", "out/notes.txt", "./out/c.json"}
	data := createTestTarGz(t, names, files)

	tests := []struct {
		name     string
		opts     targz.LoadOptions
		expected []string
	}{
		{
			name:     "everything",
			expected: []string{"out/a.json", "out/nested/b.mp", "out/notes.txt", "out/c.json"},
		},
		{
			name:     "strip components",
			opts:     targz.LoadOptions{StripComponents: 1},
			expected: []string{"a.json", "nested/b.mp", "notes.txt", "c.json"},
		},
		{
			name: "filter",
			opts: targz.LoadOptions{Filter: func(name string) bool {
				return strings.HasSuffix(name, ".json")
			}},
			expected: []string{"out/a.json", "out/c.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, paths, err := targz.Load(bytes.NewReader(data), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, paths)

			for _, p := range paths {
				ok, err := afero.Exists(fs, p)
				require.NoError(t, err)
				assert.True(t, ok, p)
			}
		})
	}

	t.Run("contents", func(t *testing.T) {
		fs, _, err := targz.Load(bytes.NewReader(data), targz.LoadOptions{})
		require.NoError(t, err)
		content, err := afero.ReadFile(fs, "out/a.json")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(content))
	})
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{name: "escaping entry", names: []string{"../evil.json"}},
		{name: "collision", names: []string{"a/x.json", "a//x.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := createTestTarGz(t, tt.names, map[string]string{})
			_, _, err := targz.Load(bytes.NewReader(data), targz.LoadOptions{})
			assert.Error(t, err)
		})
	}

	t.Run("not gzip", func(t *testing.T) {
		_, _, err := targz.Load(strings.NewReader("plain"), targz.LoadOptions{})
		assert.Error(t, err)
	})
}

func TestPackRoundTrip(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "dumps/a.json", []byte("A"), 0644))
	require.NoError(t, afero.WriteFile(src, "dumps/deep/b.mp", []byte("B"), 0644))

	var buf bytes.Buffer
	require.NoError(t, targz.Pack(&buf, src, []string{"dumps/a.json", "dumps/deep/b.mp"}))

	fs, paths, err := targz.Load(&buf, targz.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dumps/a.json", "dumps/deep/b.mp"}, paths)

	b, err := afero.ReadFile(fs, "dumps/deep/b.mp")
	require.NoError(t, err)
	assert.Equal(t, "B", string(b))

	assert.Error(t, targz.Pack(&bytes.Buffer{}, src, []string{"missing.json"}))
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{path: "a/b/c", expected: []string{"a", "b", "c"}},
		{path: "./a//b/", expected: []string{"a", "b"}},
		{path: "/", expected: nil},
		{path: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, targz.SplitPath(tt.path))
		})
	}
}

func TestIsArchive(t *testing.T) {
	assert.True(t, targz.IsArchive("dumps.tar.gz"))
	assert.True(t, targz.IsArchive("DUMPS.TGZ"))
	assert.False(t, targz.IsArchive("dump.json"))
}
