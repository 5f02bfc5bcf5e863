package dump

import (
	"context"
	"encoding/json"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/vmihailenco/msgpack/v5"
	"gitlab.com/tozd/go/errors"
)

// Format is the encoding of a dump file.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ErrUnknownFormat is returned for a path whose extension maps to no format.
var ErrUnknownFormat = errors.New("unknown dump format")

// FormatFor picks the format from path's extension: .json, or .mp / .msgpack.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".mp", ".msgpack":
		return FormatMsgpack, nil
	}
	return "", errors.Errorf("%w: %q", ErrUnknownFormat, path)
}

// ParseFormat accepts the names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack, "mp":
		return FormatMsgpack, nil
	}
	return "", errors.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Encode serializes d. JSON output is indented for diffing.
func Encode(d *Dump, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "\t")
	case FormatMsgpack:
		return msgpack.Marshal(d)
	}
	return nil, errors.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Decode parses and validates a dump.
func Decode(data []byte, format Format) (*Dump, error) {
	var d Dump
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &d)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &d)
	default:
		return nil, errors.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, errors.Errorf("decoding %s dump: %w", format, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Read loads the dump at path, choosing the codec from its extension.
func Read(ctx context.Context, fs afero.Fs, path string) (*Dump, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading dump %s: %w", path, err)
	}

	d, err := Decode(data, format)
	if err != nil {
		return nil, errors.Errorf("reading dump %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("files", len(d.Files)).Int("annotations", len(d.Annotations)).Msg("read dump")
	return d, nil
}

// Write stores d at path, creating parent directories as needed.
func Write(ctx context.Context, fs afero.Fs, path string, d *Dump) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	data, err := Encode(d, format)
	if err != nil {
		return errors.Errorf("encoding dump %s: %w", path, err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("creating directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return errors.Errorf("writing dump %s: %w", path, err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Int("bytes", len(data)).Msg("wrote dump")
	return nil
}

// Glob expands doublestar patterns (e.g. "out/**/*.json") against fs. Plain
// paths without meta characters are passed through even when they do not
// exist, so that Read reports them. The result is sorted and deduplicated.
func Glob(fs afero.Fs, patterns ...string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		clean := filepath.ToSlash(filepath.Clean(pattern))
		if !strings.ContainsAny(clean, "*?[{") {
			out = append(out, clean)
			continue
		}
		if !doublestar.ValidatePattern(clean) {
			return nil, errors.Errorf("invalid glob pattern %q", pattern)
		}

		// io/fs paths are unrooted, so absolute patterns are matched below
		// their static prefix.
		base, rel := ".", clean
		if strings.HasPrefix(clean, "/") {
			base, rel = doublestar.SplitPattern(clean)
		}
		fsys := afero.NewIOFS(fs)
		if base != "." {
			fsys = afero.NewIOFS(afero.NewBasePathFs(fs, base))
		}

		matches, err := doublestar.Glob(fsys, rel, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Errorf("expanding %q: %w", pattern, err)
		}
		for _, m := range matches {
			if base != "." {
				m = path.Join(base, m)
			}
			out = append(out, m)
		}
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}
