// Package load turns command line inputs into a collected annotation tree.
package load

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/pkg/config"
	"github.com/walteh/annotree/pkg/fragment"
	"github.com/walteh/annotree/pkg/location"
)

// Collect reads every dump named by patterns, falling back to the configured
// inputs when patterns is empty. Failed inputs are logged; the error is
// returned only when FailFast is set or nothing could be loaded.
func Collect(ctx context.Context, fs afero.Fs, patterns []string) (*fragment.Result, error) {
	cfg := config.FromContext(ctx)
	if len(patterns) == 0 {
		patterns = cfg.Inputs
	}
	if len(patterns) == 0 {
		return nil, errors.New("no inputs: pass dump files or set inputs in the config")
	}

	sources, err := fragment.DumpSources(fs, patterns...)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.Errorf("no dump files match %s", strings.Join(patterns, ", "))
	}

	res, err := fragment.Collect(ctx, sources, fragment.Options{
		Jobs:     cfg.Jobs,
		FailFast: cfg.FailFast,
		Resolve:  cfg.Resolve,
	})
	if res == nil {
		return nil, err
	}
	if err != nil {
		if len(res.Failed) == len(sources) {
			return nil, err
		}
		zerolog.Ctx(ctx).Warn().Err(err).Strs("failed", res.Failed).Msg("some inputs were skipped")
	}
	return res, nil
}

// ParseAt parses "path:line:column" against files. The file part may also be
// a numeric file ID.
func ParseAt(files *location.FileTable, s string) (location.Location, error) {
	colIdx := strings.LastIndexByte(s, ':')
	if colIdx <= 0 {
		return location.Location{}, errors.Errorf("position %q: expected path:line:column", s)
	}
	lineIdx := strings.LastIndexByte(s[:colIdx], ':')
	if lineIdx <= 0 {
		return location.Location{}, errors.Errorf("position %q: expected path:line:column", s)
	}

	file, ok := files.Lookup(s[:lineIdx])
	if !ok {
		id, err := strconv.ParseUint(s[:lineIdx], 10, 16)
		if err != nil {
			return location.Location{}, errors.Errorf("position %q: unknown file %q", s, s[:lineIdx])
		}
		file = location.FileID(id)
	}

	line, err := strconv.ParseUint(s[lineIdx+1:colIdx], 10, 32)
	if err != nil {
		return location.Location{}, errors.Errorf("position %q: parsing line: %w", s, err)
	}
	col, err := strconv.ParseUint(s[colIdx+1:], 10, 16)
	if err != nil {
		return location.Location{}, errors.Errorf("position %q: parsing column: %w", s, err)
	}

	return location.Location{File: file, Line: uint32(line), Column: uint16(col)}, nil
}
