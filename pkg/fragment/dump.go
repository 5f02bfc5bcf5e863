package fragment

import (
	"context"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/dump"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/targz"
)

// DumpSource reads a previously written dump as a parse unit. Its file IDs
// are re-keyed into the table passed to Annotate before the facts are inserted.
type DumpSource struct {
	Fs   afero.Fs
	Path string
	// Label replaces Path in reports, e.g. for dumps read out of an archive.
	Label string
}

func (s DumpSource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Path
}

func (s DumpSource) Annotate(ctx context.Context, files *location.FileTable, tree *annotation.Tree) error {
	d, err := dump.Read(ctx, s.Fs, s.Path)
	if err != nil {
		return err
	}
	if err := d.Remap(files); err != nil {
		return errors.Errorf("remapping files: %w", err)
	}
	loaded, err := d.Tree()
	if err != nil {
		return err
	}
	tree.Merge(loaded)
	return nil
}

// DumpSources expands patterns with dump.Glob and returns one source per
// file. A .tar.gz or .tgz match contributes one source per dump inside it.
func DumpSources(fs afero.Fs, patterns ...string) ([]Source, error) {
	paths, err := dump.Glob(fs, patterns...)
	if err != nil {
		return nil, err
	}
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		if !targz.IsArchive(p) {
			out = append(out, DumpSource{Fs: fs, Path: p})
			continue
		}
		inner, err := ArchiveSources(fs, p)
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

// ArchiveSources loads the archive at path into memory and returns a source
// for every entry with a dump extension, in archive order.
func ArchiveSources(fs afero.Fs, path string) ([]Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	mem, entries, err := targz.Load(f, targz.LoadOptions{
		Filter: func(name string) bool {
			_, err := dump.FormatFor(name)
			return err == nil
		},
	})
	if err != nil {
		return nil, errors.Errorf("loading archive %s: %w", path, err)
	}

	out := make([]Source, len(entries))
	for i, e := range entries {
		out[i] = DumpSource{Fs: mem, Path: e, Label: path + "!" + e}
	}
	return out, nil
}
