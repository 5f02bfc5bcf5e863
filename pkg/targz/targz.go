// Package targz reads and writes gzipped tarballs of dump files. Archives are
// loaded into an in-memory filesystem so the regular dump readers can be
// pointed at them.
package targz

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// IsArchive reports whether p names a gzipped tarball.
func IsArchive(p string) bool {
	p = strings.ToLower(p)
	return strings.HasSuffix(p, ".tar.gz") || strings.HasSuffix(p, ".tgz")
}

// LoadOptions provides configuration for loading files into memory
type LoadOptions struct {
	// StripComponents removes the specified number of leading path components
	// Similar to tar's --strip-components
	StripComponents int

	// Filter allows filtering files during loading
	// Return true to load the file, false to skip it
	Filter func(name string) bool
}

// Load reads a tar.gz stream into a fresh in-memory filesystem. It returns
// the filesystem and the stored paths in archive order. Only regular files
// are kept; entries escaping the archive root are rejected.
func Load(r io.Reader, opts LoadOptions) (afero.Fs, []string, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, errors.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzr.Close()

	fs := afero.NewMemMapFs()
	var paths []string
	seen := map[string]bool{}

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Errorf("failed to read tar: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		components := SplitPath(header.Name)
		if slices.Contains(components, "..") {
			return nil, nil, errors.Errorf("entry %q escapes the archive", header.Name)
		}
		if len(components) <= opts.StripComponents {
			continue
		}
		name := path.Join(components[opts.StripComponents:]...)

		if opts.Filter != nil && !opts.Filter(name) {
			continue
		}
		if seen[name] {
			return nil, nil, errors.Errorf("file collision: %s already exists in archive", name)
		}
		seen[name] = true

		if err := fs.MkdirAll(path.Dir(name), 0755); err != nil {
			return nil, nil, errors.Errorf("failed to create directory for %s: %w", name, err)
		}
		f, err := fs.Create(name)
		if err != nil {
			return nil, nil, errors.Errorf("failed to create file %s: %w", name, err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return nil, nil, errors.Errorf("failed to read file %s: %w", header.Name, err)
		}
		if err := f.Close(); err != nil {
			return nil, nil, errors.Errorf("failed to close file %s: %w", name, err)
		}
		paths = append(paths, name)
	}

	return fs, paths, nil
}

// Pack writes the named files of fs as a tar.gz stream, keeping their paths.
func Pack(w io.Writer, fs afero.Fs, paths []string) error {
	gzw := gzip.NewWriter(w)
	tw := tar.NewWriter(gzw)

	for _, p := range paths {
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return errors.Errorf("failed to read %s: %w", p, err)
		}
		hdr := &tar.Header{
			Name:     path.Join(SplitPath(p)...),
			Mode:     0644,
			Size:     int64(len(data)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Errorf("failed to write header for %s: %w", p, err)
		}
		if _, err := tw.Write(data); err != nil {
			return errors.Errorf("failed to write %s: %w", p, err)
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Errorf("failed to close tar: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return errors.Errorf("failed to close gzip: %w", err)
	}
	return nil
}

// SplitPath splits a slash separated path into its non-empty components.
func SplitPath(p string) []string {
	var components []string
	for _, c := range strings.Split(p, "/") {
		if c == "" || c == "." {
			continue
		}
		components = append(components, c)
	}
	return components
}
