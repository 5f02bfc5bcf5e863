// Package position converts between annotation locations and the line/character
// coordinates of the language server protocol.
//
// Locations are 1-based with the column counted in grapheme clusters; protocol
// positions are 0-based. Line 0 or column 0 (the builtins file uses them)
// clamp to 0.
package position

import (
	"path/filepath"

	"fortio.org/safecast"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/walteh/annotree/pkg/location"
)

func ToProtocol(loc location.Location) protocol.Position {
	return protocol.Position{
		Line:      uint32(max(int64(loc.Line)-1, 0)),
		Character: uint32(max(int64(loc.Column)-1, 0)),
	}
}

// FromProtocol places p in file. Characters beyond the column range are rejected.
func FromProtocol(file location.FileID, p protocol.Position) (location.Location, error) {
	col, err := safecast.Conv[uint16](uint64(p.Character) + 1)
	if err != nil {
		return location.Location{}, errors.Errorf("character %d: %w", p.Character, err)
	}
	return location.Location{File: file, Line: p.Line + 1, Column: col}, nil
}

func RangeToProtocol(r location.Range) protocol.Range {
	return protocol.Range{Start: ToProtocol(r.Start), End: ToProtocol(r.End)}
}

// InclusiveToProtocol converts a stored range; the protocol end is exclusive.
func InclusiveToProtocol(r location.Inclusive) protocol.Range {
	return RangeToProtocol(r.HalfOpen())
}

// Mapper turns file IDs into document URIs and back. Relative paths in the
// table are resolved against Root.
type Mapper struct {
	Files *location.FileTable
	Root  string
}

func (m Mapper) Path(id location.FileID) (string, bool) {
	p, ok := m.Files.Path(id)
	if !ok {
		return "", false
	}
	if !filepath.IsAbs(p) && m.Root != "" {
		p = filepath.Join(m.Root, p)
	}
	return p, true
}

// URI is the document URI of id. The builtins file has none.
func (m Mapper) URI(id location.FileID) (uri.URI, bool) {
	p, ok := m.Path(id)
	if !ok {
		return "", false
	}
	return uri.File(p), true
}

// File finds the ID a document URI was registered under, trying the path
// both as is and relative to Root.
func (m Mapper) File(u uri.URI) (location.FileID, bool) {
	p := u.Filename()
	if id, ok := m.Files.Lookup(p); ok {
		return id, true
	}
	if m.Root == "" {
		return 0, false
	}
	rel, err := filepath.Rel(m.Root, p)
	if err != nil {
		return 0, false
	}
	return m.Files.Lookup(filepath.ToSlash(rel))
}

// Location converts r into a protocol location in r.Start's file.
func (m Mapper) Location(r location.Range) (protocol.Location, bool) {
	u, ok := m.URI(r.Start.File)
	if !ok {
		return protocol.Location{}, false
	}
	return protocol.Location{URI: u, Range: RangeToProtocol(r)}, true
}
