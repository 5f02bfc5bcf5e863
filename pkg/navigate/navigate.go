// Package navigate answers go-to-definition, find-references and
// document-link queries from an annotation tree.
package navigate

import (
	"math"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/position"
)

// Definition finds where the symbol under the caret is defined: the #define
// of a macro, or the file an #include names.
func Definition(tree *annotation.Tree, m position.Mapper, loc location.Location) []protocol.Location {
	var out []protocol.Location
	for span, f := range tree.GetCursor(loc) {
		switch f := f.(type) {
		case annotation.MacroUse:
			def := f.DefinitionLocation
			if l, ok := m.Location(location.NewRange(def, def.Succ())); ok {
				out = append(out, l)
			}
		case annotation.Include:
			if u, ok := target(m, span.Start.File, f.Path); ok {
				out = append(out, protocol.Location{URI: u})
			}
		}
	}
	return out
}

// References lists every use of the macro defined or used under the caret.
// When includeDeclaration is set the definition itself comes first.
func References(tree *annotation.Tree, m position.Mapper, loc location.Location, includeDeclaration bool) []protocol.Location {
	var def location.Location
	var found bool
	for span, f := range tree.GetCursor(loc) {
		switch f := f.(type) {
		case annotation.MacroDefinition:
			def, found = span.Start, true
		case annotation.MacroUse:
			def, found = f.DefinitionLocation, true
		}
		if found {
			break
		}
	}
	if !found {
		return nil
	}

	var decl, uses []protocol.Location
	for span, f := range tree.Iter() {
		switch f := f.(type) {
		case annotation.MacroDefinition:
			if includeDeclaration && span.Start == def {
				decl = append(decl, locationOf(m, span)...)
			}
		case annotation.MacroUse:
			if f.DefinitionLocation == def {
				uses = append(uses, locationOf(m, span)...)
			}
		}
	}
	return append(decl, uses...)
}

// DocumentLinks lists the #include and resource references in file.
func DocumentLinks(tree *annotation.Tree, m position.Mapper, file location.FileID) []protocol.DocumentLink {
	whole := location.Inclusive{
		Start: location.Location{File: file},
		End:   location.Location{File: file, Line: math.MaxUint32, Column: math.MaxUint16},
	}

	var out []protocol.DocumentLink
	for span, f := range tree.GetRangeRaw(whole) {
		if span.Start.File != file {
			continue
		}
		var ref string
		switch f := f.(type) {
		case annotation.Include:
			ref = f.Path
		case annotation.Resource:
			ref = f.Path
		default:
			continue
		}
		u, ok := target(m, file, ref)
		if !ok {
			continue
		}
		out = append(out, protocol.DocumentLink{
			Range:  position.InclusiveToProtocol(span),
			Target: u,
		})
	}
	return out
}

// target resolves a path written in from against from's directory. DM
// source may spell separators either way.
func target(m position.Mapper, from location.FileID, ref string) (uri.URI, bool) {
	dir, ok := m.Path(from)
	if !ok {
		return "", false
	}
	p := filepath.FromSlash(strings.ReplaceAll(ref, `\`, "/"))
	if !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(dir), p)
	}
	return uri.File(p), true
}

func locationOf(m position.Mapper, span location.Inclusive) []protocol.Location {
	l, ok := m.Location(span.HalfOpen())
	if !ok {
		return nil
	}
	return []protocol.Location{l}
}
