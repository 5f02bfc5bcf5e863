// Package hover renders the facts under an editor caret as hover text.
package hover

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"go.lsp.dev/protocol"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/ast"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/position"
)

// HoverInfo represents the information to be displayed in a hover tooltip
type HoverInfo struct {
	// Content holds one markdown section per fact, innermost first
	Content []string
	// Range is the innermost range that produced content
	Range location.Range
}

type hit struct {
	span location.Inclusive
	fact annotation.Fact
}

// BuildHover collects every renderable fact at the caret. files resolves the
// paths of macro definitions and may be nil. It returns nil when nothing at
// loc has anything to show.
func BuildHover(ctx context.Context, tree *annotation.Tree, files *location.FileTable, loc location.Location) *HoverInfo {
	var hits []hit
	for span, f := range tree.GetCursor(loc) {
		hits = append(hits, hit{span: span, fact: f})
	}

	// narrowest first; ties keep the tree's order
	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := b.span.Start.Compare(a.span.Start); c != 0 {
			return c
		}
		return a.span.End.Compare(b.span.End)
	})

	var info *HoverInfo
	for _, h := range hits {
		text := Render(h.fact, files)
		if text == "" {
			continue
		}
		if info == nil {
			info = &HoverInfo{Range: h.span.HalfOpen()}
		}
		info.Content = append(info.Content, text)
	}

	zerolog.Ctx(ctx).Trace().Stringer("at", loc).Int("facts", len(hits)).Bool("found", info != nil).Msg("built hover")
	return info
}

// ToProtocol joins the sections into a single markdown hover.
func (h *HoverInfo) ToProtocol() *protocol.Hover {
	if h == nil {
		return nil
	}
	rng := position.RangeToProtocol(h.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: strings.Join(h.Content, "\n\n---\n\n"),
		},
		Range: &rng,
	}
}

func code(s string) string {
	return "```dm\n" + s + "\n```"
}

func procPath(path []ast.Ident, index int) string {
	s := ast.FormatTreePath(true, path)
	if index > 0 {
		s += fmt.Sprintf(" (override #%d)", index)
	}
	return s
}

func scoped(scope []ast.Ident, name string) string {
	return strings.Join(append(slices.Clone(scope), name), ".")
}

// Render is the hover text for one fact, or "" for facts that only carry
// context for other features.
func Render(f annotation.Fact, files *location.FileTable) string {
	switch f := f.(type) {
	case annotation.ProcHeader:
		return "**proc** " + code(procPath(f.Path, f.Index))
	case annotation.ProcBody:
		return "in **proc** " + code(procPath(f.Path, f.Index))
	case annotation.Variable:
		return "**var** " + code(ast.FormatTreePath(true, f.Path))
	case annotation.LocalVarScope:
		return "**local** " + code(f.Type.String()+"/"+f.Name)
	case annotation.TreeBlock:
		return "**type** " + code(ast.FormatTreePath(true, f.Path))
	case annotation.TreePath:
		return "**type** " + code(ast.FormatTreePath(f.Absolute, f.Path))
	case annotation.TypePath:
		return "**type** " + code(f.Path.String())
	case annotation.UnscopedCall:
		return "**call** " + code(f.Name+"()")
	case annotation.ScopedCall:
		return "**call** " + code(scoped(f.Scope, f.Name)+"()")
	case annotation.UnscopedVar:
		return "**var** " + code(f.Name)
	case annotation.ScopedVar:
		return "**var** " + code(scoped(f.Scope, f.Name))
	case annotation.ParentCall:
		return "**call** " + code("..()") + "\n\ncalls the parent proc"
	case annotation.ReturnVal:
		return code(".") + "\n\nthe current return value"
	case annotation.MacroDefinition:
		return "**macro** " + code("#define "+f.Name)
	case annotation.MacroUse:
		return renderMacroUse(f, files)
	case annotation.Include:
		return "**include** " + code(fmt.Sprintf("#include %q", f.Path))
	case annotation.Resource:
		return "**resource** " + code(fmt.Sprintf("'%s'", f.Path))
	case annotation.ReturnStatement:
		return renderReturn(f)
	}
	return ""
}

func renderMacroUse(f annotation.MacroUse, files *location.FileTable) string {
	var sb strings.Builder
	sb.WriteString("**macro** ")
	sb.WriteString(code("#define " + f.Name))

	def := f.DefinitionLocation
	if files != nil {
		if p, ok := files.Path(def.File); ok {
			fmt.Fprintf(&sb, "\n\ndefined at `%s:%d:%d`", p, def.Line, def.Column)
		}
	}

	if text := f.Docs.Text(); text != "" {
		sb.WriteString("\n\n")
		sb.WriteString(text)
	}
	return sb.String()
}

func renderReturn(f annotation.ReturnStatement) string {
	if len(f.ReturnedValue) == 0 {
		return "**return**"
	}
	kinds := make([]string, 0, len(f.ReturnedValue))
	for _, v := range f.ReturnedValue {
		kinds = append(kinds, "`"+v.Kind().String()+"`")
	}
	return "**return** of " + strings.Join(kinds, ", ")
}
