// Package semtok derives editor semantic tokens from the facts of a tree.
package semtok

import (
	"math"
	"slices"

	"go.lsp.dev/protocol"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/position"
)

// classify maps a token-level fact to its highlighting. Structural and
// error-recovery facts produce nothing.
func classify(f annotation.Fact) (TokenType, TokenModifier, bool) {
	switch f.(type) {
	case annotation.MacroDefinition:
		return TokenMacro, ModifierDeclaration, true
	case annotation.MacroUse:
		return TokenMacro, ModifierReadonly, true
	case annotation.UnscopedCall, annotation.ScopedCall:
		return TokenFunction, ModifierNone, true
	case annotation.UnscopedVar, annotation.ScopedVar:
		return TokenVariable, ModifierNone, true
	case annotation.ReturnVal:
		return TokenVariable, ModifierDefaultLibrary, true
	case annotation.ParentCall:
		return TokenKeyword, ModifierNone, true
	case annotation.TreePath, annotation.TypePath:
		return TokenTypePath, ModifierNone, true
	case annotation.Include, annotation.Resource:
		return TokenString, ModifierNone, true
	}
	return 0, 0, false
}

// Tokens lists the tokens of file ordered by position. Where facts overlap
// the one starting first wins, and the narrower one on a tie.
func Tokens(tree *annotation.Tree, file location.FileID) []Token {
	whole := location.Inclusive{
		Start: location.Location{File: file},
		End:   location.Location{File: file, Line: math.MaxUint32, Column: math.MaxUint16},
	}

	var all []Token
	for span, f := range tree.GetRangeRaw(whole) {
		typ, mods, ok := classify(f)
		if !ok || span.Start.File != file || span.Start.Line != span.End.Line {
			continue
		}
		all = append(all, Token{Type: typ, Modifiers: mods, Range: span.HalfOpen()})
	}

	slices.SortStableFunc(all, func(a, b Token) int {
		if c := a.Range.Start.Compare(b.Range.Start); c != 0 {
			return c
		}
		return a.Range.End.Compare(b.Range.End)
	})

	out := all[:0]
	for _, tok := range all {
		if len(out) > 0 && tok.Range.Start.Less(out[len(out)-1].Range.End) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Encode packs tokens into the relative five-integer form: line delta,
// start delta, length, type, modifiers. Tokens must be sorted and disjoint.
func Encode(tokens []Token) []uint32 {
	data := make([]uint32, 0, len(tokens)*5)
	var prevLine, prevChar uint32
	for _, tok := range tokens {
		start := position.ToProtocol(tok.Range.Start)
		length := uint32(tok.Range.End.Column - tok.Range.Start.Column)

		deltaChar := start.Character
		if start.Line == prevLine {
			deltaChar -= prevChar
		}
		data = append(data, start.Line-prevLine, deltaChar, length, uint32(tok.Type), uint32(tok.Modifiers))
		prevLine, prevChar = start.Line, start.Character
	}
	return data
}

// Full is the semantic tokens response for a whole file.
func Full(tree *annotation.Tree, file location.FileID) *protocol.SemanticTokens {
	return &protocol.SemanticTokens{Data: Encode(Tokens(tree, file))}
}
