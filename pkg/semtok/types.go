package semtok

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/walteh/annotree/pkg/location"
)

// TokenType indexes Legend().TokenTypes.
type TokenType uint32

const (
	TokenMacro TokenType = iota
	TokenFunction
	TokenVariable
	TokenTypePath
	TokenString
	TokenKeyword
)

var tokenTypes = [...]protocol.SemanticTokenTypes{
	TokenMacro:    protocol.SemanticTokenMacro,
	TokenFunction: protocol.SemanticTokenFunction,
	TokenVariable: protocol.SemanticTokenVariable,
	TokenTypePath: protocol.SemanticTokenType,
	TokenString:   protocol.SemanticTokenString,
	TokenKeyword:  protocol.SemanticTokenKeyword,
}

func (t TokenType) String() string {
	if int(t) < len(tokenTypes) {
		return string(tokenTypes[t])
	}
	return "unknown"
}

// TokenModifier is a bit set; bit i is Legend().TokenModifiers[i].
type TokenModifier uint32

const (
	ModifierNone        TokenModifier = 0
	ModifierDeclaration TokenModifier = 1 << (iota - 1)
	ModifierReadonly
	ModifierDefaultLibrary
)

var tokenModifiers = [...]protocol.SemanticTokenModifiers{
	protocol.SemanticTokenModifierDeclaration,
	protocol.SemanticTokenModifierReadonly,
	protocol.SemanticTokenModifierDefaultLibrary,
}

func (m TokenModifier) String() string {
	if m == ModifierNone {
		return "none"
	}
	var names []string
	for i, name := range tokenModifiers {
		if m&(1<<i) != 0 {
			names = append(names, string(name))
		}
	}
	return strings.Join(names, ",")
}

// Legend is advertised to clients so they can decode Encode's numbers.
func Legend() protocol.SemanticTokensLegend {
	return protocol.SemanticTokensLegend{
		TokenTypes:     tokenTypes[:],
		TokenModifiers: tokenModifiers[:],
	}
}

// Token is one highlighted span. Tokens never cross a line.
type Token struct {
	Type      TokenType
	Modifiers TokenModifier
	Range     location.Range
}
