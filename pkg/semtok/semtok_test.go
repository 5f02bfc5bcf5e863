package semtok_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/protocol"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/semtok"
)

func span(line uint32, from, to uint16) location.Range {
	return location.NewRange(
		location.Location{File: 1, Line: line, Column: from},
		location.Location{File: 1, Line: line, Column: to},
	)
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name     string
		facts    map[location.Range]annotation.Fact
		expected []semtok.Token
	}{
		{
			name: "macro definition and use",
			facts: map[location.Range]annotation.Fact{
				span(1, 9, 13): annotation.MacroDefinition{Name: "TILE"},
				span(3, 5, 9):  annotation.MacroUse{Name: "TILE"},
			},
			expected: []semtok.Token{
				{Type: semtok.TokenMacro, Modifiers: semtok.ModifierDeclaration, Range: span(1, 9, 13)},
				{Type: semtok.TokenMacro, Modifiers: semtok.ModifierReadonly, Range: span(3, 5, 9)},
			},
		},
		{
			name: "structural facts are skipped",
			facts: map[location.Range]annotation.Fact{
				span(2, 1, 20):  annotation.ProcHeader{Path: []string{"mob", "walk"}},
				span(2, 5, 9):   annotation.ScopedMissingIdent{Scope: []string{"src"}},
				span(2, 10, 14): annotation.UnscopedVar{Name: "dir"},
			},
			expected: []semtok.Token{
				{Type: semtok.TokenVariable, Range: span(2, 10, 14)},
			},
		},
		{
			name: "multi-line facts are skipped",
			facts: map[location.Range]annotation.Fact{
				location.NewRange(location.Location{File: 1, Line: 1, Column: 1}, location.Location{File: 1, Line: 2, Column: 3}): annotation.TreePath{Path: []string{"obj"}},
			},
			expected: []semtok.Token{},
		},
		{
			name: "overlaps keep the earlier token",
			facts: map[location.Range]annotation.Fact{
				span(4, 1, 12):  annotation.TypePath{},
				span(4, 6, 9):   annotation.UnscopedCall{Name: "new"},
				span(4, 12, 14): annotation.ParentCall{},
			},
			expected: []semtok.Token{
				{Type: semtok.TokenTypePath, Range: span(4, 1, 12)},
				{Type: semtok.TokenKeyword, Range: span(4, 12, 14)},
			},
		},
		{
			name: "other files are ignored",
			facts: map[location.Range]annotation.Fact{
				location.NewRange(location.Location{File: 2, Line: 1, Column: 1}, location.Location{File: 2, Line: 1, Column: 4}): annotation.Include{Path: "a.dm"},
			},
			expected: []semtok.Token{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := annotation.NewTree()
			for r, f := range tt.facts {
				tree.Insert(r, f)
			}
			got := semtok.Tokens(tree, 1)
			if len(tt.expected) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncode(t *testing.T) {
	tokens := []semtok.Token{
		{Type: semtok.TokenMacro, Modifiers: semtok.ModifierDeclaration, Range: span(1, 9, 13)},
		{Type: semtok.TokenFunction, Range: span(3, 5, 9)},
		{Type: semtok.TokenVariable, Modifiers: semtok.ModifierDefaultLibrary, Range: span(3, 10, 11)},
	}

	assert.Equal(t, []uint32{
		0, 8, 4, uint32(semtok.TokenMacro), 1,
		2, 4, 4, uint32(semtok.TokenFunction), 0,
		0, 5, 1, uint32(semtok.TokenVariable), 4,
	}, semtok.Encode(tokens))
}

func TestFull(t *testing.T) {
	tree := annotation.NewTree()
	tree.Insert(span(2, 3, 7), annotation.Resource{Path: "icons/a.dmi"})

	got := semtok.Full(tree, 1)
	assert.Equal(t, &protocol.SemanticTokens{Data: []uint32{1, 2, 4, uint32(semtok.TokenString), 0}}, got)
}

func TestLegend(t *testing.T) {
	legend := semtok.Legend()
	assert.Equal(t, protocol.SemanticTokenMacro, legend.TokenTypes[semtok.TokenMacro])
	assert.Equal(t, protocol.SemanticTokenType, legend.TokenTypes[semtok.TokenTypePath])
	assert.Len(t, legend.TokenModifiers, 3)

	assert.Equal(t, "declaration,defaultLibrary", (semtok.ModifierDeclaration | semtok.ModifierDefaultLibrary).String())
	assert.Equal(t, "none", semtok.ModifierNone.String())
	assert.Equal(t, "function", semtok.TokenFunction.String())
}
