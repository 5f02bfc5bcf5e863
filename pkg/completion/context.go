package completion

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/ast"
	"github.com/walteh/annotree/pkg/location"
)

// Situation classifies what the user is typing at the caret.
type Situation int

const (
	SituationNone Situation = iota
	// SituationIdentifier is a bare name inside a proc.
	SituationIdentifier
	// SituationProcArgument is an argument slot of a call with nothing typed yet.
	SituationProcArgument
	// SituationTreePath continues a slash-separated object path.
	SituationTreePath
	// SituationTypePath continues a path after "/", "." or ":".
	SituationTypePath
	// SituationMember follows a "." on some scope.
	SituationMember
)

var situationNames = [...]string{"none", "identifier", "proc-argument", "tree-path", "type-path", "member"}

func (s Situation) String() string {
	if int(s) < len(situationNames) {
		return situationNames[s]
	}
	return "unknown"
}

// Call identifies the call whose argument list holds the caret.
type Call struct {
	Scope    []ast.Ident
	Name     string
	Argument int
}

type Local struct {
	Name ast.Ident
	Type ast.VarType
}

// CompletionContext holds information about the completion request context
type CompletionContext struct {
	Situation Situation
	// Prefix is the partially typed name, empty after a separator.
	Prefix string

	Scope    []ast.Ident
	TypePath ast.TypePath
	Op       ast.PathOp
	TreePath []ast.Ident
	Absolute bool

	Call *Call

	// Proc is the path of the enclosing proc, nil outside procs.
	Proc []ast.Ident
	// Block is the innermost enclosing object tree block.
	Block []ast.Ident
	// Locals are the local variables in scope, innermost first.
	Locals []Local
}

type candidate struct {
	span location.Inclusive
	fact annotation.Fact
}

// ContextAt inspects the facts under the caret and decides what kind of
// completion applies. Facts written for error recovery take precedence over
// complete tokens, which take precedence over enclosing structure.
func ContextAt(ctx context.Context, tree *annotation.Tree, loc location.Location) *CompletionContext {
	var facts []candidate
	for span, f := range tree.GetCursor(loc) {
		facts = append(facts, candidate{span: span, fact: f})
	}
	// innermost first
	slices.SortStableFunc(facts, func(a, b candidate) int {
		return b.span.Start.Compare(a.span.Start)
	})

	c := &CompletionContext{}
	var argument *annotation.ProcArgument
	for _, cand := range facts {
		switch f := cand.fact.(type) {
		case annotation.ProcBody:
			if c.Proc == nil {
				c.Proc = f.Path
			}
		case annotation.TreeBlock:
			if c.Block == nil {
				c.Block = f.Path
			}
		case annotation.LocalVarScope:
			c.Locals = append(c.Locals, Local{Name: f.Name, Type: f.Type})
		case annotation.ProcArgument:
			if argument == nil {
				argument = &f
			}
		case annotation.ProcArguments:
			if c.Call == nil {
				c.Call = &Call{Scope: f.Scope, Name: f.Name}
			}
		}
	}
	if c.Call != nil && argument != nil {
		c.Call.Argument = argument.Index
	}

	// error facts first, then complete tokens, each innermost first
	decided := false
	for _, recovery := range []bool{true, false} {
		for _, cand := range facts {
			if annotation.KindOf(cand.fact).IsError() != recovery {
				continue
			}
			if decided = classify(c, cand.fact); decided {
				break
			}
		}
		if decided {
			break
		}
	}
	if c.Situation == SituationNone {
		switch {
		case c.Call != nil:
			c.Situation = SituationProcArgument
		case c.Proc != nil:
			c.Situation = SituationIdentifier
		}
	}

	zerolog.Ctx(ctx).Trace().Stringer("at", loc).Stringer("situation", c.Situation).Str("prefix", c.Prefix).Msg("completion context")
	return c
}

// classify fills c from a token-level fact and reports whether it decided the situation.
func classify(c *CompletionContext, f annotation.Fact) bool {
	switch f := f.(type) {
	case annotation.ScopedMissingIdent:
		c.Situation, c.Scope = SituationMember, f.Scope
	case annotation.IncompleteTypePath:
		c.Situation, c.TypePath, c.Op = SituationTypePath, f.Path, f.Op
	case annotation.IncompleteTreePath:
		c.Situation, c.TreePath, c.Absolute = SituationTreePath, f.Path, f.Absolute
	case annotation.ScopedCall:
		c.Situation, c.Scope, c.Prefix = SituationMember, f.Scope, f.Name
	case annotation.ScopedVar:
		c.Situation, c.Scope, c.Prefix = SituationMember, f.Scope, f.Name
	case annotation.TypePath:
		if len(f.Path) == 0 {
			return false
		}
		last := f.Path[len(f.Path)-1]
		c.Situation, c.TypePath, c.Op, c.Prefix = SituationTypePath, f.Path[:len(f.Path)-1], last.Op, last.Name
	case annotation.TreePath:
		if len(f.Path) == 0 {
			return false
		}
		c.Situation, c.Absolute = SituationTreePath, f.Absolute
		c.TreePath, c.Prefix = f.Path[:len(f.Path)-1], f.Path[len(f.Path)-1]
	case annotation.UnscopedCall:
		c.Situation, c.Prefix = SituationIdentifier, f.Name
	case annotation.UnscopedVar:
		c.Situation, c.Prefix = SituationIdentifier, f.Name
	default:
		return false
	}
	return true
}
