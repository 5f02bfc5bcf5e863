// Package annotation stores the semantic facts a parser discovers, indexed by
// the source ranges that produced them.
//
// A parse pass inserts facts into a Tree as it walks the source. Trees built
// from independently parsed fragments are merged into one, return markers are
// resolved against what the tree already knows, and IDE features then query
// the finished tree by location or range.
package annotation

import (
	"github.com/walteh/annotree/pkg/ast"
	"github.com/walteh/annotree/pkg/docs"
	"github.com/walteh/annotree/pkg/location"
)

// Fact is one semantic fact about a source range. The set of implementations
// is closed; consumers switch on the concrete type (or on Kind) and are
// expected to handle every variant.
type Fact interface {
	Kind() Kind
	fact()
}

// contextual information

// TreeBlock marks the body of an object tree block such as /obj/item { ... }.
type TreeBlock struct {
	Path []ast.Ident `json:"path" msgpack:"path"`
}

// TreePath is a slash-separated object path as written, e.g. /obj/item.
type TreePath struct {
	Absolute bool        `json:"absolute" msgpack:"absolute"`
	Path     []ast.Ident `json:"path" msgpack:"path"`
}

// TypePath is a path mixing "/", "." and ":" separators.
type TypePath struct {
	Path ast.TypePath `json:"path" msgpack:"path"`
}

// Variable spans a variable declaration on an object type.
type Variable struct {
	Path []ast.Ident `json:"path" msgpack:"path"`
}

// ProcHeader spans a proc's signature. Index is its overload number on the type.
type ProcHeader struct {
	Path  []ast.Ident `json:"path" msgpack:"path"`
	Index int         `json:"index" msgpack:"index"`
}

// ProcBody spans a proc's body.
type ProcBody struct {
	Path  []ast.Ident `json:"path" msgpack:"path"`
	Index int         `json:"index" msgpack:"index"`
}

// LocalVarScope spans the region in which a local variable is visible.
type LocalVarScope struct {
	Type ast.VarType `json:"type" msgpack:"type"`
	Name ast.Ident   `json:"name" msgpack:"name"`
}

// information about a specific token

// UnscopedCall is a call to a proc by bare name.
type UnscopedCall struct {
	Name ast.Ident `json:"name" msgpack:"name"`
}

// UnscopedVar is a reference to a variable by bare name.
type UnscopedVar struct {
	Name ast.Ident `json:"name" msgpack:"name"`
}

// ScopedCall is a call through a prefix such as a.b.proc().
type ScopedCall struct {
	Scope []ast.Ident `json:"scope" msgpack:"scope"`
	Name  ast.Ident   `json:"name" msgpack:"name"`
}

// ScopedVar is a variable reached through a prefix such as a.b.var.
type ScopedVar struct {
	Scope []ast.Ident `json:"scope" msgpack:"scope"`
	Name  ast.Ident   `json:"name" msgpack:"name"`
}

// ParentCall marks a `..` call.
type ParentCall struct{}

// ReturnVal marks a `.` reference to the current return value.
type ReturnVal struct{}

// InSequence is the position of an identifier within the enclosing path fact.
type InSequence struct {
	Index int `json:"index" msgpack:"index"`
}

// macros

// MacroDefinition spans the name in a #define.
type MacroDefinition struct {
	Name ast.Ident `json:"name" msgpack:"name"`
}

// MacroUse marks an expansion of a macro defined at DefinitionLocation. Docs is
// shared with every other fact referring to the same definition.
type MacroUse struct {
	Name               string            `json:"name" msgpack:"name"`
	DefinitionLocation location.Location `json:"definition_location" msgpack:"definition_location"`
	Docs               *docs.Collection  `json:"docs,omitempty" msgpack:"docs,omitempty"`
}

// file system references, carried verbatim

type Include struct {
	Path string `json:"path" msgpack:"path"`
}

type Resource struct {
	Path string `json:"path" msgpack:"path"`
}

// error recovery, mostly for autocompletion

// ScopedMissingIdent marks a "." followed by something other than an identifier.
type ScopedMissingIdent struct {
	Scope []ast.Ident `json:"scope" msgpack:"scope"`
}

// IncompleteTypePath is a type path cut off after a separator.
type IncompleteTypePath struct {
	Path ast.TypePath `json:"path" msgpack:"path"`
	Op   ast.PathOp   `json:"op" msgpack:"op"`
}

// IncompleteTreePath is a tree path cut off after a slash.
type IncompleteTreePath struct {
	Absolute bool        `json:"absolute" msgpack:"absolute"`
	Path     []ast.Ident `json:"path" msgpack:"path"`
}

// call arguments

// ProcArguments spans the argument list of a call. Scope is empty for unscoped calls.
type ProcArguments struct {
	Scope []ast.Ident `json:"scope" msgpack:"scope"`
	Name  string      `json:"name" msgpack:"name"`
	Index int         `json:"index" msgpack:"index"`
}

// ProcArgument spans the Index-th argument inside a ProcArguments.
type ProcArgument struct {
	Index int `json:"index" msgpack:"index"`
}

// return analysis

// ReturnOperation is the raw form of a return: the returned expression spans
// Range. Tree.Resolved rewrites it into a ReturnStatement.
type ReturnOperation struct {
	Range location.Range `json:"range" msgpack:"range"`
}

// ReturnStatement is the resolved form of a ReturnOperation: every fact found
// within the returned expression's range.
type ReturnStatement struct {
	ReturnedValue []Fact
}

func (TreeBlock) fact()          {}
func (TreePath) fact()           {}
func (TypePath) fact()           {}
func (Variable) fact()           {}
func (ProcHeader) fact()         {}
func (ProcBody) fact()           {}
func (LocalVarScope) fact()      {}
func (UnscopedCall) fact()       {}
func (UnscopedVar) fact()        {}
func (ScopedCall) fact()         {}
func (ScopedVar) fact()          {}
func (ParentCall) fact()         {}
func (ReturnVal) fact()          {}
func (InSequence) fact()         {}
func (MacroDefinition) fact()    {}
func (MacroUse) fact()           {}
func (Include) fact()            {}
func (Resource) fact()           {}
func (ScopedMissingIdent) fact() {}
func (IncompleteTypePath) fact() {}
func (IncompleteTreePath) fact() {}
func (ProcArguments) fact()      {}
func (ProcArgument) fact()       {}
func (ReturnOperation) fact()    {}
func (ReturnStatement) fact()    {}

func (TreeBlock) Kind() Kind          { return KindTreeBlock }
func (TreePath) Kind() Kind           { return KindTreePath }
func (TypePath) Kind() Kind           { return KindTypePath }
func (Variable) Kind() Kind           { return KindVariable }
func (ProcHeader) Kind() Kind         { return KindProcHeader }
func (ProcBody) Kind() Kind           { return KindProcBody }
func (LocalVarScope) Kind() Kind      { return KindLocalVarScope }
func (UnscopedCall) Kind() Kind       { return KindUnscopedCall }
func (UnscopedVar) Kind() Kind        { return KindUnscopedVar }
func (ScopedCall) Kind() Kind         { return KindScopedCall }
func (ScopedVar) Kind() Kind          { return KindScopedVar }
func (ParentCall) Kind() Kind         { return KindParentCall }
func (ReturnVal) Kind() Kind          { return KindReturnVal }
func (InSequence) Kind() Kind         { return KindInSequence }
func (MacroDefinition) Kind() Kind    { return KindMacroDefinition }
func (MacroUse) Kind() Kind           { return KindMacroUse }
func (Include) Kind() Kind            { return KindInclude }
func (Resource) Kind() Kind           { return KindResource }
func (ScopedMissingIdent) Kind() Kind { return KindScopedMissingIdent }
func (IncompleteTypePath) Kind() Kind { return KindIncompleteTypePath }
func (IncompleteTreePath) Kind() Kind { return KindIncompleteTreePath }
func (ProcArguments) Kind() Kind      { return KindProcArguments }
func (ProcArgument) Kind() Kind       { return KindProcArgument }
func (ReturnOperation) Kind() Kind    { return KindReturnOperation }
func (ReturnStatement) Kind() Kind    { return KindReturnStatement }
