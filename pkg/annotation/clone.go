package annotation

import (
	"reflect"
	"slices"
)

// Clone deep-copies f so the copy shares no slices with the original. The
// documentation handle of a MacroUse is shared, not copied.
func Clone(f Fact) Fact {
	switch f := f.(type) {
	case TreeBlock:
		return TreeBlock{Path: slices.Clone(f.Path)}
	case TreePath:
		return TreePath{Absolute: f.Absolute, Path: slices.Clone(f.Path)}
	case TypePath:
		return TypePath{Path: slices.Clone(f.Path)}
	case Variable:
		return Variable{Path: slices.Clone(f.Path)}
	case ProcHeader:
		return ProcHeader{Path: slices.Clone(f.Path), Index: f.Index}
	case ProcBody:
		return ProcBody{Path: slices.Clone(f.Path), Index: f.Index}
	case LocalVarScope:
		f.Type.Path = slices.Clone(f.Type.Path)
		return f
	case ScopedCall:
		return ScopedCall{Scope: slices.Clone(f.Scope), Name: f.Name}
	case ScopedVar:
		return ScopedVar{Scope: slices.Clone(f.Scope), Name: f.Name}
	case ScopedMissingIdent:
		return ScopedMissingIdent{Scope: slices.Clone(f.Scope)}
	case IncompleteTypePath:
		return IncompleteTypePath{Path: slices.Clone(f.Path), Op: f.Op}
	case IncompleteTreePath:
		return IncompleteTreePath{Absolute: f.Absolute, Path: slices.Clone(f.Path)}
	case ProcArguments:
		return ProcArguments{Scope: slices.Clone(f.Scope), Name: f.Name, Index: f.Index}
	case ReturnStatement:
		if f.ReturnedValue == nil {
			return f
		}
		out := make([]Fact, len(f.ReturnedValue))
		for i, v := range f.ReturnedValue {
			out[i] = Clone(v)
		}
		return ReturnStatement{ReturnedValue: out}
	}
	// the remaining variants hold no slices
	return f
}

// Equal reports whether a and b are the same variant with equal payloads.
// Two MacroUse facts compare their documentation by content.
func Equal(a, b Fact) bool {
	return reflect.DeepEqual(a, b)
}
