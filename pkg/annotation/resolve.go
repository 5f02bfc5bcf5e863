package annotation

// Resolved rewrites a raw fact using what t already knows. A ReturnOperation
// becomes a ReturnStatement holding a copy of every fact stored over its
// range, in native order; an empty range or one with no facts yields an empty
// ReturnStatement. Every other fact is returned unchanged.
//
// Resolution is a single level deep: facts copied into the statement are not
// themselves resolved, so a nested ReturnOperation stays raw.
func (t *Tree) Resolved(f Fact) Fact {
	op, ok := f.(ReturnOperation)
	if !ok {
		return f
	}

	returned := []Fact{}
	if !op.Range.IsEmpty() {
		for _, v := range t.GetRange(op.Range) {
			returned = append(returned, Clone(v))
		}
	}
	return ReturnStatement{ReturnedValue: returned}
}

// Resolve returns a new tree holding every fact of t passed through Resolved,
// under the same ranges and with the same count. The result shares no slices
// with t and holds no ReturnOperation at the top level. t is left untouched
// and is the tree every resolution queries.
func (t *Tree) Resolve() *Tree {
	out := NewTree()
	for span, f := range t.Iter() {
		if _, raw := f.(ReturnOperation); raw {
			f = t.Resolved(f)
		} else {
			f = Clone(f)
		}
		out.index.Insert(span.Start, span.End, f)
	}
	out.len = t.len
	return out
}
