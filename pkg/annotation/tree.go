package annotation

import (
	"iter"

	"github.com/walteh/annotree/pkg/interval"
	"github.com/walteh/annotree/pkg/location"
)

// Index is the interval store a Tree keeps its facts in.
type Index = interval.Store[location.Location, Fact]

// Tree maps source ranges to the facts found there. Ranges may nest and
// overlap freely and several facts may share one range; every overlapping
// fact is returned by queries.
//
// A Tree has a single writer. Merge needs exclusive access to both trees.
// Once construction is done any number of readers may query it concurrently.
// The zero value is an empty tree.
type Tree struct {
	index Index
	len   int
}

func NewTree() *Tree {
	return &Tree{index: interval.New[location.Location, Fact]()}
}

// NewTreeWithIndex builds a tree on top of a caller-supplied store. The store
// must be empty.
func NewTreeWithIndex(index Index) *Tree {
	return &Tree{index: index}
}

func (t *Tree) store() Index {
	if t.index == nil {
		t.index = interval.New[location.Location, Fact]()
	}
	return t.index
}

// Insert records f over the half-open range r. The tree takes ownership of f:
// callers must not modify slices reachable from it afterwards. r must not be
// empty or inverted.
func (t *Tree) Insert(r location.Range, f Fact) {
	span := r.Inclusive()
	t.store().Insert(span.Start, span.End, f)
	t.len++
}

// Merge moves every entry of other into t and adds other's count to t's.
// other is left empty.
func (t *Tree) Merge(other *Tree) {
	if other == nil {
		return
	}
	if other == t {
		panic("annotation: merge of a tree into itself")
	}

	t.len += other.len
	if other.index != nil {
		t.store().Merge(other.index)
	}
	other.index = nil
	other.len = 0
}

// Len is the number of inserts this tree has absorbed, including those that
// arrived through Merge.
func (t *Tree) Len() int {
	return t.len
}

func (t *Tree) IsEmpty() bool {
	return t.len == 0
}

// Iter yields every (inclusive range, fact) pair in the store's native order.
func (t *Tree) Iter() iter.Seq2[location.Inclusive, Fact] {
	return func(yield func(location.Inclusive, Fact) bool) {
		if t.index == nil {
			return
		}
		for e := range t.index.All() {
			if !yield(location.Inclusive{Start: e.Lo, End: e.Hi}, e.Value) {
				return
			}
		}
	}
}

// GetLocation yields the facts whose range [start, end) contains loc.
func (t *Tree) GetLocation(loc location.Location) iter.Seq2[location.Inclusive, Fact] {
	return t.GetRangeRaw(location.Point(loc))
}

// GetCursor is GetLocation for an editor caret: it also matches facts that
// end exactly at loc, so a caret placed right after an identifier still
// finds it. It probes [loc.Pred(), loc].
func (t *Tree) GetCursor(loc location.Location) iter.Seq2[location.Inclusive, Fact] {
	if loc.IsZero() {
		return t.GetRangeRaw(location.Point(loc))
	}
	return t.GetRangeRaw(location.Inclusive{Start: loc.Pred(), End: loc})
}

// GetRange yields the facts overlapping the half-open range r. Facts that
// begin exactly at r.End are excluded. r must not be empty or inverted.
func (t *Tree) GetRange(r location.Range) iter.Seq2[location.Inclusive, Fact] {
	return t.GetRangeRaw(r.Inclusive())
}

// GetRangeRaw yields the facts overlapping the already inclusive range r.
func (t *Tree) GetRangeRaw(r location.Inclusive) iter.Seq2[location.Inclusive, Fact] {
	return func(yield func(location.Inclusive, Fact) bool) {
		if t.index == nil {
			return
		}
		for e := range t.index.Overlapping(r.Start, r.End) {
			if !yield(location.Inclusive{Start: e.Lo, End: e.Hi}, e.Value) {
				return
			}
		}
	}
}

// Facts drops the ranges of a query result.
func Facts(seq iter.Seq2[location.Inclusive, Fact]) []Fact {
	var out []Fact
	for _, f := range seq {
		out = append(out, f)
	}
	return out
}

// CountByKind tallies the stored facts per variant.
func (t *Tree) CountByKind() map[Kind]int {
	out := map[Kind]int{}
	for _, f := range t.Iter() {
		out[f.Kind()]++
	}
	return out
}
