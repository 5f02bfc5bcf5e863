package annotation_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/interval"
	"github.com/walteh/annotree/pkg/location"
)

// col builds a location on line 1 of file 1; most tests only vary the column.
func col(c uint16) location.Location {
	return location.Location{File: 1, Line: 1, Column: c}
}

func span(start, end uint16) location.Range {
	return location.NewRange(col(start), col(end))
}

func call(name string) annotation.Fact {
	return annotation.UnscopedCall{Name: name}
}

func collect(t *testing.T, tree *annotation.Tree) []string {
	t.Helper()
	var out []string
	for r, f := range tree.Iter() {
		out = append(out, fmt.Sprintf("%s %s %v", r, f.Kind(), f))
	}
	return out
}

func TestInsertAndLen(t *testing.T) {
	tree := annotation.NewTree()
	assert.True(t, tree.IsEmpty())
	assert.Equal(t, 0, tree.Len())

	tree.Insert(span(1, 4), call("a"))
	tree.Insert(span(1, 4), call("a"))
	tree.Insert(span(2, 3), annotation.InSequence{Index: 0})

	assert.False(t, tree.IsEmpty())
	assert.Equal(t, 3, tree.Len())
	assert.Len(t, annotation.Facts(tree.Iter()), 3, "duplicates are kept")
}

func TestZeroValueTree(t *testing.T) {
	var tree annotation.Tree

	assert.Empty(t, annotation.Facts(tree.GetLocation(col(3))))
	assert.Empty(t, annotation.Facts(tree.Iter()))

	tree.Insert(span(1, 5), call("x"))
	assert.Equal(t, []annotation.Fact{call("x")}, annotation.Facts(tree.GetLocation(col(3))))
}

func TestInsertRejectsEmptyRange(t *testing.T) {
	tree := annotation.NewTree()
	assert.Panics(t, func() { tree.Insert(span(5, 5), call("x")) })
	assert.Panics(t, func() { tree.Insert(span(6, 5), call("x")) })
}

func TestGetLocationContainment(t *testing.T) {
	tree := annotation.NewTree()
	tree.Insert(span(10, 15), call("first"))
	tree.Insert(span(20, 22), call("second"))

	tests := []struct {
		name string
		at   uint16
		want []annotation.Fact
	}{
		{name: "before first", at: 9, want: nil},
		{name: "start is inclusive", at: 10, want: []annotation.Fact{call("first")}},
		{name: "inside", at: 12, want: []annotation.Fact{call("first")}},
		{name: "last covered column", at: 14, want: []annotation.Fact{call("first")}},
		{name: "end is exclusive", at: 15, want: nil},
		{name: "gap", at: 17, want: nil},
		{name: "second", at: 21, want: []annotation.Fact{call("second")}},
		{name: "after second", at: 22, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, annotation.Facts(tree.GetLocation(col(tt.at))))
		})
	}
}

func TestGetLocationOverlapping(t *testing.T) {
	tree := annotation.NewTree()
	tree.Insert(span(0, 40), annotation.ProcBody{Path: []string{"obj", "proc", "go"}})
	tree.Insert(span(5, 9), annotation.ScopedCall{Scope: []string{"src"}, Name: "move"})
	tree.Insert(span(5, 9), annotation.InSequence{Index: 1})

	got := annotation.Facts(tree.GetLocation(col(6)))
	assert.Equal(t, []annotation.Fact{
		annotation.ProcBody{Path: []string{"obj", "proc", "go"}},
		annotation.ScopedCall{Scope: []string{"src"}, Name: "move"},
		annotation.InSequence{Index: 1},
	}, got)
}

func TestGetCursor(t *testing.T) {
	tree := annotation.NewTree()
	tree.Insert(span(10, 15), call("ident"))

	assert.Equal(t, []annotation.Fact{call("ident")}, annotation.Facts(tree.GetCursor(col(15))), "caret right after the token")
	assert.Equal(t, []annotation.Fact{call("ident")}, annotation.Facts(tree.GetCursor(col(10))))
	assert.Empty(t, annotation.Facts(tree.GetCursor(col(16))))
	assert.Empty(t, annotation.Facts(tree.GetCursor(location.Location{})))
}

func TestGetRangeBoundary(t *testing.T) {
	tree := annotation.NewTree()
	tree.Insert(span(0, 5), call("before"))
	tree.Insert(span(5, 10), call("touches-last"))
	tree.Insert(span(9, 10), call("at-last"))
	tree.Insert(span(10, 12), call("starts-at-end"))

	got := annotation.Facts(tree.GetRange(span(5, 10)))
	assert.Equal(t, []annotation.Fact{call("touches-last"), call("at-last")}, got)

	raw := annotation.Facts(tree.GetRangeRaw(location.Inclusive{Start: col(4), End: col(10)}))
	assert.Equal(t, []annotation.Fact{call("before"), call("touches-last"), call("at-last"), call("starts-at-end")}, raw)
}

func TestMergeCounts(t *testing.T) {
	a := annotation.NewTree()
	a.Insert(span(1, 2), call("a1"))
	a.Insert(span(3, 4), call("a2"))

	b := annotation.NewTree()
	b.Insert(span(1, 2), call("b1"))

	c := annotation.NewTree()
	for i := range 5 {
		c.Insert(span(uint16(i), uint16(i+1)), call("c"))
	}

	a.Merge(b)
	a.Merge(c)
	a.Insert(span(9, 10), call("after"))

	assert.Equal(t, 2+1+5+1, a.Len())
	assert.Len(t, annotation.Facts(a.Iter()), a.Len())

	assert.Equal(t, 0, b.Len())
	assert.True(t, b.IsEmpty())
	assert.Empty(t, annotation.Facts(b.Iter()))

	assert.ElementsMatch(t, []annotation.Fact{call("a1"), call("b1"), call("c")}, annotation.Facts(a.GetLocation(col(1))))
}

func TestMergeEmptyIsIdentity(t *testing.T) {
	tree := annotation.NewTree()
	tree.Insert(span(1, 3), call("x"))
	tree.Insert(span(2, 8), annotation.ReturnVal{})
	before := collect(t, tree)

	tree.Merge(annotation.NewTree())
	tree.Merge(&annotation.Tree{})
	tree.Merge(nil)

	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, before, collect(t, tree))

	assert.Panics(t, func() { tree.Merge(tree) })
}

func TestMergeAssociativity(t *testing.T) {
	build := func() (*annotation.Tree, *annotation.Tree, *annotation.Tree) {
		a, b, c := annotation.NewTree(), annotation.NewTree(), annotation.NewTree()
		a.Insert(span(1, 5), call("a"))
		a.Insert(span(2, 3), annotation.InSequence{Index: 0})
		b.Insert(span(1, 5), call("b"))
		b.Insert(span(7, 9), annotation.Include{Path: "code/b.dm"})
		c.Insert(span(2, 3), annotation.ParentCall{})
		c.Insert(span(0, 20), annotation.TreeBlock{Path: []string{"obj"}})
		c.Insert(span(1, 5), call("c"))
		return a, b, c
	}

	a, b, c := build()
	a.Merge(b)
	a.Merge(c)
	left := a

	a, b, c = build()
	b.Merge(c)
	a.Merge(b)
	right := a

	assert.Equal(t, left.Len(), right.Len())
	assert.ElementsMatch(t, collect(t, left), collect(t, right))
}

type countingIndex struct {
	annotation.Index
	inserts int
}

func (c *countingIndex) Insert(lo, hi location.Location, f annotation.Fact) {
	c.inserts++
	c.Index.Insert(lo, hi, f)
}

func TestInjectedIndex(t *testing.T) {
	idx := &countingIndex{Index: interval.New[location.Location, annotation.Fact]()}
	tree := annotation.NewTreeWithIndex(idx)

	tree.Insert(span(1, 2), call("x"))
	tree.Insert(span(1, 3), call("y"))

	require.Equal(t, 2, idx.inserts)
	assert.Equal(t, []annotation.Fact{call("x"), call("y")}, annotation.Facts(tree.GetLocation(col(1))))
}

func TestCountByKind(t *testing.T) {
	tree := annotation.NewTree()
	tree.Insert(span(1, 2), call("x"))
	tree.Insert(span(1, 3), call("y"))
	tree.Insert(span(1, 3), annotation.ReturnVal{})

	assert.Equal(t, map[annotation.Kind]int{
		annotation.KindUnscopedCall: 2,
		annotation.KindReturnVal:    1,
	}, tree.CountByKind())
}
