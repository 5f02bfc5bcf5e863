package interval

import (
	"iter"
)

// Tree is an AVL tree of intervals ordered by (Lo, Hi, insertion order) and
// augmented with the largest Hi of each subtree, so overlap queries skip
// subtrees that end before the probe starts. The zero value is empty and
// ready to use. A Tree is not safe for concurrent mutation.
type Tree[K Ordered[K], V any] struct {
	root *node[K, V]
	size int
	seq  uint64
}

type node[K Ordered[K], V any] struct {
	entry  Entry[K, V]
	seq    uint64
	max    K
	height int
	left   *node[K, V]
	right  *node[K, V]
}

func New[K Ordered[K], V any]() *Tree[K, V] {
	return &Tree[K, V]{}
}

func (t *Tree[K, V]) Len() int {
	return t.size
}

func (t *Tree[K, V]) Insert(lo, hi K, v V) {
	t.seq++
	t.root = t.root.insert(&node[K, V]{
		entry:  Entry[K, V]{Lo: lo, Hi: hi, Value: v},
		seq:    t.seq,
		max:    hi,
		height: 1,
	})
	t.size++
}

// Merge moves all of other's entries into t. When other is a *Tree it is left
// empty. The larger tree's nodes are kept in place and the smaller one is
// re-inserted, so ties between identical intervals may reorder.
func (t *Tree[K, V]) Merge(other Store[K, V]) {
	if other == nil {
		return
	}

	o, ok := other.(*Tree[K, V])
	if !ok {
		for e := range other.All() {
			t.Insert(e.Lo, e.Hi, e.Value)
		}
		return
	}
	if o == nil {
		return
	}
	if o == t {
		panic("interval: merge of a tree into itself")
	}

	if o.size > t.size {
		t.root, o.root = o.root, t.root
		t.size, o.size = o.size, t.size
		t.seq = max(t.seq, o.seq)
	}

	small := o.root
	o.root, o.size = nil, 0

	small.walk(func(n *node[K, V]) bool {
		t.Insert(n.entry.Lo, n.entry.Hi, n.entry.Value)
		return true
	})
}

func (t *Tree[K, V]) All() iter.Seq[Entry[K, V]] {
	return func(yield func(Entry[K, V]) bool) {
		t.root.walk(func(n *node[K, V]) bool {
			return yield(n.entry)
		})
	}
}

// Overlapping yields, in native order, the entries intersecting [lo, hi].
// An inverted probe (lo > hi) matches nothing.
func (t *Tree[K, V]) Overlapping(lo, hi K) iter.Seq[Entry[K, V]] {
	return func(yield func(Entry[K, V]) bool) {
		if lo.Compare(hi) > 0 {
			return
		}
		t.root.overlapping(lo, hi, yield)
	}
}

func (n *node[K, V]) walk(fn func(*node[K, V]) bool) bool {
	if n == nil {
		return true
	}
	return n.left.walk(fn) && fn(n) && n.right.walk(fn)
}

func (n *node[K, V]) overlapping(lo, hi K, yield func(Entry[K, V]) bool) bool {
	if n == nil || n.max.Compare(lo) < 0 {
		return true
	}
	if !n.left.overlapping(lo, hi, yield) {
		return false
	}
	// n and its whole right subtree start after the probe ends
	if n.entry.Lo.Compare(hi) > 0 {
		return true
	}
	if n.entry.Hi.Compare(lo) >= 0 && !yield(n.entry) {
		return false
	}
	return n.right.overlapping(lo, hi, yield)
}

func (n *node[K, V]) less(o *node[K, V]) bool {
	if c := n.entry.Lo.Compare(o.entry.Lo); c != 0 {
		return c < 0
	}
	if c := n.entry.Hi.Compare(o.entry.Hi); c != 0 {
		return c < 0
	}
	return n.seq < o.seq
}

func (n *node[K, V]) insert(nn *node[K, V]) *node[K, V] {
	if n == nil {
		return nn
	}
	if nn.less(n) {
		n.left = n.left.insert(nn)
	} else {
		n.right = n.right.insert(nn)
	}
	return n.rebalance()
}

func (n *node[K, V]) h() int {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node[K, V]) update() {
	n.height = 1 + max(n.left.h(), n.right.h())
	n.max = n.entry.Hi
	if n.left != nil && n.left.max.Compare(n.max) > 0 {
		n.max = n.left.max
	}
	if n.right != nil && n.right.max.Compare(n.max) > 0 {
		n.max = n.right.max
	}
}

func (n *node[K, V]) rotateLeft() *node[K, V] {
	r := n.right
	n.right = r.left
	r.left = n
	n.update()
	r.update()
	return r
}

func (n *node[K, V]) rotateRight() *node[K, V] {
	l := n.left
	n.left = l.right
	l.right = n
	n.update()
	l.update()
	return l
}

func (n *node[K, V]) rebalance() *node[K, V] {
	n.update()
	switch balance := n.left.h() - n.right.h(); {
	case balance > 1:
		if n.left.left.h() < n.left.right.h() {
			n.left = n.left.rotateLeft()
		}
		return n.rotateRight()
	case balance < -1:
		if n.right.right.h() < n.right.left.h() {
			n.right = n.right.rotateRight()
		}
		return n.rotateLeft()
	}
	return n
}
