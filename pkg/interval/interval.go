// Package interval implements an ordered multimap from closed intervals to
// values, answering "which stored intervals overlap this one" queries.
package interval

import (
	"iter"
)

// Ordered is implemented by key types with a total order.
type Ordered[K any] interface {
	Compare(other K) int
}

// Entry is one stored (interval, value) pair. Lo and Hi are both inclusive.
type Entry[K Ordered[K], V any] struct {
	Lo    K
	Hi    K
	Value V
}

// Store is the contract annotation trees rely on. Any balanced interval tree,
// segment tree or sorted interval list can satisfy it.
type Store[K Ordered[K], V any] interface {
	// Insert adds v under [lo, hi]. Duplicate intervals are kept.
	Insert(lo, hi K, v V)
	// Merge moves every entry of other into the receiver.
	Merge(other Store[K, V])
	// Overlapping yields every entry whose interval intersects [lo, hi].
	Overlapping(lo, hi K) iter.Seq[Entry[K, V]]
	// All yields every entry in the store's native order.
	All() iter.Seq[Entry[K, V]]
	Len() int
}
