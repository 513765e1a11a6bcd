// Package keyspace implements the Routables algebra: sorted key and
// range containers, the routing-only Unseekables
// projection, and the Route/PartialRoute/FullRoute hierarchy. Sorted
// storage is grounded on github.com/emirpasic/gods (listed but unused
// upstream) for Keys, and github.com/google/btree (used by
// talent-plan-tinykv) for Ranges, whose ordered index serves the
// key and range containment lookups; slicing scans linearly.
package keyspace

import "bytes"

// Key is an opaque, comparable routing/data key.
type Key []byte

func (k Key) Compare(o Key) int {
	return bytes.Compare(k, o)
}

func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }
func (k Key) Equal(o Key) bool { return k.Compare(o) == 0 }

func (k Key) String() string { return string(k) }

func keyComparator(a, b interface{}) int {
	return a.(Key).Compare(b.(Key))
}
