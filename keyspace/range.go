package keyspace

import (
	"fmt"

	"github.com/google/btree"
)

// Range is a half-open key interval [Start, End). Ranges never
// overlap within a Ranges container.
type Range struct {
	Start, End Key
}

func (r Range) ContainsKey(k Key) bool {
	return k.Compare(r.Start) >= 0 && k.Compare(r.End) < 0
}

// Overlaps reports whether r and o share any key.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Compare(o.End) < 0 && o.Start.Compare(r.End) < 0
}

// Covers reports whether r entirely contains o.
func (r Range) Covers(o Range) bool {
	return r.Start.Compare(o.Start) <= 0 && o.End.Compare(r.End) <= 0
}

// Less satisfies btree.Item, ordering ranges by Start and then End —
// the ordering the btree index over a Ranges container relies on.
func (r Range) Less(than btree.Item) bool {
	o := than.(Range)
	if c := r.Start.Compare(o.Start); c != 0 {
		return c < 0
	}
	return r.End.Compare(o.End) < 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)", r.Start, r.End)
}

var _ btree.Item = Range{}
