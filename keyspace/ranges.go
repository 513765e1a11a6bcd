package keyspace

import (
	"bytes"
	"encoding/gob"

	"github.com/google/btree"
)

const btreeDegree = 32

// Ranges is a sorted, non-overlapping sequence of Range, indexed by a
// btree. ContainsKey and Contains look up through the btree; Slice,
// Overlaps and ContainsAll scan the ranges linearly.
type Ranges struct {
	tree *btree.BTree
}

func NewRanges(rs ...Range) Ranges {
	t := btree.New(btreeDegree)
	for _, r := range rs {
		t.ReplaceOrInsert(r)
	}
	return Ranges{tree: t}
}

func (rs Ranges) Values() []Range {
	out := make([]Range, 0, rs.tree.Len())
	rs.tree.Ascend(func(i btree.Item) bool {
		out = append(out, i.(Range))
		return true
	})
	return out
}

func (rs Ranges) Len() int { return rs.tree.Len() }

func (rs Ranges) ContainsKey(k Key) bool {
	pivot := Range{Start: k, End: k}

	// A range starting exactly at k sorts strictly after pivot (same
	// Start, greater End), so it's the first hit ascending from pivot,
	// not the last one descending to it.
	found := false
	rs.tree.AscendGreaterOrEqual(pivot, func(i btree.Item) bool {
		r := i.(Range)
		if r.Start.Compare(k) == 0 {
			found = r.ContainsKey(k)
		}
		return false
	})
	if found {
		return true
	}

	// Otherwise the only remaining candidate is the range with the
	// largest Start strictly less than k.
	rs.tree.DescendLessOrEqual(pivot, func(i btree.Item) bool {
		r := i.(Range)
		if r.Start.Compare(k) < 0 && r.ContainsKey(k) {
			found = true
		}
		return false
	})
	return found
}

// Contains reports whether r is present verbatim in rs.
func (rs Ranges) Contains(r Range) bool {
	return rs.tree.Get(r) != nil
}

// Slice returns the subset of rs intersecting other.
func (rs Ranges) Slice(other Ranges) Ranges {
	var out []Range
	for _, r := range rs.Values() {
		for _, o := range other.Values() {
			if r.Overlaps(o) {
				out = append(out, intersect(r, o))
			}
		}
	}
	return NewRanges(out...)
}

func intersect(a, b Range) Range {
	start := a.Start
	if b.Start.Compare(start) > 0 {
		start = b.Start
	}
	end := a.End
	if b.End.Compare(end) < 0 {
		end = b.End
	}
	return Range{Start: start, End: end}
}

// Union performs a linear merge of the two sorted sequences,
// coalescing adjacent/overlapping ranges so the result keeps
// the "non-overlapping" invariant.
func (rs Ranges) Union(other Ranges) Ranges {
	a, b := rs.Values(), other.Values()
	if len(b) == 0 {
		return rs
	}
	if len(a) == 0 {
		return other
	}
	merged := make([]Range, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Start.Compare(b[j].Start) <= 0 {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return NewRanges(coalesce(merged)...)
}

func coalesce(sorted []Range) []Range {
	if len(sorted) == 0 {
		return nil
	}
	out := make([]Range, 0, len(sorted))
	cur := sorted[0]
	for _, r := range sorted[1:] {
		if r.Start.Compare(cur.End) <= 0 {
			if r.End.Compare(cur.End) > 0 {
				cur.End = r.End
			}
			continue
		}
		out = append(out, cur)
		cur = r
	}
	out = append(out, cur)
	return out
}

// Overlaps reports whether rs and other share any key at all.
func (rs Ranges) Overlaps(other Ranges) bool {
	for _, r := range rs.Values() {
		for _, o := range other.Values() {
			if r.Overlaps(o) {
				return true
			}
		}
	}
	return false
}

// ContainsAll reports whether every range in other is covered by some
// range in rs.
func (rs Ranges) ContainsAll(other Ranges) bool {
	for _, o := range other.Values() {
		covered := false
		for _, r := range rs.Values() {
			if r.Covers(o) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func (rs Ranges) AsRoutingRanges() RoutingRanges {
	return RoutingRanges{Ranges: rs}
}

// GobEncode/GobDecode mirror Keys': the btree pointer isn't directly
// gob-able, so the sorted Values() slice is the wire form.
func (rs Ranges) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rs.Values()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (rs *Ranges) GobDecode(data []byte) error {
	var vals []Range
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&vals); err != nil {
		return err
	}
	*rs = NewRanges(vals...)
	return nil
}
