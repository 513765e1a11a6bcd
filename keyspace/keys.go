package keyspace

import (
	"bytes"
	"encoding/gob"
	"sort"

	"github.com/emirpasic/gods/sets/treeset"
)

// Keys is a sorted, deduplicated set of Key, backed by a red-black
// tree (gods/treeset) so Add is O(log n) and Values() always yields
// sorted order — the precondition every Routables operation in this
// package (slice, union, contains) relies on.
type Keys struct {
	set *treeset.Set
}

func NewKeys(keys ...Key) Keys {
	set := treeset.NewWith(keyComparator)
	for _, k := range keys {
		set.Add(k)
	}
	return Keys{set: set}
}

func (ks Keys) Values() []Key {
	vals := ks.set.Values()
	out := make([]Key, len(vals))
	for i, v := range vals {
		out[i] = v.(Key)
	}
	return out
}

func (ks Keys) Len() int { return ks.set.Size() }

func (ks Keys) Contains(k Key) bool {
	return ks.set.Contains(k)
}

// ContainsAll reports whether every range in rs contains at least one
// key of ks — used by Route.Covers for key-based routes, where
// "covers" means every addressed range is represented.
func (ks Keys) ContainsAll(rs Ranges) bool {
	for _, r := range rs.Values() {
		found := false
		for _, k := range ks.Values() {
			if r.ContainsKey(k) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Slice returns the subset of ks intersecting rs.
func (ks Keys) Slice(rs Ranges) Keys {
	out := make([]Key, 0, ks.Len())
	for _, k := range ks.Values() {
		if rs.ContainsKey(k) {
			out = append(out, k)
		}
	}
	return NewKeys(out...)
}

// Union performs a linear merge over the two sorted arrays, preserving
// order. It returns ks itself when other is empty and other itself
// when ks is empty; otherwise it builds a new Keys.
func (ks Keys) Union(other Keys) Keys {
	a, b := ks.Values(), other.Values()
	if len(b) == 0 {
		return ks
	}
	if len(a) == 0 {
		return other
	}
	merged := make([]Key, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch a[i].Compare(b[j]) {
		case 0:
			merged = append(merged, a[i])
			i++
			j++
		case -1:
			merged = append(merged, a[i])
			i++
		default:
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return NewKeys(merged...)
}

// AsRoutingKeys projects ks into its routing-only view. For a Keys
// seekable, the routing projection is itself: every key is already a
// routing point (unlike Ranges, where routing operates over hash-space
// shard boundaries rather than the full range).
func (ks Keys) AsRoutingKeys() RoutingKeys {
	return RoutingKeys{Keys: ks}
}

// GobEncode/GobDecode let Keys cross the wire despite wrapping an
// unexported treeset pointer: gob cannot see into treeset.Set's
// internals, so we encode the sorted Values() slice instead and
// rebuild the tree on decode.
func (ks Keys) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ks.Values()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (ks *Keys) GobDecode(data []byte) error {
	var vals []Key
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&vals); err != nil {
		return err
	}
	*ks = NewKeys(vals...)
	return nil
}

// sortedKeyValues is a small helper used by tests to assert Values()
// really is sorted without depending on treeset internals.
func sortedKeyValues(ks Keys) bool {
	vs := ks.Values()
	return sort.SliceIsSorted(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
