package coordinator

import (
	"sort"

	"github.com/maedhroz/cassandra-accord/txnid"
)

// unionDeps merges b into a as a sorted, deduplicated set — dependency
// sets are merged by set union across shards.
func unionDeps(a, b []txnid.TxnId) []txnid.TxnId {
	seen := make(map[txnid.TxnId]struct{}, len(a)+len(b))
	out := make([]txnid.TxnId, 0, len(a)+len(b))
	for _, d := range append(append([]txnid.TxnId{}, a...), b...) {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Less(out[j].Timestamp) })
	return out
}

// depsEqual reports whether a and b name the same set of TxnIds,
// order notwithstanding — PreAccept replies must agree on deps
// exactly for the fast path.
func depsEqual(a, b []txnid.TxnId) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[txnid.TxnId]struct{}, len(a))
	for _, d := range a {
		set[d] = struct{}{}
	}
	for _, d := range b {
		if _, ok := set[d]; !ok {
			return false
		}
	}
	return true
}
