package keyspace

// ToRanges gives a Ranges view of any Seekables, for callers (shard
// lookup, conflict detection) that only need range overlap and don't
// care whether the original addressing was by Keys or Ranges. A Keys
// seekable is widened to one zero-width range per key.
func ToRanges(s Seekables) Ranges {
	switch t := s.(type) {
	case Ranges:
		return t
	case Keys:
		rs := make([]Range, 0, t.Len())
		for _, k := range t.Values() {
			rs = append(rs, Range{Start: k, End: zeroWidthEnd(k)})
		}
		return NewRanges(rs...)
	default:
		panic("keyspace: unrecognised Seekables implementation")
	}
}

func zeroWidthEnd(k Key) Key {
	return append(append(Key{}, k...), 0)
}

// UnseekablesToRanges gives a Ranges view of a routing-only
// Unseekables, for messages (Accept, Commit, BeginRecovery) that
// carry only a Route and need to find the local CommandStores it
// touches. A Route's dynamic type is FullRoute/PartialRoute, not its
// embedded RoutingKeys/RoutingRanges directly, so those unwrap one
// level before the base case applies.
func UnseekablesToRanges(u Unseekables) Ranges {
	switch t := u.(type) {
	case RoutingRanges:
		return t.Ranges
	case RoutingKeys:
		return ToRanges(t.Keys)
	case FullRoute:
		return UnseekablesToRanges(t.Unseekables)
	case PartialRoute:
		return UnseekablesToRanges(t.Unseekables)
	default:
		panic("keyspace: unrecognised Unseekables implementation")
	}
}
