package keyspace

// Route is an Unseekables augmented with a designated homeKey: the
// single routing point that anchors a transaction's coordinator-of-
// record and recovery leader election.
type Route interface {
	Unseekables
	HomeKey() Key
	// ToMaximalUnseekables returns the content with homeKey inserted
	// if absent — every Route must contain its homeKey.
	ToMaximalUnseekables() Unseekables
	// Covers reports whether rs is fully addressed by this route.
	Covers(rs Ranges) bool
}

// FullRoute covers the entire touched range-set: Covers is always
// true.
type FullRoute struct {
	Unseekables
	Home Key
}

func NewFullRoute(home Key, content Unseekables) FullRoute {
	return FullRoute{Unseekables: content, Home: home}
}

func (fr FullRoute) HomeKey() Key { return fr.Home }

func (fr FullRoute) Covers(Ranges) bool { return true }

func (fr FullRoute) ToMaximalUnseekables() Unseekables {
	return withHomeKey(fr.Unseekables, fr.Home)
}

// PartialRoute covers a sub-range of the full touched range-set; it
// additionally carries the `covering` ranges it is known to address.
type PartialRoute struct {
	Unseekables
	Home     Key
	Covering Ranges
}

func NewPartialRoute(home Key, content Unseekables, covering Ranges) PartialRoute {
	return PartialRoute{Unseekables: content, Home: home, Covering: covering}
}

func (pr PartialRoute) HomeKey() Key { return pr.Home }

// Covers is true iff `covering ⊇ ranges`.
func (pr PartialRoute) Covers(rs Ranges) bool {
	return pr.Covering.ContainsAll(rs)
}

func (pr PartialRoute) ToMaximalUnseekables() Unseekables {
	return withHomeKey(pr.Unseekables, pr.Home)
}

// UnionRoutes merges two PartialRoutes covering the same homeKey: the
// invariant is that union of two PartialRoutes with equal homeKey
// merges covering and content by sorted set union. A mismatched
// homeKey is a route-violation programming bug and panics rather than
// silently picking one side.
//
// This package has no notion of epochs: operands computed against
// different topology epochs are merged the same way, both covering
// sets included. Re-slicing the result against the newer epoch before
// using it to dispatch is left to the caller.
func UnionRoutes(a, b PartialRoute) PartialRoute {
	if !a.Home.Equal(b.Home) {
		panic("keyspace: cannot union PartialRoutes with different homeKeys")
	}
	return PartialRoute{
		Unseekables: a.Unseekables.Union(b.Unseekables),
		Home:        a.Home,
		Covering:    a.Covering.Union(b.Covering),
	}
}

// withHomeKey returns u with home present, adding it via the
// concrete RoutingKeys/RoutingRanges shape so the result still
// satisfies Unseekables.
func withHomeKey(u Unseekables, home Key) Unseekables {
	if u.Contains(home) {
		return u
	}
	switch t := u.(type) {
	case RoutingKeys:
		return RoutingKeys{Keys: t.Keys.Union(NewKeys(home))}
	case RoutingRanges:
		// A single key, inserted as a zero-width range, keeps the
		// homeKey discoverable via Contains while not implying any
		// new data coverage.
		return RoutingRanges{Ranges: t.Ranges.Union(NewRanges(Range{Start: home, End: append(append(Key{}, home...), 0)}))}
	default:
		panic("keyspace: unrecognised Unseekables implementation")
	}
}

var (
	_ Route = FullRoute{}
	_ Route = PartialRoute{}
)
