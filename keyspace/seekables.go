package keyspace

// Seekables is the concrete data a transaction reads/writes: either a
// Keys set or a Ranges sequence. It is a narrow marker interface
// rather than a shared method set, since Keys and Ranges return their
// own concrete type from Slice/Union, typed precisely rather than
// boxed through a common interface.
type Seekables interface {
	ToUnseekables() Unseekables
}

func (ks Keys) ToUnseekables() Unseekables   { return ks.AsRoutingKeys() }
func (rs Ranges) ToUnseekables() Unseekables { return rs.AsRoutingRanges() }

var (
	_ Seekables = Keys{}
	_ Seekables = Ranges{}
)

// Unseekables is the routing-only projection of a Seekables: the view
// used for message dispatch across shard boundaries, as distinct from
// the full-key view used for data access.
type Unseekables interface {
	Contains(k Key) bool
	ContainsAllRanges(rs Ranges) bool
	Union(Unseekables) Unseekables
}

// RoutingKeys projects a Keys seekable into its routing view.
type RoutingKeys struct {
	Keys
}

func (rk RoutingKeys) ContainsAllRanges(rs Ranges) bool { return rk.Keys.ContainsAll(rs) }

func (rk RoutingKeys) Union(other Unseekables) Unseekables {
	o, ok := other.(RoutingKeys)
	if !ok {
		panic("keyspace: cannot union RoutingKeys with a differently-shaped Unseekables")
	}
	return RoutingKeys{Keys: rk.Keys.Union(o.Keys)}
}

// RoutingRanges projects a Ranges seekable into its routing view.
type RoutingRanges struct {
	Ranges
}

func (rr RoutingRanges) Contains(k Key) bool { return rr.Ranges.ContainsKey(k) }

func (rr RoutingRanges) ContainsAllRanges(rs Ranges) bool { return rr.Ranges.ContainsAll(rs) }

func (rr RoutingRanges) Union(other Unseekables) Unseekables {
	o, ok := other.(RoutingRanges)
	if !ok {
		panic("keyspace: cannot union RoutingRanges with a differently-shaped Unseekables")
	}
	return RoutingRanges{Ranges: rr.Ranges.Union(o.Ranges)}
}

var (
	_ Unseekables = RoutingKeys{}
	_ Unseekables = RoutingRanges{}
)
