package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullRouteCoversEverything(t *testing.T) {
	ks := NewKeys(Key("a"), Key("b"))
	fr := NewFullRoute(Key("a"), ks.AsRoutingKeys())
	assert.True(t, fr.Covers(NewRanges(rng("x", "y"))))
	assert.Equal(t, Key("a"), fr.HomeKey())
}

func TestFullRouteToMaximalUnseekablesAddsHome(t *testing.T) {
	ks := NewKeys(Key("b"))
	fr := NewFullRoute(Key("a"), ks.AsRoutingKeys())
	max := fr.ToMaximalUnseekables()
	assert.True(t, max.Contains(Key("a")))
	assert.True(t, max.Contains(Key("b")))
}

func TestPartialRouteCovers(t *testing.T) {
	ks := NewKeys(Key("m"))
	pr := NewPartialRoute(Key("m"), ks.AsRoutingKeys(), NewRanges(rng("a", "z")))
	assert.True(t, pr.Covers(NewRanges(rng("b", "c"))))
	assert.False(t, pr.Covers(NewRanges(rng("y", "zz"))))
}

func TestUnionRoutesMergesCoveringAndContent(t *testing.T) {
	home := Key("m")
	a := NewPartialRoute(home, NewKeys(Key("a")).AsRoutingKeys(), NewRanges(rng("a", "f")))
	b := NewPartialRoute(home, NewKeys(Key("b")).AsRoutingKeys(), NewRanges(rng("f", "z")))

	merged := UnionRoutes(a, b)
	assert.True(t, merged.Covers(NewRanges(rng("a", "z"))))
	assert.True(t, merged.Contains(Key("a")))
	assert.True(t, merged.Contains(Key("b")))
}

func TestUnionRoutesPanicsOnMismatchedHome(t *testing.T) {
	a := NewPartialRoute(Key("a"), NewKeys(Key("a")).AsRoutingKeys(), NewRanges())
	b := NewPartialRoute(Key("b"), NewKeys(Key("b")).AsRoutingKeys(), NewRanges())
	assert.Panics(t, func() { UnionRoutes(a, b) })
}

func TestRangesRouteHomeKeyInsertedAsZeroWidth(t *testing.T) {
	rs := NewRanges(rng("a", "m"))
	home := Key("z")
	fr := NewFullRoute(home, rs.AsRoutingRanges())
	max := fr.ToMaximalUnseekables()
	require.True(t, max.Contains(home))
}

func TestRangesRouteContainsHomeKeyAtRangeLowerBound(t *testing.T) {
	rs := NewRanges(rng("a", "m"))
	home := Key("a")
	fr := NewFullRoute(home, rs.AsRoutingRanges())
	assert.True(t, fr.ToMaximalUnseekables().Contains(home))
}
