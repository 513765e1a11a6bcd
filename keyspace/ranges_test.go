package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng(start, end string) Range {
	return Range{Start: Key(start), End: Key(end)}
}

func TestRangesValuesSorted(t *testing.T) {
	rs := NewRanges(rng("m", "z"), rng("a", "f"))
	vals := rs.Values()
	require.Len(t, vals, 2)
	assert.Equal(t, rng("a", "f"), vals[0])
	assert.Equal(t, rng("m", "z"), vals[1])
}

func TestRangesContainsKey(t *testing.T) {
	rs := NewRanges(rng("a", "f"), rng("m", "z"))
	assert.True(t, rs.ContainsKey(Key("b")))
	assert.True(t, rs.ContainsKey(Key("n")))
	assert.False(t, rs.ContainsKey(Key("g")))
}

func TestRangesContainsKeyAtLowerBound(t *testing.T) {
	rs := NewRanges(rng("a", "f"), rng("m", "z"))
	assert.True(t, rs.ContainsKey(Key("a")))
	assert.True(t, rs.ContainsKey(Key("m")))
	assert.False(t, rs.ContainsKey(Key("f")))
}

func TestRangesUnionCoalesces(t *testing.T) {
	a := NewRanges(rng("a", "f"))
	b := NewRanges(rng("e", "m"))
	merged := a.Union(b)
	vals := merged.Values()
	require.Len(t, vals, 1)
	assert.Equal(t, rng("a", "m"), vals[0])
}

func TestRangesUnionKeepsDisjoint(t *testing.T) {
	a := NewRanges(rng("a", "f"))
	b := NewRanges(rng("m", "z"))
	merged := a.Union(b)
	assert.Len(t, merged.Values(), 2)
}

func TestRangesSlice(t *testing.T) {
	a := NewRanges(rng("a", "z"))
	b := NewRanges(rng("m", "p"))
	sliced := a.Slice(b)
	vals := sliced.Values()
	require.Len(t, vals, 1)
	assert.Equal(t, rng("m", "p"), vals[0])
}

func TestRangesContainsAll(t *testing.T) {
	rs := NewRanges(rng("a", "z"))
	assert.True(t, rs.ContainsAll(NewRanges(rng("b", "c"))))
	assert.False(t, rs.ContainsAll(NewRanges(rng("y", "zz"))))
}

func TestRangesGobRoundTrip(t *testing.T) {
	rs := NewRanges(rng("a", "f"), rng("m", "z"))
	data, err := rs.GobEncode()
	require.NoError(t, err)

	var out Ranges
	require.NoError(t, out.GobDecode(data))
	assert.Equal(t, rs.Values(), out.Values())
}
