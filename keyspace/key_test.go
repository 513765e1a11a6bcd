package keyspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyCompare(t *testing.T) {
	a, b := Key("a"), Key("b")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Equal(Key("a")))
	assert.Equal(t, -1, a.Compare(b))
}

func TestRangeContainsKey(t *testing.T) {
	r := Range{Start: Key("a"), End: Key("m")}
	assert.True(t, r.ContainsKey(Key("a")))
	assert.True(t, r.ContainsKey(Key("g")))
	assert.False(t, r.ContainsKey(Key("m")))
	assert.False(t, r.ContainsKey(Key("0")))
}

func TestRangeOverlaps(t *testing.T) {
	r := Range{Start: Key("a"), End: Key("m")}
	assert.True(t, r.Overlaps(Range{Start: Key("g"), End: Key("z")}))
	assert.False(t, r.Overlaps(Range{Start: Key("m"), End: Key("z")}))
	assert.False(t, r.Overlaps(Range{Start: Key("0"), End: Key("a")}))
}

func TestRangeCovers(t *testing.T) {
	r := Range{Start: Key("a"), End: Key("z")}
	assert.True(t, r.Covers(Range{Start: Key("c"), End: Key("d")}))
	assert.False(t, r.Covers(Range{Start: Key("0"), End: Key("d")}))
}
