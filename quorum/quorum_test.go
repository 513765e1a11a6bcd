package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingTally(t *testing.T) {
	tl := NewCountingTally(2)
	assert.False(t, tl.Reached())

	tl.Add(1)
	assert.Equal(t, 1, tl.Count())
	assert.False(t, tl.Reached())
	assert.True(t, tl.Acknowledged(1))
	assert.False(t, tl.Acknowledged(2))

	tl.Add(2)
	assert.True(t, tl.Reached())

	// Re-adding the same id must not double count.
	tl.Add(1)
	assert.Equal(t, 2, tl.Count())
}

func TestElectorateTallyIgnoresOutsiders(t *testing.T) {
	tl := NewElectorateTally([]int32{1, 2, 3})
	tl.Add(99)
	assert.Equal(t, 0, tl.Count())
	assert.False(t, tl.Reached())

	tl.Add(1)
	tl.Add(2)
	assert.False(t, tl.Reached())
	tl.Add(3)
	assert.True(t, tl.Reached())
}

func TestSimpleMajority(t *testing.T) {
	assert.Equal(t, 1, SimpleMajority(1))
	assert.Equal(t, 2, SimpleMajority(3))
	assert.Equal(t, 3, SimpleMajority(5))
	assert.Equal(t, 3, SimpleMajority(4))
}

func TestFastPathSize(t *testing.T) {
	// Classic EPaxos 5-replica cluster, f=2: fast quorum is 4 (5 - 1).
	require.Equal(t, 4, FastPathSize(5, 2))

	// Never below f+1.
	assert.Equal(t, 9, FastPathSize(10, 8))

	// Never above n.
	assert.Equal(t, 3, FastPathSize(3, 5))
}

var _ Tally = (*CountingTally)(nil)
var _ Tally = (*ElectorateTally)(nil)
