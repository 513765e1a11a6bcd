package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maedhroz/cassandra-accord/keyspace"
)

func rng(start, end string) keyspace.Range {
	return keyspace.Range{Start: keyspace.Key(start), End: keyspace.Key(end)}
}

func TestShardQuorumSizes(t *testing.T) {
	sh := Shard{Replicas: []int32{1, 2, 3, 4, 5}, Electorate: []int32{1, 2, 3, 4, 5}}
	assert.Equal(t, 3, sh.SlowQuorumSize())
	assert.Equal(t, 4, sh.FastPathSize())
	assert.Equal(t, 3, sh.WriteQuorumSize())
	assert.Equal(t, 3, sh.ReadQuorumSize())
}

func TestShardRequiredFastPathSizeOverride(t *testing.T) {
	sh := Shard{Replicas: []int32{1, 2, 3}, Electorate: []int32{1, 2, 3}, RequiredFastPathSize: 2}
	assert.Equal(t, 2, sh.FastPathSize())
}

func TestShardHasReplica(t *testing.T) {
	sh := Shard{Replicas: []int32{1, 2, 3}}
	assert.True(t, sh.HasReplica(2))
	assert.False(t, sh.HasReplica(9))
}

func TestShardsTouching(t *testing.T) {
	topo := Topology{Epoch: 1, Shards: []Shard{
		{Range: rng("a", "m")},
		{Range: rng("m", "z")},
	}}
	touching := topo.ShardsTouching(keyspace.NewRanges(rng("l", "n")))
	assert.Len(t, touching, 2)
}

func TestRangesForNode(t *testing.T) {
	topo := Topology{Epoch: 1, Shards: []Shard{
		{Range: rng("a", "m"), Replicas: []int32{1, 2}},
		{Range: rng("m", "z"), Replicas: []int32{2, 3}},
	}}
	ranges := topo.RangesForNode(2)
	assert.True(t, ranges.ContainsKey(keyspace.Key("b")))
	assert.True(t, ranges.ContainsKey(keyspace.Key("n")))

	only1 := topo.RangesForNode(1)
	assert.True(t, only1.ContainsKey(keyspace.Key("b")))
	assert.False(t, only1.ContainsKey(keyspace.Key("n")))
}

func TestManagerInstallAndCurrent(t *testing.T) {
	m := NewManager()
	m.Install(Topology{Epoch: 1, Shards: []Shard{{Range: rng("a", "z")}}})
	m.Install(Topology{Epoch: 2, Shards: []Shard{{Range: rng("a", "z")}}})

	assert.Equal(t, int64(2), m.MaxEpoch())
	assert.Equal(t, int64(2), m.Current().Epoch)

	at1, ok := m.At(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), at1.Epoch)
}

func TestManagerIsDurable(t *testing.T) {
	m := NewManager()
	m.Install(Topology{Epoch: 1, Shards: []Shard{{Replicas: []int32{1, 2, 3}}}})
	m.Install(Topology{Epoch: 2, Shards: []Shard{{Replicas: []int32{1, 2, 3}}}})

	// epoch 1 has no prior epoch installed, so it's trivially durable.
	assert.True(t, m.IsDurable(1))

	// epoch 2 needs a majority of epoch 1's replicas (2 of 3) to
	// acknowledge.
	assert.False(t, m.IsDurable(2))
	m.Acknowledge(2, 1)
	assert.False(t, m.IsDurable(2))
	m.Acknowledge(2, 2)
	assert.True(t, m.IsDurable(2))
}
