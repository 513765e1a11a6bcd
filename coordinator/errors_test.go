package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/topology"
)

func TestErrNoQuorumMentionsShardAndTxn(t *testing.T) {
	shard := topology.Shard{Range: keyspace.Range{Start: keyspace.Key("a"), End: keyspace.Key("z")}}
	id := tid(1)
	err := errNoQuorum(id, shard)
	assert.ErrorContains(t, err, "quorum")
	assert.ErrorContains(t, err, id.String())
}
