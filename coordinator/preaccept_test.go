package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func TestFastPathQualifiesWhenElectorateAgrees(t *testing.T) {
	shard := topology.Shard{Electorate: []int32{1, 2, 3}}
	id := tid(5)
	deps := []txnid.TxnId{tid(2)}
	oks := []*message.PreAcceptOk{
		{ReplicaId: 1, ExecuteAt: id.Timestamp, Deps: deps},
		{ReplicaId: 2, ExecuteAt: id.Timestamp, Deps: deps},
		{ReplicaId: 3, ExecuteAt: id.Timestamp, Deps: deps},
	}
	assert.True(t, fastPathQualifies(shard, oks, id))
}

func TestFastPathFailsOnDisagreeingExecuteAt(t *testing.T) {
	shard := topology.Shard{Electorate: []int32{1, 2, 3}}
	id := tid(5)
	oks := []*message.PreAcceptOk{
		{ReplicaId: 1, ExecuteAt: id.Timestamp},
		{ReplicaId: 2, ExecuteAt: tid(9).Timestamp},
		{ReplicaId: 3, ExecuteAt: id.Timestamp},
	}
	assert.False(t, fastPathQualifies(shard, oks, id))
}

func TestFastPathFailsWhenElectorateIncomplete(t *testing.T) {
	shard := topology.Shard{Electorate: []int32{1, 2, 3}}
	id := tid(5)
	oks := []*message.PreAcceptOk{
		{ReplicaId: 1, ExecuteAt: id.Timestamp},
		{ReplicaId: 2, ExecuteAt: id.Timestamp},
	}
	assert.False(t, fastPathQualifies(shard, oks, id))
}
