package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func newTestReplica(t *testing.T, id int32) *Replica {
	whole := keyspace.Range{Start: keyspace.Key{}, End: keyspace.Key("\xff")}
	st := command.NewStore(whole)
	t.Cleanup(st.Close)

	topo := topology.NewManager()
	topo.Install(topology.Topology{Epoch: 1, Shards: []topology.Shard{
		{Range: whole, Replicas: []int32{1, 2, 3}, Electorate: []int32{1, 2, 3}},
	}})

	return &Replica{
		ID:     id,
		Topo:   topo,
		Stores: []*command.Store{st},
		Data:   store.NewMemory(),
	}
}

func writeTxn(hlc int64, node int32) txnid.TxnId {
	return txnid.TxnId{Timestamp: txnid.Timestamp{Epoch: 1, HLC: hlc, Node: node}, Kind: txnid.Write}
}

func TestHandlePreAcceptWitnessesAndReplies(t *testing.T) {
	r := newTestReplica(t, 1)
	id := writeTxn(1, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())

	ok, nack := r.HandlePreAccept(&message.PreAccept{
		Epoch: 1, TxnId: id, Route: route, Keys: keys,
		Writes: map[store.Key]store.Value{"m": store.Value("v")},
	})
	require.Nil(t, nack)
	require.NotNil(t, ok)
	assert.Equal(t, id, ok.TxnId)
	assert.Equal(t, id.Timestamp, ok.ExecuteAt)
	assert.Empty(t, ok.Deps)
}

func TestHandlePreAcceptDetectsConflict(t *testing.T) {
	r := newTestReplica(t, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())

	first := writeTxn(1, 1)
	_, nack := r.HandlePreAccept(&message.PreAccept{Epoch: 1, TxnId: first, Route: route, Keys: keys})
	require.Nil(t, nack)

	second := writeTxn(2, 2)
	ok, nack := r.HandlePreAccept(&message.PreAccept{Epoch: 1, TxnId: second, Route: route, Keys: keys})
	require.Nil(t, nack)
	require.NotNil(t, ok)
	assert.Contains(t, ok.Deps, first)
}

func TestHandleCommitThenApplyThenRead(t *testing.T) {
	r := newTestReplica(t, 1)
	id := writeTxn(1, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())
	writes := map[store.Key]store.Value{"m": store.Value("v1")}

	_, nack := r.HandlePreAccept(&message.PreAccept{Epoch: 1, TxnId: id, Route: route, Keys: keys, Writes: writes})
	require.Nil(t, nack)

	r.HandleCommit(&message.Commit{Epoch: 1, TxnId: id, Route: route, ExecuteAt: id.Timestamp})

	// With no local dependencies, Commit alone reaches ReadyToExecute,
	// so a read right after Commit is served from whatever the data
	// store currently holds -- not yet this transaction's own write,
	// since Apply hasn't run.
	readOkEarly, readNackEarly := r.HandleRead(&message.Read{Epoch: 1, TxnId: id, Route: route, Keys: keys})
	require.Nil(t, readNackEarly)
	require.NotNil(t, readOkEarly)
	assert.Empty(t, readOkEarly.Values[store.Key("m")])

	applyOk := r.HandleApply(&message.Apply{
		Epoch: 1, TxnId: id, Route: route, ExecuteAt: id.Timestamp, Writes: writes, Result: []byte("done"),
	})
	require.NotNil(t, applyOk)

	readOk, readNack2 := r.HandleRead(&message.Read{Epoch: 1, TxnId: id, Route: route, Keys: keys})
	require.Nil(t, readNack2)
	require.NotNil(t, readOk)
	assert.Equal(t, store.Value("v1"), readOk.Values[store.Key("m")])
}

func TestHandleAcceptNacksOnHigherPromisedBallot(t *testing.T) {
	r := newTestReplica(t, 1)
	id := writeTxn(1, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())

	higher := txnid.Ballot{Epoch: 1, HLC: 99, Node: 9}
	r.Stores[0].Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(s *command.Safe) {
		s.EnsureCommand(id).PromisedBallot = higher
	})

	lowerBallot := txnid.InitialBallot(id)
	_, nack := r.HandleAccept(&message.Accept{
		Epoch: 1, TxnId: id, Route: route, Ballot: lowerBallot, ExecuteAt: id.Timestamp,
	})
	require.NotNil(t, nack)
	assert.Equal(t, higher, nack.MaxPromised)
}

func TestHandleAcceptAdvancesStatus(t *testing.T) {
	r := newTestReplica(t, 1)
	id := writeTxn(1, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())

	ok, nack := r.HandleAccept(&message.Accept{
		Epoch: 1, TxnId: id, Route: route, Ballot: txnid.InitialBallot(id), ExecuteAt: id.Timestamp,
	})
	require.Nil(t, nack)
	require.NotNil(t, ok)

	r.Stores[0].Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(s *command.Safe) {
		assert.True(t, s.Command(id).Status.AtLeast(status.Accepted))
	})
}
