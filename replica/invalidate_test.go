package replica

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func TestHandleInvalidateFromPreAccepted(t *testing.T) {
	r := newTestReplica(t, 1)
	id := writeTxn(1, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())

	_, nack := r.HandlePreAccept(&message.PreAccept{Epoch: 1, TxnId: id, Route: route, Keys: keys})
	require.Nil(t, nack)

	ok := r.HandleInvalidate(&message.Invalidate{Epoch: 1, TxnId: id, Route: route, Ballot: txnid.InitialBallot(id)})
	require.NotNil(t, ok)

	r.Stores[0].Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(s *command.Safe) {
		assert.Equal(t, status.Invalidated, s.Command(id).Status)
	})
}

func TestHandleInvalidateRefusesPastAccept(t *testing.T) {
	r := newTestReplica(t, 1)
	id := writeTxn(1, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())

	r.Stores[0].Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(s *command.Safe) {
		c := s.EnsureCommand(id)
		c.Advance(status.PreAccepted)
		c.Advance(status.Accepted)
		c.Advance(status.PreCommitted)
		c.Advance(status.Committed)
	})

	r.HandleInvalidate(&message.Invalidate{Epoch: 1, TxnId: id, Route: route, Ballot: txnid.InitialBallot(id)})

	r.Stores[0].Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(s *command.Safe) {
		assert.Equal(t, status.Committed, s.Command(id).Status)
	})
}
