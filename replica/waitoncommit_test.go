package replica

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func TestWaitOnCommitReturnsImmediatelyIfAlreadyCommitted(t *testing.T) {
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok := r.HandleWaitOnCommit(ctx, &message.WaitOnCommit{TxnId: id, Scope: route})
	require.NotNil(t, ok)
	assert.Equal(t, id, ok.TxnId)
}

func TestWaitOnCommitUnblocksWhenLaterCommitted(t *testing.T) {
	r := newTestReplica(t, 1)
	id := writeTxn(1, 1)
	keys := keyspace.NewKeys(keyspace.Key("m"))
	route := keyspace.NewFullRoute(keyspace.Key("m"), keys.ToUnseekables())

	done := make(chan *message.WaitOnCommitOk, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- r.HandleWaitOnCommit(ctx, &message.WaitOnCommit{TxnId: id, Scope: route})
	}()

	time.Sleep(20 * time.Millisecond)
	r.Stores[0].Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(s *command.Safe) {
		c := s.EnsureCommand(id)
		c.Advance(status.PreAccepted)
		c.Advance(status.Accepted)
		c.Advance(status.PreCommitted)
		c.Advance(status.Committed)
		s.Notify(c)
	})

	select {
	case ok := <-done:
		require.NotNil(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("HandleWaitOnCommit did not unblock after Commit")
	}
}
