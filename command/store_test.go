package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func txn(hlc int64) txnid.TxnId {
	return txnid.TxnId{Timestamp: txnid.Timestamp{Epoch: 1, HLC: hlc, Node: 1}, Kind: txnid.Write}
}

func newTestStore(t *testing.T) *Store {
	s := NewStore(keyspace.Range{Start: keyspace.Key("a"), End: keyspace.Key("z")})
	t.Cleanup(s.Close)
	return s
}

func TestSubmitCreatesNamedCommands(t *testing.T) {
	s := newTestStore(t)
	id := txn(1)

	var got *Command
	s.Submit(PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(safe *Safe) {
		got = safe.Command(id)
	})

	require.NotNil(t, got)
	assert.Equal(t, status.NotWitnessed, got.Status)
}

func TestListenerFiresOnNotify(t *testing.T) {
	s := newTestStore(t)
	watched, watcher := txn(1), txn(2)

	s.Submit(PreLoadContext{TxnIds: []txnid.TxnId{watched, watcher}}, func(safe *Safe) {
		safe.ListenForDep(watcher, watched)
		wc := safe.Command(watcher)
		wc.SetDeps(txnid.Timestamp{}, []txnid.TxnId{watched})
		wc.Advance(status.PreAccepted)
	})

	s.Submit(PreLoadContext{TxnIds: []txnid.TxnId{watched}}, func(safe *Safe) {
		w := safe.Command(watched)
		w.Advance(status.PreAccepted)
		w.Advance(status.Accepted)
		w.Advance(status.PreCommitted)
		w.Advance(status.Committed)
		w.Advance(status.ReadyToExecute)
		w.Advance(status.PreApplied)
		w.Advance(status.Applied)
		safe.Notify(w)
	})

	s.Submit(PreLoadContext{TxnIds: []txnid.TxnId{watcher}}, func(safe *Safe) {
		wc := safe.Command(watcher)
		assert.True(t, wc.Status.AtLeast(status.ReadyToExecute))
	})
}

func TestConflictsIgnoresSelfAndUnwitnessed(t *testing.T) {
	s := newTestStore(t)
	a, b, c := txn(1), txn(2), txn(3)
	keys := keyspace.NewKeys(keyspace.Key("m"))

	s.Submit(PreLoadContext{TxnIds: []txnid.TxnId{a, b, c}}, func(safe *Safe) {
		safe.Command(a).Keys = keys
		safe.Command(b).Keys = keys
		// c stays unwitnessed (Keys == nil).

		conflicts := safe.Conflicts(a, keys)
		require.Len(t, conflicts, 1)
		assert.Equal(t, b, conflicts[0].TxnId)
	})
}

func TestAllLocalDepsApplied(t *testing.T) {
	s := newTestStore(t)
	dep, watcher := txn(1), txn(2)

	s.Submit(PreLoadContext{TxnIds: []txnid.TxnId{dep, watcher}}, func(safe *Safe) {
		wc := safe.Command(watcher)
		wc.SetDeps(txnid.Timestamp{}, []txnid.TxnId{dep})
		assert.False(t, safe.AllLocalDepsApplied(wc))

		d := safe.Command(dep)
		d.Advance(status.PreAccepted)
		d.Advance(status.Accepted)
		d.Advance(status.PreCommitted)
		d.Advance(status.Committed)
		d.Advance(status.ReadyToExecute)
		d.Advance(status.PreApplied)
		d.Advance(status.Applied)
		assert.True(t, safe.AllLocalDepsApplied(wc))
	})
}
