package replica

import (
	"fmt"

	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// HandleRead serves a committed transaction's read set once every
// local dependency it touches has Applied. A transaction not yet
// ReadyToExecute on every local store it touches is Nacked with its
// current status; the coordinator's RunRead counts a Nack as a
// missing reply toward the shard's read quorum.
func (r *Replica) HandleRead(m *message.Read) (*message.ReadOk, *message.ReadNack) {
	ranges := keyspace.UnseekablesToRanges(m.Route)
	stores := r.storesFor(ranges)
	if len(stores) == 0 {
		return nil, &message.ReadNack{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID}
	}

	ready := true
	current := status.NotWitnessed
	for _, st := range stores {
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{m.TxnId}}, func(s *command.Safe) {
			c := s.Command(m.TxnId)
			if c == nil {
				ready = false
				return
			}
			current = c.Status
			if !c.Status.AtLeast(status.ReadyToExecute) {
				ready = false
			}
		})
		if !ready {
			break
		}
	}
	if !ready {
		return nil, &message.ReadNack{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID, CurrentState: current}
	}

	keys, err := storeKeys(m.Keys)
	if err != nil {
		r.logf("Read %s: %v", m.TxnId, err)
		return nil, &message.ReadNack{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID, CurrentState: current}
	}
	values, err := r.Data.Read(keys)
	if err != nil {
		r.logf("Read %s: data store error: %v", m.TxnId, err)
		return nil, &message.ReadNack{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID, CurrentState: current}
	}
	return &message.ReadOk{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID, Values: values}, nil
}

// storeKeys narrows a Seekables to the point keys the DataStore
// interface can serve. Range-addressed reads need an object-model
// aware embedder to enumerate — out of scope for this core, which
// only ever sees opaque Key/Value pairs.
func storeKeys(s keyspace.Seekables) ([]store.Key, error) {
	ks, ok := s.(keyspace.Keys)
	if !ok {
		return nil, fmt.Errorf("replica: range-addressed reads are not supported by the point-key DataStore interface")
	}
	out := make([]store.Key, 0, ks.Len())
	for _, k := range ks.Values() {
		out = append(out, store.Key(k))
	}
	return out, nil
}
