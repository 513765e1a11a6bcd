package replica

import (
	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// HandleApply writes the transaction's effects to the embedder's
// DataStore and advances the command to Applied, waking anything
// locally waiting on it as a dependency.
func (r *Replica) HandleApply(m *message.Apply) *message.ApplyOk {
	ranges := keyspace.UnseekablesToRanges(m.Route)
	stores := r.storesFor(ranges)

	applied := false
	for _, st := range stores {
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{m.TxnId}}, func(s *command.Safe) {
			c := s.EnsureCommand(m.TxnId)
			c.Witness(m.Route, nil)

			if !c.Status.AtLeast(status.Committed) {
				c.SetDeps(m.ExecuteAt, m.Deps)
				c.Advance(status.Committed)
			}
			if c.Status.Terminal() {
				r.watch(s, c)
				return
			}

			if !applied && len(m.Writes) > 0 {
				if err := r.Data.Apply(m.Writes); err != nil {
					r.logf("Apply %s: data store error: %v", m.TxnId, err)
					return
				}
				applied = true
			}
			c.Writes = m.Writes
			c.Result = m.Result
			if !c.Status.AtLeast(status.ReadyToExecute) {
				c.Advance(status.ReadyToExecute)
			}
			c.Advance(status.PreApplied)
			c.Advance(status.Applied)
			s.Notify(c)
			r.watch(s, c)
		})
	}
	r.logf("Apply %s", m.TxnId)
	return &message.ApplyOk{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID}
}
