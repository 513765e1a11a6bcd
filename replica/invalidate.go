package replica

import (
	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// HandleInvalidate marks a transaction Invalidated wherever recovery
// decided no replica made enough progress on it to recover a value —
// only legal from Accepted or earlier, per status.CanAdvanceTo, and
// only honored under a ballot at least as high as whatever was last
// promised.
func (r *Replica) HandleInvalidate(m *message.Invalidate) *message.InvalidateOk {
	ranges := keyspace.UnseekablesToRanges(m.Route)
	stores := r.storesFor(ranges)

	for _, st := range stores {
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{m.TxnId}}, func(s *command.Safe) {
			c := s.EnsureCommand(m.TxnId)
			c.Witness(m.Route, nil)
			if m.Ballot.Less(c.PromisedBallot) {
				return
			}
			c.PromisedBallot = m.Ballot
			if c.Status.CanAdvanceTo(status.Invalidated) {
				c.Advance(status.Invalidated)
				s.Notify(c)
			}
			r.watch(s, c)
		})
	}
	r.logf("Invalidate %s ballot=%s", m.TxnId, m.Ballot)
	return &message.InvalidateOk{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID}
}
