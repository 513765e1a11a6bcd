package replica

import (
	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// HandleBeginRecovery reports everything this replica locally knows
// about a transaction under the recovery coordinator's proposed
// ballot, promising that ballot (if it's higher than anything already
// promised) so a concurrent Accept for the same TxnId under a lower
// ballot is rejected from here on. PreAccept carries no ballot and is
// not checked against the promise.
func (r *Replica) HandleBeginRecovery(m *message.BeginRecovery) *message.RecoveryReply {
	ranges := keyspace.UnseekablesToRanges(m.Route)
	stores := r.storesFor(ranges)

	reply := &message.RecoveryReply{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID}
	for _, st := range stores {
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{m.TxnId}}, func(s *command.Safe) {
			c := s.EnsureCommand(m.TxnId)
			c.Witness(m.Route, nil)

			if m.Ballot.Compare(c.PromisedBallot) > 0 {
				c.PromisedBallot = m.Ballot
			}

			reply.Witnessed = reply.Witnessed || c.Status.AtLeast(status.PreAccepted)
			if c.Status.AtLeast(reply.Status) {
				reply.Status = c.Status
				reply.AcceptedBallot = c.AcceptedBallot
				reply.ExecuteAt = c.ExecuteAt
				reply.Deps = c.Deps
				reply.Writes = c.Writes
			}
			if c.PromisedBallot.Compare(reply.Promised) > 0 {
				reply.Promised = c.PromisedBallot
			}
			r.watch(s, c)
		})
	}
	r.logf("BeginRecovery %s ballot=%s -> status=%s", m.TxnId, m.Ballot, reply.Status)
	return reply
}
