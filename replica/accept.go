package replica

import (
	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// HandleAccept installs the coordinator-proposed executeAt/deps under
// Ballot, provided no higher ballot has already been promised on any
// local store the route touches.
func (r *Replica) HandleAccept(m *message.Accept) (*message.AcceptOk, *message.AcceptNack) {
	ranges := keyspace.UnseekablesToRanges(m.Route)
	stores := r.storesFor(ranges)
	if len(stores) == 0 {
		return nil, &message.AcceptNack{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID}
	}

	var maxPromised txnid.Ballot
	nacked := false
	mergedDeps := append([]txnid.TxnId(nil), m.Deps...)

	for _, st := range stores {
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{m.TxnId}}, func(s *command.Safe) {
			c := s.EnsureCommand(m.TxnId)
			c.Witness(m.Route, nil)

			if m.Ballot.Less(c.PromisedBallot) {
				nacked = true
				if c.PromisedBallot.Compare(maxPromised) > 0 {
					maxPromised = c.PromisedBallot
				}
				return
			}
			c.PromisedBallot = m.Ballot
			c.AcceptedBallot = m.Ballot
			if !c.Status.AtLeast(status.Accepted) {
				c.Advance(status.Accepted)
			}
			if !c.Status.AtLeast(status.Committed) {
				c.SetDeps(m.ExecuteAt, unionDeps(mergedDeps, c.Deps))
			}
			mergedDeps = c.Deps
			r.watch(s, c)
		})
		if nacked {
			break
		}
	}

	if nacked {
		return nil, &message.AcceptNack{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID, MaxPromised: maxPromised}
	}

	r.logf("Accept %s ballot=%s -> deps=%d", m.TxnId, m.Ballot, len(mergedDeps))
	return &message.AcceptOk{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID, Deps: mergedDeps}, nil
}
