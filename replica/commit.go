package replica

import (
	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// HandleCommit installs the final executeAt/deps and advances the
// command to Committed (or straight to ReadyToExecute, if every local
// dependency has already Applied). Commit has no reply; a coordinator
// that needs confirmation uses WaitOnCommit instead.
func (r *Replica) HandleCommit(m *message.Commit) {
	ranges := keyspace.UnseekablesToRanges(m.Route)
	stores := r.storesFor(ranges)

	preload := append([]txnid.TxnId{m.TxnId}, m.Deps...)
	for _, st := range stores {
		st.Submit(command.PreLoadContext{TxnIds: preload}, func(s *command.Safe) {
			c := s.EnsureCommand(m.TxnId)
			c.Witness(m.Route, nil)

			if !c.Status.AtLeast(status.Committed) {
				c.SetDeps(m.ExecuteAt, m.Deps)
				c.Advance(status.Committed)
			}

			if s.AllLocalDepsApplied(c) {
				c.Advance(status.ReadyToExecute)
			} else {
				for _, dep := range c.Deps {
					s.ListenForDep(m.TxnId, dep)
				}
			}
			s.Notify(c)
			r.watch(s, c)
		})
	}
	r.logf("Commit %s executeAt=%s", m.TxnId, m.ExecuteAt)
}
