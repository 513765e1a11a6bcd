package replica

import (
	"context"
	"sync"

	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// commitWaiter fires done the first time the watched command reaches
// Committed or any later (including terminal) status.
type commitWaiter struct {
	done chan struct{}
	once *sync.Once
}

func (w commitWaiter) OnStatusChange(s *command.Safe, watched *command.Command) {
	if watched.Status.AtLeast(status.Committed) || watched.Status.Terminal() {
		w.once.Do(func() { close(w.done) })
	}
}

// HandleWaitOnCommit blocks, up to ctx's deadline, until the named
// transaction has reached Committed, a later status, or Invalidated on
// every local store its scope touches.
func (r *Replica) HandleWaitOnCommit(ctx context.Context, m *message.WaitOnCommit) *message.WaitOnCommitOk {
	ranges := keyspace.UnseekablesToRanges(m.Scope)
	stores := r.storesFor(ranges)

	var pending sync.WaitGroup
	for _, st := range stores {
		st := st
		done := make(chan struct{})
		once := &sync.Once{}
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{m.TxnId}}, func(s *command.Safe) {
			c := s.EnsureCommand(m.TxnId)
			if c.Status.AtLeast(status.Committed) || c.Status.Terminal() {
				once.Do(func() { close(done) })
				return
			}
			s.Listen(m.TxnId, commitWaiter{done: done, once: once})
		})
		pending.Add(1)
		go func() {
			defer pending.Done()
			select {
			case <-done:
			case <-ctx.Done():
			}
		}()
	}

	waitCh := make(chan struct{})
	go func() { pending.Wait(); close(waitCh) }()
	select {
	case <-waitCh:
	case <-ctx.Done():
	}
	return &message.WaitOnCommitOk{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID}
}
