package progress

import (
	"context"

	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// selfListener re-tracks its own TxnId's deadline on every status
// change, and re-registers itself so the next change keeps doing the
// same, until the command reaches a terminal status.
type selfListener struct {
	log *Log
}

func (l selfListener) OnStatusChange(s *command.Safe, watched *command.Command) {
	if watched.Status.Terminal() {
		l.log.Untrack(watched.TxnId)
		return
	}
	l.log.Track(watched.TxnId, watched.Status, watched.PromisedBallot)
	s.Listen(watched.TxnId, l)
}

// Watch starts id's liveness deadline and, the first time it's called
// for a given TxnId, registers the self-listener that keeps refreshing
// it on every future status change. Replica handlers call this on
// every message about a command, not just the first, so the listener
// registration is deduplicated here rather than left to callers.
func (l *Log) Watch(s *command.Safe, c *command.Command) {
	if c.Status.Terminal() {
		return
	}
	l.Track(c.TxnId, c.Status, c.PromisedBallot)

	l.mu.Lock()
	already := l.watching[c.TxnId]
	l.watching[c.TxnId] = true
	l.mu.Unlock()

	if !already {
		s.Listen(c.TxnId, selfListener{log: l})
	}
}

// Runner pumps a Log's deadlines and decides what a firing means: the
// home shard for a stalled transaction drives it through recovery,
// any other shard just nudges it along by re-sending whatever phase
// message it last saw. Neither decision is Runner's to make directly —
// IsHome, Recover and Resend are supplied by whatever owns the
// replica's wiring to shards and network clients.
type Runner struct {
	Log     *Log
	IsHome  func(id txnid.TxnId) bool
	Recover func(ctx context.Context, id txnid.TxnId) error
	Resend  func(ctx context.Context, id txnid.TxnId) error
	OnError func(id txnid.TxnId, err error)
}

// Run drives deadlines until ctx is done. Each firing is handled in
// its own goroutine so one slow recovery attempt can't delay every
// other transaction's liveness check.
func (r *Runner) Run(ctx context.Context) {
	for {
		id, ok := r.Log.next(ctx)
		if !ok {
			return
		}
		go r.handle(ctx, id)
	}
}

func (r *Runner) handle(ctx context.Context, id txnid.TxnId) {
	var err error
	if r.IsHome(id) {
		err = r.Recover(ctx, id)
	} else {
		err = r.Resend(ctx, id)
	}
	if err != nil && r.OnError != nil {
		r.OnError(id, err)
	}
}
