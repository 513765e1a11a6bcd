// Package progress implements the per-TxnId liveness timer a replica
// uses to notice a stalled transaction and react: a home shard
// escalates to recovery, any other shard just re-sends whatever
// phase it last saw. Grounded on
// proposalmanager.BackoffManager — a per-instance deadline map whose
// timer goroutines signal back on a shared channel, checked against a
// "StillRelevant" snapshot before acting, rather than firing callbacks
// directly — generalized from one fixed backoff ladder per instance
// to one per TxnId, reset on every status change.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// Entry is the liveness snapshot a deadline is scheduled against. A
// fired deadline only acts if the pending entry for its TxnId is
// still exactly this value — if the status or attempt count moved on
// in the meantime, the transaction made progress and the stale
// deadline is discarded.
type Entry struct {
	Promised txnid.Ballot
	Status   status.Status
	Attempts int32
}

type fired struct {
	id    txnid.TxnId
	entry Entry
}

// Log tracks one deadline per TxnId. It has no notion of home shards
// or recovery itself — Runner composes it with that decision.
type Log struct {
	mu       sync.Mutex
	pending  map[txnid.TxnId]Entry
	watching map[txnid.TxnId]bool
	sig      chan fired

	baseTimeout time.Duration
	maxTimeout  time.Duration
}

func NewLog(base, max time.Duration) *Log {
	return &Log{
		pending:     make(map[txnid.TxnId]Entry),
		watching:    make(map[txnid.TxnId]bool),
		sig:         make(chan fired, 64),
		baseTimeout: base,
		maxTimeout:  max,
	}
}

// Track (re)schedules id's deadline, carrying its current status and
// promised ballot so a later check can tell whether the transaction
// moved on before the deadline fired. Called on every status change
// of a watched command; Runner's retries do not call it.
func (l *Log) Track(id txnid.TxnId, current status.Status, promised txnid.Ballot) {
	l.mu.Lock()
	attempts := int32(0)
	if prev, ok := l.pending[id]; ok {
		attempts = prev.Attempts
	}
	entry := Entry{Promised: promised, Status: current, Attempts: attempts}
	l.pending[id] = entry
	timeout := backoff(l.baseTimeout, l.maxTimeout, attempts)
	l.mu.Unlock()

	go func() {
		time.Sleep(timeout)
		l.sig <- fired{id: id, entry: entry}
	}()
}

// Untrack stops tracking id — it reached a terminal status and no
// longer needs a liveness deadline.
func (l *Log) Untrack(id txnid.TxnId) {
	l.mu.Lock()
	delete(l.pending, id)
	delete(l.watching, id)
	l.mu.Unlock()
}

func backoff(base, max time.Duration, attempts int32) time.Duration {
	d := base << uint(attempts)
	if d <= 0 || d > max {
		d = max
	}
	return d
}

// next blocks until a deadline fires whose entry is still the one
// currently pending for its TxnId, bumping its attempt count and
// rescheduling before returning it. A deadline that fired against a
// since-superseded entry is discarded silently — something else
// already made progress.
func (l *Log) next(ctx context.Context) (txnid.TxnId, bool) {
	for {
		select {
		case f := <-l.sig:
			l.mu.Lock()
			cur, ok := l.pending[f.id]
			stale := !ok || cur != f.entry
			if !stale {
				cur.Attempts++
				l.pending[f.id] = cur
				l.mu.Unlock()
				timeout := backoff(l.baseTimeout, l.maxTimeout, cur.Attempts)
				go func() {
					time.Sleep(timeout)
					l.sig <- fired{id: f.id, entry: cur}
				}()
				return f.id, true
			}
			l.mu.Unlock()
		case <-ctx.Done():
			return txnid.TxnId{}, false
		}
	}
}
