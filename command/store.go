package command

import (
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// PreLoadContext names the commands and keys one Store.Submit closure
// needs loaded before it runs.
type PreLoadContext struct {
	TxnIds []txnid.TxnId
	Keys   keyspace.Seekables
}

// Store owns a disjoint slice of the key-space and the map TxnId ->
// Command for every command touching that slice. It is a
// single-threaded cooperative executor: Submit enqueues a closure and
// blocks until it has run with exclusive access to the store, via a
// single dispatch goroutine, so no two closures ever interleave
// regardless of which commands or keys they touch. Disjoint
// key-space across Stores is what lets several Stores make progress
// in parallel; nothing in this type enforces that disjointness itself
// — it is a topology-level invariant enforced by whatever assigns
// ranges to stores.
type Store struct {
	Range keyspace.Range

	commands map[txnid.TxnId]*Command
	arena    arena

	jobs chan func(*Safe)
	done chan struct{}
}

func NewStore(r keyspace.Range) *Store {
	s := &Store{
		Range:    r,
		commands: make(map[txnid.TxnId]*Command),
		jobs:     make(chan func(*Safe)),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Store) run() {
	safe := &Safe{store: s}
	for {
		select {
		case job := <-s.jobs:
			job(safe)
		case <-s.done:
			return
		}
	}
}

// Submit runs fn with exclusive access to the store, having first
// ensured every TxnId named in ctx exists (creating it at
// NotWitnessed if this is its first mention). ctx.Keys is accepted for
// interface symmetry with PreLoadContext's shape but this Store has no
// secondary per-key index to warm — every lookup here is by TxnId.
func (s *Store) Submit(ctx PreLoadContext, fn func(*Safe)) {
	reply := make(chan struct{})
	s.jobs <- func(safe *Safe) {
		for _, id := range ctx.TxnIds {
			safe.ensureCommand(id)
		}
		fn(safe)
		close(reply)
	}
	<-reply
}

func (s *Store) Close() { close(s.done) }

// Safe is the context handed to a
// Store.Submit closure: single-threaded read-modify-write of the
// subset of commands the closure named.
type Safe struct {
	store *Store
}

func (s *Safe) Command(id txnid.TxnId) *Command {
	return s.store.commands[id]
}

func (s *Safe) ensureCommand(id txnid.TxnId) *Command {
	if c, ok := s.store.commands[id]; ok {
		return c
	}
	c := New(id)
	s.store.commands[id] = c
	return c
}

// EnsureCommand is the exported form, for callers (replica/recovery)
// operating inside a Submit closure that need to witness a TxnId not
// named in the original PreLoadContext — e.g. a dependency seen for
// the first time during PreAccept.
func (s *Safe) EnsureCommand(id txnid.TxnId) *Command {
	return s.ensureCommand(id)
}

// Listen registers listener against watched, so it is invoked once
// watched's status changes.
func (s *Safe) Listen(watched txnid.TxnId, listener Listener) {
	c := s.ensureCommand(watched)
	id := s.store.arena.add(listener)
	c.listeners = append(c.listeners, id)
}

// ListenForDep registers watcher to be advanced toward ReadyToExecute
// whenever dep's status changes.
func (s *Safe) ListenForDep(watcher, dep txnid.TxnId) {
	s.Listen(dep, depListener{watcher: watcher})
}

// notify fires every listener registered on c and clears them. It
// keeps no visited set: deeper propagation happens because
// depListener itself calls notify (recursively) on the command it
// just advanced, which is bounded by CanAdvanceTo's monotonicity — a
// command cannot be re-notified into advancing past where it already
// is.
func (s *Safe) notify(c *Command) {
	ids := c.listeners
	c.listeners = nil
	for _, id := range ids {
		s.store.arena.get(id).OnStatusChange(s, c)
	}
}

// Notify is the exported hook callers (replica.Apply/Commit handling)
// use once they've advanced a command's status, to wake anything
// registered on it.
func (s *Safe) Notify(c *Command) { s.notify(c) }

// allLocalDepsApplied reports whether every dependency of c that also
// touches this store's range is Applied — the condition for entering
// ReadyToExecute, restricted to this replica's shard.
func (s *Safe) allLocalDepsApplied(c *Command) bool {
	for _, dep := range c.Deps {
		d, ok := s.store.commands[dep]
		if !ok {
			// Not yet witnessed locally: cannot be Applied here.
			return false
		}
		if !d.Status.AtLeast(status.Applied) {
			return false
		}
	}
	return true
}

// AllLocalDepsApplied exposes allLocalDepsApplied for use outside the
// depListener plumbing (e.g. the coordinator deciding whether a local
// read can proceed without waiting).
func (s *Safe) AllLocalDepsApplied(c *Command) bool {
	return s.allLocalDepsApplied(c)
}

// Conflicts returns every command in this store, other than self,
// whose witnessed Keys overlap keys. A command not yet witnessed
// locally (Keys == nil) cannot conflict with anything.
func (s *Safe) Conflicts(self txnid.TxnId, keys keyspace.Seekables) []*Command {
	want := keyspace.ToRanges(keys)
	var out []*Command
	for id, c := range s.store.commands {
		if id == self || c.Keys == nil {
			continue
		}
		if keyspace.ToRanges(c.Keys).Overlaps(want) {
			out = append(out, c)
		}
	}
	return out
}
