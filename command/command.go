// Package command implements the per-replica, per-TxnId Command
// record and its CommandStore, grounded on
// acceptor.AcceptorBookkeeping (a per-instance status/ballot
// struct) generalized from a single Paxos instance to a full
// multi-phase, multi-dependency transaction record.
package command

import (
	"sort"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// Command is one replica's authoritative state for one TxnId.
type Command struct {
	TxnId txnid.TxnId

	Status         status.Status
	AcceptedBallot txnid.Ballot
	PromisedBallot txnid.Ballot

	// ExecuteAt is defined from PreAccepted onward and immutable once
	// Committed.
	ExecuteAt txnid.Timestamp

	// Deps is immutable once Committed.
	Deps []txnid.TxnId

	// Route is the known (partial or full) Route.
	Route keyspace.Route

	// Keys is the actual key/range set this command touches, as known
	// locally. It is set the first time the command is witnessed and
	// is what conflict detection scans for, as distinct from Route,
	// which is a routing projection and may be coarser or narrower.
	Keys keyspace.Seekables

	Writes map[store.Key]store.Value
	Result []byte

	// listeners holds arena indices (see listener.go) of other
	// commands or handlers awaiting a status change on this one.
	listeners []ListenerID
}

// New creates a command at NotWitnessed, as happens on the first
// message mentioning id.
func New(id txnid.TxnId) *Command {
	return &Command{
		TxnId:          id,
		Status:         status.NotWitnessed,
		PromisedBallot: txnid.InitialBallot(id),
	}
}

// SetDeps installs executeAt/deps, deduplicating and sorting deps so
// repeated installs (idempotent re-delivery) are stable and
// comparable. It panics if the command is already Committed or later,
// since executeAt/deps are immutable from that point — callers must
// check Status first.
func (c *Command) SetDeps(executeAt txnid.Timestamp, deps []txnid.TxnId) {
	if c.Status.AtLeast(status.Committed) {
		panic("command: attempted to mutate executeAt/deps after Commit")
	}
	c.ExecuteAt = executeAt
	c.Deps = sortedUniqueDeps(deps)
}

func sortedUniqueDeps(deps []txnid.TxnId) []txnid.TxnId {
	seen := make(map[txnid.TxnId]struct{}, len(deps))
	out := make([]txnid.TxnId, 0, len(deps))
	for _, d := range deps {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Timestamp.Compare(out[j].Timestamp); c != 0 {
			return c < 0
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Advance moves c to next, enforcing the monotonicity invariant.
// Invalid transitions are rejected, not panicked on: the replica turns
// a rejection into a Nack, so this is a plain bool, not an error.
func (c *Command) Advance(next status.Status) bool {
	if !c.Status.CanAdvanceTo(next) {
		return false
	}
	c.Status = next
	return true
}

// Witness records route/keys the first time a command is seen locally.
// Later messages about the same TxnId carry the same Route/Keys, so
// this is a no-op past the first call.
func (c *Command) Witness(route keyspace.Route, keys keyspace.Seekables) {
	if c.Route == nil {
		c.Route = route
		c.Keys = keys
	}
}

// DependsOn reports whether id is in c's dependency set.
func (c *Command) DependsOn(id txnid.TxnId) bool {
	for _, d := range c.Deps {
		if d == id {
			return true
		}
	}
	return false
}
