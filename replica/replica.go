// Package replica drives the per-command transition table a replica
// runs in response to incoming protocol messages, dispatching each
// message to every local CommandStore it touches and turning an
// invalid transition into a Nack rather than an error. Grounded on
// acceptor.Acceptor, whose RecvXRemote methods (one per message type)
// each read/mutate one instance's AcceptorBookkeeping and return a
// reply over a channel; generalized here from one instance per reply
// to one reply aggregated across however many local CommandStores the
// message's keys touch.
package replica

import (
	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/dlog"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/progress"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// Replica is the per-node owner of a set of CommandStores, one per
// locally-held shard range.
type Replica struct {
	ID       int32
	Topo     *topology.Manager
	Stores   []*command.Store
	Data     store.DataStore
	Progress *progress.Log
}

// storesFor returns every local Store whose Range overlaps ranges.
func (r *Replica) storesFor(ranges keyspace.Ranges) []*command.Store {
	var out []*command.Store
	for _, st := range r.Stores {
		for _, rg := range ranges.Values() {
			if st.Range.Overlaps(rg) {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

// conflictWitness is what one store's PreAccept closure reports back,
// so the per-store results can be aggregated exactly the way the
// coordinator aggregates per-shard PreAcceptOks.
type conflictWitness struct {
	executeAt txnid.Timestamp
	deps      []txnid.TxnId
	nack      *nackInfo
}

type nackInfo struct {
	status   status.Status
	promised txnid.Ballot
}

// witnessAndDiff runs inside a Store.Submit closure: it witnesses the
// command against route/keys if this is the first local mention,
// advances it to at least PreAccepted, and computes the witnessed
// executeAt and dependency set from whatever else is locally known to
// conflict. HandlePreAccept is its only caller.
func witnessAndDiff(s *command.Safe, log *progress.Log, id txnid.TxnId, route keyspace.Route, keys keyspace.Seekables, writes map[store.Key]store.Value) conflictWitness {
	c := s.EnsureCommand(id)
	c.Witness(route, keys)
	if c.Writes == nil && writes != nil {
		c.Writes = writes
	}
	if log != nil {
		log.Watch(s, c)
	}

	if c.Status.AtLeast(status.Committed) {
		// Already settled: hand back what was decided rather than
		// recomputing against a view that may have moved on.
		return conflictWitness{executeAt: c.ExecuteAt, deps: c.Deps}
	}

	if !c.Status.AtLeast(status.PreAccepted) {
		if !c.Advance(status.PreAccepted) {
			return conflictWitness{nack: &nackInfo{status: c.Status, promised: c.PromisedBallot}}
		}
	}

	witnessedAt := id.Timestamp
	conflicts := s.Conflicts(id, keys)
	for _, other := range conflicts {
		if !other.Status.AtLeast(status.PreAccepted) || other.ExecuteAt.IsZero() {
			continue
		}
		bound := other.ExecuteAt
		bound.HLC++
		if bound.Compare(witnessedAt) > 0 {
			witnessedAt = bound
		}
	}

	var deps []txnid.TxnId
	for _, other := range conflicts {
		if other.Status.AtLeast(status.Committed) && other.ExecuteAt.Compare(witnessedAt) < 0 {
			// Already known to execute strictly before: listing it as a
			// dependency would be redundant, not incorrect.
			continue
		}
		deps = append(deps, other.TxnId)
	}

	c.SetDeps(witnessedAt, deps)
	return conflictWitness{executeAt: c.ExecuteAt, deps: c.Deps}
}

func mergeWitness(into *conflictWitness, from conflictWitness) {
	if from.nack != nil {
		into.nack = from.nack
		return
	}
	if into.executeAt.Compare(from.executeAt) < 0 {
		into.executeAt = from.executeAt
	}
	into.deps = unionDeps(into.deps, from.deps)
}

func unionDeps(a, b []txnid.TxnId) []txnid.TxnId {
	seen := make(map[txnid.TxnId]struct{}, len(a)+len(b))
	out := make([]txnid.TxnId, 0, len(a)+len(b))
	for _, id := range a {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, id := range b {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// RouteOf returns the FullRoute this replica has on file for id, if
// any local store has witnessed one. A command witnessed only via a
// PartialRoute (the common case for a non-home shard) reports false —
// only whoever holds the FullRoute can initiate recovery.
func (r *Replica) RouteOf(id txnid.TxnId) (keyspace.FullRoute, bool) {
	for _, st := range r.Stores {
		var route keyspace.Route
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{id}}, func(s *command.Safe) {
			if c := s.Command(id); c != nil {
				route = c.Route
			}
		})
		if fr, ok := route.(keyspace.FullRoute); ok {
			return fr, true
		}
	}
	return keyspace.FullRoute{}, false
}

// IsHome reports whether this replica belongs to id's home shard —
// the shard covering the route's home key, whose progress log is
// responsible for recovering a transaction that stalls.
func (r *Replica) IsHome(id txnid.TxnId) bool {
	route, ok := r.RouteOf(id)
	if !ok {
		return false
	}
	homeRanges := keyspace.ToRanges(keyspace.NewKeys(route.HomeKey()))
	for _, sh := range r.Topo.Current().ShardsTouching(homeRanges) {
		if sh.HasReplica(r.ID) {
			return true
		}
	}
	return false
}

// watch refreshes id's liveness deadline if this Replica has a
// progress.Log wired in; tests and other minimal embedders can leave
// Progress nil and simply get no liveness tracking.
func (r *Replica) watch(s *command.Safe, c *command.Command) {
	if r.Progress != nil {
		r.Progress.Watch(s, c)
	}
}

func (r *Replica) logf(format string, v ...interface{}) {
	dlog.Printf("replica %d: "+format, append([]interface{}{r.ID}, v...)...)
}
