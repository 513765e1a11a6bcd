// Package recovery implements the ballot-escalating coordinator a
// home shard's progress log starts when a transaction stalls: it
// collects each replica's local knowledge under a fresh ballot, then
// either replays Commit (something already decided), re-runs Accept
// under that ballot (something was Accepted but never Committed), or
// invalidates (nothing ever witnessed it). Grounded on the same
// twophase proposer retry shape as coordinator, entered mid-protocol
// instead of from a client submission.
package recovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/maedhroz/cassandra-accord/coordinator"
	"github.com/maedhroz/cassandra-accord/dlog"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// Coordinator drives one transaction's recovery to completion.
type Coordinator struct {
	NodeID int32
	Clock  *txnid.Clock
	Topo   *topology.Manager
	Client coordinator.ReplicaClient
}

const maxRecoveryAttempts = 5

// Recover runs BeginRecovery under successively higher ballots until
// one is accepted by every touched shard, then decides the
// transaction's fate from what it learned and drives it the rest of
// the way to Applied (or Invalidated).
func (rc *Coordinator) Recover(ctx context.Context, id txnid.TxnId, route keyspace.FullRoute) (coordinator.Outcome, error) {
	topo := rc.Topo.Current()
	ranges := keyspace.UnseekablesToRanges(route.ToMaximalUnseekables())
	shards := topo.ShardsTouching(ranges)
	if len(shards) == 0 {
		return coordinator.Outcome{}, fmt.Errorf("recovery: route touches no shard in epoch %d", topo.Epoch)
	}

	ballot := txnid.Max(txnid.InitialBallot(id), rc.Clock.Now(topo.Epoch))
	for attempt := 0; attempt < maxRecoveryAttempts; attempt++ {
		replies, maxPromised, err := rc.beginRecovery(ctx, id, ballot, route, shards)
		if err != nil {
			return coordinator.Outcome{}, err
		}
		if ballot.Compare(maxPromised) < 0 {
			ballot = maxPromised
			ballot.HLC++
			continue
		}
		return rc.decide(ctx, id, ballot, route, shards, replies)
	}
	return coordinator.Outcome{}, fmt.Errorf("recovery: %s did not converge on a ballot after %d attempts", id, maxRecoveryAttempts)
}

func (rc *Coordinator) beginRecovery(ctx context.Context, id txnid.TxnId, ballot txnid.Ballot, route keyspace.FullRoute, shards []topology.Shard) ([]*message.RecoveryReply, txnid.Ballot, error) {
	msg := &message.BeginRecovery{Epoch: rc.Topo.Current().Epoch, TxnId: id, Ballot: ballot, Route: route}

	var mu sync.Mutex
	var all []*message.RecoveryReply
	var maxPromised txnid.Ballot

	for _, shard := range shards {
		need := shard.SlowQuorumSize()
		replyCh := make(chan *message.RecoveryReply, len(shard.Replicas))
		for _, replica := range shard.Replicas {
			replica := replica
			go func() {
				reply, err := rc.Client.BeginRecovery(ctx, replica, msg)
				if err != nil {
					replyCh <- nil
					return
				}
				replyCh <- reply
			}()
		}

		got := 0
		for range shard.Replicas {
			select {
			case r := <-replyCh:
				if r != nil {
					got++
					mu.Lock()
					all = append(all, r)
					if r.Promised.Compare(maxPromised) > 0 {
						maxPromised = r.Promised
					}
					mu.Unlock()
				}
			case <-ctx.Done():
				return nil, txnid.Ballot{}, ctx.Err()
			}
			if got >= need {
				break
			}
		}
		if got < need {
			return nil, txnid.Ballot{}, fmt.Errorf("recovery: no quorum of BeginRecovery replies for %s on shard %s", id, shard.Range)
		}
	}
	return all, maxPromised, nil
}

// decide picks the highest-status, highest-accepted-ballot reply and
// acts on it, per the standard recovery decision table: nothing
// witnessed anywhere means it's safe to invalidate; something already
// Committed (or later) means replay and finish; otherwise whatever
// was Accepted under the highest ballot is re-proposed.
func (rc *Coordinator) decide(ctx context.Context, id txnid.TxnId, ballot txnid.Ballot, route keyspace.FullRoute, shards []topology.Shard, replies []*message.RecoveryReply) (coordinator.Outcome, error) {
	var best *message.RecoveryReply
	witnessedAnywhere := false
	for _, r := range replies {
		witnessedAnywhere = witnessedAnywhere || r.Witnessed
		if best == nil || higherPriority(r, best) {
			best = r
		}
	}

	if !witnessedAnywhere || best.Status == status.Invalidated {
		return rc.invalidate(ctx, id, ballot, route, shards)
	}

	if best.Status.AtLeast(status.Committed) {
		dlog.Printf("recovery %d: %s already decided as of ballot %s, replaying commit", rc.NodeID, id, ballot)
		return rc.finish(ctx, id, best.ExecuteAt, best.Deps, best.Writes, route, shards)
	}

	c := &coordinator.Coordinator{NodeID: rc.NodeID, Clock: rc.Clock, Topo: rc.Topo, Client: rc.Client}
	deps, err := c.RunAccept(ctx, id, ballot, route, best.ExecuteAt, best.Deps, shards)
	if err != nil {
		return coordinator.Outcome{}, err
	}
	dlog.Printf("recovery %d: %s re-accepted under ballot %s", rc.NodeID, id, ballot)
	return rc.finish(ctx, id, best.ExecuteAt, deps, best.Writes, route, shards)
}

// higherPriority orders RecoveryReplies by (Status rank, AcceptedBallot),
// the same ordering real Accord recovery uses to pick the value most
// likely to already be partially decided elsewhere. Invalidated ranks
// below everything else here even though it is a terminal status: a
// replica that merely saw an earlier recovery attempt invalidate the
// transaction shouldn't outrank one reporting real PreAccept/Accept
// progress.
func higherPriority(a, b *message.RecoveryReply) bool {
	ar, br := recoveryRank(a.Status), recoveryRank(b.Status)
	if ar != br {
		return ar > br
	}
	return a.AcceptedBallot.Compare(b.AcceptedBallot) > 0
}

func recoveryRank(s status.Status) int {
	if s == status.Invalidated {
		return -1
	}
	return int(s)
}

func (rc *Coordinator) invalidate(ctx context.Context, id txnid.TxnId, ballot txnid.Ballot, route keyspace.FullRoute, shards []topology.Shard) (coordinator.Outcome, error) {
	msg := &message.Invalidate{Epoch: rc.Topo.Current().Epoch, TxnId: id, Ballot: ballot, Route: route}
	var wg sync.WaitGroup
	for _, shard := range shards {
		for _, replica := range shard.Replicas {
			replica := replica
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = rc.Client.Invalidate(ctx, replica, msg)
			}()
		}
	}
	wg.Wait()
	dlog.Printf("recovery %d: %s invalidated, no replica ever witnessed it", rc.NodeID, id)
	return coordinator.Outcome{TxnId: id, Status: status.Invalidated}, nil
}

// finish replays Commit to every replica (laggards included, since
// Commit is idempotent) and drives Apply to completion using whatever
// write set a replica reported. There is no client waiting on a read
// result here — the original coordinator that would have served one
// is presumed dead, which is why recovery was needed in the first
// place — so this only needs to settle the transaction to Applied.
func (rc *Coordinator) finish(ctx context.Context, id txnid.TxnId, executeAt txnid.Timestamp, deps []txnid.TxnId, writes map[store.Key]store.Value, route keyspace.FullRoute, shards []topology.Shard) (coordinator.Outcome, error) {
	c := &coordinator.Coordinator{NodeID: rc.NodeID, Clock: rc.Clock, Topo: rc.Topo, Client: rc.Client}
	if err := c.RunCommit(ctx, id, executeAt, deps, route, shards); err != nil {
		return coordinator.Outcome{}, err
	}
	if err := c.RunApply(ctx, id, route, executeAt, deps, writes, nil, shards); err != nil {
		return coordinator.Outcome{}, err
	}
	return coordinator.Outcome{TxnId: id, Status: status.Applied, ExecuteAt: executeAt}, nil
}
