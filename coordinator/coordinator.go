// Package coordinator runs the four-phase PreAccept/Accept/Commit/
// Apply protocol a client transaction drives against the replicas of
// every shard it touches, generalized from a per-instance Paxos
// proposer (twophase/proposer/Proposer.go, twophase/balloter.go,
// twophase/proposalbookeeping.go) into a multi-shard,
// dependency-aggregating state machine.
package coordinator

import (
	"context"
	"fmt"

	"github.com/maedhroz/cassandra-accord/dlog"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// Txn is a client transaction: the keys/ranges it reads plus the
// writes it wants applied if it commits.
type Txn struct {
	Reads  keyspace.Seekables
	Writes map[store.Key]store.Value
	Kind   txnid.Kind
}

// touchedKeys returns the full key/range set txn touches: its reads
// plus one point key per write. A write-only key never appears in
// Reads, but still has to be witnessed and scanned for conflicts the
// same as a read key, or two blind writers to the same key never
// notice each other.
func touchedKeys(reads keyspace.Seekables, writes map[store.Key]store.Value) keyspace.Seekables {
	if len(writes) == 0 {
		if reads == nil {
			return keyspace.NewKeys()
		}
		return reads
	}
	wkeys := make([]keyspace.Key, 0, len(writes))
	for k := range writes {
		wkeys = append(wkeys, keyspace.Key(k))
	}
	writeSet := keyspace.NewKeys(wkeys...)
	if reads == nil {
		return writeSet
	}
	return keyspace.ToRanges(reads).Union(keyspace.ToRanges(writeSet))
}

// Coordinator drives one transaction's protocol run. A fresh
// Coordinator is created per transaction by whichever node the client
// submitted to.
type Coordinator struct {
	NodeID int32
	Clock  *txnid.Clock
	Topo   *topology.Manager
	Client ReplicaClient
}

// Outcome is the client-visible result of a coordination run: exactly
// one of Applied(result), Invalidated, or an error representing a
// client-imposed timeout.
type Outcome struct {
	TxnId     txnid.TxnId
	Status    status.Status
	ExecuteAt txnid.Timestamp
	Result    []byte
}

// Run executes the full protocol for txn addressed by route, which
// must be a FullRoute covering every key/range txn touches.
func (c *Coordinator) Run(ctx context.Context, route keyspace.FullRoute, txn Txn) (Outcome, error) {
	topo := c.Topo.Current()
	ranges := keyspace.UnseekablesToRanges(route.ToMaximalUnseekables())
	shards := topo.ShardsTouching(ranges)
	if len(shards) == 0 {
		return Outcome{}, fmt.Errorf("coordinator: route touches no shard in epoch %d", topo.Epoch)
	}

	id := txnid.NewTxnId(c.Clock, topo.Epoch, txn.Kind)
	dlog.Printf("coordinator %d: starting %s over %d shard(s)", c.NodeID, id, len(shards))

	preAccept, err := c.runPreAccept(ctx, id, route, txn, shards)
	if err != nil {
		return Outcome{}, err
	}

	var executeAt txnid.Timestamp
	var deps []txnid.TxnId
	if preAccept.fastPath {
		executeAt = id.Timestamp
		deps = preAccept.deps
	} else {
		accepted, err := c.RunAccept(ctx, id, txnid.InitialBallot(id), route, preAccept.executeAt, preAccept.deps, shards)
		if err != nil {
			return Outcome{}, err
		}
		executeAt = preAccept.executeAt
		deps = accepted
	}

	if err := c.RunCommit(ctx, id, executeAt, deps, route, shards); err != nil {
		return Outcome{}, err
	}

	values, err := c.RunRead(ctx, id, route, txn.Reads, shards)
	if err != nil {
		return Outcome{}, err
	}

	result := computeResult(txn, values)
	if err := c.RunApply(ctx, id, route, executeAt, deps, txn.Writes, result, shards); err != nil {
		return Outcome{}, err
	}

	return Outcome{TxnId: id, Status: status.Applied, ExecuteAt: executeAt, Result: result}, nil
}

// computeResult is a placeholder for an embedder-defined result
// encoding; values/writes are opaque byte strings the core never
// inspects. It exists so Run has something concrete to hand to Apply.
func computeResult(txn Txn, values map[store.Key]store.Value) []byte {
	if len(values) == 0 {
		return nil
	}
	total := 0
	for _, v := range values {
		total += len(v)
	}
	buf := make([]byte, 0, total)
	for _, v := range values {
		buf = append(buf, v...)
	}
	return buf
}
