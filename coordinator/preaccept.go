package coordinator

import (
	"context"
	"sync"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

type preAcceptOutcome struct {
	fastPath  bool
	executeAt txnid.Timestamp
	deps      []txnid.TxnId
}

// runPreAccept sends PreAccept to every replica of every shard the
// route touches and aggregates the per-shard results. The transaction
// takes the fast path only if every touched shard independently
// qualifies.
func (c *Coordinator) runPreAccept(ctx context.Context, id txnid.TxnId, route keyspace.FullRoute, txn Txn, shards []topology.Shard) (preAcceptOutcome, error) {
	results := make([]shardPreAccept, len(shards))
	var wg sync.WaitGroup
	for i, shard := range shards {
		i, shard := i, shard
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.preAcceptShard(ctx, id, route, txn, shard)
		}()
	}
	wg.Wait()

	out := preAcceptOutcome{fastPath: true, executeAt: id.Timestamp}
	for _, r := range results {
		if !r.quorumReached {
			return preAcceptOutcome{}, errNoQuorum(id, r.shard)
		}
		out.executeAt = txnid.Max(out.executeAt, r.executeAt)
		out.deps = unionDeps(out.deps, r.deps)
		if !r.fastPathOK {
			out.fastPath = false
		}
	}
	return out, nil
}

type shardPreAccept struct {
	shard         topology.Shard
	quorumReached bool
	fastPathOK    bool
	executeAt     txnid.Timestamp
	deps          []txnid.TxnId
}

func (c *Coordinator) preAcceptShard(ctx context.Context, id txnid.TxnId, route keyspace.FullRoute, txn Txn, shard topology.Shard) shardPreAccept {
	oks := collectPreAcceptOks(ctx, c, id, route, txn, shard)
	if len(oks) < shard.SlowQuorumSize() {
		return shardPreAccept{shard: shard}
	}

	executeAt := id.Timestamp
	var deps []txnid.TxnId
	for _, ok := range oks {
		executeAt = txnid.Max(executeAt, ok.ExecuteAt)
		deps = unionDeps(deps, ok.Deps)
	}

	return shardPreAccept{
		shard:         shard,
		quorumReached: true,
		fastPathOK:    fastPathQualifies(shard, oks, id),
		executeAt:     executeAt,
		deps:          deps,
	}
}

func collectPreAcceptOks(ctx context.Context, c *Coordinator, id txnid.TxnId, route keyspace.FullRoute, txn Txn, shard topology.Shard) []*message.PreAcceptOk {
	msg := &message.PreAccept{
		Epoch:  c.Topo.Current().Epoch,
		TxnId:  id,
		Route:  route,
		Keys:   touchedKeys(txn.Reads, txn.Writes),
		Writes: txn.Writes,
	}

	type resp struct {
		ok *message.PreAcceptOk
	}
	replyCh := make(chan resp, len(shard.Replicas))
	for _, replica := range shard.Replicas {
		replica := replica
		go func() {
			ok, _, err := c.Client.PreAccept(ctx, replica, msg)
			if err != nil {
				replyCh <- resp{}
				return
			}
			replyCh <- resp{ok: ok}
		}()
	}

	oks := make([]*message.PreAcceptOk, 0, len(shard.Replicas))
	for range shard.Replicas {
		select {
		case r := <-replyCh:
			if r.ok != nil {
				oks = append(oks, r.ok)
			}
		case <-ctx.Done():
			return oks
		}
	}
	return oks
}

// fastPathQualifies reports whether oks contains responses from at
// least shard.FastPathSize() members of shard's fast-path electorate,
// every responding electorate member agreeing that
// witnessedExecuteAt == TxnId with identical deps.
func fastPathQualifies(shard topology.Shard, oks []*message.PreAcceptOk, id txnid.TxnId) bool {
	byReplica := make(map[int32]*message.PreAcceptOk, len(oks))
	for _, ok := range oks {
		byReplica[ok.ReplicaId] = ok
	}

	var first *message.PreAcceptOk
	responded := 0
	for _, member := range shard.Electorate {
		ok, ok2 := byReplica[member]
		if !ok2 {
			continue
		}
		responded++
		if !ok.ExecuteAt.Equal(id.Timestamp) {
			return false
		}
		if first == nil {
			first = ok
			continue
		}
		if !depsEqual(first.Deps, ok.Deps) {
			return false
		}
	}
	return responded >= shard.FastPathSize()
}
