package coordinator

import (
	"context"
	"sync"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

type shardAcceptResult struct {
	ok          bool
	deps        []txnid.TxnId
	maxPromised txnid.Ballot
}

// RunAccept sends Accept to a simple quorum per shard. On a quorum of
// rejections it retries with a ballot above
// every shard's reported max-promised, then gives up — three
// consecutive rejections is the trigger for escalating to Recovery,
// which callers outside this package (the progress log) own.
func (c *Coordinator) RunAccept(ctx context.Context, id txnid.TxnId, ballot txnid.Ballot, route keyspace.FullRoute, executeAt txnid.Timestamp, deps []txnid.TxnId, shards []topology.Shard) ([]txnid.TxnId, error) {
	const maxAttempts = 3
	attempt := ballot
	for i := 0; i < maxAttempts; i++ {
		mergedDeps, maxPromised, ok := c.acceptRound(ctx, id, attempt, route, executeAt, deps, shards)
		if ok {
			return mergedDeps, nil
		}
		attempt = txnid.Max(maxPromised, attempt)
		attempt.HLC++
	}
	return nil, errNoQuorum(id, shards[0])
}

func (c *Coordinator) acceptRound(ctx context.Context, id txnid.TxnId, ballot txnid.Ballot, route keyspace.FullRoute, executeAt txnid.Timestamp, deps []txnid.TxnId, shards []topology.Shard) ([]txnid.TxnId, txnid.Ballot, bool) {
	results := make([]shardAcceptResult, len(shards))
	var wg sync.WaitGroup
	for i, shard := range shards {
		i, shard := i, shard
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.acceptShard(ctx, id, ballot, route, executeAt, deps, shard)
		}()
	}
	wg.Wait()

	merged := deps
	var maxPromised txnid.Ballot
	for _, r := range results {
		maxPromised = txnid.Max(maxPromised, r.maxPromised)
		if !r.ok {
			return nil, maxPromised, false
		}
		merged = unionDeps(merged, r.deps)
	}
	return merged, maxPromised, true
}

func (c *Coordinator) acceptShard(ctx context.Context, id txnid.TxnId, ballot txnid.Ballot, route keyspace.FullRoute, executeAt txnid.Timestamp, deps []txnid.TxnId, shard topology.Shard) shardAcceptResult {
	msg := &message.Accept{
		Epoch:     c.Topo.Current().Epoch,
		TxnId:     id,
		Ballot:    ballot,
		Route:     route,
		ExecuteAt: executeAt,
		Deps:      deps,
	}

	type resp struct {
		ok   *message.AcceptOk
		nack *message.AcceptNack
	}
	replyCh := make(chan resp, len(shard.Replicas))
	for _, replica := range shard.Replicas {
		replica := replica
		go func() {
			ok, nack, err := c.Client.Accept(ctx, replica, msg)
			if err != nil {
				replyCh <- resp{}
				return
			}
			replyCh <- resp{ok: ok, nack: nack}
		}()
	}

	tally := 0
	var mergedDeps []txnid.TxnId
	var maxPromised txnid.Ballot
	for range shard.Replicas {
		select {
		case r := <-replyCh:
			if r.ok != nil {
				tally++
				mergedDeps = unionDeps(mergedDeps, r.ok.Deps)
			} else if r.nack != nil {
				maxPromised = txnid.Max(maxPromised, r.nack.MaxPromised)
			}
		case <-ctx.Done():
			return shardAcceptResult{false, nil, maxPromised}
		}
	}

	return shardAcceptResult{tally >= shard.SlowQuorumSize(), mergedDeps, maxPromised}
}
