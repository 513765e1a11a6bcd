package coordinator

import (
	"context"
	"sync"

	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"

	"github.com/maedhroz/cassandra-accord/keyspace"
)

// RunRead collects a read quorum of values from every shard the
// transaction reads from.
func (c *Coordinator) RunRead(ctx context.Context, id txnid.TxnId, route keyspace.FullRoute, reads keyspace.Seekables, shards []topology.Shard) (map[store.Key]store.Value, error) {
	msg := &message.Read{Epoch: c.Topo.Current().Epoch, TxnId: id, Route: route, Keys: reads}

	merged := make(map[store.Key]store.Value)
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, len(shards))

	for _, shard := range shards {
		shard := shard
		wg.Add(1)
		go func() {
			defer wg.Done()
			values, err := c.readShard(ctx, msg, shard)
			if err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			for k, v := range values {
				merged[k] = v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}
	return merged, nil
}

func (c *Coordinator) readShard(ctx context.Context, msg *message.Read, shard topology.Shard) (map[store.Key]store.Value, error) {
	need := shard.ReadQuorumSize()

	type resp struct {
		ok *message.ReadOk
	}
	replyCh := make(chan resp, len(shard.Replicas))
	for _, replica := range shard.Replicas {
		replica := replica
		go func() {
			ok, _, err := c.Client.Read(ctx, replica, msg)
			if err != nil {
				replyCh <- resp{}
				return
			}
			replyCh <- resp{ok: ok}
		}()
	}

	merged := make(map[store.Key]store.Value)
	got := 0
	for range shard.Replicas {
		select {
		case r := <-replyCh:
			if r.ok != nil {
				got++
				for k, v := range r.ok.Values {
					merged[k] = v
				}
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if got >= need {
			break
		}
	}
	if got < need {
		return nil, errNoQuorum(msg.TxnId, shard)
	}
	return merged, nil
}
