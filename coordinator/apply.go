package coordinator

import (
	"context"
	"sync"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// RunApply broadcasts Apply and waits for a write quorum per write
// shard to acknowledge before the client reply is emitted.
func (c *Coordinator) RunApply(ctx context.Context, id txnid.TxnId, route keyspace.FullRoute, executeAt txnid.Timestamp, deps []txnid.TxnId, writes map[store.Key]store.Value, result []byte, shards []topology.Shard) error {
	msg := &message.Apply{
		Epoch:     c.Topo.Current().Epoch,
		TxnId:     id,
		Route:     route,
		ExecuteAt: executeAt,
		Deps:      deps,
		Writes:    writes,
		Result:    result,
	}

	errCh := make(chan error, len(shards))
	var wg sync.WaitGroup
	for _, shard := range shards {
		shard := shard
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- c.applyShard(ctx, msg, shard)
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) applyShard(ctx context.Context, msg *message.Apply, shard topology.Shard) error {
	need := shard.WriteQuorumSize()

	replyCh := make(chan *message.ApplyOk, len(shard.Replicas))
	for _, replica := range shard.Replicas {
		replica := replica
		go func() {
			ok, err := c.Client.Apply(ctx, replica, msg)
			if err != nil {
				replyCh <- nil
				return
			}
			replyCh <- ok
		}()
	}

	got := 0
	for range shard.Replicas {
		select {
		case r := <-replyCh:
			if r != nil {
				got++
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		if got >= need {
			return nil
		}
	}
	if got < need {
		return errNoQuorum(msg.TxnId, shard)
	}
	return nil
}
