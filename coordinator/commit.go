package coordinator

import (
	"context"
	"sync"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// RunCommit broadcasts Commit to every replica of every shard; Commit
// has no reply.
func (c *Coordinator) RunCommit(ctx context.Context, id txnid.TxnId, executeAt txnid.Timestamp, deps []txnid.TxnId, route keyspace.FullRoute, shards []topology.Shard) error {
	msg := &message.Commit{
		Epoch:     c.Topo.Current().Epoch,
		TxnId:     id,
		ExecuteAt: executeAt,
		Deps:      deps,
		Route:     route,
	}
	var wg sync.WaitGroup
	for _, shard := range shards {
		for _, replica := range shard.Replicas {
			replica := replica
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = c.Client.Commit(ctx, replica, msg)
			}()
		}
	}
	wg.Wait()
	return nil
}
