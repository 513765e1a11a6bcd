package coordinator

import (
	"fmt"

	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// errNoQuorum reports that a protocol round failed to gather a simple
// quorum of responses from shard for id. This is a protocol rejection
// shape, not a programming-bug panic: the caller (or an outer retry
// loop / Recovery) decides what to do next.
func errNoQuorum(id txnid.TxnId, shard topology.Shard) error {
	return fmt.Errorf("coordinator: %s failed to reach quorum on shard %s", id, shard.Range)
}
