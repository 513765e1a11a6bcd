// Command client submits one transaction to a cluster and prints its
// outcome. Flag shape follows client/client.go.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maedhroz/cassandra-accord/coordinator"
	"github.com/maedhroz/cassandra-accord/dlog"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/transport"
	"github.com/maedhroz/cassandra-accord/txnid"
)

var (
	clientId = flag.Int64("id", -1, "this client's id. Default is RFC 4122 nodeID.")
	addrs    = flag.String("addrs", "", "comma-separated replica host:port list, indexed by replica id")
	reads    = flag.String("reads", "", "comma-separated keys to read")
	writes   = flag.String("writes", "", "comma-separated key=value pairs to write")
	timeout  = flag.Duration("timeout", 10*time.Second, "overall deadline for the transaction")
	verbose  = flag.Bool("v", false, "verbose protocol logging")
)

func main() {
	flag.Parse()
	if *clientId < 0 {
		*clientId = int64(uuid.New().ID())
	}
	dlog.Enabled = *verbose

	addrList := splitNonEmpty(*addrs)
	if len(addrList) == 0 {
		log.Fatal("cmd/client: -addrs is required")
	}
	replicas := make([]int32, len(addrList))
	for i := range replicas {
		replicas[i] = int32(i)
	}

	readKeys := splitNonEmpty(*reads)
	writeSet := parseWrites(*writes)

	var readKeyVals []keyspace.Key
	for _, k := range readKeys {
		readKeyVals = append(readKeyVals, keyspace.Key(k))
	}
	allKeys := append([]keyspace.Key(nil), readKeyVals...)
	for k := range writeSet {
		allKeys = append(allKeys, keyspace.Key(k))
	}
	if len(allKeys) == 0 {
		log.Fatal("cmd/client: at least one of -reads/-writes is required")
	}

	kind := txnid.Read
	if len(writeSet) > 0 {
		kind = txnid.Write
	}

	// The route has to cover every key the transaction touches, reads
	// and writes alike, but readSet stays read-only: Writes is
	// dispatched separately and isn't required to duplicate into it.
	readSet := keyspace.NewKeys(readKeyVals...)
	route := keyspace.NewFullRoute(allKeys[0], keyspace.NewKeys(allKeys...).ToUnseekables())

	// Mirrors cmd/replica's own single global shard: this port ships no
	// topology discovery protocol, so the client is configured with the
	// same shard layout the replicas were started with.
	whole := keyspace.Range{Start: keyspace.Key{}, End: keyspace.Key(strings.Repeat("\xff", 64))}
	topo := topology.NewManager()
	topo.Install(topology.Topology{
		Epoch:  1,
		Shards: []topology.Shard{{Range: whole, Replicas: replicas}},
	})

	client := transport.NewClient(addrList)
	coord := &coordinator.Coordinator{
		NodeID: int32(*clientId),
		Clock:  txnid.NewClock(int32(*clientId)),
		Topo:   topo,
		Client: client,
	}

	txn := coordinator.Txn{Reads: readSet, Writes: writeSet, Kind: kind}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	outcome, err := coord.Run(ctx, route, txn)
	if err != nil {
		log.Fatalf("client %d: transaction failed: %v", *clientId, err)
	}
	log.Printf("client %d: %s committed at %s, status %s, result %q",
		*clientId, outcome.TxnId, outcome.ExecuteAt, outcome.Status, outcome.Result)
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseWrites(s string) map[store.Key]store.Value {
	pairs := splitNonEmpty(s)
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[store.Key]store.Value, len(pairs))
	for _, p := range pairs {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			log.Fatalf("cmd/client: malformed -writes entry %q, want key=value", p)
		}
		out[store.Key(kv[0])] = store.Value(kv[1])
	}
	return out
}

