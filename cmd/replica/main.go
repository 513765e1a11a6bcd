// Command replica runs one node of a cluster: it owns a single
// CommandStore spanning the whole key-space (this port ships no
// sharding configuration, so every replica serves the one shard the
// cluster is configured with) and serves PreAccept/Accept/Commit/
// Read/Apply/recovery requests from coordinators and peers. Flag
// shape follows server/server.go.
package main

import (
	"bytes"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/dlog"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/progress"
	"github.com/maedhroz/cassandra-accord/recovery"
	"github.com/maedhroz/cassandra-accord/replica"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/topology"
	"github.com/maedhroz/cassandra-accord/transport"
	"github.com/maedhroz/cassandra-accord/txnid"
)

var (
	id          = flag.Int("id", -1, "this replica's id, indexing into -addrs")
	addrs       = flag.String("addrs", "", "comma-separated host:port list, one per replica, indexed by id")
	verbose     = flag.Bool("v", false, "verbose protocol logging")
	minDeadline = flag.Duration("mindeadline", 500*time.Millisecond, "initial per-transaction liveness deadline")
	maxDeadline = flag.Duration("maxdeadline", 10*time.Second, "capped per-transaction liveness deadline")
)

func main() {
	flag.Parse()
	if *id < 0 {
		log.Fatal("cmd/replica: -id is required")
	}
	dlog.Enabled = *verbose

	addrList := strings.Split(*addrs, ",")
	if *id >= len(addrList) {
		log.Fatalf("cmd/replica: -id %d out of range of %d addresses", *id, len(addrList))
	}
	replicas := make([]int32, len(addrList))
	for i := range replicas {
		replicas[i] = int32(i)
	}

	// A Range's End is exclusive and keys compare lexicographically, so
	// there's no true "infinity" key; a long run of 0xFF stands in as
	// one for any reasonably-sized application key, covering the one
	// global shard this port ships without real sharding config.
	whole := keyspace.Range{Start: keyspace.Key{}, End: keyspace.Key(bytes.Repeat([]byte{0xFF}, 64))}
	topo := topology.NewManager()
	topo.Install(topology.Topology{
		Epoch:  1,
		Shards: []topology.Shard{{Range: whole, Replicas: replicas}},
	})

	r := &replica.Replica{
		ID:       int32(*id),
		Topo:     topo,
		Stores:   []*command.Store{command.NewStore(whole)},
		Data:     store.NewMemory(),
		Progress: progress.NewLog(*minDeadline, *maxDeadline),
	}

	peers := transport.New(int32(*id), addrList, r)
	ln, err := peers.Listen()
	if err != nil {
		log.Fatalf("cmd/replica: listen on %s: %v", addrList[*id], err)
	}
	go func() {
		if err := peers.Serve(ln); err != nil {
			dlog.Printf("replica %d: accept loop stopped: %v", *id, err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := peers.Connect(ctx); err != nil {
		log.Fatalf("cmd/replica: connect to peers: %v", err)
	}

	rc := &recovery.Coordinator{
		NodeID: int32(*id),
		Clock:  txnid.NewClock(int32(*id)),
		Topo:   topo,
		Client: peers,
	}
	runner := &progress.Runner{
		Log:    r.Progress,
		IsHome: r.IsHome,
		Recover: func(ctx context.Context, txn txnid.TxnId) error {
			route, ok := r.RouteOf(txn)
			if !ok {
				return nil
			}
			_, err := rc.Recover(ctx, txn, route)
			return err
		},
		// A non-home shard has nothing of its own to drive: the home
		// shard's progress log owns recovery. Its deadline still rearms
		// on every firing (progress.Log does that unconditionally), so
		// this replica keeps checking back.
		Resend: func(context.Context, txnid.TxnId) error { return nil },
		OnError: func(txn txnid.TxnId, err error) {
			dlog.Printf("replica %d: progress log %s: %v", *id, txn, err)
		},
	}
	go runner.Run(ctx)

	log.Printf("replica %d listening on %s", *id, addrList[*id])

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
