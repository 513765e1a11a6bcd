// Package topology maps a topology epoch to its shards, replicas, and
// fast-path electorates, and derives the quorum sizes the
// coordinator and recovery need. Grounded on
// genericsmr.FastQuorumSize/SlowQuorumSize/WriteQuorumSize/
// ReadQuorumSize, generalized from one global replica set to
// per-shard ones.
package topology

import (
	"sync"

	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/quorum"
)

// Shard is a (range, replicas, fast-path electorate, required
// fast-path size) tuple.
type Shard struct {
	Range     keyspace.Range
	Replicas  []int32
	Electorate []int32
	// RequiredFastPathSize overrides the formula derived quorum.FastPathSize
	// when non-zero; topologies that don't care leave it at zero.
	RequiredFastPathSize int
}

func (s Shard) FastPathSize() int {
	if s.RequiredFastPathSize > 0 {
		return s.RequiredFastPathSize
	}
	f := (len(s.Replicas) - 1) / 2
	return quorum.FastPathSize(len(s.Electorate), f)
}

func (s Shard) SlowQuorumSize() int {
	return quorum.SimpleMajority(len(s.Replicas))
}

// f is the number of replica failures this shard tolerates.
func (s Shard) f() int { return (len(s.Replicas) - 1) / 2 }

// WriteQuorumSize and ReadQuorumSize follow a Flexible Paxos split
// (genericsmr.WriteQuorumSize/ReadQuorumSize): write and
// read quorums need only intersect each other, not themselves, so
// they can be smaller than a simple majority as long as
// WriteQuorumSize+ReadQuorumSize > len(Replicas).
func (s Shard) WriteQuorumSize() int {
	return s.f() + 1
}

func (s Shard) ReadQuorumSize() int {
	return len(s.Replicas) - s.f()
}

func (s Shard) HasReplica(id int32) bool {
	for _, r := range s.Replicas {
		if r == id {
			return true
		}
	}
	return false
}

// Topology is an ordered set of Shards valid for one epoch.
type Topology struct {
	Epoch  int64
	Shards []Shard
}

// ShardsTouching returns every shard whose range overlaps ranges —
// the set of shards a route's dispatch must reach.
func (t Topology) ShardsTouching(ranges keyspace.Ranges) []Shard {
	var out []Shard
	for _, sh := range t.Shards {
		for _, r := range ranges.Values() {
			if sh.Range.Overlaps(r) {
				out = append(out, sh)
				break
			}
		}
	}
	return out
}

// RangesForNode returns the union of all shard ranges assigning node
// in this epoch.
func (t Topology) RangesForNode(node int32) keyspace.Ranges {
	out := keyspace.NewRanges()
	for _, sh := range t.Shards {
		if sh.HasReplica(node) {
			out = out.Union(keyspace.NewRanges(sh.Range))
		}
	}
	return out
}

// Manager keeps the copy-on-write sequence of Topologies by epoch:
// readers take a stable snapshot per operation.
type Manager struct {
	mu         sync.RWMutex
	byEpoch    map[int64]Topology
	maxEpoch   int64
	acked      map[int64]map[int32]struct{} // epoch -> acking replicas of epoch-1
}

func NewManager() *Manager {
	return &Manager{
		byEpoch: make(map[int64]Topology),
		acked:   make(map[int64]map[int32]struct{}),
	}
}

// Install adds a new epoch's Topology. It does not make the epoch
// durable on its own — Acknowledge does that once a quorum of the
// prior epoch has confirmed receipt.
func (m *Manager) Install(t Topology) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEpoch[t.Epoch] = t
	if t.Epoch > m.maxEpoch {
		m.maxEpoch = t.Epoch
	}
}

// Acknowledge records that replica has confirmed epoch E, counting
// toward E becoming durable once a quorum of E-1's replicas has
// acknowledged.
func (m *Manager) Acknowledge(epoch int64, replica int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.acked[epoch] == nil {
		m.acked[epoch] = make(map[int32]struct{})
	}
	m.acked[epoch][replica] = struct{}{}
}

// IsDurable reports whether epoch is durable: acknowledged by a
// quorum of epoch-1's replicas.
func (m *Manager) IsDurable(epoch int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prior, ok := m.byEpoch[epoch-1]
	if !ok {
		// epoch 0 (or the first installed epoch) is durable trivially:
		// there is no prior epoch to await acknowledgement from.
		return true
	}
	replicas := make(map[int32]struct{})
	for _, sh := range prior.Shards {
		for _, r := range sh.Replicas {
			replicas[r] = struct{}{}
		}
	}
	need := quorum.SimpleMajority(len(replicas))
	if need == 0 {
		return true
	}
	return len(m.acked[epoch]) >= need
}

// Current returns the highest installed epoch's Topology and its
// number, a stable snapshot for the caller's single operation.
func (m *Manager) Current() Topology {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byEpoch[m.maxEpoch]
}

func (m *Manager) At(epoch int64) (Topology, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.byEpoch[epoch]
	return t, ok
}

func (m *Manager) MaxEpoch() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxEpoch
}
