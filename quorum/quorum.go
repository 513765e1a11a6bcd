// Package quorum tallies replica responses for a single in-flight
// request (PreAccept/Accept/Commit/Apply/WaitOnCommit). It is
// generalized from a per-instance QuorumTally to operate over a
// shard's replica set and, separately, over a shard's fast-path
// electorate.
package quorum

// Tally counts acknowledgements from a fixed set of participants and
// reports once a threshold condition is met. Distinct thresholds model
// the slow-path (simple majority) and fast-path (electorate) shapes of
// quorum check; the coordinator package counts its replies directly
// and does not use a Tally.
type Tally interface {
	Add(id int32)
	Reached() bool
	Acknowledged(id int32) bool
	Count() int
}

// responseHolder is the ack-set shared by every Tally implementation,
// ported directly from quorum.ResponseHolder.
type responseHolder struct {
	acks map[int32]struct{}
}

func newResponseHolder() responseHolder {
	return responseHolder{acks: make(map[int32]struct{})}
}

func (h *responseHolder) addAck(id int32) {
	h.acks[id] = struct{}{}
}

func (h *responseHolder) getAcks() map[int32]struct{} {
	return h.acks
}

// CountingTally is satisfied once any Threshold distinct participants
// have acknowledged, regardless of identity: the simple-quorum shape.
type CountingTally struct {
	responseHolder
	Threshold int
}

func NewCountingTally(threshold int) *CountingTally {
	return &CountingTally{responseHolder: newResponseHolder(), Threshold: threshold}
}

func (t *CountingTally) Add(id int32) { t.addAck(id) }

func (t *CountingTally) Reached() bool { return len(t.getAcks()) >= t.Threshold }

func (t *CountingTally) Acknowledged(id int32) bool {
	_, ok := t.getAcks()[id]
	return ok
}

func (t *CountingTally) Count() int { return len(t.getAcks()) }

// ElectorateTally is satisfied only once every member of a named
// electorate (the shard's fast-path electorate) has acknowledged.
// Unlike CountingTally, identity matters: a response
// from outside the electorate does not count toward Reached.
type ElectorateTally struct {
	responseHolder
	Electorate map[int32]struct{}
}

func NewElectorateTally(electorate []int32) *ElectorateTally {
	set := make(map[int32]struct{}, len(electorate))
	for _, id := range electorate {
		set[id] = struct{}{}
	}
	return &ElectorateTally{responseHolder: newResponseHolder(), Electorate: set}
}

func (t *ElectorateTally) Add(id int32) {
	if _, inElectorate := t.Electorate[id]; inElectorate {
		t.addAck(id)
	}
}

func (t *ElectorateTally) Reached() bool {
	return len(t.getAcks()) >= len(t.Electorate)
}

func (t *ElectorateTally) Acknowledged(id int32) bool {
	_, ok := t.getAcks()[id]
	return ok
}

func (t *ElectorateTally) Count() int { return len(t.getAcks()) }

// SimpleMajority returns the smallest quorum size out of n replicas
// that intersects every other such quorum: floor(n/2)+1.
func SimpleMajority(n int) int {
	return n/2 + 1
}

// FastPathSize derives the default fast-path electorate size for a
// shard of n replicas tolerating f failures, following the standard
// EPaxos/Accord "fast quorum" formula: n - (n-1)/4, raised to at
// least f+1 and capped at n. Grounded on genericsmr.FastQuorumSize,
// generalized from a fixed global F to a per-shard f. Callers may
// override with an explicit value from Topology.Shard when the
// topology specifies one.
func FastPathSize(n, f int) int {
	size := n - (n-1)/4
	if size < f+1 {
		size = f + 1
	}
	if size > n {
		size = n
	}
	return size
}
