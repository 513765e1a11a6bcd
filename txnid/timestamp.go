// Package txnid implements the hybrid-logical timestamps that order
// every transaction in the core: Timestamp, the TxnId derived from
// it, the ExecuteAt a transaction is agreed to run at,
// and the Ballot used to order recovery proposals. Grounded on
// stdpaxosproto.Ballot (Number/PropID pair with GreaterThan/
// Equal/IsZero value methods), generalized to a full hybrid-logical
// clock triple.
package txnid

import "fmt"

// Timestamp is the triple (Epoch, HLC, Node). Ordering is
// lexicographic over (Epoch, HLC, Node) and is total: no two distinct
// timestamps compare equal.
type Timestamp struct {
	Epoch int64
	HLC   int64
	Node  int32
}

// Compare returns -1, 0 or 1 as t is less than, equal to, or greater
// than o.
func (t Timestamp) Compare(o Timestamp) int {
	if t.Epoch != o.Epoch {
		return cmp64(t.Epoch, o.Epoch)
	}
	if t.HLC != o.HLC {
		return cmp64(t.HLC, o.HLC)
	}
	if t.Node != o.Node {
		return cmp32(t.Node, o.Node)
	}
	return 0
}

func (t Timestamp) Less(o Timestamp) bool    { return t.Compare(o) < 0 }
func (t Timestamp) Greater(o Timestamp) bool { return t.Compare(o) > 0 }
func (t Timestamp) Equal(o Timestamp) bool   { return t.Compare(o) == 0 }

func (t Timestamp) IsZero() bool { return t == Timestamp{} }

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%d@%d", t.Epoch, t.HLC, t.Node)
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmp32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Max returns the larger of a and b.
func Max(a, b Timestamp) Timestamp {
	if a.Less(b) {
		return b
	}
	return a
}

// Kind distinguishes what a TxnId's transaction does to the keys it
// touches.
type Kind uint8

const (
	Read Kind = iota
	Write
	ExclusiveSync
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case ExclusiveSync:
		return "ExclusiveSync"
	default:
		return "Unknown"
	}
}

// TxnId is a Timestamp additionally tagged with a transaction Kind. It
// is assigned once, by the coordinator, from its local clock, and
// never changes for the life of the transaction.
type TxnId struct {
	Timestamp
	Kind Kind
}

func (id TxnId) String() string {
	return fmt.Sprintf("%s/%s", id.Timestamp, id.Kind)
}

// Ballot orders recovery proposals for a single TxnId. A fresh
// transaction's initial ballot equals its TxnId's Timestamp; a
// recovery coordinator mints a Ballot strictly greater than any the
// replicas have promised.
type Ballot = Timestamp

// InitialBallot returns the ballot a TxnId starts its life with.
func InitialBallot(id TxnId) Ballot {
	return id.Timestamp
}

// Clock is a per-node hybrid-logical clock. It is the only mutable,
// monotonically-advancing piece of timestamp state in the core; every
// other Timestamp value is produced by copying and comparing, never by
// mutation.
type Clock struct {
	node int32
	hlc  int64
	// epoch is the epoch passed to the most recent Now call. Witness
	// skips timestamps from earlier epochs, which any later Now at this
	// epoch or above already orders after.
	epoch int64
}

func NewClock(node int32) *Clock {
	return &Clock{node: node}
}

// Now advances the clock past both its previous value and every
// Timestamp in witnessed (the "happened-before" set observed on an
// incoming message) and returns the new value, tagged with epoch.
func (c *Clock) Now(epoch int64, witnessed ...Timestamp) Timestamp {
	next := c.hlc + 1
	for _, w := range witnessed {
		if w.Epoch == epoch && w.HLC >= next {
			next = w.HLC + 1
		}
	}
	c.hlc = next
	c.epoch = epoch
	return Timestamp{Epoch: epoch, HLC: next, Node: c.node}
}

// Witness folds an externally observed timestamp into the clock
// without producing a new value, ensuring future calls to Now are
// ordered after it.
func (c *Clock) Witness(ts Timestamp) {
	if ts.Epoch >= c.epoch && ts.HLC > c.hlc {
		c.hlc = ts.HLC
	}
}

// NewTxnId mints a fresh TxnId from the clock, as a coordinator does
// on receiving a client transaction: it selects the initial TxnId from
// its local clock.
func NewTxnId(c *Clock, epoch int64, kind Kind, witnessed ...Timestamp) TxnId {
	return TxnId{Timestamp: c.Now(epoch, witnessed...), Kind: kind}
}
