// Package message declares the wire message shapes: the
// four-phase protocol's request/reply pairs plus recovery and
// WaitOnCommit. Every message carries its originating Epoch; the
// replica handlers copy it into their replies and do not compare it
// with the local topology epoch, so no message is buffered or rejected
// because of its epoch. Message bodies are plain
// structs — framing/codec concerns live in package codec, matching
// the split between lwcproto (message shapes) and fastrpc (framing).
package message

import (
	"encoding/gob"
	"io"

	"github.com/maedhroz/cassandra-accord/codec"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/store"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func init() {
	// gob needs every concrete type that will cross the wire behind
	// the Route/Seekables/Unseekables interfaces registered up front.
	gob.Register(keyspace.FullRoute{})
	gob.Register(keyspace.PartialRoute{})
	gob.Register(keyspace.Keys{})
	gob.Register(keyspace.Ranges{})
	gob.Register(keyspace.RoutingKeys{})
	gob.Register(keyspace.RoutingRanges{})
}

// marshal/unmarshal let every concrete message type satisfy
// codec.Serializable via gob, without each message hand-rolling
// Marshal/Unmarshal.
func marshal(w io.Writer, v interface{}) error   { return codec.GobMarshal(w, v) }
func unmarshal(r io.Reader, v interface{}) error { return codec.GobUnmarshal(r, v) }

// PreAccept is the opening broadcast of the coordinator state machine.
type PreAccept struct {
	Epoch int64
	TxnId txnid.TxnId
	Route keyspace.Route
	Keys  keyspace.Seekables
	// Writes is nil for Read-kind transactions.
	Writes map[store.Key]store.Value
}

func (m *PreAccept) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *PreAccept) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *PreAccept) New() codec.Serializable     { return &PreAccept{} }

// PreAcceptOk carries a replica's witnessed executeAt and dependency
// set for one shard.
type PreAcceptOk struct {
	Epoch      int64
	TxnId      txnid.TxnId
	ReplicaId  int32
	ExecuteAt  txnid.Timestamp
	Deps       []txnid.TxnId
}

func (m *PreAcceptOk) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *PreAcceptOk) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *PreAcceptOk) New() codec.Serializable     { return &PreAcceptOk{} }

// PreAcceptNack reports the replica's current status/ballot so the
// coordinator can catch up — an invalid transition is silently
// ignored and produces a Nack rather than an error.
type PreAcceptNack struct {
	Epoch        int64
	TxnId        txnid.TxnId
	ReplicaId    int32
	CurrentState status.Status
	Promised     txnid.Ballot
}

func (m *PreAcceptNack) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *PreAcceptNack) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *PreAcceptNack) New() codec.Serializable     { return &PreAcceptNack{} }

// Accept carries the slow-path executeAt/deps the coordinator settled
// on after PreAccept, proposed under Ballot.
type Accept struct {
	Epoch     int64
	TxnId     txnid.TxnId
	Ballot    txnid.Ballot
	Route     keyspace.Route
	ExecuteAt txnid.Timestamp
	Deps      []txnid.TxnId
}

func (m *Accept) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *Accept) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *Accept) New() codec.Serializable     { return &Accept{} }

type AcceptOk struct {
	Epoch     int64
	TxnId     txnid.TxnId
	ReplicaId int32
	Deps      []txnid.TxnId
}

func (m *AcceptOk) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *AcceptOk) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *AcceptOk) New() codec.Serializable     { return &AcceptOk{} }

// AcceptNack reports the replica's highest promised ballot so the
// coordinator's retry can propose above it.
type AcceptNack struct {
	Epoch        int64
	TxnId        txnid.TxnId
	ReplicaId    int32
	MaxPromised  txnid.Ballot
}

func (m *AcceptNack) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *AcceptNack) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *AcceptNack) New() codec.Serializable     { return &AcceptNack{} }

// Commit has no reply.
type Commit struct {
	Epoch     int64
	TxnId     txnid.TxnId
	ExecuteAt txnid.Timestamp
	Deps      []txnid.TxnId
	Route     keyspace.Route
}

func (m *Commit) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *Commit) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *Commit) New() codec.Serializable     { return &Commit{} }

type Read struct {
	Epoch int64
	TxnId txnid.TxnId
	Route keyspace.Route
	Keys  keyspace.Seekables
}

func (m *Read) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *Read) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *Read) New() codec.Serializable     { return &Read{} }

type ReadOk struct {
	Epoch     int64
	TxnId     txnid.TxnId
	ReplicaId int32
	Values    map[store.Key]store.Value
}

func (m *ReadOk) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *ReadOk) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *ReadOk) New() codec.Serializable     { return &ReadOk{} }

type ReadNack struct {
	Epoch        int64
	TxnId        txnid.TxnId
	ReplicaId    int32
	CurrentState status.Status
}

func (m *ReadNack) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *ReadNack) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *ReadNack) New() codec.Serializable     { return &ReadNack{} }

// Apply carries the final write set and client-visible result; it is
// acked.
type Apply struct {
	Epoch     int64
	TxnId     txnid.TxnId
	Route     keyspace.Route
	ExecuteAt txnid.Timestamp
	Deps      []txnid.TxnId
	Writes    map[store.Key]store.Value
	Result    []byte
}

func (m *Apply) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *Apply) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *Apply) New() codec.Serializable     { return &Apply{} }

type ApplyOk struct {
	Epoch     int64
	TxnId     txnid.TxnId
	ReplicaId int32
}

func (m *ApplyOk) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *ApplyOk) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *ApplyOk) New() codec.Serializable     { return &ApplyOk{} }

// BeginRecovery is sent by the homeKey-owning replica when the
// progress log observes a stalled transaction.
type BeginRecovery struct {
	Epoch  int64
	TxnId  txnid.TxnId
	Ballot txnid.Ballot
	Route  keyspace.Route
}

func (m *BeginRecovery) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *BeginRecovery) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *BeginRecovery) New() codec.Serializable     { return &BeginRecovery{} }

type RecoveryReply struct {
	Epoch          int64
	TxnId          txnid.TxnId
	ReplicaId      int32
	Status         status.Status
	AcceptedBallot txnid.Ballot
	// Promised is this replica's current highest-promised ballot,
	// which may exceed the recovery coordinator's proposed Ballot —
	// in that case the recovery attempt must retry with a ballot
	// above Promised rather than proceeding.
	Promised  txnid.Ballot
	ExecuteAt txnid.Timestamp
	Deps      []txnid.TxnId
	// Writes is whatever write set this replica has on file for the
	// transaction (set at PreAccept time), so recovery can re-drive
	// Apply without the original coordinator.
	Writes map[store.Key]store.Value
	// Witnessed reports whether this replica ever saw the transaction
	// as at least PreAccepted — recovery invalidates when no replica
	// did.
	Witnessed bool
}

func (m *RecoveryReply) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *RecoveryReply) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *RecoveryReply) New() codec.Serializable     { return &RecoveryReply{} }

// WaitOnCommit is the cross-replica blocking primitive a replica uses
// to wait for a command it doesn't yet know the outcome of.
type WaitOnCommit struct {
	Epoch int64
	TxnId txnid.TxnId
	Scope keyspace.Unseekables
}

func (m *WaitOnCommit) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *WaitOnCommit) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *WaitOnCommit) New() codec.Serializable     { return &WaitOnCommit{} }

type WaitOnCommitOk struct {
	Epoch     int64
	TxnId     txnid.TxnId
	ReplicaId int32
}

func (m *WaitOnCommitOk) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *WaitOnCommitOk) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *WaitOnCommitOk) New() codec.Serializable     { return &WaitOnCommitOk{} }

type Invalidate struct {
	Epoch  int64
	TxnId  txnid.TxnId
	Ballot txnid.Ballot
	Route  keyspace.Route
}

func (m *Invalidate) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *Invalidate) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *Invalidate) New() codec.Serializable     { return &Invalidate{} }

type InvalidateOk struct {
	Epoch     int64
	TxnId     txnid.TxnId
	ReplicaId int32
}

func (m *InvalidateOk) Marshal(w io.Writer) error   { return marshal(w, m) }
func (m *InvalidateOk) Unmarshal(r io.Reader) error { return unmarshal(r, m) }
func (m *InvalidateOk) New() codec.Serializable     { return &InvalidateOk{} }

var (
	_ codec.Serializable = (*PreAccept)(nil)
	_ codec.Serializable = (*PreAcceptOk)(nil)
	_ codec.Serializable = (*PreAcceptNack)(nil)
	_ codec.Serializable = (*Accept)(nil)
	_ codec.Serializable = (*AcceptOk)(nil)
	_ codec.Serializable = (*AcceptNack)(nil)
	_ codec.Serializable = (*Commit)(nil)
	_ codec.Serializable = (*Read)(nil)
	_ codec.Serializable = (*ReadOk)(nil)
	_ codec.Serializable = (*ReadNack)(nil)
	_ codec.Serializable = (*Apply)(nil)
	_ codec.Serializable = (*ApplyOk)(nil)
	_ codec.Serializable = (*BeginRecovery)(nil)
	_ codec.Serializable = (*RecoveryReply)(nil)
	_ codec.Serializable = (*WaitOnCommit)(nil)
	_ codec.Serializable = (*WaitOnCommitOk)(nil)
	_ codec.Serializable = (*Invalidate)(nil)
	_ codec.Serializable = (*InvalidateOk)(nil)
)

// Codes names the codec.Code assigned to each message type by
// NewCodecTable, so callers building request/reply pairs (package
// transport) don't need their own copy of the registration order.
type Codes struct {
	PreAccept      codec.Code
	PreAcceptOk    codec.Code
	PreAcceptNack  codec.Code
	Accept         codec.Code
	AcceptOk       codec.Code
	AcceptNack     codec.Code
	Commit         codec.Code
	Read           codec.Code
	ReadOk         codec.Code
	ReadNack       codec.Code
	Apply          codec.Code
	ApplyOk        codec.Code
	BeginRecovery  codec.Code
	RecoveryReply  codec.Code
	WaitOnCommit   codec.Code
	WaitOnCommitOk codec.Code
	Invalidate     codec.Code
	InvalidateOk   codec.Code
}

// NewCodecTable registers every message type in this fixed order, so
// the codes line up across every process in the cluster without
// needing to negotiate them, and returns both the table and the codes
// it assigned.
func NewCodecTable() (*codec.Table, Codes) {
	t := codec.NewTable()
	var c Codes
	c.PreAccept = t.Register(&PreAccept{})
	c.PreAcceptOk = t.Register(&PreAcceptOk{})
	c.PreAcceptNack = t.Register(&PreAcceptNack{})
	c.Accept = t.Register(&Accept{})
	c.AcceptOk = t.Register(&AcceptOk{})
	c.AcceptNack = t.Register(&AcceptNack{})
	c.Commit = t.Register(&Commit{})
	c.Read = t.Register(&Read{})
	c.ReadOk = t.Register(&ReadOk{})
	c.ReadNack = t.Register(&ReadNack{})
	c.Apply = t.Register(&Apply{})
	c.ApplyOk = t.Register(&ApplyOk{})
	c.BeginRecovery = t.Register(&BeginRecovery{})
	c.RecoveryReply = t.Register(&RecoveryReply{})
	c.WaitOnCommit = t.Register(&WaitOnCommit{})
	c.WaitOnCommitOk = t.Register(&WaitOnCommitOk{})
	c.Invalidate = t.Register(&Invalidate{})
	c.InvalidateOk = t.Register(&InvalidateOk{})
	return t, c
}
