package coordinator

import (
	"context"

	"github.com/maedhroz/cassandra-accord/message"
)

// ReplicaClient is the coordinator's view of one destination replica:
// a blocking request/reply call per protocol message, fanned out
// across replicas by the coordinator's own goroutines. The transport
// package provides the concrete implementation over a real
// connection; tests use an in-memory fake driving the replica package
// directly.
type ReplicaClient interface {
	PreAccept(ctx context.Context, replica int32, m *message.PreAccept) (*message.PreAcceptOk, *message.PreAcceptNack, error)
	Accept(ctx context.Context, replica int32, m *message.Accept) (*message.AcceptOk, *message.AcceptNack, error)
	Commit(ctx context.Context, replica int32, m *message.Commit) error
	Read(ctx context.Context, replica int32, m *message.Read) (*message.ReadOk, *message.ReadNack, error)
	Apply(ctx context.Context, replica int32, m *message.Apply) (*message.ApplyOk, error)
	BeginRecovery(ctx context.Context, replica int32, m *message.BeginRecovery) (*message.RecoveryReply, error)
	Invalidate(ctx context.Context, replica int32, m *message.Invalidate) (*message.InvalidateOk, error)
	WaitOnCommit(ctx context.Context, replica int32, m *message.WaitOnCommit) (*message.WaitOnCommitOk, error)
}
