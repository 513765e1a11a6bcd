package transport

import (
	"context"
	"fmt"

	"github.com/maedhroz/cassandra-accord/message"
)

// The methods below implement coordinator.ReplicaClient over Peers'
// call/reply machinery. Commit has no reply message at all — it is
// fire-and-forget, a coordinator that wants confirmation uses
// WaitOnCommit instead — so it writes the frame without waiting on a
// correlated reply.

func (p *Peers) PreAccept(ctx context.Context, replicaID int32, m *message.PreAccept) (*message.PreAcceptOk, *message.PreAcceptNack, error) {
	reply, err := p.call(ctx, replicaID, p.codes.PreAccept, m)
	if err != nil {
		return nil, nil, err
	}
	switch r := reply.(type) {
	case *message.PreAcceptOk:
		return r, nil, nil
	case *message.PreAcceptNack:
		return nil, r, nil
	default:
		return nil, nil, fmt.Errorf("transport: unexpected reply %T to PreAccept", reply)
	}
}

func (p *Peers) Accept(ctx context.Context, replicaID int32, m *message.Accept) (*message.AcceptOk, *message.AcceptNack, error) {
	reply, err := p.call(ctx, replicaID, p.codes.Accept, m)
	if err != nil {
		return nil, nil, err
	}
	switch r := reply.(type) {
	case *message.AcceptOk:
		return r, nil, nil
	case *message.AcceptNack:
		return nil, r, nil
	default:
		return nil, nil, fmt.Errorf("transport: unexpected reply %T to Accept", reply)
	}
}

func (p *Peers) Commit(ctx context.Context, replicaID int32, m *message.Commit) error {
	c := p.conns[replicaID]
	if c == nil {
		return fmt.Errorf("transport: no connection to replica %d", replicaID)
	}
	return writeEnvelope(c, 0, p.codes.Commit, m)
}

func (p *Peers) Read(ctx context.Context, replicaID int32, m *message.Read) (*message.ReadOk, *message.ReadNack, error) {
	reply, err := p.call(ctx, replicaID, p.codes.Read, m)
	if err != nil {
		return nil, nil, err
	}
	switch r := reply.(type) {
	case *message.ReadOk:
		return r, nil, nil
	case *message.ReadNack:
		return nil, r, nil
	default:
		return nil, nil, fmt.Errorf("transport: unexpected reply %T to Read", reply)
	}
}

func (p *Peers) Apply(ctx context.Context, replicaID int32, m *message.Apply) (*message.ApplyOk, error) {
	reply, err := p.call(ctx, replicaID, p.codes.Apply, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.ApplyOk)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to Apply", reply)
	}
	return r, nil
}

func (p *Peers) BeginRecovery(ctx context.Context, replicaID int32, m *message.BeginRecovery) (*message.RecoveryReply, error) {
	reply, err := p.call(ctx, replicaID, p.codes.BeginRecovery, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.RecoveryReply)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to BeginRecovery", reply)
	}
	return r, nil
}

func (p *Peers) Invalidate(ctx context.Context, replicaID int32, m *message.Invalidate) (*message.InvalidateOk, error) {
	reply, err := p.call(ctx, replicaID, p.codes.Invalidate, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.InvalidateOk)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to Invalidate", reply)
	}
	return r, nil
}

func (p *Peers) WaitOnCommit(ctx context.Context, replicaID int32, m *message.WaitOnCommit) (*message.WaitOnCommitOk, error) {
	reply, err := p.call(ctx, replicaID, p.codes.WaitOnCommit, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.WaitOnCommitOk)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to WaitOnCommit", reply)
	}
	return r, nil
}
