package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	reuse "github.com/portmapping/go-reuse"

	"github.com/maedhroz/cassandra-accord/codec"
	"github.com/maedhroz/cassandra-accord/coordinator"
	"github.com/maedhroz/cassandra-accord/message"
)

var _ coordinator.ReplicaClient = (*Client)(nil)

// Client is the coordinator-facing half of transport: unlike Peers, it
// never accepts connections and carries no identity of its own on the
// wire beyond clientSentinel, since nothing ever calls back into it.
// One connection is dialed per replica on first use and kept open.
type Client struct {
	addrs []string

	table *codec.Table
	codes message.Codes

	mu    sync.Mutex
	conns map[int32]*conn

	pendingMu sync.Mutex
	pending   map[uint64]chan codec.Serializable
	nextReqID uint64
}

// NewClient builds a Client ready to call any replica in addrs,
// indexed by replica id.
func NewClient(addrs []string) *Client {
	table, codes := message.NewCodecTable()
	return &Client{
		addrs:   addrs,
		table:   table,
		codes:   codes,
		conns:   make(map[int32]*conn),
		pending: make(map[uint64]chan codec.Serializable),
	}
}

func (c *Client) connFor(replicaID int32) (*conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cn, ok := c.conns[replicaID]; ok {
		return cn, nil
	}
	if replicaID < 0 || int(replicaID) >= len(c.addrs) {
		return nil, fmt.Errorf("transport: replica %d out of range", replicaID)
	}
	nc, err := reuse.Dial("tcp", "", c.addrs[replicaID])
	if err != nil {
		return nil, fmt.Errorf("transport: dial replica %d at %s: %w", replicaID, c.addrs[replicaID], err)
	}
	var b [4]byte
	sentinel := int32(clientSentinel)
	binary.LittleEndian.PutUint32(b[:], uint32(sentinel))
	if _, err := nc.Write(b[:]); err != nil {
		return nil, fmt.Errorf("transport: handshake with replica %d: %w", replicaID, err)
	}
	cn := &conn{w: bufio.NewWriter(nc), r: bufio.NewReader(nc), nc: nc}
	c.conns[replicaID] = cn
	go c.readLoop(cn)
	return cn, nil
}

func (c *Client) readLoop(cn *conn) {
	for {
		reqID, _, msg, err := readEnvelope(cn.r, c.table)
		if err != nil {
			cn.nc.Close()
			return
		}
		c.pendingMu.Lock()
		ch, ok := c.pending[reqID]
		if ok {
			delete(c.pending, reqID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (c *Client) call(ctx context.Context, replicaID int32, code codec.Code, msg codec.Serializable) (codec.Serializable, error) {
	cn, err := c.connFor(replicaID)
	if err != nil {
		return nil, err
	}

	reqID := atomic.AddUint64(&c.nextReqID, 1)
	ch := make(chan codec.Serializable, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, reqID)
		c.pendingMu.Unlock()
	}()

	if err := writeEnvelope(cn, reqID, code, msg); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) PreAccept(ctx context.Context, replicaID int32, m *message.PreAccept) (*message.PreAcceptOk, *message.PreAcceptNack, error) {
	reply, err := c.call(ctx, replicaID, c.codes.PreAccept, m)
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

func (c *Client) Accept(ctx context.Context, replicaID int32, m *message.Accept) (*message.AcceptOk, *message.AcceptNack, error) {
	reply, err := c.call(ctx, replicaID, c.codes.Accept, m)
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

func (c *Client) Commit(ctx context.Context, replicaID int32, m *message.Commit) error {
	cn, err := c.connFor(replicaID)
	if err != nil {
		return err
	}
	return writeEnvelope(cn, 0, c.codes.Commit, m)
}

func (c *Client) Read(ctx context.Context, replicaID int32, m *message.Read) (*message.ReadOk, *message.ReadNack, error) {
	reply, err := c.call(ctx, replicaID, c.codes.Read, m)
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

func (c *Client) Apply(ctx context.Context, replicaID int32, m *message.Apply) (*message.ApplyOk, error) {
	reply, err := c.call(ctx, replicaID, c.codes.Apply, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.ApplyOk)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to Apply", reply)
	}
	return r, nil
}

func (c *Client) BeginRecovery(ctx context.Context, replicaID int32, m *message.BeginRecovery) (*message.RecoveryReply, error) {
	reply, err := c.call(ctx, replicaID, c.codes.BeginRecovery, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.RecoveryReply)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to BeginRecovery", reply)
	}
	return r, nil
}

func (c *Client) Invalidate(ctx context.Context, replicaID int32, m *message.Invalidate) (*message.InvalidateOk, error) {
	reply, err := c.call(ctx, replicaID, c.codes.Invalidate, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.InvalidateOk)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to Invalidate", reply)
	}
	return r, nil
}

func (c *Client) WaitOnCommit(ctx context.Context, replicaID int32, m *message.WaitOnCommit) (*message.WaitOnCommitOk, error) {
	reply, err := c.call(ctx, replicaID, c.codes.WaitOnCommit, m)
	if err != nil {
		return nil, err
	}
	r, ok := reply.(*message.WaitOnCommitOk)
	if !ok {
		return nil, fmt.Errorf("transport: unexpected reply %T to WaitOnCommit", reply)
	}
	return r, nil
}
