// Package transport implements replica-to-replica networking: one
// persistent duplex TCP connection per peer, carrying both directions
// of every RPC multiplexed over a single reader/writer pair. Grounded
// on genericsmr.Replica — a 4-byte id handshake on
// connect, one read-loop goroutine per peer dispatching by a one-byte
// message-type tag into per-type channels — generalized here to a
// request/reply model (an 8-byte request id correlates a reply frame
// back to the call that's waiting on it) instead of genericsmr's
// fire-and-forget per-type channels, since Accord's phases need
// request/response, not just broadcast.
package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	reuse "github.com/portmapping/go-reuse"

	"github.com/maedhroz/cassandra-accord/codec"
	"github.com/maedhroz/cassandra-accord/coordinator"
	"github.com/maedhroz/cassandra-accord/dlog"
	"github.com/maedhroz/cassandra-accord/message"
)

// Handler is the replica-side of the wire: whatever reacts to an
// incoming request and produces the reply to send back. A
// *replica.Replica satisfies this directly.
type Handler interface {
	HandlePreAccept(*message.PreAccept) (*message.PreAcceptOk, *message.PreAcceptNack)
	HandleAccept(*message.Accept) (*message.AcceptOk, *message.AcceptNack)
	HandleCommit(*message.Commit)
	HandleRead(*message.Read) (*message.ReadOk, *message.ReadNack)
	HandleApply(*message.Apply) *message.ApplyOk
	HandleBeginRecovery(*message.BeginRecovery) *message.RecoveryReply
	HandleInvalidate(*message.Invalidate) *message.InvalidateOk
	HandleWaitOnCommit(ctx context.Context, m *message.WaitOnCommit) *message.WaitOnCommitOk
}

var _ coordinator.ReplicaClient = (*Peers)(nil)

type conn struct {
	mu sync.Mutex
	w  *bufio.Writer
	r  *bufio.Reader
	nc net.Conn
}

// Peers owns one connection per cluster member and dispatches both
// outbound calls and inbound requests over it.
type Peers struct {
	ID      int32
	Addrs   []string
	Handler Handler

	table *codec.Table
	codes message.Codes

	conns []*conn

	pendingMu sync.Mutex
	pending   map[uint64]chan codec.Serializable
	nextReqID uint64
}

// New builds a Peers ready to Listen and Connect. addrs is indexed by
// replica id, self's own entry included (and never dialed).
func New(id int32, addrs []string, h Handler) *Peers {
	table, codes := message.NewCodecTable()
	return &Peers{
		ID:      id,
		Addrs:   addrs,
		Handler: h,
		table:   table,
		codes:   codes,
		conns:   make([]*conn, len(addrs)),
		pending: make(map[uint64]chan codec.Serializable),
	}
}

// Listen opens the replica's listening socket via go-reuse, so a
// replica that crashes and restarts can rebind the same port
// immediately rather than waiting out TIME_WAIT the way a plain
// net.Listen would force it to.
func (p *Peers) Listen() (net.Listener, error) {
	return reuse.Listen("tcp", p.Addrs[p.ID])
}

// Serve accepts incoming peer connections until ln closes. Each
// connection starts with the 4-byte little-endian id handshake, then
// gets its own read loop.
func (p *Peers) Serve(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go p.acceptOne(nc)
	}
}

// clientSentinel is the handshake id a transport.Client sends in
// place of a real replica id, marking the connection as request-only
// traffic rather than a registered peer slot: a coordinator
// (client or replica) calls into a replica, but a replica never calls
// back into it, so these connections need no slot in conns.
const clientSentinel = -1

func (p *Peers) acceptOne(nc net.Conn) {
	var b [4]byte
	if _, err := io.ReadFull(nc, b[:]); err != nil {
		nc.Close()
		return
	}
	rid := int32(binary.LittleEndian.Uint32(b[:]))
	c := &conn{w: bufio.NewWriter(nc), r: bufio.NewReader(nc), nc: nc}

	if rid == clientSentinel {
		dlog.Printf("transport %d: accepted client connection", p.ID)
		go p.requestOnlyLoop(c)
		return
	}
	if rid < 0 || int(rid) >= len(p.conns) {
		nc.Close()
		return
	}
	p.conns[rid] = c
	dlog.Printf("transport %d: accepted connection from %d", p.ID, rid)
	go p.readLoop(rid, c)
}

// requestOnlyLoop serves a connection that only ever sends requests
// (a transport.Client), replying on the same connection instead of
// correlating against p.pending.
func (p *Peers) requestOnlyLoop(c *conn) {
	for {
		reqID, code, msg, err := readEnvelope(c.r, p.table)
		if err != nil {
			c.nc.Close()
			return
		}
		if !isRequestCode(p.codes, code) {
			dlog.Printf("transport %d: client connection sent non-request code %d", p.ID, code)
			continue
		}
		p.dispatch(clientSentinel, c, reqID, code, msg)
	}
}

// Connect dials every peer with a lower id, mirroring the
// "lower ids dial, higher ids accept" rule so every pair of replicas
// opens exactly one connection between them instead of two racing
// ones. Each such peer is dialed once: the first failed dial or
// handshake returns its error, and a peer that is not yet listening is
// not retried.
func (p *Peers) Connect(ctx context.Context) error {
	for i := int32(0); i < p.ID; i++ {
		nc, err := reuse.Dial("tcp", "", p.Addrs[i])
		if err != nil {
			return fmt.Errorf("transport: dial %d at %s: %w", i, p.Addrs[i], err)
		}
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(p.ID))
		if _, err := nc.Write(b[:]); err != nil {
			return fmt.Errorf("transport: handshake with %d: %w", i, err)
		}
		c := &conn{w: bufio.NewWriter(nc), r: bufio.NewReader(nc), nc: nc}
		p.conns[i] = c
		dlog.Printf("transport %d: connected to %d", p.ID, i)
		go p.readLoop(i, c)
	}
	return nil
}

func (p *Peers) readLoop(rid int32, c *conn) {
	for {
		reqID, code, msg, err := readEnvelope(c.r, p.table)
		if err != nil {
			dlog.Printf("transport %d: connection to %d closed: %v", p.ID, rid, err)
			c.nc.Close()
			return
		}
		if isRequestCode(p.codes, code) {
			go p.dispatch(rid, c, reqID, code, msg)
			continue
		}
		p.pendingMu.Lock()
		ch, ok := p.pending[reqID]
		if ok {
			delete(p.pending, reqID)
		}
		p.pendingMu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

func (p *Peers) dispatch(rid int32, c *conn, reqID uint64, code codec.Code, msg codec.Serializable) {
	switch code {
	case p.codes.PreAccept:
		ok, nack := p.Handler.HandlePreAccept(msg.(*message.PreAccept))
		if ok != nil {
			p.reply(c, reqID, p.codes.PreAcceptOk, ok)
		} else {
			p.reply(c, reqID, p.codes.PreAcceptNack, nack)
		}
	case p.codes.Accept:
		ok, nack := p.Handler.HandleAccept(msg.(*message.Accept))
		if ok != nil {
			p.reply(c, reqID, p.codes.AcceptOk, ok)
		} else {
			p.reply(c, reqID, p.codes.AcceptNack, nack)
		}
	case p.codes.Commit:
		p.Handler.HandleCommit(msg.(*message.Commit))
	case p.codes.Read:
		ok, nack := p.Handler.HandleRead(msg.(*message.Read))
		if ok != nil {
			p.reply(c, reqID, p.codes.ReadOk, ok)
		} else {
			p.reply(c, reqID, p.codes.ReadNack, nack)
		}
	case p.codes.Apply:
		ok := p.Handler.HandleApply(msg.(*message.Apply))
		p.reply(c, reqID, p.codes.ApplyOk, ok)
	case p.codes.BeginRecovery:
		reply := p.Handler.HandleBeginRecovery(msg.(*message.BeginRecovery))
		p.reply(c, reqID, p.codes.RecoveryReply, reply)
	case p.codes.Invalidate:
		ok := p.Handler.HandleInvalidate(msg.(*message.Invalidate))
		p.reply(c, reqID, p.codes.InvalidateOk, ok)
	case p.codes.WaitOnCommit:
		ok := p.Handler.HandleWaitOnCommit(context.Background(), msg.(*message.WaitOnCommit))
		p.reply(c, reqID, p.codes.WaitOnCommitOk, ok)
	default:
		dlog.Printf("transport %d: no dispatch for code %d from %d", p.ID, code, rid)
	}
}

func (p *Peers) reply(c *conn, reqID uint64, code codec.Code, msg codec.Serializable) {
	if err := writeEnvelope(c, reqID, code, msg); err != nil {
		dlog.Printf("transport %d: reply write error: %v", p.ID, err)
	}
}

// call sends msg to replica and blocks for its correlated reply.
func (p *Peers) call(ctx context.Context, replicaID int32, code codec.Code, msg codec.Serializable) (codec.Serializable, error) {
	c := p.conns[replicaID]
	if c == nil {
		return nil, fmt.Errorf("transport: no connection to replica %d", replicaID)
	}

	reqID := atomic.AddUint64(&p.nextReqID, 1)
	ch := make(chan codec.Serializable, 1)
	p.pendingMu.Lock()
	p.pending[reqID] = ch
	p.pendingMu.Unlock()
	defer func() {
		p.pendingMu.Lock()
		delete(p.pending, reqID)
		p.pendingMu.Unlock()
	}()

	if err := writeEnvelope(c, reqID, code, msg); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func isRequestCode(c message.Codes, code codec.Code) bool {
	switch code {
	case c.PreAccept, c.Accept, c.Commit, c.Read, c.Apply, c.BeginRecovery, c.Invalidate, c.WaitOnCommit:
		return true
	default:
		return false
	}
}

func writeEnvelope(c *conn, reqID uint64, code codec.Code, msg codec.Serializable) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], reqID)
	if _, err := c.w.Write(b[:]); err != nil {
		return err
	}
	if err := codec.WriteFrame(c.w, code, msg); err != nil {
		return err
	}
	return c.w.Flush()
}

func readEnvelope(r *bufio.Reader, t *codec.Table) (uint64, codec.Code, codec.Serializable, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, 0, nil, err
	}
	reqID := binary.LittleEndian.Uint64(b[:])
	code, msg, err := codec.ReadFrame(r, t)
	if err != nil {
		return reqID, code, nil, err
	}
	return reqID, code, msg, nil
}
