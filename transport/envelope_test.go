package transport

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func TestWriteReadEnvelopeRoundTrip(t *testing.T) {
	table, codes := message.NewCodecTable()

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := &conn{w: bufio.NewWriter(client), r: bufio.NewReader(client), nc: client}

	msg := &message.PreAccept{Epoch: 1, TxnId: txnid.TxnId{Timestamp: txnid.Timestamp{Epoch: 1, HLC: 1, Node: 1}}}

	go func() {
		_ = writeEnvelope(c, 42, codes.PreAccept, msg)
	}()

	reqID, code, got, err := readEnvelope(bufio.NewReader(server), table)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), reqID)
	assert.Equal(t, codes.PreAccept, code)
	gotMsg, ok := got.(*message.PreAccept)
	require.True(t, ok)
	assert.Equal(t, msg.TxnId, gotMsg.TxnId)
}

func TestIsRequestCode(t *testing.T) {
	_, codes := message.NewCodecTable()
	assert.True(t, isRequestCode(codes, codes.PreAccept))
	assert.True(t, isRequestCode(codes, codes.WaitOnCommit))
	assert.False(t, isRequestCode(codes, codes.PreAcceptOk))
}
