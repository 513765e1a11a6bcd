package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maedhroz/cassandra-accord/txnid"
)

func tid(hlc int64) txnid.TxnId {
	return txnid.TxnId{Timestamp: txnid.Timestamp{Epoch: 1, HLC: hlc, Node: 1}}
}

func TestUnionDepsDedupsAndSorts(t *testing.T) {
	a := []txnid.TxnId{tid(3), tid(1)}
	b := []txnid.TxnId{tid(1), tid(2)}
	out := unionDeps(a, b)
	require.Len(t, out, 3)
	assert.Equal(t, tid(1), out[0])
	assert.Equal(t, tid(2), out[1])
	assert.Equal(t, tid(3), out[2])
}

func TestDepsEqualIgnoresOrder(t *testing.T) {
	a := []txnid.TxnId{tid(1), tid(2)}
	b := []txnid.TxnId{tid(2), tid(1)}
	assert.True(t, depsEqual(a, b))
}

func TestDepsEqualDiffersOnLengthOrContent(t *testing.T) {
	a := []txnid.TxnId{tid(1), tid(2)}
	assert.False(t, depsEqual(a, []txnid.TxnId{tid(1)}))
	assert.False(t, depsEqual(a, []txnid.TxnId{tid(1), tid(3)}))
}
