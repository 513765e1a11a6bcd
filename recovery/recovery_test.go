package recovery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

func ballot(hlc int64) txnid.Ballot {
	return txnid.Ballot{Epoch: 1, HLC: hlc, Node: 1}
}

func TestRecoveryRankInvalidatedIsLowest(t *testing.T) {
	assert.Less(t, recoveryRank(status.Invalidated), recoveryRank(status.NotWitnessed))
	assert.Less(t, recoveryRank(status.NotWitnessed), recoveryRank(status.Committed))
}

func TestHigherPriorityPrefersFurtherStatus(t *testing.T) {
	a := &message.RecoveryReply{Status: status.Committed, AcceptedBallot: ballot(1)}
	b := &message.RecoveryReply{Status: status.PreAccepted, AcceptedBallot: ballot(5)}
	assert.True(t, higherPriority(a, b))
	assert.False(t, higherPriority(b, a))
}

func TestHigherPriorityTiesBrokenByBallot(t *testing.T) {
	a := &message.RecoveryReply{Status: status.Accepted, AcceptedBallot: ballot(5)}
	b := &message.RecoveryReply{Status: status.Accepted, AcceptedBallot: ballot(2)}
	assert.True(t, higherPriority(a, b))
}

func TestHigherPriorityInvalidatedRanksBelowProgress(t *testing.T) {
	invalidated := &message.RecoveryReply{Status: status.Invalidated, AcceptedBallot: ballot(99)}
	accepted := &message.RecoveryReply{Status: status.Accepted, AcceptedBallot: ballot(1)}
	assert.True(t, higherPriority(accepted, invalidated))
}
