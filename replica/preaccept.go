package replica

import (
	"github.com/maedhroz/cassandra-accord/command"
	"github.com/maedhroz/cassandra-accord/keyspace"
	"github.com/maedhroz/cassandra-accord/message"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// HandlePreAccept runs the witness/conflict-scan step against every
// local Store the message's route touches and merges the results,
// exactly the way the coordinator merges per-shard PreAcceptOks.
func (r *Replica) HandlePreAccept(m *message.PreAccept) (*message.PreAcceptOk, *message.PreAcceptNack) {
	ranges := keyspace.UnseekablesToRanges(m.Route)
	stores := r.storesFor(ranges)
	if len(stores) == 0 {
		return nil, &message.PreAcceptNack{Epoch: m.Epoch, TxnId: m.TxnId, ReplicaId: r.ID}
	}

	agg := conflictWitness{executeAt: m.TxnId.Timestamp}
	for _, st := range stores {
		st.Submit(command.PreLoadContext{TxnIds: []txnid.TxnId{m.TxnId}, Keys: m.Keys}, func(s *command.Safe) {
			mergeWitness(&agg, witnessAndDiff(s, r.Progress, m.TxnId, m.Route, m.Keys, m.Writes))
		})
		if agg.nack != nil {
			break
		}
	}

	if agg.nack != nil {
		return nil, &message.PreAcceptNack{
			Epoch:        m.Epoch,
			TxnId:        m.TxnId,
			ReplicaId:    r.ID,
			CurrentState: agg.nack.status,
			Promised:     agg.nack.promised,
		}
	}

	r.logf("PreAccept %s -> executeAt=%s deps=%d", m.TxnId, agg.executeAt, len(agg.deps))
	return &message.PreAcceptOk{
		Epoch:     m.Epoch,
		TxnId:     m.TxnId,
		ReplicaId: r.ID,
		ExecuteAt: agg.executeAt,
		Deps:      agg.deps,
	}, nil
}
