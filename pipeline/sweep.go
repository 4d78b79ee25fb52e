package pipeline

import (
	"context"

	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
)

// processSweep runs the epoch-boundary engine against the current state
// and commits its result in one write transaction. A sweep never touches
// the archive or WAL: it has no raw block and is never batched with one.
func (p *Pipeline) processSweep(ctx context.Context, sweepSlot uint64) error {
	st, ok, err := p.readEpochState()
	if err != nil {
		return err
	}
	if !ok {
		return ledgererr.NewBrokenInvariant("sweep_requires_epoch_state",
			"sweep at slot %d requested before any EpochState was recorded", sweepSlot)
	}

	view := newStateView(p.state)
	result, err := p.engine.Sweep(view, st, st.Params.MaxLovelaceSupply)
	if err != nil {
		return err
	}

	w := p.state.StartWriter()
	if err := ledger.ApplyAll(w, result.Deltas); err != nil {
		return ledgererr.Wrap("pipeline/apply_sweep_deltas", err)
	}
	nextRaw, err := ledger.Marshal(result.NextState)
	if err != nil {
		return ledgererr.Wrap("pipeline/marshal_epoch_state", err)
	}
	if err := w.PutEntity(ledger.NSEpochState, ledger.EpochStateKey, nextRaw); err != nil {
		return ledgererr.Wrap("pipeline/put_epoch_state", err)
	}
	if err := w.Commit(p.syncWrites); err != nil {
		return ledgererr.Wrap("pipeline/commit_sweep", err)
	}
	return nil
}
