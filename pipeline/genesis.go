package pipeline

import (
	"context"

	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
)

// Genesis supplies the one-time Shelley bootstrap the Genesis work unit
// applies: the genesis staking pools/delegations and the initial EpochState
// a pipeline seeds the state store with before the first block is
// processed.
type Genesis struct {
	Shelley   ledger.ShelleyGenesis
	InitEpoch ledger.EpochState
}

// genesis is set by SeedGenesis and consulted by processGenesis; a
// Pipeline that never calls SeedGenesis and never enqueues a Genesis
// work unit (resuming an already-bootstrapped chain) never touches it.
func (p *Pipeline) processGenesis(ctx context.Context) error {
	if p.genesis == nil {
		return ledgererr.NewBrokenInvariant("genesis_work_requires_seed",
			"a Genesis work unit was queued but SeedGenesis was never called")
	}

	deltas, err := p.genesis.Shelley.BootstrapDeltas()
	if err != nil {
		return ledgererr.Wrap("pipeline/genesis_deltas", err)
	}

	w := p.state.StartWriter()
	if err := ledger.ApplyAll(w, deltas); err != nil {
		return ledgererr.Wrap("pipeline/apply_genesis_deltas", err)
	}
	epochRaw, err := ledger.Marshal(p.genesis.InitEpoch)
	if err != nil {
		return ledgererr.Wrap("pipeline/marshal_init_epoch", err)
	}
	if err := w.PutEntity(ledger.NSEpochState, ledger.EpochStateKey, epochRaw); err != nil {
		return ledgererr.Wrap("pipeline/put_init_epoch", err)
	}
	return ledgererr.Wrap("pipeline/commit_genesis", w.Commit(p.syncWrites))
}

// SeedGenesis records the genesis bootstrap data a queued Genesis work
// unit applies. Must be called before the pipeline processes its first
// work unit when bootstrapping a fresh chain.
func (p *Pipeline) SeedGenesis(g Genesis) {
	p.genesis = &g
}
