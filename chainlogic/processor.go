package chainlogic

import (
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/point"
)

// Processor is the injected per-block decode and delta-computation
// surface. Era-specific CBOR decoding and Cardano ledger-rule evaluation
// (the part that differs release to release and era to era) live behind
// this interface; Logic only sequences calls into it and owns the work
// queue and the epoch-boundary bookkeeping.
type Processor interface {
	// Peek extracts a block's chain point and epoch without fully
	// decoding its body, so Logic can decide whether the block crosses
	// an epoch boundary before committing to the cost of ComputeDeltas.
	Peek(raw RawBlock) (p point.ChainPoint, epoch uint64, err error)

	// DependsOn returns every UTxO input the block consumes, so the
	// caller can resolve them from the state store before calling
	// ComputeDeltas.
	DependsOn(raw RawBlock) ([]ledger.TxoRef, error)

	// ComputeDeltas fully decodes the block and computes its entity and
	// UTxO deltas against the resolved input UTxOs, per the per-block
	// delta computation steps: produced/consumed UTxOs, certificate
	// deltas, withdrawal deltas, proposal submissions, and slot tag
	// indexes (block hash, block number, tx hashes, addresses,
	// credentials, assets, datums, metadata labels).
	ComputeDeltas(raw RawBlock, inputs map[ledger.TxoRef]ledger.UTxO) (BlockDeltas, error)

	// EpochEndSlot returns the last slot of epoch, used to stamp the
	// Sweep work unit inserted ahead of a boundary-crossing block.
	EpochEndSlot(epoch uint64) uint64
}
