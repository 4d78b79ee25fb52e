// Package chainlogic decodes raw blocks, computes per-block entity and
// UTxO deltas, and drives the work queue that feeds the pipeline: blocks,
// epoch sweeps and the one-time genesis bootstrap.
package chainlogic

import (
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/point"
	"github.com/cardano-node/ledgercore/store/archive"
)

// RawBlock is an undecoded block as received from the upstream peer or
// replayed from the archive. Chain logic never interprets its bytes
// directly; decoding is delegated to a Processor.
type RawBlock []byte

// WorkKind tags the three shapes of work the pipeline can pull off the
// queue.
type WorkKind int

const (
	WorkBlock WorkKind = iota
	WorkSweep
	WorkGenesis
)

func (k WorkKind) String() string {
	switch k {
	case WorkBlock:
		return "block"
	case WorkSweep:
		return "sweep"
	case WorkGenesis:
		return "genesis"
	default:
		return "unknown"
	}
}

// WorkUnit is one item of pipeline work. It is never persisted: it exists
// only in the in-memory queue Logic drives. SweepSlot is set only for
// WorkSweep, naming the last slot of the epoch the sweep finalizes.
type WorkUnit struct {
	Kind      WorkKind
	Block     RawBlock
	SweepSlot uint64
}

// BlockDeltas is the result of computing deltas for a single decoded
// block: its chain point, the ledger deltas to apply in order, and every
// archive index dimension the block contributes.
type BlockDeltas struct {
	Point  point.ChainPoint
	Number uint64
	Deltas []ledger.Delta
	Tags   archive.Tags
}
