package chainlogic

import (
	"sync"

	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/log"
)

// Logic is the chain-logic component: it owns the work queue and the
// epoch-boundary bookkeeping that decides when a Sweep must run ahead of
// the next block. receive_block and pop_work require the write lock;
// peek_work and can_receive_block only need the read lock.
type Logic struct {
	mu  sync.RWMutex
	log log.Logger

	proc      Processor
	stopEpoch *uint64

	queue        []WorkUnit
	currentEpoch uint64
	haveEpoch    bool
	stopped      bool
}

// New builds a Logic driven by proc. stopEpoch is nil for "run forever".
func New(proc Processor, stopEpoch *uint64) *Logic {
	return &Logic{
		log:       log.Root().New("module", "chainlogic"),
		proc:      proc,
		stopEpoch: stopEpoch,
	}
}

// EnqueueGenesis pushes the one-time genesis bootstrap work unit. Callers
// are expected to invoke this exactly once, before any block is received.
func (l *Logic) EnqueueGenesis() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, WorkUnit{Kind: WorkGenesis})
}

// ReceiveBlock pushes raw onto the work queue. It inserts a Sweep ahead of
// any block whose epoch is greater than the last-seen epoch. If a
// stop-epoch is configured and the new epoch has reached it, the Sweep
// that finalizes the prior epoch is still enqueued but the triggering
// block is not: the caller must unwind cleanly on the returned
// ErrStopEpochReached. Once stopped, every subsequent call fails with
// ErrAlreadyAtStopEpoch.
func (l *Logic) ReceiveBlock(raw RawBlock) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ledgererr.ErrAlreadyAtStopEpoch
	}

	p, epoch, err := l.proc.Peek(raw)
	if err != nil {
		return ledgererr.NewChainError(p.String(), err.Error())
	}

	if l.haveEpoch && epoch > l.currentEpoch {
		l.queue = append(l.queue, WorkUnit{
			Kind:      WorkSweep,
			SweepSlot: l.proc.EpochEndSlot(l.currentEpoch),
		})
		if l.stopEpoch != nil && epoch >= *l.stopEpoch {
			l.currentEpoch = epoch
			l.haveEpoch = true
			l.stopped = true
			return ledgererr.ErrStopEpochReached
		}
	}

	l.currentEpoch = epoch
	l.haveEpoch = true
	l.queue = append(l.queue, WorkUnit{Kind: WorkBlock, Block: raw})
	return nil
}

// PopWork removes and returns the next unit in FIFO order.
func (l *Logic) PopWork() (WorkUnit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return WorkUnit{}, false
	}
	u := l.queue[0]
	l.queue = l.queue[1:]
	return u, true
}

// PeekWork reports the kind of the next queued unit without removing it.
func (l *Logic) PeekWork() (WorkKind, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.queue) == 0 {
		return 0, false
	}
	return l.queue[0].Kind, true
}

// CanReceiveBlock reports false while any Sweep is queued: the pipeline
// must drain isolated sweep work before more blocks pile up behind it.
func (l *Logic) CanReceiveBlock() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, u := range l.queue {
		if u.Kind == WorkSweep {
			return false
		}
	}
	return true
}

// DependsOn delegates to the Processor to list the UTxO inputs raw
// consumes.
func (l *Logic) DependsOn(raw RawBlock) ([]ledger.TxoRef, error) {
	refs, err := l.proc.DependsOn(raw)
	if err != nil {
		return nil, ledgererr.Wrap("chainlogic/depends_on", err)
	}
	return refs, nil
}

// ComputeDeltas delegates to the Processor to decode raw and compute its
// entity and UTxO deltas against inputs.
func (l *Logic) ComputeDeltas(raw RawBlock, inputs map[ledger.TxoRef]ledger.UTxO) (BlockDeltas, error) {
	bd, err := l.proc.ComputeDeltas(raw, inputs)
	if err != nil {
		return BlockDeltas{}, ledgererr.Wrap("chainlogic/compute_deltas", err)
	}
	return bd, nil
}

// CurrentEpoch returns the epoch of the last block accepted by
// ReceiveBlock, and whether any block has been accepted yet.
func (l *Logic) CurrentEpoch() (uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentEpoch, l.haveEpoch
}

// Stopped reports whether the configured stop-epoch has been reached.
func (l *Logic) Stopped() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stopped
}
