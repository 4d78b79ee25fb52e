// Package pipeline drives the work queue chain logic produces into the
// durable stores: it resolves a block's input UTxOs and affected
// entities in parallel chunks, appends the computed deltas to the
// write-ahead log, applies them to the state store, commits the archive,
// and notifies tip subscribers, in the sequential order the data model
// requires. Epoch sweeps and the one-time genesis bootstrap are each
// processed as their own isolated work unit, never batched with a block.
package pipeline

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/cardano-node/ledgercore/chainlogic"
	"github.com/cardano-node/ledgercore/epoch"
	"github.com/cardano-node/ledgercore/facade"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/log"
	"github.com/cardano-node/ledgercore/mempool"
	"github.com/cardano-node/ledgercore/store/archive"
	"github.com/cardano-node/ledgercore/store/state"
	"github.com/cardano-node/ledgercore/store/wal"
)

func init() {
	// Align GOMAXPROCS with the container's actual CPU quota before the
	// chunk-dispatch worker pool below sizes itself off runtime.GOMAXPROCS;
	// under cgroup limits the Go runtime otherwise oversubscribes.
	if _, err := maxprocs.Set(); err != nil {
		log.Root().Warn("pipeline: failed to set GOMAXPROCS", "err", err)
	}
}

// Pipeline wires chain logic to the four durable stores, the epoch
// engine, the mempool and the facade, and drives it all forward one work
// unit at a time.
type Pipeline struct {
	log log.Logger

	logic   *chainlogic.Logic
	state   *state.Store
	archive *archive.Store
	wal     *wal.Store
	engine  *epoch.Engine
	mempool *mempool.Mempool
	facade  *facade.Facade

	maxWorkers int
	syncWrites bool
	genesis    *Genesis

	closeOnce sync.Once
}

// Config bundles the already-open components a Pipeline is built from.
// Mempool and Facade are optional: a bulk-import pipeline with no live
// clients can leave them nil.
type Config struct {
	Logic   *chainlogic.Logic
	State   *state.Store
	Archive *archive.Store
	WAL     *wal.Store
	Engine  *epoch.Engine
	Mempool *mempool.Mempool
	Facade  *facade.Facade

	// SyncWrites requests flush_on_commit durability on every state-store
	// commit. Bulk import and live follow both leave this false and rely on
	// a periodic persist instead.
	SyncWrites bool
}

// New builds a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		log:        log.Root().New("module", "pipeline"),
		logic:      cfg.Logic,
		state:      cfg.State,
		archive:    cfg.Archive,
		wal:        cfg.WAL,
		engine:     cfg.Engine,
		mempool:    cfg.Mempool,
		facade:     cfg.Facade,
		maxWorkers: runtime.GOMAXPROCS(0),
		syncWrites: cfg.SyncWrites,
	}
}

// ProcessNext pops and fully processes the next queued work unit,
// reporting false if the queue was empty. Cancelling ctx only prevents a
// new work unit from starting; a unit already in flight runs to
// completion, since the pipeline is cancellation-safe at batch
// boundaries only.
func (p *Pipeline) ProcessNext(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	unit, ok := p.logic.PopWork()
	if !ok {
		return false, nil
	}

	var err error
	switch unit.Kind {
	case chainlogic.WorkGenesis:
		err = p.processGenesis(ctx)
	case chainlogic.WorkSweep:
		err = p.processSweep(ctx, unit.SweepSlot)
	case chainlogic.WorkBlock:
		err = p.processBlock(ctx, unit.Block)
	}
	if err != nil {
		return true, ledgererr.Wrap("pipeline/process_next", err)
	}
	return true, nil
}

// Run drains the work queue until ctx is cancelled or the queue is
// exhausted and stays exhausted across a check, returning the queue-empty
// signal to the caller rather than busy-looping: the upstream feed (out
// of scope here) is expected to call ReceiveBlock and wake the caller
// again.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		processed, err := p.ProcessNext(ctx)
		if err != nil {
			if ledgererr.Fatal(err) {
				p.log.Crit("pipeline: fatal error, halting for restart from last consistent cursor", "err", err)
			}
			return err
		}
		if !processed {
			return nil
		}
	}
}

// readEpochState loads the singleton EpochState entity, or a zero-valued
// one with haveState=false if the store has never recorded one (genesis
// not yet processed).
func (p *Pipeline) readEpochState() (ledger.EpochState, bool, error) {
	vals, err := p.state.ReadEntities(ledger.NSEpochState, [][]byte{ledger.EpochStateKey})
	if err != nil {
		return ledger.EpochState{}, false, ledgererr.Wrap("pipeline/read_epoch_state", err)
	}
	if vals[0] == nil {
		return ledger.EpochState{}, false, nil
	}
	var st ledger.EpochState
	if err := ledger.Unmarshal(vals[0], &st); err != nil {
		return ledger.EpochState{}, false, ledgererr.Wrap("pipeline/decode_epoch_state", err)
	}
	return st, true, nil
}

// Close drains outstanding store flushes. The logic, engine, mempool and
// facade own no resources of their own.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if cerr := p.state.Close(); cerr != nil {
			err = cerr
			return
		}
		if cerr := p.archive.Close(); cerr != nil {
			err = cerr
			return
		}
		err = p.wal.Close()
	})
	return err
}
