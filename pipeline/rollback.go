package pipeline

import (
	"github.com/cardano-node/ledgercore/facade"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/point"
	"github.com/cardano-node/ledgercore/store/wal"
)

// RollbackTo switches to a fork rooted at base: it locates base in the
// WAL, undoes every entry strictly after it in reverse order (most
// recent first, as UndoAll requires), persists the undo against the
// state store one entry at a time, notifies tip subscribers of each
// undo, then truncates the WAL to base so the next AppendEntries resumes
// from there. base must already be a point the WAL holds; a fork whose
// base predates the WAL's retention window requires restoring from the
// archive instead, out of scope for this operation.
func (p *Pipeline) RollbackTo(base point.ChainPoint) error {
	baseSeq, ok, err := p.locateRollbackBase(base)
	if err != nil {
		return err
	}
	if !ok {
		return ledgererr.NewBrokenInvariant("rollback_base_in_wal",
			"rollback target %s is not present in the write-ahead log", base.String())
	}

	entries, err := p.collectEntriesAfter(baseSeq)
	if err != nil {
		return err
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		w := p.state.StartWriter()
		if err := ledger.UndoAll(w, e.Deltas); err != nil {
			return ledgererr.Wrap("pipeline/rollback_undo_deltas", err)
		}
		prevPoint := base
		if i > 0 {
			prevPoint = entries[i-1].Point
		}
		if err := w.SetCursor(prevPoint); err != nil {
			return ledgererr.Wrap("pipeline/rollback_set_cursor", err)
		}
		if err := w.Commit(p.syncWrites); err != nil {
			return ledgererr.Wrap("pipeline/rollback_commit", err)
		}
		// A WAL entry carries RawBlock and Deltas but not the archive
		// Tags computed for it; ComputeDeltas is deterministic over the
		// same (raw, inputs) pair, so recomputing here avoids widening
		// the WAL's on-disk entry schema just to cache a derivable value.
		bd, err := p.logic.ComputeDeltas(e.RawBlock, e.InputUTxOs)
		if err != nil {
			return ledgererr.Wrap("pipeline/rollback_recompute_tags", err)
		}
		if err := p.archive.Undo(e.Point, bd.Tags); err != nil {
			return ledgererr.Wrap("pipeline/rollback_archive_undo", err)
		}
		if p.facade != nil {
			p.facade.Notify(facade.TipEvent{Kind: facade.TipUndo, Point: e.Point})
		}
	}

	if err := p.wal.ResetTo(base); err != nil {
		return ledgererr.Wrap("pipeline/rollback_reset_wal", err)
	}
	return nil
}

// collectEntriesAfter returns every WAL entry strictly after baseSeq, in
// ascending seq order.
func (p *Pipeline) collectEntriesAfter(baseSeq uint64) ([]wal.Entry, error) {
	cur := p.wal.CrawlFrom(baseSeq + 1)
	defer cur.Close()
	var entries []wal.Entry
	for cur.Next() {
		entries = append(entries, cur.Entry())
	}
	if err := cur.Error(); err != nil {
		return nil, ledgererr.Wrap("pipeline/rollback_collect_entries", err)
	}
	return entries, nil
}

func (p *Pipeline) locateRollbackBase(base point.ChainPoint) (uint64, bool, error) {
	if base.IsOrigin() {
		return 0, true, nil
	}
	seq, ok, err := p.wal.LocatePoint(base)
	if err != nil {
		return 0, false, ledgererr.Wrap("pipeline/locate_rollback_base", err)
	}
	return seq, ok, nil
}
