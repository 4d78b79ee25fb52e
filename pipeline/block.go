package pipeline

import (
	"bytes"
	"context"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cardano-node/ledgercore/chainlogic"
	"github.com/cardano-node/ledgercore/facade"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/store/wal"
)

// processBlock runs the full per-block data flow: resolve input UTxOs and
// verify affected entities in parallel chunks, compute deltas, append to
// the WAL, apply to the state store, commit the archive, then notify tip
// subscribers and the mempool. Each step is a single atomic commit on its
// own store; the ordering (WAL before state, state before archive) is
// what lets a crash mid-batch be replayed from the WAL on restart.
func (p *Pipeline) processBlock(ctx context.Context, raw chainlogic.RawBlock) error {
	refs, err := p.logic.DependsOn(raw)
	if err != nil {
		return err
	}
	inputs, err := p.loadUTxOs(ctx, refs)
	if err != nil {
		return err
	}

	bd, err := p.logic.ComputeDeltas(raw, inputs)
	if err != nil {
		return err
	}

	if err := p.verifyAffectedEntities(ctx, bd.Deltas); err != nil {
		return err
	}

	seq, err := p.nextWalSeq()
	if err != nil {
		return err
	}
	if err := p.wal.AppendEntries([]wal.Entry{{
		Seq:        seq,
		Point:      bd.Point,
		RawBlock:   raw,
		Deltas:     bd.Deltas,
		InputUTxOs: inputs,
	}}); err != nil {
		return ledgererr.Wrap("pipeline/wal_append", err)
	}

	w := p.state.StartWriter()
	if err := ledger.ApplyAll(w, bd.Deltas); err != nil {
		return ledgererr.Wrap("pipeline/apply_deltas", err)
	}
	if err := w.SetCursor(bd.Point); err != nil {
		return ledgererr.Wrap("pipeline/set_cursor", err)
	}
	if err := w.Commit(p.syncWrites); err != nil {
		return ledgererr.Wrap("pipeline/commit_state", err)
	}

	if err := p.archive.Apply(bd.Point, raw, bd.Tags); err != nil {
		return ledgererr.Wrap("pipeline/commit_archive", err)
	}

	if p.facade != nil {
		p.facade.Notify(facade.TipEvent{Kind: facade.TipApply, Point: bd.Point, RawBlock: raw})
	}
	if p.mempool != nil {
		p.mempool.Apply(bd.Tags.TxHashes, nil)
	}
	return nil
}

// nextWalSeq derives the next monotonic WAL sequence number from the
// log's current tip point, rather than adding a seq accessor to wal.Store:
// an empty log with no anchor starts at 1, otherwise it's one past the
// tip's own seq.
func (p *Pipeline) nextWalSeq() (uint64, error) {
	tip := p.wal.Tip()
	if tip.IsOrigin() {
		return 1, nil
	}
	seq, ok, err := p.wal.LocatePoint(tip)
	if err != nil {
		return 0, ledgererr.Wrap("pipeline/locate_wal_tip", err)
	}
	if !ok {
		return 1, nil
	}
	return seq + 1, nil
}

// loadUTxOs resolves refs against the state store, splitting the unique
// reference list into ~100-key chunks and resolving each chunk as an
// independent parallel point-lookup, per the spec's batch data-flow.
func (p *Pipeline) loadUTxOs(ctx context.Context, refs []ledger.TxoRef) (map[ledger.TxoRef]ledger.UTxO, error) {
	if len(refs) == 0 {
		return map[ledger.TxoRef]ledger.UTxO{}, nil
	}
	chunks := chunkRefs(refs)
	results := make([]map[ledger.TxoRef]ledger.UTxO, len(chunks))
	err := parallelChunks(ctx, len(chunks), p.maxWorkers, func(i int) error {
		m, err := p.state.GetUTxOs(chunks[i])
		if err != nil {
			return err
		}
		results[i] = m
		return nil
	})
	if err != nil {
		return nil, ledgererr.Wrap("pipeline/load_utxos", err)
	}

	out := make(map[ledger.TxoRef]ledger.UTxO, len(refs))
	for _, m := range results {
		maps.Copy(out, m)
	}
	return out, nil
}

func chunkRefs(refs []ledger.TxoRef) [][]ledger.TxoRef {
	var chunks [][]ledger.TxoRef
	for i := 0; i < len(refs); i += chunkSize {
		end := i + chunkSize
		if end > len(refs) {
			end = len(refs)
		}
		chunks = append(chunks, refs[i:end])
	}
	return chunks
}

// verifyAffectedEntities confirms every EntityDelta's recorded Prior
// still matches what the state store actually holds, namespace-grouped
// and chunked for parallel reads. A mismatch means some earlier delta
// (in this batch or a prior one) touched the same key without this
// delta's knowledge, which the spec treats as fatal rather than
// something to silently reconcile.
func (p *Pipeline) verifyAffectedEntities(ctx context.Context, deltas []ledger.Delta) error {
	byNS := map[string][]*ledger.EntityDelta{}
	for _, d := range deltas {
		ed, ok := d.(*ledger.EntityDelta)
		if !ok {
			continue
		}
		byNS[ed.Namespace] = append(byNS[ed.Namespace], ed)
	}

	for ns, entries := range byNS {
		slices.SortFunc(entries, func(a, b *ledger.EntityDelta) bool { return bytes.Compare(a.Key, b.Key) < 0 })
		chunks := chunkEntityDeltas(entries)
		err := parallelChunks(ctx, len(chunks), p.maxWorkers, func(i int) error {
			chunk := chunks[i]
			keys := make([][]byte, len(chunk))
			for j, ed := range chunk {
				keys[j] = ed.Key
			}
			values, err := p.state.ReadEntities(ns, keys)
			if err != nil {
				return err
			}
			for j, ed := range chunk {
				if !bytes.Equal(values[j], ed.Prior) {
					return ledgererr.NewBrokenInvariant("entity_prior_matches_store",
						"namespace %s key %x: delta prior does not match stored value", ns, ed.Key)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func chunkEntityDeltas(entries []*ledger.EntityDelta) [][]*ledger.EntityDelta {
	var chunks [][]*ledger.EntityDelta
	for i := 0; i < len(entries); i += chunkSize {
		end := i + chunkSize
		if end > len(entries) {
			end = len(entries)
		}
		chunks = append(chunks, entries[i:end])
	}
	return chunks
}
