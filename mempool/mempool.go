// Package mempool holds user-submitted transactions and moves them
// through a fixed state machine, notifying subscribers of every
// transition.
package mempool

import (
	"sync"

	"github.com/cardano-node/ledgercore/event"
	"github.com/cardano-node/ledgercore/log"
)

// Stage is a mempool transaction's position in the fixed state machine:
//
//	received(raw) -> Pending -mark_inflight-> Inflight -mark_acknowledged-> Acknowledged
//	                                                        |
//	                                              apply(seen, unseen)
//	                                                        |
//	                              Confirmed <- seen, +confirmations
//	                              RolledBack <- unseen (if seen before)
//	                                   |
//	                        finalize(threshold)
//	                                   v
//	                              Finalized
type Stage int

const (
	StageUnknown Stage = iota
	StagePending
	StageInflight
	StageAcknowledged
	StageConfirmed
	StageRolledBack
	StageFinalized
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageInflight:
		return "inflight"
	case StageAcknowledged:
		return "acknowledged"
	case StageConfirmed:
		return "confirmed"
	case StageRolledBack:
		return "rolled_back"
	case StageFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Tx is a mempool-tracked transaction.
type Tx struct {
	Hash [32]byte
	Raw  []byte
}

// Event is broadcast to subscribers on every stage transition.
type Event struct {
	NewStage Stage
	Tx       Tx
}

type entry struct {
	tx            Tx
	stage         Stage
	confirmations uint64
	everConfirmed bool
}

// Mempool is the mempool component. A single mutex guards all stage
// transitions; subscribers receive events over a broadcast feed. The feed
// does not drop events for slow consumers: each send blocks, with the
// mutex held, until every subscribed channel has taken the event, so a
// subscriber whose channel is full stalls the stage transition.
type Mempool struct {
	mu  sync.Mutex
	log log.Logger

	entries      map[[32]byte]*entry
	pendingOrder [][32]byte

	feed event.FeedOf[Event]
}

// New returns an empty Mempool.
func New() *Mempool {
	return &Mempool{
		log:     log.Root().New("module", "mempool"),
		entries: make(map[[32]byte]*entry),
	}
}

// Receive appends tx to the pending queue and emits a Pending event.
// Receiving an already-known hash is a no-op: it does not reset the
// transaction's stage or re-emit the event.
func (m *Mempool) Receive(tx Tx) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[tx.Hash]; ok {
		return
	}
	m.entries[tx.Hash] = &entry{tx: tx, stage: StagePending}
	m.pendingOrder = append(m.pendingOrder, tx.Hash)
	m.feed.Send(Event{NewStage: StagePending, Tx: tx})
}

// PeekPending returns a read-only snapshot of up to limit pending
// transactions, in arrival order.
func (m *Mempool) PeekPending(limit int) []Tx {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.pendingOrder)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Tx, 0, n)
	for _, h := range m.pendingOrder {
		if len(out) >= n {
			break
		}
		out = append(out, m.entries[h].tx)
	}
	return out
}

func (m *Mempool) removeFromPendingOrder(hash [32]byte) {
	for i, h := range m.pendingOrder {
		if h == hash {
			m.pendingOrder = append(m.pendingOrder[:i], m.pendingOrder[i+1:]...)
			return
		}
	}
}

// MarkInflight moves every listed hash currently Pending to Inflight.
// Hashes that are missing or in a different stage are silently skipped.
func (m *Mempool) MarkInflight(hashes [][32]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range hashes {
		e, ok := m.entries[h]
		if !ok || e.stage != StagePending {
			continue
		}
		e.stage = StageInflight
		m.removeFromPendingOrder(h)
		m.feed.Send(Event{NewStage: StageInflight, Tx: e.tx})
	}
}

// MarkAcknowledged moves every listed hash currently Inflight to
// Acknowledged. Hashes that are missing or in a different stage are
// silently skipped.
func (m *Mempool) MarkAcknowledged(hashes [][32]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range hashes {
		e, ok := m.entries[h]
		if !ok || e.stage != StageInflight {
			continue
		}
		e.stage = StageAcknowledged
		m.feed.Send(Event{NewStage: StageAcknowledged, Tx: e.tx})
	}
}

// Apply processes the hashes observed (seen) or that disappeared
// (unseen) in a newly applied block. A seen Acknowledged tx becomes
// Confirmed with one confirmation; a seen tx already Confirmed simply
// gains a confirmation. An unseen tx that was previously Confirmed fires
// RolledBack; an unseen tx that was never Confirmed (still only
// Acknowledged) is left untouched, since it hasn't rolled back from
// anything yet.
func (m *Mempool) Apply(seen, unseen [][32]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range seen {
		e, ok := m.entries[h]
		if !ok {
			continue
		}
		switch e.stage {
		case StageAcknowledged:
			e.stage = StageConfirmed
			e.confirmations = 1
			e.everConfirmed = true
			m.feed.Send(Event{NewStage: StageConfirmed, Tx: e.tx})
		case StageConfirmed:
			e.confirmations++
		}
	}
	for _, h := range unseen {
		e, ok := m.entries[h]
		if !ok {
			continue
		}
		if e.stage == StageConfirmed && e.everConfirmed {
			e.stage = StageRolledBack
			e.confirmations = 0
			m.feed.Send(Event{NewStage: StageRolledBack, Tx: e.tx})
		}
	}
}

// Finalize evicts Confirmed transactions whose confirmation count has
// reached threshold into the finalized set, returning the evicted
// transactions.
func (m *Mempool) Finalize(threshold uint64) []Tx {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Tx
	for h, e := range m.entries {
		if e.stage == StageConfirmed && e.confirmations >= threshold {
			e.stage = StageFinalized
			out = append(out, e.tx)
			m.feed.Send(Event{NewStage: StageFinalized, Tx: e.tx})
			_ = h
		}
	}
	return out
}

// Subscribe registers ch to receive every future stage-transition Event.
func (m *Mempool) Subscribe(ch chan<- Event) event.Subscription {
	return m.feed.Subscribe(ch)
}

// CheckStage returns hash's current stage, or StageUnknown if it has
// never been received.
func (m *Mempool) CheckStage(hash [32]byte) Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[hash]
	if !ok {
		return StageUnknown
	}
	return e.stage
}
