// Package facade exposes a single unified chain reader over the archive,
// WAL and live tip, plus the live tip-change broadcast clients subscribe
// to.
package facade

import (
	"github.com/cardano-node/ledgercore/event"
	"github.com/cardano-node/ledgercore/point"
	"github.com/cardano-node/ledgercore/store/archive"
	"github.com/cardano-node/ledgercore/store/wal"
)

// TipEventKind distinguishes a forward application from a rollback in a
// TipEvent.
type TipEventKind int

const (
	TipApply TipEventKind = iota
	TipUndo
)

// TipEvent is what a live tip subscriber receives: either a new block
// applied at Point (RawBlock set), or a rollback to Point (RawBlock nil).
type TipEvent struct {
	Kind     TipEventKind
	Point    point.ChainPoint
	RawBlock []byte
}

// Facade wires the archive and WAL stores behind the crawler and owns the
// live tip-change broadcast: the pipeline calls Notify whenever it applies
// or rolls back a block, and every subscribed Crawler sitting in the Tip
// region receives it.
type Facade struct {
	archive *archive.Store
	wal     *wal.Store

	tipFeed event.FeedOf[TipEvent]
}

// New builds a Facade over archiveStore and walStore.
func New(archiveStore *archive.Store, walStore *wal.Store) *Facade {
	return &Facade{archive: archiveStore, wal: walStore}
}

// Notify broadcasts e to every crawler currently parked in the Tip region
// and returns the number of subscribers it was delivered to. A crawler
// that has not subscribed yet (still draining the archive or WAL region)
// misses it. Subscribed crawlers are not skipped when slow: Notify blocks
// until each of their channels has taken e.
func (f *Facade) Notify(e TipEvent) int {
	return f.tipFeed.Send(e)
}

// Subscribe registers ch on the live tip-change feed.
func (f *Facade) Subscribe(ch chan<- TipEvent) event.Subscription {
	return f.tipFeed.Subscribe(ch)
}
