package facade

import (
	"context"

	"github.com/cardano-node/ledgercore/event"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/log"
	"github.com/cardano-node/ledgercore/point"
	"github.com/cardano-node/ledgercore/store/archive"
	"github.com/cardano-node/ledgercore/store/wal"
)

// region is the crawler's current phase. A crawler only ever moves
// forward through archive -> wal -> tip, never back.
type region int

const (
	regionArchive region = iota
	regionWAL
	regionTip
)

const defaultPageSize = 256

// Crawler iterates blocks in slot order starting from an intersection
// point, spanning the archive, the WAL and, finally, the live tip.
type Crawler struct {
	f   *Facade
	log log.Logger

	reg      region
	pageSize int

	archiveFrom uint64
	archivePage []uint64
	archivePos  int

	walCursor *wal.Cursor

	tipCh  chan TipEvent
	tipSub event.Subscription

	last point.ChainPoint
}

// StartCrawler finds the first of candidates known to the archive or WAL
// and returns a Crawler positioned just after it. Candidates are tried in
// order, matching the usual chain-sync convention of listing points from
// most to least preferred. Returns ok=false if none intersect (Origin
// always intersects, so passing it as the last candidate guarantees a
// crawler is returned).
func (f *Facade) StartCrawler(candidates []point.ChainPoint) (*Crawler, point.ChainPoint, bool, error) {
	if err := f.checkArchiveWalOverlap(); err != nil {
		return nil, point.ChainPoint{}, false, err
	}

	for _, c := range candidates {
		if c.IsOrigin() {
			return f.newCrawlerFromArchive(0), point.Origin, true, nil
		}

		if c.IsSpecific() {
			slot, ok, err := f.archive.SlotByBlockHash(c.Hash())
			if err != nil {
				return nil, point.ChainPoint{}, false, err
			}
			if ok && slot == c.Slot() {
				return f.newCrawlerFromArchive(slot + 1), c, true, nil
			}
		} else if _, ok, err := f.archive.GetBySlot(c.Slot()); err != nil {
			return nil, point.ChainPoint{}, false, err
		} else if ok {
			return f.newCrawlerFromArchive(c.Slot() + 1), c, true, nil
		}

		if seq, _, ok, err := f.wal.FindIntersect([]point.ChainPoint{c}); err != nil {
			return nil, point.ChainPoint{}, false, err
		} else if ok {
			return f.newCrawlerFromWAL(seq + 1), c, true, nil
		}
	}
	return nil, point.ChainPoint{}, false, nil
}

// checkArchiveWalOverlap enforces the startup invariant that the archive's
// latest slot and the WAL's earliest slot overlap: archive_tip >=
// wal_start. An empty archive or an empty WAL trivially satisfies it.
func (f *Facade) checkArchiveWalOverlap() error {
	archiveTip, ok, err := f.archive.GetTip()
	if err != nil {
		return ledgererr.Wrap("facade/overlap_check", err)
	}
	if !ok {
		return nil
	}

	cur := f.wal.CrawlFrom(0)
	defer cur.Close()
	if !cur.Next() {
		return cur.Error()
	}
	walStart := cur.Entry().Point.Slot()

	if archiveTip < walStart {
		return ledgererr.NewBrokenInvariant("archive_tip_ge_wal_start",
			"archive tip slot %d precedes wal start slot %d", archiveTip, walStart)
	}
	return nil
}

func (f *Facade) newCrawlerFromArchive(fromSlot uint64) *Crawler {
	return &Crawler{
		f:           f,
		log:         log.Root().New("module", "facade"),
		reg:         regionArchive,
		pageSize:    defaultPageSize,
		archiveFrom: fromSlot,
	}
}

func (f *Facade) newCrawlerFromWAL(seq uint64) *Crawler {
	return &Crawler{
		f:         f,
		log:       log.Root().New("module", "facade"),
		reg:       regionWAL,
		pageSize:  defaultPageSize,
		walCursor: f.wal.CrawlFrom(seq),
	}
}

// Next returns the next (point, raw block) pair in slot order, crossing
// region transitions transparently. Once the crawler reaches the Tip
// region Next blocks until a live TipEvent arrives or ctx is done, the
// only suspension point in the crawler. An Undo event is folded into the
// (point, nil) pair with ok still true, since an undo is itself a
// meaningful item for the caller to apply. Callers distinguish Apply from
// Undo by checking whether the returned raw block is nil.
func (c *Crawler) Next(ctx context.Context) (point.ChainPoint, []byte, bool, error) {
	for {
		switch c.reg {
		case regionArchive:
			p, raw, ok, err := c.nextFromArchive()
			if err != nil || ok {
				return p, raw, ok, err
			}
			if err := c.transitionToWAL(); err != nil {
				return point.ChainPoint{}, nil, false, err
			}
		case regionWAL:
			p, raw, ok, err := c.nextFromWAL()
			if err != nil || ok {
				return p, raw, ok, err
			}
			c.transitionToTip()
		case regionTip:
			return c.nextFromTip(ctx)
		}
	}
}

func (c *Crawler) nextFromArchive() (point.ChainPoint, []byte, bool, error) {
	for {
		if c.archivePos < len(c.archivePage) {
			slot := c.archivePage[c.archivePos]
			c.archivePos++
			raw, ok, err := c.f.archive.GetBySlot(slot)
			if err != nil {
				return point.ChainPoint{}, nil, false, err
			}
			if !ok {
				continue
			}
			p := point.NewSlot(slot)
			c.last = p
			return p, raw, true, nil
		}

		slots, err := c.f.archive.SlotRange(c.archiveFrom, nil)
		if err != nil {
			return point.ChainPoint{}, nil, false, err
		}
		if len(slots) == 0 {
			return point.ChainPoint{}, nil, false, nil
		}
		if len(slots) > c.pageSize {
			slots = slots[:c.pageSize]
		}
		c.archivePage = slots
		c.archivePos = 0
		c.archiveFrom = slots[len(slots)-1] + 1
	}
}

func (c *Crawler) transitionToWAL() error {
	seq, _, ok, err := c.f.wal.FindIntersect([]point.ChainPoint{c.last})
	if err != nil {
		return err
	}
	if !ok {
		if c.last.IsOrigin() {
			c.walCursor = c.f.wal.CrawlFrom(0)
			c.reg = regionWAL
			return nil
		}
		return ledgererr.NewBrokenInvariant("archive_to_wal_intersect",
			"archive's last point %s has no WAL intersect", c.last.String())
	}
	c.walCursor = c.f.wal.CrawlFrom(seq + 1)
	c.reg = regionWAL
	return nil
}

func (c *Crawler) nextFromWAL() (point.ChainPoint, []byte, bool, error) {
	if !c.walCursor.Next() {
		err := c.walCursor.Error()
		return point.ChainPoint{}, nil, false, err
	}
	e := c.walCursor.Entry()
	c.last = e.Point
	return e.Point, e.RawBlock, true, nil
}

func (c *Crawler) transitionToTip() {
	if c.walCursor != nil {
		c.walCursor.Close()
		c.walCursor = nil
	}
	c.tipCh = make(chan TipEvent, 64)
	c.tipSub = c.f.Subscribe(c.tipCh)
	c.reg = regionTip
}

func (c *Crawler) nextFromTip(ctx context.Context) (point.ChainPoint, []byte, bool, error) {
	select {
	case e := <-c.tipCh:
		c.last = e.Point
		return e.Point, e.RawBlock, true, nil
	case err := <-c.tipSub.Err():
		return point.ChainPoint{}, nil, false, err
	case <-ctx.Done():
		return point.ChainPoint{}, nil, false, ctx.Err()
	}
}

// Close releases whatever underlying cursor or subscription the crawler is
// currently holding.
func (c *Crawler) Close() error {
	if c.walCursor != nil {
		c.walCursor.Close()
	}
	if c.tipSub != nil {
		c.tipSub.Unsubscribe()
	}
	return nil
}
