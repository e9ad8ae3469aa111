package matching

import (
	"fenrir/internal/common"

	"github.com/tidwall/btree"
)

// levelIndex is an ordered map price -> Level, generalizing the teacher's
// two-btree OrderBook (bids/asks) to the six the spec requires: one per
// (side x kind) where kind is limit, stop, or trailing-stop (spec.md §3).
//
// The comparator determines traversal order: buyLimit uses a
// descending-by-price less function so that Min() yields the highest price
// (the best buy); every other index (sellLimit, stopBuy, stopSell,
// trailBuy, trailSell) uses ascending, so Min() yields the lowest price
// (the best sell, or the buy stop/trailing level nearest activation) and
// Max() yields the sell stop/trailing level nearest activation. This mirrors the teacher's own trick in
// internal/engine/orderbook.go, where bids are stored with a ">" less
// function purely so Min() returns the best bid.
type levelIndex struct {
	tree *btree.BTreeG[*Level]
	less func(a, b *Level) bool
	side common.Side
	kind levelKind
}

func newLevelIndex(less func(a, b *Level) bool, side common.Side, kind levelKind) *levelIndex {
	return &levelIndex{
		tree: btree.NewBTreeG(less),
		less: less,
		side: side,
		kind: kind,
	}
}

// getOrCreate returns the Level at price, creating and inserting an empty
// one if none exists yet.
func (li *levelIndex) getOrCreate(symbolID uint32, price uint64) *Level {
	key := &Level{Price: price}
	if lvl, ok := li.tree.Get(key); ok {
		return lvl
	}
	lvl := newLevel(price, li.side, symbolID, li.kind)
	lvl.idx = li
	li.tree.Set(lvl)
	return lvl
}

func (li *levelIndex) deleteLevel(lvl *Level) {
	li.tree.Delete(lvl)
}

func (li *levelIndex) len() int {
	return li.tree.Len()
}

// best returns the level at the front of this index's traversal order:
// the highest buy / lowest sell for limit indexes, or the lowest price for
// stop/trailing indexes (the level nearest activation on the buy side; the
// sell side reads the tree's Max instead).
func (li *levelIndex) best() (*Level, bool) {
	return li.tree.Min()
}
