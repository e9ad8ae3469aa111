package matching

import "fenrir/internal/common"

// levelKind distinguishes the three kinds of price-level index a Level can
// belong to (spec.md §3's "one per (side × kind)" level-index table).
type levelKind uint8

const (
	kindLimit levelKind = iota
	kindStop
	kindTrailingStop
)

// orderNode is one link in a Level's intrusive FIFO. It is the unit the
// order index stores a back-reference to, so that deleting a resting order
// never requires scanning a Level's queue (spec.md §3, "Ownership").
type orderNode struct {
	order *common.Order
	level *Level
	prev  *orderNode
	next  *orderNode
}

// Level is the aggregate of all open orders of one side, at one exact
// price, of one kind (limit / stop / trailing-stop). Orders are held in an
// intrusive doubly-linked FIFO, oldest at the front (highest priority).
type Level struct {
	Price    uint64
	Side     common.Side
	SymbolID uint32
	kind     levelKind
	idx      *levelIndex // the index this level is currently stored in

	head, tail *orderNode
	count      int
	Volume     uint64
}

func newLevel(price uint64, side common.Side, symbolID uint32, kind levelKind) *Level {
	return &Level{Price: price, Side: side, SymbolID: symbolID, kind: kind}
}

// Empty reports whether the level's FIFO is empty. An empty Level is
// removed from its index as soon as it becomes empty (spec.md §3).
func (l *Level) Empty() bool { return l.count == 0 }

// Len returns the number of resting orders at this level (not volume).
func (l *Level) Len() int { return l.count }

// Front returns the oldest (highest-priority) order at the level, or nil
// if the level is empty.
func (l *Level) Front() *common.Order {
	if l.head == nil {
		return nil
	}
	return l.head.order
}

// pushBack appends a new order node to the tail of the FIFO and returns the
// node, which the caller must record in the order index as the order's
// back-reference.
func (l *Level) pushBack(order *common.Order) *orderNode {
	n := &orderNode{order: order, level: l}
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.count++
	l.Volume += order.Open
	return n
}

// remove unlinks n from the FIFO in O(1). It does not touch Volume —
// callers reduce the volume accumulator explicitly via reduceVolume, since
// the amount to subtract depends on why the order is being removed (a full
// cancel subtracts its entire open quantity; a fill subtracts only the
// traded quantity while the order may remain resting).
func (l *Level) remove(n *orderNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.count--
}

// reduceVolume lowers the level's volume accumulator by amount, used after
// a fill or a partial cancel reduces an order's open quantity in place
// without removing it from the FIFO.
func (l *Level) reduceVolume(amount uint64) {
	l.Volume -= amount
}
