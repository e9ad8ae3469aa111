// Package matching implements a single-symbol, in-memory limit order book:
// price/time priority matching, stop and trailing-stop activation, and the
// cancel/modify/execute lifecycle. It is grounded on the teacher's
// internal/engine/orderbook.go (btree-backed price levels) generalized from
// two trees (bids/asks) to six (buy/sell x limit/stop/trailing-stop), and on
// price_level_order_book.cpp for the matching and activation algorithms.
package matching

import (
	"fenrir/internal/common"

	"github.com/tidwall/btree"
)

// Book is one symbol's order book. It is not safe for concurrent use; the
// dispatcher that owns a Book serializes access to it (spec.md §5).
type Book struct {
	symbolID uint32
	observer Observer

	// orders indexes every currently-resting order (limit or unactivated
	// stop/trailing-stop) by ID, letting Cancel/Modify/Execute locate an
	// order's FIFO node without scanning any level.
	orders map[uint64]*orderNode

	buyLimit  *levelIndex
	sellLimit *levelIndex
	stopBuy   *levelIndex
	stopSell  *levelIndex
	trailBuy  *levelIndex
	trailSell *levelIndex

	lastTradedPrice uint64
	traded          bool

	// trailingBuyPrice/trailingSellPrice are watermarks that decide when a
	// side's trailing-stop levels need to be recomputed in bulk, following
	// calculateStopPrice/updateTrailing{Buy,Sell}StopOrders in the original
	// source. The naming crosses sides deliberately: trailingBuyPrice gates
	// the sell-trailing rebuild (it is compared against referenceBuyPrice),
	// and trailingSellPrice gates the buy-trailing rebuild.
	trailingBuyPrice  uint64
	trailingSellPrice uint64

	clock int64
}

// NewBook constructs an empty book for symbolID. observer receives every
// lifecycle event; pass NopObserver{} if none is needed.
func NewBook(symbolID uint32, observer Observer) *Book {
	if observer == nil {
		observer = NopObserver{}
	}
	ascending := func(a, b *Level) bool { return a.Price < b.Price }
	descending := func(a, b *Level) bool { return a.Price > b.Price }
	return &Book{
		symbolID:  symbolID,
		observer:  observer,
		orders:    make(map[uint64]*orderNode),
		buyLimit:  newLevelIndex(descending, common.Buy, kindLimit),
		sellLimit: newLevelIndex(ascending, common.Sell, kindLimit),
		stopBuy:   newLevelIndex(ascending, common.Buy, kindStop),
		stopSell:  newLevelIndex(ascending, common.Sell, kindStop),
		trailBuy:  newLevelIndex(ascending, common.Buy, kindTrailingStop),
		trailSell: newLevelIndex(ascending, common.Sell, kindTrailingStop),

		trailingBuyPrice:  0,
		trailingSellPrice: common.MaxPrice,
	}
}

// SymbolID returns the instrument this book matches orders for.
func (b *Book) SymbolID() uint32 { return b.symbolID }

// BestBuy returns the highest-priced resting buy limit level, if any.
func (b *Book) BestBuy() (*Level, bool) { return b.buyLimit.best() }

// BestSell returns the lowest-priced resting sell limit level, if any.
func (b *Book) BestSell() (*Level, bool) { return b.sellLimit.best() }

// LastTradedPrice returns the price of the most recent execution and
// whether any execution has happened yet.
func (b *Book) LastTradedPrice() (uint64, bool) { return b.lastTradedPrice, b.traded }

// HasOrder reports whether id currently rests in the book (as a limit
// order or an unactivated stop/trailing-stop order).
func (b *Book) HasOrder(id uint64) bool {
	_, ok := b.orders[id]
	return ok
}

// GetOrder returns a snapshot of the resting order with id.
func (b *Book) GetOrder(id uint64) (common.Order, bool) {
	n, ok := b.orders[id]
	if !ok {
		return common.Order{}, false
	}
	return *n.order, true
}

// Empty reports whether the book has no resting orders on any of its six
// price-level indexes.
func (b *Book) Empty() bool { return len(b.orders) == 0 }

// LevelSnapshot is a read-only view of one price level, for display
// purposes only; mutating it has no effect on the book.
type LevelSnapshot struct {
	Price  uint64
	Volume uint64
	Orders int
}

// Depth returns up to maxLevels price levels on each side of the limit
// book, best price first.
func (b *Book) Depth(maxLevels int) (bids, asks []LevelSnapshot) {
	bids = snapshotLevels(b.buyLimit, maxLevels)
	asks = snapshotLevels(b.sellLimit, maxLevels)
	return bids, asks
}

func snapshotLevels(li *levelIndex, maxLevels int) []LevelSnapshot {
	var out []LevelSnapshot
	li.tree.Scan(func(lvl *Level) bool {
		if len(out) >= maxLevels {
			return false
		}
		out = append(out, LevelSnapshot{Price: lvl.Price, Volume: lvl.Volume, Orders: lvl.Len()})
		return true
	})
	return out
}

func (b *Book) nextTimestamp() int64 {
	b.clock++
	return b.clock
}

// validateNewOrder rejects orders missing fields their type requires
// (spec.md §4, "Validation").
func validateNewOrder(order common.Order) error {
	if order.Quantity == 0 {
		return ErrInvalidOrder
	}
	switch order.Type {
	case Market:
		// no price fields required
	case Limit:
		if order.Price == 0 {
			return ErrInvalidOrder
		}
	case Stop:
		if order.StopPrice == 0 {
			return ErrInvalidOrder
		}
	case StopLimit:
		if order.StopPrice == 0 || order.Price == 0 {
			return ErrInvalidOrder
		}
	case TrailingStop:
		if order.TrailAmount == 0 {
			return ErrInvalidOrder
		}
	case TrailingStopLimit:
		if order.TrailAmount == 0 || order.Price == 0 {
			return ErrInvalidOrder
		}
	default:
		return ErrInvalidOrder
	}
	return nil
}

// Market, Limit, Stop, StopLimit, TrailingStop, TrailingStopLimit alias the
// common package's order-type constants so the file reads naturally
// against the switch above.
const (
	Market            = common.Market
	Limit             = common.Limit
	Stop              = common.Stop
	StopLimit         = common.StopLimit
	TrailingStop      = common.TrailingStop
	TrailingStopLimit = common.TrailingStopLimit
)

// AddOrder admits a brand-new order into the book: it is validated, given a
// fresh admission timestamp, and its fill history is reset to flat before
// being dispatched by type (spec.md §4.1).
func (b *Book) AddOrder(order common.Order) error {
	if err := validateNewOrder(order); err != nil {
		return err
	}
	if _, exists := b.orders[order.ID]; exists {
		return ErrDuplicateOrder
	}
	order.Executed = 0
	order.Open = order.Quantity
	order.Timestamp = b.nextTimestamp()
	b.admit(order)
	b.activateStopOrders()
	return nil
}

// admit dispatches order by type without touching its fill history. It is
// the internal entry point shared by AddOrder (fresh orders) and ModifyOrder
// (replacement orders that must keep their prior fills). Stop/trailing
// activation does not go through admit: convertAndReadmit hands converted
// orders to addMarket/addLimit directly, without a second OnOrderAdded.
func (b *Book) admit(order common.Order) {
	b.observer.OnOrderAdded(order)
	switch {
	case order.Type == Market:
		b.addMarket(&order)
	case order.Type.IsStop():
		b.addStop(&order)
	default:
		b.addLimit(&order)
	}
}

// DeleteOrder cancels a resting order outright.
func (b *Book) DeleteOrder(id uint64) error {
	if err := b.deleteOrderInternal(id); err != nil {
		return err
	}
	b.activateStopOrders()
	return nil
}

// deleteOrderInternal unlinks and removes id from the book without running
// stop activation, emitting OnOrderDeleted. Callers that need activation
// run afterward call activateStopOrders themselves. activateStopOrder does
// not use it: it unlinks through unlinkSilently, since it re-admits the
// order under the same identity.
func (b *Book) deleteOrderInternal(id uint64) error {
	n, ok := b.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	lvl := n.level
	lvl.remove(n)
	lvl.reduceVolume(n.order.Open)
	delete(b.orders, id)
	b.observer.OnOrderDeleted(*n.order)
	if lvl.Empty() {
		lvl.idx.deleteLevel(lvl)
	}
	return nil
}

// unlinkSilently removes order from its resting level and the order index
// without emitting OnOrderDeleted. It is used only by activateStopOrder,
// where the order is about to be re-admitted under the same public
// identity as a market/limit order: the visible lifecycle is a single
// OrderUpdated, not a delete followed by an add.
func (b *Book) unlinkSilently(id uint64) {
	n, ok := b.orders[id]
	if !ok {
		return
	}
	lvl := n.level
	lvl.remove(n)
	lvl.reduceVolume(n.order.Open)
	delete(b.orders, id)
	if lvl.Empty() {
		lvl.idx.deleteLevel(lvl)
	}
}

// ModifyOrder replaces a resting order's identity and/or price while
// preserving its fill history, then re-queues it at the back of its new
// price level with a fresh timestamp. Time priority is always lost, even
// when the price is unchanged. Quantity is carried over unchanged;
// reducing it is CancelOrder's job.
func (b *Book) ModifyOrder(id, newID uint64, newPrice uint64) error {
	n, ok := b.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	if newID != id {
		if _, exists := b.orders[newID]; exists {
			return ErrDuplicateOrder
		}
	}
	replacement := *n.order
	replacement.ID = newID
	replacement.Price = newPrice
	replacement.Timestamp = b.nextTimestamp()

	if err := b.deleteOrderInternal(id); err != nil {
		return err
	}
	b.admit(replacement)
	b.activateStopOrders()
	return nil
}

// CancelOrder reduces a resting order's logical quantity to newQty,
// removing it entirely once its open quantity reaches zero.
func (b *Book) CancelOrder(id uint64, newQty uint64) error {
	n, ok := b.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	order := n.order
	lvl := n.level
	before := order.Open
	order.SetQuantity(newQty)
	lvl.reduceVolume(before - order.Open)
	b.observer.OnOrderUpdated(*order)
	if order.Open == 0 {
		if err := b.deleteOrderInternal(id); err != nil {
			return err
		}
	}
	b.activateStopOrders()
	return nil
}

// ExecuteOrder fills a resting order at its own price for up to qty (capped
// at its current open quantity).
func (b *Book) ExecuteOrder(id uint64, qty uint64) error {
	n, ok := b.orders[id]
	if !ok {
		return ErrUnknownOrder
	}
	return b.executeAt(id, qty, n.order.Price)
}

// ExecuteOrderAt fills a resting order for up to qty at an explicit price,
// for callers (e.g. an external trade feed) that report a different
// clearing price than the order's own limit.
func (b *Book) ExecuteOrderAt(id uint64, qty, price uint64) error {
	if _, ok := b.orders[id]; !ok {
		return ErrUnknownOrder
	}
	return b.executeAt(id, qty, price)
}

func (b *Book) executeAt(id uint64, qty, price uint64) error {
	n := b.orders[id]
	order := n.order
	if qty > order.Open {
		qty = order.Open
	}
	lvl := n.level
	order.Execute(price, qty)
	b.lastTradedPrice = price
	b.traded = true
	b.observer.OnOrderExecuted(*order)
	lvl.reduceVolume(qty)
	if order.Open == 0 {
		if err := b.deleteOrderInternal(id); err != nil {
			return err
		}
	}
	b.activateStopOrders()
	return nil
}

// addMarket matches order against the opposite limit book at any price,
// then discards whatever remains unfilled: market orders never rest
// (spec.md §4.2).
func (b *Book) addMarket(order *common.Order) {
	if order.Side == common.Sell {
		order.Price = 0
	} else {
		order.Price = common.MaxPrice
	}
	b.match(order)
	b.observer.OnOrderDeleted(*order)
}

// addLimit matches order against the opposite limit book up to its limit
// price, then rests whatever remains unless its time-in-force forbids
// resting (spec.md §4.3).
func (b *Book) addLimit(order *common.Order) {
	b.match(order)
	if order.Open > 0 && order.TimeInForce != common.IOC && order.TimeInForce != common.FOK {
		b.insertLimit(order)
		return
	}
	b.observer.OnOrderDeleted(*order)
}

func (b *Book) insertLimit(order *common.Order) {
	var li *levelIndex
	if order.Side == common.Buy {
		li = b.buyLimit
	} else {
		li = b.sellLimit
	}
	lvl := li.getOrCreate(b.symbolID, order.Price)
	b.orders[order.ID] = lvl.pushBack(order)
}

// addStop parks order on the appropriate stop or trailing-stop index, or
// converts and re-admits it immediately if a trade has already happened and
// the current reference price satisfies its trigger (spec.md §4.5/§4.6).
// Before the first trade no stop triggers.
func (b *Book) addStop(order *common.Order) {
	if order.Type.IsTrailing() {
		order.StopPrice = b.calculateStopPrice(order)
	}
	var triggered bool
	if order.Side == common.Sell {
		triggered = b.referenceBuyPrice() <= order.StopPrice
	} else {
		triggered = b.referenceSellPrice() >= order.StopPrice
	}
	if triggered && b.traded {
		b.convertAndReadmit(order)
		return
	}
	var li *levelIndex
	switch {
	case order.Type.IsTrailing() && order.Side == common.Buy:
		li = b.trailBuy
	case order.Type.IsTrailing():
		li = b.trailSell
	case order.Side == common.Buy:
		li = b.stopBuy
	default:
		li = b.stopSell
	}
	lvl := li.getOrCreate(b.symbolID, order.StopPrice)
	b.orders[order.ID] = lvl.pushBack(order)
}

// convertAndReadmit turns a triggered stop order into its market or limit
// equivalent and re-admits it, emitting the single OnOrderUpdated that
// represents the conversion (spec.md §4.6, scenarios S4/S5).
func (b *Book) convertAndReadmit(order *common.Order) {
	order.StopPrice = 0
	order.TrailAmount = 0
	switch order.Type {
	case Stop, TrailingStop:
		order.Type = Market
	default:
		order.Type = Limit
	}
	b.observer.OnOrderUpdated(*order)
	if order.Type == Market {
		b.addMarket(order)
	} else {
		b.addLimit(order)
	}
}

// activateStopOrder is called only on an order already resting in a stop
// or trailing-stop index. It unlinks the order without emitting
// OnOrderDeleted (deliberately diverging from the original source, which
// emits a public delete here; spec.md's stop-conversion scenarios show only
// a single OrderUpdated) and hands it to convertAndReadmit.
func (b *Book) activateStopOrder(order common.Order) {
	b.unlinkSilently(order.ID)
	b.convertAndReadmit(&order)
}

// calculateStopPrice recomputes a trailing order's trigger price from the
// current reference price and its trail distance (spec.md §4.6).
func (b *Book) calculateStopPrice(order *common.Order) uint64 {
	if order.Side == common.Sell {
		market := b.referenceBuyPrice()
		if order.TrailAmount < market {
			return market - order.TrailAmount
		}
		return 0
	}
	market := b.referenceSellPrice()
	if market < common.MaxPrice-order.TrailAmount {
		return market + order.TrailAmount
	}
	return common.MaxPrice
}

// referenceBuyPrice is the price used to evaluate sell-side stop triggers
// and to place sell trailing stops: the last traded price, or 0 before any
// trade (matching the original source's lastTradedBuyPrice). Stop triggers
// are not evaluated before the first trade (see addStop and
// activateStopOrders).
func (b *Book) referenceBuyPrice() uint64 {
	return b.lastTradedPrice
}

// referenceSellPrice is the price used to evaluate buy-side stop triggers
// and to place buy trailing stops: the last traded price, or MaxPrice before
// any trade, matching lastTradedSellPrice. Stop triggers are not evaluated
// before the first trade.
func (b *Book) referenceSellPrice() uint64 {
	if !b.traded {
		return common.MaxPrice
	}
	return b.lastTradedPrice
}

// activateStopOrders runs the stop/trailing-stop activation engine to a
// fixed point: activating a stop order can move prices enough to trigger
// further stop orders, so the four passes repeat until a full round
// activates nothing (spec.md §4.6). Nothing is activated or repriced before
// the first trade.
func (b *Book) activateStopOrders() {
	if !b.traded {
		return
	}
	for {
		buyActivated := b.activateBuyStops()
		b.updateTrailingSellStops()
		sellActivated := b.activateSellStops()
		b.updateTrailingBuyStops()
		if !buyActivated && !sellActivated {
			return
		}
	}
}

// activateBuyStops activates every buy-side stop and trailing-stop order
// whose trigger price is at or below the current sell reference price,
// lowest trigger first.
func (b *Book) activateBuyStops() bool {
	activated := false
	ref := b.referenceSellPrice()
	for {
		lvl, ok := b.stopBuy.best()
		if !ok || lvl.Price > ref {
			break
		}
		activated = true
		b.activateStopOrder(*lvl.Front())
	}
	ref = b.referenceSellPrice()
	for {
		lvl, ok := b.trailBuy.best()
		if !ok || lvl.Price > ref {
			break
		}
		activated = true
		b.activateStopOrder(*lvl.Front())
	}
	return activated
}

// activateSellStops activates every sell-side stop and trailing-stop order
// whose trigger price is at or above the current buy reference price,
// highest trigger first.
func (b *Book) activateSellStops() bool {
	activated := false
	ref := b.referenceBuyPrice()
	for {
		lvl, ok := b.stopSell.tree.Max()
		if !ok || lvl.Price < ref {
			break
		}
		activated = true
		b.activateStopOrder(*lvl.Front())
	}
	ref = b.referenceBuyPrice()
	for {
		lvl, ok := b.trailSell.tree.Max()
		if !ok || lvl.Price < ref {
			break
		}
		activated = true
		b.activateStopOrder(*lvl.Front())
	}
	return activated
}

// updateTrailingBuyStops rebuilds the buy-trailing index once the market
// has moved favorably (the sell reference price has dropped below the
// trailingSellPrice watermark); otherwise it advances the watermark.
func (b *Book) updateTrailingBuyStops() {
	if b.trailingSellPrice > b.referenceSellPrice() && b.trailBuy.len() > 0 {
		b.rebuildTrailing(b.trailBuy)
		return
	}
	b.trailingSellPrice = b.lastTradedPrice
}

// updateTrailingSellStops rebuilds the sell-trailing index once the market
// has moved favorably (the buy reference price has risen above the
// trailingBuyPrice watermark); otherwise it advances the watermark.
func (b *Book) updateTrailingSellStops() {
	if b.trailingBuyPrice < b.referenceBuyPrice() && b.trailSell.len() > 0 {
		b.rebuildTrailing(b.trailSell)
		return
	}
	b.trailingBuyPrice = b.lastTradedPrice
}

// rebuildTrailing recomputes every order's stop price in li and reinserts
// it into a fresh tree, emitting OnOrderUpdated per order.
func (b *Book) rebuildTrailing(li *levelIndex) {
	var orders []*common.Order
	li.tree.Scan(func(lvl *Level) bool {
		for n := lvl.head; n != nil; n = n.next {
			orders = append(orders, n.order)
		}
		return true
	})
	li.tree = btree.NewBTreeG(li.less)
	for _, order := range orders {
		delete(b.orders, order.ID)
		order.StopPrice = b.calculateStopPrice(order)
		lvl := li.getOrCreate(b.symbolID, order.StopPrice)
		b.orders[order.ID] = lvl.pushBack(order)
		b.observer.OnOrderUpdated(*order)
	}
}

// match crosses order against the opposite side's limit book, filling at
// the resting (maker) order's price, in price/time priority, until order
// is exhausted or no further level qualifies. FOK and AON orders are
// pre-checked with canMatch so a partial fill is never left to clean up.
// On each individual fill, the incoming (taker) order's OnOrderExecuted is
// emitted before the resting (maker) order's, per spec.md's crossing
// scenario: the original source always emits the buy leg first regardless
// of which side initiated the trade, which does not hold for a sell-taker
// crossing a resting buy.
func (b *Book) match(order *common.Order) {
	if (order.TimeInForce == common.FOK || order.TimeInForce == common.AON) && !b.canMatch(order) {
		return
	}
	var li *levelIndex
	if order.Side == common.Sell {
		li = b.buyLimit
	} else {
		li = b.sellLimit
	}
	for order.Open > 0 {
		lvl, ok := li.best()
		if !ok {
			break
		}
		if order.Side == common.Sell && lvl.Price < order.Price {
			break
		}
		if order.Side == common.Buy && lvl.Price > order.Price {
			break
		}
		node := lvl.head
		maker := node.order
		qty := order.Open
		if maker.Open < qty {
			qty = maker.Open
		}
		price := maker.Price

		order.Execute(price, qty)
		maker.Execute(price, qty)
		b.lastTradedPrice = price
		b.traded = true
		takerSnapshot := *order
		makerSnapshot := *maker
		b.observer.OnOrderExecuted(takerSnapshot)
		b.observer.OnOrderExecuted(makerSnapshot)
		b.observer.OnTrade(common.Trade{Taker: &takerSnapshot, Maker: &makerSnapshot, Price: price, Quantity: qty})

		lvl.reduceVolume(qty)
		if maker.Open == 0 {
			lvl.remove(node)
			delete(b.orders, maker.ID)
			b.observer.OnOrderDeleted(makerSnapshot)
			if lvl.Empty() {
				li.deleteLevel(lvl)
			}
		}
	}
}

// canMatch reports whether the opposite side's limit book currently holds
// enough compatible volume to fill order in full, without mutating
// anything. It gates FOK and AON orders, which must not leave a partial
// fill resting or be partly filled at all.
func (b *Book) canMatch(order *common.Order) bool {
	var li *levelIndex
	if order.Side == common.Sell {
		li = b.buyLimit
	} else {
		li = b.sellLimit
	}
	need := order.Open
	var have uint64
	li.tree.Scan(func(lvl *Level) bool {
		if order.Side == common.Sell && lvl.Price < order.Price {
			return false
		}
		if order.Side == common.Buy && lvl.Price > order.Price {
			return false
		}
		have += lvl.Volume
		return have < need
	})
	return have >= need
}
