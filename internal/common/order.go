package common

import "fmt"

// Order is an immutable identity with mutable lifecycle state. The
// matching engine owns all mutation of the quantity/price fields; callers
// only ever see post-change snapshots (spec.md §5, "Shared-resource
// policy").
type Order struct {
	ID            uint64
	Type          OrderType
	Side          Side
	TimeInForce   TimeInForce
	SymbolID      SymbolID
	Price         uint64 // integer ticks; 0 for market-sell, MaxPrice for market-buy while crossing
	StopPrice     uint64 // trigger threshold for stop variants; 0 otherwise
	TrailAmount   uint64 // distance from market for trailing variants; 0 otherwise
	Quantity      uint64 // original/logical quantity
	Executed      uint64 // cumulative filled
	Open          uint64 // Quantity - Executed
	LastExecPrice uint64
	LastExecQty   uint64
	Timestamp     int64 // monotonic admission tick; defines time priority
	Owner         string
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d type=%s side=%s tif=%s symbol=%d price=%d stop=%d trail=%d qty=%d/%d ts=%d}",
		o.ID, o.Type, o.Side, o.TimeInForce, o.SymbolID, o.Price, o.StopPrice,
		o.TrailAmount, o.Open, o.Quantity, o.Timestamp,
	)
}

// Execute records a fill of qty at price, updating Executed/Open and the
// last-fill fields. The caller is responsible for capping qty at Open.
func (o *Order) Execute(price, qty uint64) {
	o.Open -= qty
	o.Executed += qty
	o.LastExecPrice = price
	o.LastExecQty = qty
}

// SetQuantity implements cancel-to(q): the logical quantity becomes q and
// the open quantity shrinks to min(q, openBefore). This follows spec.md's
// prose description of cancel(), not the original C++ source's
// self-inconsistent setQuantity() (see DESIGN.md / SPEC_FULL.md §9).
func (o *Order) SetQuantity(q uint64) {
	if q < o.Open {
		o.Open = q
	}
	o.Quantity = q
}
