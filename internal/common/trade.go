package common

import "fmt"

// Trade records a single pairwise execution between a taker and a maker.
// It is produced by the matching engine for observers that want a trade
// feed distinct from the per-order OrderExecuted events.
type Trade struct {
	Taker    *Order
	Maker    *Order
	Price    uint64
	Quantity uint64
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade{taker=%d maker=%d price=%d qty=%d}",
		t.Taker.ID, t.Maker.ID, t.Price, t.Quantity)
}
