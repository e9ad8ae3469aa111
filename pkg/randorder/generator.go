// Package randorder generates randomized orders for load-testing and
// benchmarking an engine.Engine, grounded on the original source's
// benchmark/generate_orders.cpp (random side, a base price split by side,
// a small random offset, and a random quantity) and restated with an
// explicit seed following the pack's load-generator convention of
// rand.New(rand.NewSource(seed)) for reproducible runs.
package randorder

import (
	"math/rand"

	"fenrir/internal/common"
)

// Config bounds the randomized order stream.
type Config struct {
	NumSymbols  uint32
	BuyBase     uint64
	SellBase    uint64
	PriceSpread uint64
	MaxLotSize  uint64
	Seed        int64
}

// DefaultConfig mirrors the original benchmark's hard-coded constants: a
// buy base of 100, a sell base of 105, prices offset by 1-10, and
// quantities that are a random multiple of 100 up to 1000.
func DefaultConfig(numSymbols uint32, seed int64) Config {
	return Config{
		NumSymbols:  numSymbols,
		BuyBase:     100,
		SellBase:    105,
		PriceSpread: 10,
		MaxLotSize:  10,
		Seed:        seed,
	}
}

// Generator produces a deterministic stream of limit orders from a seeded
// random source.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// New constructs a Generator from cfg.
func New(cfg Config) *Generator {
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Next returns the orderIndex-th generated order, alternating side by
// parity the way the original generator does (even index buys, odd
// sells), with owner attributed to a synthetic username.
func (g *Generator) Next(orderIndex uint64) common.Order {
	side := common.Sell
	base := g.cfg.SellBase
	if orderIndex%2 == 0 {
		side = common.Buy
		base = g.cfg.BuyBase
	}

	offset := uint64(g.rng.Int63n(int64(g.cfg.PriceSpread))) + 1
	price := base + offset
	quantity := (uint64(g.rng.Int63n(int64(g.cfg.MaxLotSize))) + 1) * 100
	symbolID := common.SymbolID(g.rng.Int63n(int64(g.cfg.NumSymbols))) + 1

	return common.Order{
		ID:          orderIndex,
		Type:        common.Limit,
		Side:        side,
		TimeInForce: common.GTC,
		SymbolID:    symbolID,
		Price:       price,
		Quantity:    quantity,
		Owner:       "loadgen",
	}
}

// GenerateBatch produces count sequential orders starting at startID.
func (g *Generator) GenerateBatch(startID uint64, count int) []common.Order {
	orders := make([]common.Order, count)
	for i := 0; i < count; i++ {
		orders[i] = g.Next(startID + uint64(i))
	}
	return orders
}
