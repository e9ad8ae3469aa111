package dump

import (
	"strings"
	"testing"

	"fenrir/internal/common"
	"fenrir/internal/matching"

	"github.com/stretchr/testify/assert"
)

type fakeBook struct {
	symbolID  uint32
	bids      []matching.LevelSnapshot
	asks      []matching.LevelSnapshot
	lastPrice uint64
	traded    bool
}

func (f fakeBook) SymbolID() uint32 { return f.symbolID }
func (f fakeBook) Depth(maxLevels int) ([]matching.LevelSnapshot, []matching.LevelSnapshot) {
	bids, asks := f.bids, f.asks
	if len(bids) > maxLevels {
		bids = bids[:maxLevels]
	}
	if len(asks) > maxLevels {
		asks = asks[:maxLevels]
	}
	return bids, asks
}
func (f fakeBook) LastTradedPrice() (uint64, bool) { return f.lastPrice, f.traded }

func TestWriteBook_IncludesSymbolAndLevels(t *testing.T) {
	book := fakeBook{
		symbolID: 1,
		bids:     []matching.LevelSnapshot{{Price: 100, Volume: 50, Orders: 2}},
		asks:     []matching.LevelSnapshot{{Price: 101, Volume: 30, Orders: 1}},
		traded:   true, lastPrice: 100,
	}
	var sb strings.Builder
	WriteBook(&sb, "ACME", book, 5)
	out := sb.String()
	assert.Contains(t, out, "ACME")
	assert.Contains(t, out, "last traded: 100")
	assert.Contains(t, out, "100 x 50 (2)")
	assert.Contains(t, out, "101 x 30 (1)")
}

func TestWriteBook_NoTradesYet(t *testing.T) {
	var sb strings.Builder
	WriteBook(&sb, "ACME", fakeBook{symbolID: 1}, 5)
	assert.Contains(t, sb.String(), "last traded: -")
}

func TestWriteEngine_OrdersSymbolsByID(t *testing.T) {
	books := map[common.SymbolID]Book{
		2: fakeBook{symbolID: 2},
		1: fakeBook{symbolID: 1},
	}
	symbols := map[common.SymbolID]string{1: "ACME", 2: "GLOBEX"}
	var sb strings.Builder
	WriteEngine(&sb, books, symbols, 5)
	out := sb.String()
	assert.Less(t, strings.Index(out, "ACME"), strings.Index(out, "GLOBEX"))
}
