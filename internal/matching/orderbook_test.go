package matching

import (
	"testing"

	"fenrir/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(id uint64, side common.Side, typ common.OrderType, price, qty uint64) common.Order {
	return common.Order{
		ID:          id,
		Type:        typ,
		Side:        side,
		TimeInForce: common.GTC,
		SymbolID:    1,
		Price:       price,
		Quantity:    qty,
	}
}

func TestAddOrder_RestsWhenNoCross(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))

	lvl, ok := book.BestBuy()
	require.True(t, ok)
	assert.Equal(t, uint64(100), lvl.Price)
	assert.Equal(t, uint64(10), lvl.Volume)
	assert.True(t, book.HasOrder(1))
}

func TestAddOrder_CrossesAndFillsTakerFirst(t *testing.T) {
	rec := &RecordingObserver{}
	book := NewBook(1, rec)

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	rec.Events = nil

	require.NoError(t, book.AddOrder(newTestOrder(2, common.Sell, common.Limit, 100, 10)))

	require.True(t, book.Empty())
	price, traded := book.LastTradedPrice()
	assert.True(t, traded)
	assert.Equal(t, uint64(100), price)

	var executed, deleted []uint64
	for _, ev := range rec.Events {
		switch ev.Kind {
		case EventOrderExecuted:
			executed = append(executed, ev.Order.ID)
		case EventOrderDeleted:
			deleted = append(deleted, ev.Order.ID)
		}
	}
	require.Len(t, executed, 2)
	assert.Equal(t, uint64(2), executed[0], "incoming taker executes before the resting maker")
	assert.Equal(t, uint64(1), executed[1])

	require.Len(t, deleted, 2, "both the fully-filled maker and the fully-filled taker must be deleted")
	assert.Equal(t, uint64(1), deleted[0], "the maker is deleted as soon as match consumes it")
	assert.Equal(t, uint64(2), deleted[1], "the taker is deleted once addLimit sees it fully filled")
}

func TestAddOrder_PartialFillRestsRemainder(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(2, common.Sell, common.Limit, 100, 4)))

	order, ok := book.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(6), order.Open)
	assert.Equal(t, uint64(4), order.Executed)
	assert.False(t, book.HasOrder(2))
}

func TestAddOrder_IOCCancelsUnfilledRemainder(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 5)))
	ioc := newTestOrder(2, common.Sell, common.Limit, 100, 20)
	ioc.TimeInForce = common.IOC
	require.NoError(t, book.AddOrder(ioc))

	assert.False(t, book.HasOrder(2))
	assert.True(t, book.Empty())
}

func TestAddOrder_FOKRejectedWhenInsufficientLiquidity(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 5)))
	fok := newTestOrder(2, common.Sell, common.Limit, 100, 20)
	fok.TimeInForce = common.FOK
	require.NoError(t, book.AddOrder(fok))

	assert.False(t, book.HasOrder(2))
	order, ok := book.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(5), order.Open, "resting order must be untouched by a failed FOK")
}

func TestAddOrder_AONRestsUntilFullyMatchable(t *testing.T) {
	book := NewBook(1, NopObserver{})

	aon := newTestOrder(1, common.Sell, common.Limit, 100, 10)
	aon.TimeInForce = common.AON
	require.NoError(t, book.AddOrder(aon))

	require.NoError(t, book.AddOrder(newTestOrder(2, common.Buy, common.Limit, 100, 4)))
	order, ok := book.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(10), order.Open, "AON must not partially fill")

	require.NoError(t, book.AddOrder(newTestOrder(3, common.Buy, common.Limit, 100, 6)))
	assert.False(t, book.HasOrder(1), "AON fills in full once enough liquidity has arrived")
}

func TestMarketOrder_NeverRests(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 5)))
	market := newTestOrder(2, common.Sell, common.Market, 0, 20)
	require.NoError(t, book.AddOrder(market))

	assert.False(t, book.HasOrder(2))
	assert.True(t, book.Empty())
}

func TestStopOrder_ActivatesOnTrade(t *testing.T) {
	rec := &RecordingObserver{}
	book := NewBook(1, rec)

	stop := newTestOrder(1, common.Sell, common.Stop, 0, 10)
	stop.StopPrice = 95
	require.NoError(t, book.AddOrder(stop))
	assert.True(t, book.HasOrder(1))

	require.NoError(t, book.AddOrder(newTestOrder(2, common.Buy, common.Limit, 90, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(3, common.Sell, common.Limit, 90, 10)))

	require.NoError(t, book.AddOrder(newTestOrder(4, common.Buy, common.Limit, 95, 10)))

	assert.False(t, book.HasOrder(1), "stop order converts and matches once triggered")

	var sawUpdate bool
	for _, ev := range rec.Events {
		if ev.Kind == EventOrderUpdated && ev.Order.ID == 1 {
			sawUpdate = true
			assert.Equal(t, common.Market, ev.Order.Type)
		}
	}
	assert.True(t, sawUpdate, "stop conversion must emit an OrderUpdated carrying the converted Market type")
}

func TestStopOrder_TriggersImmediatelyWhenAlreadyCrossed(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(2, common.Sell, common.Limit, 100, 10)))

	stop := newTestOrder(3, common.Sell, common.Stop, 0, 5)
	stop.StopPrice = 150
	require.NoError(t, book.AddOrder(stop))

	assert.False(t, book.HasOrder(3), "a sell stop with a stop price above the last trade triggers on arrival")
}

func TestTrailingStop_RecomputesOnFavorableMove(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(2, common.Sell, common.Limit, 100, 10)))

	trail := newTestOrder(3, common.Sell, common.TrailingStop, 0, 5)
	trail.TrailAmount = 10
	require.NoError(t, book.AddOrder(trail))

	order, ok := book.GetOrder(3)
	require.True(t, ok)
	assert.Equal(t, uint64(90), order.StopPrice)

	require.NoError(t, book.AddOrder(newTestOrder(4, common.Buy, common.Limit, 120, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(5, common.Sell, common.Limit, 120, 10)))

	order, ok = book.GetOrder(3)
	require.True(t, ok)
	assert.Equal(t, uint64(110), order.StopPrice, "trailing stop follows a rising market up by its trail amount")
}

func TestCancelOrder_PartialReducesOpenQuantity(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.CancelOrder(1, 4))

	order, ok := book.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(4), order.Open)
	assert.Equal(t, uint64(4), order.Quantity)

	lvl, ok := book.BestBuy()
	require.True(t, ok)
	assert.Equal(t, uint64(4), lvl.Volume)
}

func TestCancelOrder_ToZeroRemovesOrder(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.CancelOrder(1, 0))

	assert.False(t, book.HasOrder(1))
	assert.True(t, book.Empty())
}

func TestModifyOrder_PriceChangeMovesOrderToNewLevel(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(2, common.Buy, common.Limit, 100, 5)))

	require.NoError(t, book.ModifyOrder(1, 1, 101))

	lvl, ok := book.BestBuy()
	require.True(t, ok)
	assert.Equal(t, uint64(101), lvl.Price)
	assert.Equal(t, uint64(1), lvl.Front().ID)

	other, ok := book.GetOrder(2)
	require.True(t, ok)
	assert.Equal(t, uint64(100), other.Price)
}

func TestModifyOrder_CollidingNewIDFails(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(2, common.Buy, common.Limit, 100, 5)))

	assert.ErrorIs(t, book.ModifyOrder(1, 2, 101), ErrDuplicateOrder)

	// The original order must survive untouched; the colliding resting
	// order must not have been orphaned by a partial admit.
	order, ok := book.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(100), order.Price)
	other, ok := book.GetOrder(2)
	require.True(t, ok)
	assert.Equal(t, uint64(5), other.Open)
}

func TestDeleteOrder_UnknownIDFails(t *testing.T) {
	book := NewBook(1, NopObserver{})
	assert.ErrorIs(t, book.DeleteOrder(999), ErrUnknownOrder)
}

func TestAddOrder_DuplicateIDFails(t *testing.T) {
	book := NewBook(1, NopObserver{})
	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	assert.ErrorIs(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)), ErrDuplicateOrder)
}

func TestAddOrder_InvalidOrderRejected(t *testing.T) {
	book := NewBook(1, NopObserver{})
	assert.ErrorIs(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 0, 10)), ErrInvalidOrder)
	assert.ErrorIs(t, book.AddOrder(newTestOrder(2, common.Buy, common.Limit, 100, 0)), ErrInvalidOrder)
	assert.ErrorIs(t, book.AddOrder(newTestOrder(3, common.Buy, common.Stop, 0, 10)), ErrInvalidOrder)
}

func TestExecuteOrder_FillsAtRestingPrice(t *testing.T) {
	rec := &RecordingObserver{}
	book := NewBook(1, rec)

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.ExecuteOrder(1, 4))

	order, ok := book.GetOrder(1)
	require.True(t, ok)
	assert.Equal(t, uint64(6), order.Open)
	assert.Equal(t, uint64(4), order.Executed)
	assert.Equal(t, uint64(100), order.LastExecPrice)
}

func TestAddOrder_CrossEmitsTrade(t *testing.T) {
	rec := &RecordingObserver{}
	book := NewBook(1, rec)

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 10)))
	require.NoError(t, book.AddOrder(newTestOrder(2, common.Sell, common.Limit, 100, 10)))

	var trades []common.Trade
	for _, ev := range rec.Events {
		if ev.Kind == EventTrade {
			trades = append(trades, ev.Trade)
		}
	}
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(100), trades[0].Price)
	assert.Equal(t, uint64(10), trades[0].Quantity)
	assert.Equal(t, uint64(2), trades[0].Taker.ID)
	assert.Equal(t, uint64(1), trades[0].Maker.ID)
}

func TestPriceTimePriority_OldestAtSamePriceFillsFirst(t *testing.T) {
	book := NewBook(1, NopObserver{})

	require.NoError(t, book.AddOrder(newTestOrder(1, common.Buy, common.Limit, 100, 5)))
	require.NoError(t, book.AddOrder(newTestOrder(2, common.Buy, common.Limit, 100, 5)))

	require.NoError(t, book.AddOrder(newTestOrder(3, common.Sell, common.Limit, 100, 5)))

	assert.False(t, book.HasOrder(1), "the earlier resting order at the best price fills first")
	assert.True(t, book.HasOrder(2))
}
