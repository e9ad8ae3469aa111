package engine

import (
	"strings"
	"testing"

	"fenrir/internal/common"
	"fenrir/internal/dump"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSymbol_DuplicateFails(t *testing.T) {
	e := New(NopObserver{})
	require.NoError(t, e.AddSymbol(1, "ACME"))
	assert.ErrorIs(t, e.AddSymbol(1, "ACME"), ErrDuplicateSymbol)
	assert.True(t, e.HasSymbol(1))
}

func TestOrder_UnknownSymbolFails(t *testing.T) {
	e := New(NopObserver{})
	order := common.Order{ID: 1, Type: common.Limit, Side: common.Buy, SymbolID: 99, Price: 100, Quantity: 10}
	assert.ErrorIs(t, e.AddOrder(order), ErrUnknownSymbol)
}

func TestAddOrder_RoutesToCorrectBook(t *testing.T) {
	e := New(NopObserver{})
	require.NoError(t, e.AddSymbol(1, "ACME"))
	require.NoError(t, e.AddSymbol(2, "WIDGET"))

	order := common.Order{ID: 1, Type: common.Limit, Side: common.Buy, SymbolID: 1, Price: 100, Quantity: 10}
	require.NoError(t, e.AddOrder(order))

	assert.True(t, e.Books[1].HasOrder(1))
	assert.False(t, e.Books[2].HasOrder(1))
}

func TestDeleteSymbol_RemovesBook(t *testing.T) {
	e := New(NopObserver{})
	require.NoError(t, e.AddSymbol(1, "ACME"))
	require.NoError(t, e.DeleteSymbol(1))
	assert.False(t, e.HasSymbol(1))
	assert.ErrorIs(t, e.DeleteSymbol(1), ErrUnknownSymbol)
}

type recordingEvents struct {
	orderEvents  int
	symbolEvents int
	orderSymbols []common.SymbolID
}

func (r *recordingEvents) OnSymbolAdded(common.SymbolID, string)    { r.symbolEvents++ }
func (r *recordingEvents) OnSymbolDeleted(common.SymbolID, string)  { r.symbolEvents++ }
func (r *recordingEvents) OnOrderAdded(symbolID common.SymbolID, _ common.Order) {
	r.orderEvents++
	r.orderSymbols = append(r.orderSymbols, symbolID)
}
func (r *recordingEvents) OnOrderDeleted(common.SymbolID, common.Order)  { r.orderEvents++ }
func (r *recordingEvents) OnOrderUpdated(common.SymbolID, common.Order)  { r.orderEvents++ }
func (r *recordingEvents) OnOrderExecuted(common.SymbolID, common.Order) { r.orderEvents++ }
func (r *recordingEvents) OnTrade(common.SymbolID, common.Trade)        {}

func TestDumpBooksAndSymbols_ReflectRegisteredSymbols(t *testing.T) {
	e := New(NopObserver{})
	require.NoError(t, e.AddSymbol(1, "ACME"))

	books := e.DumpBooks()
	require.Contains(t, books, common.SymbolID(1))
	assert.Equal(t, uint32(1), books[1].SymbolID())

	symbols := e.Symbols()
	assert.Equal(t, "ACME", symbols[1])
}

func TestDumpBooks_WiresDirectlyIntoDumpWriteEngine(t *testing.T) {
	e := New(NopObserver{})
	require.NoError(t, e.AddSymbol(1, "ACME"))
	require.NoError(t, e.AddOrder(common.Order{ID: 1, Type: common.Limit, Side: common.Buy, SymbolID: 1, Price: 100, Quantity: 10}))

	var sb strings.Builder
	dump.WriteEngine(&sb, e.DumpBooks(), e.Symbols(), 5)

	out := sb.String()
	assert.Contains(t, out, "ACME")
	assert.Contains(t, out, "100 x 10")
}

func TestOrderEvents_ForwardedWithSymbolID(t *testing.T) {
	rec := &recordingEvents{}
	e := New(rec)
	require.NoError(t, e.AddSymbol(1, "ACME"))

	order := common.Order{ID: 1, Type: common.Limit, Side: common.Buy, SymbolID: 1, Price: 100, Quantity: 10}
	require.NoError(t, e.AddOrder(order))

	assert.Equal(t, 1, rec.symbolEvents)
	assert.Equal(t, 1, rec.orderEvents)
	assert.Equal(t, []common.SymbolID{1}, rec.orderSymbols)
}
