// Package engine is the multi-symbol dispatcher sitting above matching.Book:
// it owns one book per symbol, rejects operations against unknown symbols,
// and fans out symbol lifecycle events alongside each book's own order
// events. It is grounded on the teacher's internal/engine/engine.go
// (Engine.Books map + engine.New(supportedAssets...)) generalized from a
// fixed AssetType key to an open uint32 SymbolID table, matching
// original_source's include/matching/engine.h (Engine / OrderBookHandler
// split over a symbol_id -> OrderBook map).
package engine

import (
	"errors"

	"fenrir/internal/common"
	"fenrir/internal/dump"
	"fenrir/internal/matching"

	"github.com/rs/zerolog/log"
)

// Errors returned by every per-symbol operation (original_source's Engine
// silently no-ops on an unknown symbol; spec.md §4 requires a reported
// error instead).
var (
	ErrUnknownSymbol   = errors.New("engine: unknown symbol")
	ErrDuplicateSymbol = errors.New("engine: duplicate symbol")
)

// Engine owns one matching.Book per traded symbol and is the boundary the
// wire protocol and the randomized order generator both talk to.
type Engine struct {
	Books   map[common.SymbolID]*matching.Book
	symbols map[common.SymbolID]string
	events  Observer
}

// New constructs an empty engine. events receives both symbol lifecycle
// notifications and, via the per-symbol Book it wires in on AddSymbol,
// every order lifecycle notification; pass NopObserver{} for neither.
func New(events Observer) *Engine {
	if events == nil {
		events = NopObserver{}
	}
	return &Engine{
		Books:   make(map[common.SymbolID]*matching.Book),
		symbols: make(map[common.SymbolID]string),
		events:  events,
	}
}

// AddSymbol creates a fresh, empty book for symbolID under name.
func (e *Engine) AddSymbol(symbolID common.SymbolID, name string) error {
	if _, exists := e.Books[symbolID]; exists {
		return ErrDuplicateSymbol
	}
	e.Books[symbolID] = matching.NewBook(symbolID, &bookObserver{symbolID: symbolID, events: e.events})
	e.symbols[symbolID] = name
	log.Info().Uint32("symbolID", symbolID).Str("symbol", name).Msg("symbol added")
	e.events.OnSymbolAdded(symbolID, name)
	return nil
}

// DeleteSymbol removes symbolID's book and every order resting in it, from
// the engine's perspective, in one step.
func (e *Engine) DeleteSymbol(symbolID common.SymbolID) error {
	name, ok := e.symbols[symbolID]
	if !ok {
		return ErrUnknownSymbol
	}
	delete(e.Books, symbolID)
	delete(e.symbols, symbolID)
	log.Info().Uint32("symbolID", symbolID).Str("symbol", name).Msg("symbol deleted")
	e.events.OnSymbolDeleted(symbolID, name)
	return nil
}

// HasSymbol reports whether symbolID has a book.
func (e *Engine) HasSymbol(symbolID common.SymbolID) bool {
	_, ok := e.Books[symbolID]
	return ok
}

func (e *Engine) book(symbolID common.SymbolID) (*matching.Book, error) {
	book, ok := e.Books[symbolID]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	return book, nil
}

// AddOrder dispatches order to its symbol's book.
func (e *Engine) AddOrder(order common.Order) error {
	book, err := e.book(order.SymbolID)
	if err != nil {
		return err
	}
	return book.AddOrder(order)
}

// DeleteOrder cancels orderID on symbolID's book outright.
func (e *Engine) DeleteOrder(symbolID common.SymbolID, orderID uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	return book.DeleteOrder(orderID)
}

// CancelOrder reduces orderID's quantity on symbolID's book.
func (e *Engine) CancelOrder(symbolID common.SymbolID, orderID, newQuantity uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	return book.CancelOrder(orderID, newQuantity)
}

// ModifyOrder replaces orderID with newOrderID at newPrice on symbolID's
// book.
func (e *Engine) ModifyOrder(symbolID common.SymbolID, orderID, newOrderID, newPrice uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	return book.ModifyOrder(orderID, newOrderID, newPrice)
}

// ExecuteOrder fills orderID on symbolID's book at its own resting price.
func (e *Engine) ExecuteOrder(symbolID common.SymbolID, orderID, quantity uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	return book.ExecuteOrder(orderID, quantity)
}

// ExecuteOrderAt fills orderID on symbolID's book at an explicit price.
func (e *Engine) ExecuteOrderAt(symbolID common.SymbolID, orderID, quantity, price uint64) error {
	book, err := e.book(symbolID)
	if err != nil {
		return err
	}
	return book.ExecuteOrderAt(orderID, quantity, price)
}

// LogBook writes a snapshot of every symbol's book to the structured log,
// grounded on the teacher's net.Engine interface requiring a LogBook
// method for its LogBook wire message.
func (e *Engine) LogBook() {
	for symbolID, book := range e.Books {
		buy, hasBuy := book.BestBuy()
		sell, hasSell := book.BestSell()
		entry := log.Info().Uint32("symbolID", symbolID).Str("symbol", e.symbols[symbolID])
		if hasBuy {
			entry = entry.Uint64("bestBuy", buy.Price).Uint64("bestBuyVolume", buy.Volume)
		}
		if hasSell {
			entry = entry.Uint64("bestSell", sell.Price).Uint64("bestSellVolume", sell.Volume)
		}
		entry.Msg("book snapshot")
	}
}

// DumpBooks exposes every symbol's book keyed by ID, already boxed as
// dump.Book, so it can be passed straight to dump.WriteEngine.
func (e *Engine) DumpBooks() map[common.SymbolID]dump.Book {
	books := make(map[common.SymbolID]dump.Book, len(e.Books))
	for id, book := range e.Books {
		books[id] = book
	}
	return books
}

// Symbols returns the symbolID -> name table for display purposes.
func (e *Engine) Symbols() map[common.SymbolID]string {
	out := make(map[common.SymbolID]string, len(e.symbols))
	for id, name := range e.symbols {
		out[id] = name
	}
	return out
}
