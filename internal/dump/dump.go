// Package dump renders a textual snapshot of an engine's order books
// (fed by Engine.DumpBooks and Engine.Symbols), for operators inspecting
// state. The LogBook wire request does not use it; Engine.LogBook writes
// to the structured log instead. Grounded on the teacher's zerolog-based
// logging idiom (internal/engine/engine.go's LogBook used zerolog fields
// per symbol); this package produces a plain-text table instead, since a
// depth snapshot has tabular structure zerolog's field logging doesn't fit
// well.
package dump

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"fenrir/internal/common"
	"fenrir/internal/matching"
)

// Book is the subset of matching.Book that dump needs, kept as an
// interface so tests can supply a double without building a real book.
type Book interface {
	SymbolID() uint32
	Depth(maxLevels int) (bids, asks []matching.LevelSnapshot)
	LastTradedPrice() (uint64, bool)
}

const defaultDepth = 5

// WriteBook renders one symbol's top-of-book depth to w.
func WriteBook(w io.Writer, symbolName string, book Book, maxLevels int) {
	if maxLevels <= 0 {
		maxLevels = defaultDepth
	}
	bids, asks := book.Depth(maxLevels)

	fmt.Fprintf(w, "=== %s (symbol %d) ===\n", symbolName, book.SymbolID())
	if price, traded := book.LastTradedPrice(); traded {
		fmt.Fprintf(w, "last traded: %d\n", price)
	} else {
		fmt.Fprintln(w, "last traded: -")
	}

	fmt.Fprintln(w, "  bids                 asks")
	rows := maxInt(len(bids), len(asks))
	for i := 0; i < rows; i++ {
		fmt.Fprintf(w, "  %-20s %-20s\n", formatLevel(bids, i), formatLevel(asks, i))
	}
}

func formatLevel(levels []matching.LevelSnapshot, i int) string {
	if i >= len(levels) {
		return ""
	}
	l := levels[i]
	return fmt.Sprintf("%d x %d (%d)", l.Price, l.Volume, l.Orders)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// WriteEngine renders every book in books, named by the symbols map, in
// stable symbol-ID order.
func WriteEngine(w io.Writer, books map[common.SymbolID]Book, symbols map[common.SymbolID]string, maxLevels int) {
	ids := make([]common.SymbolID, 0, len(books))
	for id := range books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sections []string
	for _, id := range ids {
		var sb strings.Builder
		name := symbols[id]
		if name == "" {
			name = fmt.Sprintf("symbol-%d", id)
		}
		WriteBook(&sb, name, books[id], maxLevels)
		sections = append(sections, sb.String())
	}
	fmt.Fprint(w, strings.Join(sections, "\n"))
}
