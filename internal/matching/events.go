package matching

import "fenrir/internal/common"

// Observer is the passive event sink a Book reports lifecycle changes to
// (spec.md §6). Every callback receives the post-change snapshot of the
// affected order; the snapshot's validity ends at the next mutating call
// (spec.md §5, "Shared-resource policy"), so observers that need to retain
// state should copy the fields they care about.
//
// The Book assumes calling into the observer does not re-enter the Book.
type Observer interface {
	OnOrderAdded(order common.Order)
	OnOrderDeleted(order common.Order)
	OnOrderUpdated(order common.Order)
	OnOrderExecuted(order common.Order)

	// OnTrade reports one pairwise fill, distinct from the two
	// OnOrderExecuted calls the same fill also produces (one per side) —
	// a consumer that wants a trade tape instead of a per-order feed
	// should use this instead.
	OnTrade(trade common.Trade)
}

// NopObserver discards every event. Useful as a default and in tests that
// only assert on book state, not on the emitted event stream.
type NopObserver struct{}

func (NopObserver) OnOrderAdded(common.Order)    {}
func (NopObserver) OnOrderDeleted(common.Order)  {}
func (NopObserver) OnOrderUpdated(common.Order)  {}
func (NopObserver) OnOrderExecuted(common.Order) {}
func (NopObserver) OnTrade(common.Trade)         {}

// RecordingObserver appends every event to an in-memory log, in order. It
// is grounded on the teacher's own preference for simple, inspectable test
// doubles (the teacher's tests build expected struct values directly
// rather than mocking); this is the equivalent for event-stream assertions.
type RecordingObserver struct {
	Events []Event
}

// EventKind identifies which lifecycle transition an Event records.
type EventKind uint8

const (
	EventOrderAdded EventKind = iota
	EventOrderDeleted
	EventOrderUpdated
	EventOrderExecuted
	EventTrade
)

func (k EventKind) String() string {
	switch k {
	case EventOrderAdded:
		return "OrderAdded"
	case EventOrderDeleted:
		return "OrderDeleted"
	case EventOrderUpdated:
		return "OrderUpdated"
	case EventOrderExecuted:
		return "OrderExecuted"
	case EventTrade:
		return "Trade"
	default:
		return "Unknown"
	}
}

// Event is one recorded lifecycle notification. Trade is only populated
// for EventTrade; Order is only populated for the order-lifecycle kinds.
type Event struct {
	Kind  EventKind
	Order common.Order
	Trade common.Trade
}

func (r *RecordingObserver) OnOrderAdded(o common.Order) {
	r.Events = append(r.Events, Event{Kind: EventOrderAdded, Order: o})
}

func (r *RecordingObserver) OnOrderDeleted(o common.Order) {
	r.Events = append(r.Events, Event{Kind: EventOrderDeleted, Order: o})
}

func (r *RecordingObserver) OnOrderUpdated(o common.Order) {
	r.Events = append(r.Events, Event{Kind: EventOrderUpdated, Order: o})
}

func (r *RecordingObserver) OnOrderExecuted(o common.Order) {
	r.Events = append(r.Events, Event{Kind: EventOrderExecuted, Order: o})
}

func (r *RecordingObserver) OnTrade(t common.Trade) {
	r.Events = append(r.Events, Event{Kind: EventTrade, Trade: t})
}
