package matching

import "errors"

// Error kinds the core produces (spec.md §7). All are reported
// synchronously; no operation partially mutates state before returning one
// of these.
var (
	ErrUnknownOrder   = errors.New("matching: unknown order id")
	ErrDuplicateOrder = errors.New("matching: duplicate order id")
	ErrInvalidOrder   = errors.New("matching: invalid order")
)
