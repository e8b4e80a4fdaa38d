package ledger

import "errors"

var (
	// ErrInvalidDeal is returned when a deal is rejected before any state
	// is touched.
	ErrInvalidDeal = errors.New("invalid deal")

	// ErrNotFound is returned by read accessors and stores when the requested
	// instrument, position or account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorruptSnapshot is returned when a snapshot cannot be restored
	// without breaking the ledger invariants.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
