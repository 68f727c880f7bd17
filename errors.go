package heapview

import (
	"errors"
	"fmt"

	"github.com/hupe1980/heapview/eventlog"
)

var (
	// ErrInvalidEvent is returned when a record operation carries data
	// that cannot form a valid block (zero size, or an address range
	// that leaves the 64-bit address space).
	ErrInvalidEvent = errors.New("invalid event")
)

// translateError maps internal package errors onto the public error
// contract. The original underlying error stays reachable via
// errors.Unwrap / errors.Is.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, eventlog.ErrZeroSize) || errors.Is(err, eventlog.ErrAddressOverflow) {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return err
}
