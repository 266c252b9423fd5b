package booking

import "errors"

// ErrInvalidSeats is returned when a booking request asks for fewer than
// one seat.
var ErrInvalidSeats = errors.New("seats must be at least 1")

// ErrAmountTooLarge is returned when seats times the unit price does not
// fit the ledger's minor-unit amount column.  Checked at request time so no
// intent is ever issued for a truncated amount.
var ErrAmountTooLarge = errors.New("booking amount exceeds the payable maximum")

// ErrInsufficientSeats is returned by the advisory availability check at
// request time.  It is an expected outcome, not a server fault: no state
// was changed and the caller may simply pick fewer seats.
var ErrInsufficientSeats = errors.New("not enough seats available")

// ErrInventoryExhausted is returned when a payment succeeded but the seats
// sold out before this confirmation won the inventory race.  The booking
// ends in CANCELLED and the payment must be compensated out-of-band
// (refund); callers must surface this, never swallow it.
var ErrInventoryExhausted = errors.New("event sold out during payment processing")

// ErrNotPayable is returned when confirmation is attempted on a booking in
// a terminal non-paid state (CANCELLED or EXPIRED).
var ErrNotPayable = errors.New("booking is no longer payable")

// ErrNotCancellable is returned when cancellation is attempted on a paid
// or expired booking.  Refunding a paid booking is an external concern.
var ErrNotCancellable = errors.New("booking can no longer be cancelled")
