package model

import "time"

// Booking status values.  A booking starts as PENDING and either becomes
// PAID through a successful payment confirmation, or ends in one of the
// terminal non-paid states.  There is no transition out of PAID, CANCELLED
// or EXPIRED.  Bookings are never deleted, only status-transitioned, so the
// ledger keeps a full audit trail.
const (
	BookingPending   = "PENDING"   // created, awaiting payment confirmation
	BookingPaid      = "PAID"      // payment confirmed and seats committed
	BookingCancelled = "CANCELLED" // abandoned by user or lost the seat race
	BookingExpired   = "EXPIRED"   // swept by the reaper after sitting idle
)

// Booking records a user's request to purchase seats for an event.  The
// amount is frozen at creation time (seats × event price at request time);
// later price changes never alter an existing booking.  EventID is a weak
// reference: the booking does not own inventory, seats are only committed
// when the booking transitions to PAID.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – user who requested the booking.
//  EventID     – event being booked.
//  Seats       – number of seats requested (>= 1).
//  AmountCents – total amount due in minor units, frozen at creation.
//  Status      – lifecycle state, see constants above.
//  PaymentRef  – external payment intent reference once one was issued.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last status change.
type Booking struct {
	ID          uint64    `json:"id"`                    // bookings.id
	UserID      uint64    `json:"user_id"`               // bookings.user_id
	EventID     uint64    `json:"event_id"`              // bookings.event_id
	Seats       uint32    `json:"seats"`                 // bookings.seats
	AmountCents uint32    `json:"amount_cents"`          // bookings.amount_cents
	Status      string    `json:"status"`                // bookings.status
	PaymentRef  *string   `json:"payment_ref,omitempty"` // bookings.payment_ref (nullable)
	CreatedAt   time.Time `json:"created_at"`            // bookings.created_at
	UpdatedAt   time.Time `json:"updated_at"`            // bookings.updated_at
}

// TerminalStatus reports whether s is a state that admits no further
// transitions.
func TerminalStatus(s string) bool {
	return s == BookingPaid || s == BookingCancelled || s == BookingExpired
}
