// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into receipts.
package queue

// BookingPaidEvent is published when a booking is successfully confirmed.
// It carries enough information for downstream consumers to send the
// receipt without querying the primary database.
type BookingPaidEvent struct {
	BookingID   uint64 `json:"booking_id"`
	UserID      uint64 `json:"user_id"`
	UserEmail   string `json:"user_email"`
	UserName    string `json:"user_name"`
	EventID     uint64 `json:"event_id"`
	EventTitle  string `json:"event_title"`
	Seats       uint32 `json:"seats"`
	AmountCents uint32 `json:"amount_cents"`
	ConfirmedAt string `json:"confirmed_at"`
}
