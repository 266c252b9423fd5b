package model

import "time"

// Event represents a bookable event together with its seat inventory.
// TotalSeats is fixed at creation; AvailableSeats is the single source of
// truth for availability and satisfies 0 <= AvailableSeats <= TotalSeats at
// all times.  It is mutated only through EventRepo.TryDecrementSeats and
// EventRepo.IncrementSeats, never by direct assignment from handlers.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – event title.
//  Description    – optional free-form description.
//  Venue          – optional venue name.
//  StartsAt       – when the event takes place.
//  PriceCents     – price per seat in minor units.
//  TotalSeats     – seat capacity, immutable after creation.
//  AvailableSeats – seats still available for sale.
//  CreatedAt      – creation timestamp.
type Event struct {
	ID             uint64    `json:"id"`              // events.id
	Title          string    `json:"title"`           // events.title
	Description    *string   `json:"description"`     // events.description (nullable)
	Venue          *string   `json:"venue"`           // events.venue (nullable)
	StartsAt       time.Time `json:"starts_at"`       // events.starts_at
	PriceCents     uint32    `json:"price_cents"`     // events.price_cents
	TotalSeats     uint32    `json:"total_seats"`     // events.total_seats
	AvailableSeats uint32    `json:"available_seats"` // events.available_seats
	CreatedAt      time.Time `json:"created_at"`      // events.created_at
}
