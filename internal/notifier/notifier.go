// Package notifier fans out inventory and booking change events to
// connected observers.  Delivery is fire-and-forget, at-most-once: the
// booking flow never depends on it for correctness, only for UX
// responsiveness.
package notifier

import "fmt"

// Topics published by the booking flow.  Event-scoped topics carry the
// event ID so observers can subscribe to a single event's room.
const (
	TopicNewEvent    = "new-event"
	TopicUsersOnline = "users-online"
)

// TopicBookingUpdate names the per-event booking activity topic.
func TopicBookingUpdate(eventID uint64) string {
	return fmt.Sprintf("booking-update.%d", eventID)
}

// TopicSeatsUpdate names the per-event seat availability topic.
func TopicSeatsUpdate(eventID uint64) string {
	return fmt.Sprintf("seats-update.%d", eventID)
}

// Notifier publishes a payload to every observer subscribed to a topic.
type Notifier interface {
	Publish(topic string, payload any)
}

// UsersOnline is broadcast periodically with the instance's current
// observer count.
type UsersOnline struct {
	Online int `json:"online"`
}

// SeatsUpdate is broadcast whenever an event's availability changes.
type SeatsUpdate struct {
	EventID        uint64 `json:"event_id"`
	AvailableSeats uint32 `json:"available_seats"`
	TotalSeats     uint32 `json:"total_seats"`
}

// BookingUpdate is broadcast to an event's room when a booking is paid.
type BookingUpdate struct {
	EventID        uint64 `json:"event_id"`
	BookingID      uint64 `json:"booking_id"`
	Seats          uint32 `json:"seats"`
	AvailableSeats uint32 `json:"available_seats"`
	TotalSeats     uint32 `json:"total_seats"`
}
