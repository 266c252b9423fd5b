// Package booking implements the reservation protocol: the state machine
// coordinating booking creation, payment-intent issuance, payment
// confirmation and seat commitment.
//
// Seats are deliberately NOT held at request time.  A booking request only
// performs an advisory availability check and parks the booking in PENDING
// while the payer completes the payment out-of-band.  The one and only
// point where seats are committed is the atomic decrement inside
// ConfirmBooking.  Abandoned payment flows therefore never leak reserved
// seats, at the cost of a payment occasionally succeeding for a booking
// whose seats were taken by a faster confirmer — that case is surfaced as
// ErrInventoryExhausted and compensated out-of-band.
package booking

import (
	"context"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/notifier"
	"github.com/iliyamo/event-booking/internal/payment"
	"github.com/iliyamo/event-booking/internal/queue"
)

// InventoryStore is the durable seat-count record.  TryDecrementSeats and
// IncrementSeats must be linearizable per event id; see EventRepo for the
// SQL implementation.
type InventoryStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Event, error)
	TryDecrementSeats(ctx context.Context, id uint64, n uint32) (bool, error)
	IncrementSeats(ctx context.Context, id uint64, n uint32) error
}

// Ledger is the durable booking record.  Transition must be linearizable
// per booking id.
type Ledger interface {
	Create(ctx context.Context, b *model.Booking) error
	SetPaymentRef(ctx context.Context, id uint64, ref string) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Booking, error)
	Transition(ctx context.Context, id uint64, from, to string) (bool, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserDirectory resolves payer contact details for receipts.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// ReceiptFunc schedules a receipt for a paid booking.  Implementations are
// best-effort; errors are logged by the service and never surfaced.
type ReceiptFunc func(ctx context.Context, ev queue.BookingPaidEvent) error

// ConfirmResult statuses returned by ConfirmBooking.
const (
	ConfirmPaid    = "paid"    // booking is (now or already) paid
	ConfirmPending = "pending" // gateway has not reported success yet
)

// ConfirmResult is the non-error outcome of a confirmation attempt.
type ConfirmResult struct {
	Status  string
	Booking *model.Booking
}

// Service coordinates the reservation protocol.  It holds no locks of its
// own: all contended state lives behind the store interfaces, and no store
// lock is ever held across a gateway or notifier call.
type Service struct {
	inventory InventoryStore
	ledger    Ledger
	users     UserDirectory
	gateway   payment.Gateway
	notify    notifier.Notifier
	receipts  ReceiptFunc

	currency   string
	pendingTTL time.Duration
}

// NewService wires the protocol's collaborators.  currency is the ISO code
// used for payment intents; pendingTTL is how long a PENDING booking may
// sit idle before the reaper marks it EXPIRED.
func NewService(inventory InventoryStore, ledger Ledger, users UserDirectory, gateway payment.Gateway, notify notifier.Notifier, receipts ReceiptFunc, currency string, pendingTTL time.Duration) *Service {
	if inventory == nil || ledger == nil || users == nil || gateway == nil {
		panic("nil dependency passed to booking.NewService")
	}
	if currency == "" {
		currency = "usd"
	}
	if pendingTTL <= 0 {
		pendingTTL = 30 * time.Minute
	}
	return &Service{
		inventory:  inventory,
		ledger:     ledger,
		users:      users,
		gateway:    gateway,
		notify:     notify,
		receipts:   receipts,
		currency:   currency,
		pendingTTL: pendingTTL,
	}
}

// RequestBooking creates a PENDING booking for the given user and event and
// issues a payment intent for the frozen amount.  The availability check
// here is advisory only: seats are not reserved until confirmation, so two
// racing requests can both be admitted and settle their race later.
// Returns the booking and the client-facing payment secret.
func (s *Service) RequestBooking(ctx context.Context, userID, eventID uint64, seats uint32) (*model.Booking, string, error) {
	if seats < 1 {
		return nil, "", ErrInvalidSeats
	}
	ev, err := s.inventory.GetByID(ctx, eventID)
	if err != nil {
		return nil, "", err
	}
	if ev.AvailableSeats < seats {
		return nil, "", ErrInsufficientSeats
	}

	// Amount is frozen now; later price changes never touch this booking.
	// Widened multiply so a pathological seats times price cannot wrap the
	// minor-unit column.
	amount := uint64(seats) * uint64(ev.PriceCents)
	if amount > math.MaxUint32 {
		return nil, "", ErrAmountTooLarge
	}

	b := &model.Booking{
		UserID:      userID,
		EventID:     eventID,
		Seats:       seats,
		AmountCents: uint32(amount),
	}
	if err := s.ledger.Create(ctx, b); err != nil {
		return nil, "", err
	}

	intent, err := s.gateway.CreateIntent(ctx, uint32(amount), s.currency, map[string]string{
		"booking_id": strconv.FormatUint(b.ID, 10),
		"user_id":    strconv.FormatUint(userID, 10),
		"event_id":   strconv.FormatUint(eventID, 10),
		"seats":      strconv.FormatUint(uint64(seats), 10),
	})
	if err != nil {
		// The refless PENDING row is unconfirmable and is swept by the
		// reaper; no inventory was touched.
		return nil, "", err
	}
	if err := s.ledger.SetPaymentRef(ctx, b.ID, intent.ID); err != nil {
		return nil, "", err
	}
	b.PaymentRef = &intent.ID
	return b, intent.ClientSecret, nil
}

// ConfirmBooking settles a booking once its payment went through.  It is
// idempotent: repeated calls on a paid booking return success without
// touching inventory again.  When the gateway has not reported success the
// call returns a pending result, not an error.  When payment succeeded but
// the seats are gone, the booking is cancelled and ErrInventoryExhausted is
// returned so the payment can be refunded.
func (s *Service) ConfirmBooking(ctx context.Context, bookingID, userID uint64) (*ConfirmResult, error) {
	b, err := s.ledger.GetByIDForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if b.Status == model.BookingPaid {
		// Confirmation may be invoked more than once (client retry, webhook).
		return &ConfirmResult{Status: ConfirmPaid, Booking: b}, nil
	}
	if model.TerminalStatus(b.Status) {
		return nil, ErrNotPayable
	}
	if b.PaymentRef == nil {
		return nil, ErrNotPayable
	}

	// Ask the gateway before touching any inventory state, so no store
	// contention spans the externally-variable gateway latency.
	status, err := s.gateway.IntentStatus(ctx, *b.PaymentRef)
	if err != nil {
		log.Printf("booking: gateway status check for %d failed: %v", b.ID, err)
	}
	if status != payment.StatusSucceeded {
		return &ConfirmResult{Status: ConfirmPending, Booking: b}, nil
	}

	// The only point in the whole system where seats are committed.
	decremented, err := s.inventory.TryDecrementSeats(ctx, b.EventID, b.Seats)
	if err != nil {
		return nil, err
	}
	if !decremented {
		return nil, s.loseInventoryRace(ctx, b)
	}

	// The decrement and this guarded transition form one logical unit: if
	// the transition loses (another confirmation already flipped the
	// booking), the decrement must be rolled back exactly once.
	flipped, err := s.ledger.Transition(ctx, b.ID, model.BookingPending, model.BookingPaid)
	if err != nil {
		s.rollbackSeats(ctx, b)
		return nil, err
	}
	if !flipped {
		s.rollbackSeats(ctx, b)
		cur, err2 := s.ledger.GetByID(ctx, b.ID)
		if err2 == nil && cur.Status == model.BookingPaid {
			// Lost to a concurrent confirmation of the same booking: the
			// caller still sees an idempotent success.
			return &ConfirmResult{Status: ConfirmPaid, Booking: cur}, nil
		}
		return nil, ErrInventoryExhausted
	}

	b.Status = model.BookingPaid
	s.afterPaid(ctx, b)
	return &ConfirmResult{Status: ConfirmPaid, Booking: b}, nil
}

// loseInventoryRace handles the payment-succeeded-but-sold-out branch: the
// booking moves to CANCELLED and the caller is told compensation is needed.
// When a concurrent confirmation of the same booking won in the meantime,
// the outcome is its idempotent success instead.
func (s *Service) loseInventoryRace(ctx context.Context, b *model.Booking) error {
	flipped, err := s.ledger.Transition(ctx, b.ID, model.BookingPending, model.BookingCancelled)
	if err != nil {
		log.Printf("booking: cancel after sold-out for %d failed: %v", b.ID, err)
	}
	if !flipped {
		if cur, err2 := s.ledger.GetByID(ctx, b.ID); err2 == nil && cur.Status == model.BookingPaid {
			return nil // another confirmation of this booking already won
		}
	}
	return ErrInventoryExhausted
}

// rollbackSeats returns a just-decremented seat block to the pool.  A
// rollback failure leaves seats under-counted, which is safe (never
// oversells) but lossy, so it is logged loudly.
func (s *Service) rollbackSeats(ctx context.Context, b *model.Booking) {
	if err := s.inventory.IncrementSeats(ctx, b.EventID, b.Seats); err != nil {
		log.Printf("booking: seat rollback for booking %d (event %d, %d seats) failed: %v",
			b.ID, b.EventID, b.Seats, err)
	}
}

// afterPaid emits the fire-and-forget side effects of a successful
// confirmation: real-time broadcasts and the receipt.  None of them can
// fail the confirmation.
func (s *Service) afterPaid(ctx context.Context, b *model.Booking) {
	ev, err := s.inventory.GetByID(ctx, b.EventID)
	if err != nil {
		log.Printf("booking: reload event %d after confirmation failed: %v", b.EventID, err)
		return
	}
	if s.notify != nil {
		s.notify.Publish(notifier.TopicSeatsUpdate(ev.ID), notifier.SeatsUpdate{
			EventID:        ev.ID,
			AvailableSeats: ev.AvailableSeats,
			TotalSeats:     ev.TotalSeats,
		})
		s.notify.Publish(notifier.TopicBookingUpdate(ev.ID), notifier.BookingUpdate{
			EventID:        ev.ID,
			BookingID:      b.ID,
			Seats:          b.Seats,
			AvailableSeats: ev.AvailableSeats,
			TotalSeats:     ev.TotalSeats,
		})
	}
	if s.receipts == nil {
		return
	}
	user, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		log.Printf("booking: load user %d for receipt failed: %v", b.UserID, err)
		return
	}
	name := user.Email
	if user.FullName != nil && *user.FullName != "" {
		name = *user.FullName
	}
	evPaid := queue.BookingPaidEvent{
		BookingID:   b.ID,
		UserID:      user.ID,
		UserEmail:   user.Email,
		UserName:    name,
		EventID:     ev.ID,
		EventTitle:  ev.Title,
		Seats:       b.Seats,
		AmountCents: b.AmountCents,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.receipts(ctx, evPaid); err != nil {
			log.Printf("booking: schedule receipt for %d failed: %v", evPaid.BookingID, err)
		}
	}()
}

// CancelBooking lets a user abandon a PENDING booking.  Seats were never
// held for it, so there is nothing to release.  Cancelling an already
// cancelled booking is an idempotent success; paid and expired bookings
// are rejected.
func (s *Service) CancelBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := s.ledger.GetByIDForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case model.BookingCancelled:
		return b, nil
	case model.BookingPaid, model.BookingExpired:
		return nil, ErrNotCancellable
	}
	flipped, err := s.ledger.Transition(ctx, b.ID, model.BookingPending, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	if !flipped {
		// Lost a race against a confirmation or the reaper; report what won.
		cur, err2 := s.ledger.GetByID(ctx, b.ID)
		if err2 != nil {
			return nil, err2
		}
		if cur.Status == model.BookingCancelled {
			return cur, nil
		}
		return nil, ErrNotCancellable
	}
	b.Status = model.BookingCancelled
	return b, nil
}

// ExpireStale sweeps PENDING bookings older than the pending TTL into
// EXPIRED.  This is advisory ledger hygiene: pending bookings never held
// seats, so correctness does not depend on the sweep running.
func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	return s.ledger.ExpireStale(ctx, time.Now().UTC().Add(-s.pendingTTL))
}

// RunReaper periodically expires stale bookings until the context is
// cancelled.
func (s *Service) RunReaper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.ExpireStale(ctx)
			if err != nil {
				log.Printf("booking: reaper sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("booking: reaper expired %d stale bookings", n)
			}
		}
	}
}
