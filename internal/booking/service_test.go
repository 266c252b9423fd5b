package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/payment"
)

// ----- fakes -----

type fakeInventory struct {
	mu       sync.Mutex
	events   map[uint64]*model.Event
	incCalls int
}

func newFakeInventory(events ...*model.Event) *fakeInventory {
	m := make(map[uint64]*model.Event, len(events))
	for _, ev := range events {
		m[ev.ID] = ev
	}
	return &fakeInventory{events: m}
}

func (f *fakeInventory) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *ev
	return &cp, nil
}

func (f *fakeInventory) TryDecrementSeats(_ context.Context, id uint64, n uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return false, assert.AnError
	}
	if ev.AvailableSeats < n {
		return false, nil
	}
	ev.AvailableSeats -= n
	return true, nil
}

func (f *fakeInventory) IncrementSeats(_ context.Context, id uint64, n uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return assert.AnError
	}
	f.incCalls++
	ev.AvailableSeats += n
	if ev.AvailableSeats > ev.TotalSeats {
		ev.AvailableSeats = ev.TotalSeats
	}
	return nil
}

func (f *fakeInventory) available(id uint64) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id].AvailableSeats
}

type fakeLedger struct {
	mu       sync.Mutex
	seq      uint64
	rows     map[uint64]*model.Booking
	refCalls int

	// beforeTransition runs inside the lock just before the guarded update,
	// letting tests inject a concurrent winner.
	beforeTransition func(l *fakeLedger, id uint64, from, to string)
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[uint64]*model.Booking)}
}

func (l *fakeLedger) Create(_ context.Context, b *model.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	b.ID = l.seq
	b.Status = model.BookingPending
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	cp := *b
	l.rows[b.ID] = &cp
	return nil
}

func (l *fakeLedger) SetPaymentRef(_ context.Context, id uint64, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.rows[id]
	if !ok {
		return assert.AnError
	}
	b.PaymentRef = &ref
	l.refCalls++
	return nil
}

func (l *fakeLedger) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.rows[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *b
	return &cp, nil
}

func (l *fakeLedger) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Booking, error) {
	b, err := l.GetByID(ctx, id)
	if err != nil || b.UserID != userID {
		return nil, assert.AnError
	}
	return b, nil
}

func (l *fakeLedger) Transition(_ context.Context, id uint64, from, to string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.beforeTransition != nil {
		hook := l.beforeTransition
		l.beforeTransition = nil
		hook(l, id, from, to)
	}
	b, ok := l.rows[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (l *fakeLedger) ExpireStale(_ context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, b := range l.rows {
		if b.Status == model.BookingPending && b.CreatedAt.Before(cutoff) {
			b.Status = model.BookingExpired
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) status(id uint64) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows[id].Status
}

type fakeUsers struct{}

func (fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	return model.User{ID: id, Email: "payer@example.com"}, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	status    payment.IntentStatus
	createErr error
	calls     int
}

func (g *fakeGateway) CreateIntent(_ context.Context, _ uint32, _ string, _ map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &payment.Intent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

func (g *fakeGateway) IntentStatus(_ context.Context, _ string) (payment.IntentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, nil
}

func testEvent(id uint64, seats uint32) *model.Event {
	return &model.Event{
		ID:             id,
		Title:          "Test Event",
		StartsAt:       time.Now().Add(24 * time.Hour),
		PriceCents:     2500,
		TotalSeats:     seats,
		AvailableSeats: seats,
	}
}

func newTestService(inv *fakeInventory, led *fakeLedger, gw *fakeGateway) *Service {
	return NewService(inv, led, fakeUsers{}, gw, nil, nil, "usd", 30*time.Minute)
}

// ----- request -----

func TestRequestBookingRejectsZeroSeats(t *testing.T) {
	svc := newTestService(newFakeInventory(testEvent(1, 10)), newFakeLedger(), &fakeGateway{})
	_, _, err := svc.RequestBooking(context.Background(), 7, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidSeats)
}

func TestRequestBookingRejectsInsufficientSeats(t *testing.T) {
	svc := newTestService(newFakeInventory(testEvent(1, 2)), newFakeLedger(), &fakeGateway{})
	_, _, err := svc.RequestBooking(context.Background(), 7, 1, 3)
	assert.ErrorIs(t, err, ErrInsufficientSeats)
}

func TestRequestBookingFreezesAmountAndHoldsNoSeats(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{})

	b, secret, err := svc.RequestBooking(context.Background(), 7, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3*2500), b.AmountCents)
	assert.Equal(t, model.BookingPending, b.Status)
	assert.Equal(t, "pi_test_secret", secret)
	require.NotNil(t, b.PaymentRef)
	assert.Equal(t, "pi_test", *b.PaymentRef)
	// No seats are held at request time.
	assert.Equal(t, uint32(10), inv.available(1))
}

func TestRequestBookingAttachesIntentRefToLedger(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	stored, err := led.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PaymentRef)
	assert.Equal(t, "pi_test", *stored.PaymentRef)
	assert.Equal(t, 1, led.refCalls)
}

func TestRequestBookingGatewayFailureLeavesUnpayableRow(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{createErr: assert.AnError})

	_, _, err := svc.RequestBooking(context.Background(), 7, 1, 2)
	require.Error(t, err)

	// The row exists without a payment ref; it can never confirm and the
	// reaper will sweep it.  No seats were touched.
	stored, err := led.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, stored.Status)
	assert.Nil(t, stored.PaymentRef)
	assert.Equal(t, uint32(10), inv.available(1))

	_, err = svc.ConfirmBooking(context.Background(), stored.ID, 7)
	assert.ErrorIs(t, err, ErrNotPayable)
}

func TestRequestBookingRejectsAmountOverflow(t *testing.T) {
	ev := testEvent(1, 3_000_000)
	ev.PriceCents = 2_000 // 3M seats at $20 wraps uint32 cents
	inv := newFakeInventory(ev)
	led := newFakeLedger()
	gw := &fakeGateway{}
	svc := newTestService(inv, led, gw)

	_, _, err := svc.RequestBooking(context.Background(), 7, 1, 3_000_000)
	assert.ErrorIs(t, err, ErrAmountTooLarge)
	assert.Zero(t, gw.calls, "no intent may be issued for a truncated amount")
	assert.Empty(t, led.rows)
}

// ----- confirm -----

func TestConfirmBookingCommitsSeats(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 4)
	require.NoError(t, err)

	res, err := svc.ConfirmBooking(context.Background(), b.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, ConfirmPaid, res.Status)
	assert.Equal(t, model.BookingPaid, res.Booking.Status)
	assert.Equal(t, uint32(6), inv.available(1))
}

func TestConfirmBookingIsIdempotent(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := svc.ConfirmBooking(context.Background(), b.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, ConfirmPaid, res.Status)
	}
	// Seats decremented exactly once across the retries.
	assert.Equal(t, uint32(6), inv.available(1))
}

func TestConfirmBookingPendingGatewayLeavesStateUntouched(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusPending})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 4)
	require.NoError(t, err)

	res, err := svc.ConfirmBooking(context.Background(), b.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, ConfirmPending, res.Status)
	assert.Equal(t, model.BookingPending, led.status(b.ID))
	assert.Equal(t, uint32(10), inv.available(1))
}

func TestConfirmBookingSoldOutCancelsAndSurfacesExhaustion(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 1))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	// Two bookings admitted for the last seat; the advisory check passes for
	// both because nothing is held at request time.
	b1, _, err := svc.RequestBooking(context.Background(), 7, 1, 1)
	require.NoError(t, err)
	b2, _, err := svc.RequestBooking(context.Background(), 8, 1, 1)
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), b1.ID, 7)
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), b2.ID, 8)
	assert.ErrorIs(t, err, ErrInventoryExhausted)
	assert.Equal(t, model.BookingCancelled, led.status(b2.ID))
	assert.Equal(t, model.BookingPaid, led.status(b1.ID))
	assert.Equal(t, uint32(0), inv.available(1))
}

func TestConfirmBookingConcurrentRaceNeverOversells(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 1))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	b1, _, err := svc.RequestBooking(context.Background(), 7, 1, 1)
	require.NoError(t, err)
	b2, _, err := svc.RequestBooking(context.Background(), 8, 1, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.ConfirmBooking(context.Background(), b1.ID, 7)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.ConfirmBooking(context.Background(), b2.ID, 8)
	}()
	wg.Wait()

	var paid, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			paid++
		case err == ErrInventoryExhausted:
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, paid, "exactly one booking must win the seat")
	assert.Equal(t, 1, exhausted, "exactly one booking must lose")
	assert.Equal(t, uint32(0), inv.available(1))

	statuses := []string{led.status(b1.ID), led.status(b2.ID)}
	assert.Contains(t, statuses, model.BookingPaid)
	assert.Contains(t, statuses, model.BookingCancelled)
}

func TestConfirmBookingManyConcurrentNeverOversells(t *testing.T) {
	const seats = 5
	const contenders = 20
	inv := newFakeInventory(testEvent(1, seats))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	ids := make([]uint64, contenders)
	for i := range ids {
		b, _, err := svc.RequestBooking(context.Background(), uint64(i+1), 1, 1)
		require.NoError(t, err)
		ids[i] = b.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ConfirmBooking(context.Background(), ids[i], uint64(i+1))
		}(i)
	}
	wg.Wait()

	var paid int
	for _, err := range errs {
		if err == nil {
			paid++
		} else {
			require.ErrorIs(t, err, ErrInventoryExhausted)
		}
	}
	assert.Equal(t, seats, paid)
	assert.Equal(t, uint32(0), inv.available(1))
}

func TestConfirmBookingLostTransitionRollsBackExactlyOnce(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 4)
	require.NoError(t, err)

	// A concurrent confirmation of the same booking wins right before our
	// guarded transition runs.
	led.beforeTransition = func(l *fakeLedger, id uint64, from, to string) {
		l.rows[b.ID].Status = model.BookingPaid
	}

	res, err := svc.ConfirmBooking(context.Background(), b.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, ConfirmPaid, res.Status)
	// Our decrement was undone exactly once; the winner's commit stands
	// (the fake applied no decrement for the winner, so the pool is back
	// to its pre-race level).
	assert.Equal(t, 1, inv.incCalls)
	assert.Equal(t, uint32(10), inv.available(1))
}

func TestConfirmBookingRejectsTerminalStates(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 1)
	require.NoError(t, err)
	_, err = svc.CancelBooking(context.Background(), b.ID, 7)
	require.NoError(t, err)

	_, err = svc.ConfirmBooking(context.Background(), b.ID, 7)
	assert.ErrorIs(t, err, ErrNotPayable)
}

// ----- cancel -----

func TestCancelBookingIdempotent(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 1)
	require.NoError(t, err)

	first, err := svc.CancelBooking(context.Background(), b.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, first.Status)

	again, err := svc.CancelBooking(context.Background(), b.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, again.Status)
}

func TestCancelBookingRejectsPaid(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := newTestService(inv, led, &fakeGateway{status: payment.StatusSucceeded})

	b, _, err := svc.RequestBooking(context.Background(), 7, 1, 1)
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(context.Background(), b.ID, 7)
	require.NoError(t, err)

	_, err = svc.CancelBooking(context.Background(), b.ID, 7)
	assert.ErrorIs(t, err, ErrNotCancellable)
	// Paid seats stay committed.
	assert.Equal(t, uint32(9), inv.available(1))
}

// ----- reaper -----

func TestExpireStaleSweepsOnlyOldPending(t *testing.T) {
	inv := newFakeInventory(testEvent(1, 10))
	led := newFakeLedger()
	svc := NewService(inv, led, fakeUsers{}, &fakeGateway{}, nil, nil, "usd", time.Minute)

	stale, _, err := svc.RequestBooking(context.Background(), 7, 1, 1)
	require.NoError(t, err)
	fresh, _, err := svc.RequestBooking(context.Background(), 8, 1, 1)
	require.NoError(t, err)

	led.mu.Lock()
	led.rows[stale.ID].CreatedAt = time.Now().UTC().Add(-2 * time.Minute)
	led.mu.Unlock()

	n, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, model.BookingExpired, led.status(stale.ID))
	assert.Equal(t, model.BookingPending, led.status(fresh.ID))
	// Pending bookings never held seats, so the pool is untouched.
	assert.Equal(t, uint32(10), inv.available(1))
}
