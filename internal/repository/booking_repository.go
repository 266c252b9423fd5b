package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// BookingRepo is the booking ledger: the durable record of booking attempts
// and their lifecycle state.  Rows are never deleted; every lifecycle change
// goes through Transition, which applies the change only when the current
// status matches the expected prior value.  That guarded UPDATE is what
// prevents two concurrent confirmations from both flipping the same booking.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts a new booking in PENDING state and populates the generated
// ID and timestamps on the provided model.  PaymentRef may already be set
// when the payment intent was issued before the row is written.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, event_id, seats, amount_cents, status, payment_ref)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.UserID, b.EventID, b.Seats, b.AmountCents, model.BookingPending, b.PaymentRef)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingPending
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// SetPaymentRef attaches an external payment intent reference to a booking.
func (r *BookingRepo) SetPaymentRef(ctx context.Context, id uint64, ref string) error {
	const q = `UPDATE bookings SET payment_ref = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, ref, id)
	return err
}

// Transition atomically moves a booking from one status to another.  The
// UPDATE only matches when the current status equals from, so a caller that
// lost a concurrent race sees false rather than silently overwriting the
// winner's state.
func (r *BookingRepo) Transition(ctx context.Context, id uint64, from, to string) (bool, error) {
	const q = `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetByID returns a booking regardless of owner.  It returns
// ErrBookingNotFound when no row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, event_id, seats, amount_cents, status, payment_ref, created_at, updated_at
	           FROM bookings WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

// GetByIDForUser returns a booking only when it belongs to the given user.
// Ownership is enforced in the query itself; a booking owned by someone
// else is indistinguishable from a missing one.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, event_id, seats, amount_cents, status, payment_ref, created_at, updated_at
	           FROM bookings WHERE id = ? AND user_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id, userID))
}

// ListByUser returns all bookings for the given user, newest first.  When
// no bookings exist an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT id, user_id, event_id, seats, amount_cents, status, payment_ref, created_at, updated_at
	           FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		var ref sql.NullString
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.Seats, &b.AmountCents,
			&b.Status, &ref, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if ref.Valid {
			v := ref.String
			b.PaymentRef = &v
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ExpireStale transitions PENDING bookings created before the cutoff to
// EXPIRED and returns how many rows were swept.  This is ledger hygiene
// only: pending bookings never held seats, so no inventory compensation is
// needed.
func (r *BookingRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `UPDATE bookings SET status = ? WHERE status = ? AND created_at < ?`
	res, err := r.db.ExecContext(ctx, q, model.BookingExpired, model.BookingPending, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevenueStats returns the total revenue in minor units and the number of
// paid bookings across the whole ledger.
func (r *BookingRepo) RevenueStats(ctx context.Context) (revenueCents uint64, ticketsSold uint64, err error) {
	const q = `SELECT COALESCE(SUM(amount_cents), 0), COALESCE(SUM(seats), 0)
	           FROM bookings WHERE status = ?`
	err = r.db.QueryRowContext(ctx, q, model.BookingPaid).Scan(&revenueCents, &ticketsSold)
	return revenueCents, ticketsSold, err
}

func (r *BookingRepo) scanOne(row *sql.Row) (*model.Booking, error) {
	var b model.Booking
	var ref sql.NullString
	err := row.Scan(
		&b.ID, &b.UserID, &b.EventID, &b.Seats, &b.AmountCents,
		&b.Status, &ref, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if ref.Valid {
		v := ref.String
		b.PaymentRef = &v
	}
	return &b, nil
}
