package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-booking/internal/model"
)

// EventRepo is the inventory store: the durable record of each event's
// total and available seat counts.  AvailableSeats is only ever mutated
// through TryDecrementSeats and IncrementSeats, both of which execute a
// single conditional UPDATE so concurrent callers observe a serialized
// view of the counter.  No handler writes the column directly.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts a new event.  AvailableSeats always starts equal to
// TotalSeats.  The generated ID and timestamps are populated on the
// provided model.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events (title, description, venue, starts_at, price_cents, total_seats, available_seats)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.Venue, ev.StartsAt.UTC(), ev.PriceCents, ev.TotalSeats, ev.TotalSeats)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	ev.AvailableSeats = ev.TotalSeats
	ev.CreatedAt = time.Now().UTC()
	return nil
}

// GetByID returns a single event.  It returns ErrEventNotFound when no row
// exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, title, description, venue, starts_at, price_cents, total_seats, available_seats, created_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Venue, &ev.StartsAt,
		&ev.PriceCents, &ev.TotalSeats, &ev.AvailableSeats, &ev.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// List returns events ordered by start time ascending with offset/limit
// pagination.  When no events exist an empty slice is returned.
func (r *EventRepo) List(ctx context.Context, offset, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT id, title, description, venue, starts_at, price_cents, total_seats, available_seats, created_at
	           FROM events ORDER BY starts_at ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(
			&ev.ID, &ev.Title, &ev.Description, &ev.Venue, &ev.StartsAt,
			&ev.PriceCents, &ev.TotalSeats, &ev.AvailableSeats, &ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// TryDecrementSeats atomically decrements available_seats by n iff at least
// n seats remain, and reports whether it succeeded.  The availability check
// and the write happen in one UPDATE statement, so there is no
// read-then-write window for concurrent callers to race through.  Running
// out of seats is an expected outcome, not an error.
func (r *EventRepo) TryDecrementSeats(ctx context.Context, id uint64, n uint32) (bool, error) {
	const q = `UPDATE events SET available_seats = available_seats - ?
	           WHERE id = ? AND available_seats >= ?`
	res, err := r.db.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// IncrementSeats atomically releases n seats back to the pool, capped so
// available_seats never exceeds total_seats.  Used to roll back a decrement
// whose paired status transition lost its race.
func (r *EventRepo) IncrementSeats(ctx context.Context, id uint64, n uint32) error {
	const q = `UPDATE events SET available_seats = LEAST(total_seats, available_seats + ?)
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, n, id)
	return err
}

// Occupancy summarizes seats sold per event for the admin dashboard.
type Occupancy struct {
	Name  string `json:"name"`
	Sold  uint32 `json:"sold"`
	Total uint32 `json:"total"`
}

// OccupancyStats returns sold/total seat counts for every event.  Sold is
// derived from the inventory counters rather than the ledger so it always
// matches what confirmation actually committed.
func (r *EventRepo) OccupancyStats(ctx context.Context) ([]Occupancy, error) {
	const q = `SELECT title, total_seats - available_seats, total_seats FROM events ORDER BY starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := make([]Occupancy, 0)
	for rows.Next() {
		var o Occupancy
		if err := rows.Scan(&o.Name, &o.Sold, &o.Total); err != nil {
			return nil, err
		}
		stats = append(stats, o)
	}
	return stats, rows.Err()
}
