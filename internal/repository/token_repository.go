package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo persists refresh-token sessions.  Only the SHA-256 hash of a
// token is ever stored, so a leaked table cannot be replayed against the
// API.  Revocation is a soft delete via revoked_at: like bookings, session
// rows are never removed, which keeps an audit trail of every login.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo returns a new TokenRepo bound to the given database.
func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh records a new refresh session for the user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, userID, tokenHash, expiresAt.UTC())
	return err
}

// ValidateRefresh resolves a token hash to its user.  Unknown, revoked and
// expired tokens all yield ErrRefreshInvalid.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	const q = `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRefreshInvalid
	}
	if err != nil {
		return 0, err
	}
	var revoked *time.Time
	if revokedAt.Valid {
		revoked = &revokedAt.Time
	}
	if !refreshUsable(expiresAt, revoked, time.Now().UTC()) {
		return 0, ErrRefreshInvalid
	}
	return userID, nil
}

// refreshUsable reports whether a session expiring at expiresAt, revoked at
// revokedAt (nil while active), is still usable at now.
func refreshUsable(expiresAt time.Time, revokedAt *time.Time, now time.Time) bool {
	if revokedAt != nil {
		return false
	}
	return now.Before(expiresAt)
}

// RevokeByHash ends a single session.  Already-revoked rows are left alone
// so revoked_at keeps the original revocation time.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, tokenHash)
	return err
}

// RevokeAllForUser ends every active session of the user, which is what a
// logout without a specific refresh token means.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	const q = `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = ? AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, userID)
	return err
}
