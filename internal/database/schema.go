package database

import (
	"context"
	"database/sql"
)

// Migrate creates the schema when it does not exist yet.  Statements are
// idempotent so the server can run them on every boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			email         VARCHAR(255)    NOT NULL UNIQUE,
			full_name     VARCHAR(255)    NULL,
			password_hash VARCHAR(255)    NOT NULL,
			is_active     TINYINT(1)      NOT NULL DEFAULT 1,
			created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP
				ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id    BIGINT UNSIGNED NOT NULL,
			token_hash CHAR(64)        NOT NULL UNIQUE,
			expires_at DATETIME        NOT NULL,
			revoked_at DATETIME        NULL,
			created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_refresh_user (user_id),
			CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id)
				ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS events (
			id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			title           VARCHAR(255)    NOT NULL,
			description     TEXT            NULL,
			venue           VARCHAR(255)    NULL,
			starts_at       DATETIME        NOT NULL,
			price_cents     INT UNSIGNED    NOT NULL,
			total_seats     INT UNSIGNED    NOT NULL,
			available_seats INT UNSIGNED    NOT NULL,
			created_at      DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_events_starts (starts_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
			user_id      BIGINT UNSIGNED NOT NULL,
			event_id     BIGINT UNSIGNED NOT NULL,
			seats        INT UNSIGNED    NOT NULL,
			amount_cents INT UNSIGNED    NOT NULL,
			status       VARCHAR(16)     NOT NULL DEFAULT 'PENDING',
			payment_ref  VARCHAR(255)    NULL,
			created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP
				ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_bookings_user (user_id),
			KEY idx_bookings_event (event_id),
			KEY idx_bookings_status (status),
			CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id),
			CONSTRAINT fk_bookings_event FOREIGN KEY (event_id) REFERENCES events (id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
