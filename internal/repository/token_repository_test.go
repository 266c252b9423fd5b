package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshUsable(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	revoked := now.Add(-time.Hour)

	cases := []struct {
		name      string
		expiresAt time.Time
		revokedAt *time.Time
		want      bool
	}{
		{"active", now.Add(time.Hour), nil, true},
		{"expired", now.Add(-time.Minute), nil, false},
		{"expires exactly now", now, nil, false},
		{"revoked", now.Add(time.Hour), &revoked, false},
		{"revoked and expired", now.Add(-time.Minute), &revoked, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, refreshUsable(tc.expiresAt, tc.revokedAt, now))
		})
	}
}
