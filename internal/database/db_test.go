package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSNWithPassword(t *testing.T) {
	got := dsn("app", "s3cret", "db", "3306", "booking")
	assert.Equal(t, "app:s3cret@tcp(db:3306)/booking?charset=utf8mb4&parseTime=true&loc=UTC", got)
}

func TestDSNWithoutPassword(t *testing.T) {
	got := dsn("root", "", "localhost", "3306", "booking")
	assert.Equal(t, "root@tcp(localhost:3306)/booking?charset=utf8mb4&parseTime=true&loc=UTC", got)
}
