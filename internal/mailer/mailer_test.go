package mailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSenderAppendsReceipts(t *testing.T) {
	dir := t.TempDir()
	s := &FileSender{Dir: dir}

	r := Receipt{
		BookingID:   9,
		UserEmail:   "payer@example.com",
		UserName:    "Payer",
		EventTitle:  "Concert",
		Seats:       2,
		AmountCents: 5000,
		ConfirmedAt: "2026-09-01T10:00:00Z",
	}
	require.NoError(t, s.SendReceipt(r))
	require.NoError(t, s.SendReceipt(r))

	data, err := os.ReadFile(filepath.Join(dir, "receipts.log"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "booking_id=9")
	assert.Contains(t, content, "to=payer@example.com")
	assert.Contains(t, content, `event="Concert"`)
	// Two sends append two lines.
	assert.Equal(t, 2, countLines(content))
}

func countLines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}
