// Package mailer renders booking receipts.  Actual email delivery is an
// external collaborator; this package defines the boundary and ships a
// file-backed implementation that is useful in development and as an audit
// trail.  Receipts are strictly best-effort: failures are logged by the
// caller and never propagate into the booking flow.
package mailer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Receipt summarizes a paid booking for the payer.
type Receipt struct {
	BookingID   uint64
	UserEmail   string
	UserName    string
	EventTitle  string
	Seats       uint32
	AmountCents uint32
	ConfirmedAt string
}

// Sender delivers a receipt to the payer's contact address.
type Sender interface {
	SendReceipt(r Receipt) error
}

// FileSender appends rendered receipts to a log file.  It stands in for a
// real mail provider behind the same interface.
type FileSender struct {
	Dir string // directory for the receipts log; defaults to "logs"
}

// SendReceipt appends a single-line rendering of the receipt to
// <dir>/receipts.log.
func (s *FileSender) SendReceipt(r Receipt) error {
	dir := s.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	fpath := filepath.Join(dir, "receipts.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open receipts log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Receipt | booking_id=%d | to=%s | name=%q | event=%q | seats=%d | total=%d cents\n",
		r.ConfirmedAt, r.BookingID, r.UserEmail, r.UserName, r.EventTitle, r.Seats, r.AmountCents)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write receipt: %w", err)
	}
	return nil
}
