// Package repository implements the persistence layer on top of
// database/sql.  This file defines sentinel error values reused across
// repositories so that higher layers can distinguish failure scenarios
// with errors.Is without depending on driver specifics.
package repository

import "errors"

// ErrEventNotFound is returned when a referenced event does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound is returned when a booking does not exist or does not
// belong to the requesting user.  Ownership is enforced inside the query so
// callers cannot distinguish the two cases.
var ErrBookingNotFound = errors.New("booking not found")

// ErrEmailExists is returned when registering a user with an email address
// that is already taken.  Handlers should translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrRefreshInvalid is returned when a refresh token is unknown, revoked or
// expired.  The three cases collapse into one error so callers cannot tell
// which applied; handlers translate it into HTTP 401.
var ErrRefreshInvalid = errors.New("refresh token invalid")
