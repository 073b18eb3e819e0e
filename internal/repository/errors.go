// Package repository implements the reservation ledger and the other
// persistence layers on top of database/sql.  This file defines error
// types that are reused across multiple repositories.  These sentinel
// values allow higher layers such as handlers and the settlement
// reconciler to distinguish between different failure scenarios with
// errors.Is.
package repository

import "errors"

// ErrRoomUnavailable is returned when a booking cannot be created
// because the requested range overlaps an active (PENDING or
// CONFIRMED) booking on the same room.  Handlers should translate
// this into an HTTP 409 response telling the guest the range is
// unavailable rather than a generic failure.
var ErrRoomUnavailable = errors.New("room unavailable for requested dates")

// ErrStaleWrite is returned when a conditional update finds that the
// booking's status or version changed since it was read.  It is an
// internal signal: the caller re-reads the row and retries a bounded
// number of times.  It must never reach an external caller as a final
// answer.
var ErrStaleWrite = errors.New("stale write: booking was modified concurrently")

// ErrBookingNotFound is returned when no booking exists for the given
// identifier.  Handlers should translate this into an HTTP 404.
var ErrBookingNotFound = errors.New("booking not found")

// ErrRoomNotFound is returned when no room exists for the given
// identifier.
var ErrRoomNotFound = errors.New("room not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as cancelling another guest's
// booking.  Handlers should translate this into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registration collides with an
// existing account.
var ErrEmailExists = errors.New("email already exists")
