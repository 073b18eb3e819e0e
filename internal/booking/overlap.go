// Package booking implements the reservation and payment settlement
// core: the date-range overlap check, the cancellation refund policy,
// the booking lifecycle state machine and the settlement reconciler.
// The package is transport-agnostic; HTTP handlers and the background
// sweep call into it through small interfaces so every piece can be
// tested without a database or a broker.
package booking

import "time"

// DateRange is a half-open interval [CheckIn, CheckOut).  The
// checkout date is exclusive so a departing guest's checkout day can
// be another guest's check-in day.  Both values are calendar dates at
// UTC midnight.
type DateRange struct {
    CheckIn  time.Time
    CheckOut time.Time
}

// Valid reports whether the range represents at least one night.
// Zero-night and inverted ranges are rejected by validation before
// they ever reach the overlap checker.
func (r DateRange) Valid() bool {
    return r.CheckIn.Before(r.CheckOut)
}

// Nights returns the number of nights covered by the range.
func (r DateRange) Nights() int {
    return int(r.CheckOut.Sub(r.CheckIn) / (24 * time.Hour))
}

// Overlaps reports whether two half-open ranges intersect.  Ranges
// that merely touch (one's checkout equals the other's check-in) do
// not overlap.
func (r DateRange) Overlaps(o DateRange) bool {
    return r.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(r.CheckOut)
}

// Contains reports whether the given date falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
    return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// IsAvailable reports whether the candidate range can be booked given
// the set of currently active (PENDING or CONFIRMED) ranges for the
// same room.  This is a pure check; the authoritative version runs
// inside the ledger transaction that inserts the booking, where the
// active rows are read under lock.
func IsAvailable(candidate DateRange, active []DateRange) bool {
    for _, a := range active {
        if candidate.Overlaps(a) {
            return false
        }
    }
    return true
}

// Date truncates an instant to its UTC calendar date.  All booking
// dates are normalized through this before they are stored or
// compared.
func Date(t time.Time) time.Time {
    t = t.UTC()
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
