package booking

import (
    "errors"

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// Errors surfaced by the state machine and reconciler.  These are
// sentinel values so callers can distinguish policy rejections and
// data conflicts from genuine faults with errors.Is.
var (
    // ErrIllegalTransition is returned when a requested transition is
    // not part of the lifecycle, e.g. failing a CONFIRMED booking or
    // confirming one that already failed.  The booking is never
    // mutated.  Callers must not retry.
    ErrIllegalTransition = errors.New("illegal booking state transition")

    // ErrConflictingSettlement is returned when a success signal
    // carries a settlement reference different from the one already
    // recorded on a CONFIRMED booking.  It indicates a gateway or
    // data inconsistency that needs manual review.
    ErrConflictingSettlement = errors.New("conflicting settlement reference")

    // ErrCancellationNotAllowed is returned when the refund policy or
    // the booking's status forbids cancellation.  It is a policy
    // rejection, not a system fault.
    ErrCancellationNotAllowed = errors.New("cancellation not allowed")

    // ErrMissingSettlementRef is returned when a confirmation is
    // attempted without the gateway transaction identifier.
    ErrMissingSettlementRef = errors.New("settlement reference required to confirm")

    // ErrOrderMismatch is returned when a settlement signal references
    // an order that does not belong to the booking.
    ErrOrderMismatch = errors.New("order reference does not match booking")
)

// transitions enumerates the legal lifecycle moves.  Everything not
// listed here is illegal; no transition ever leaves PAYMENT_FAILED or
// CANCELLED, and a booking never returns to PENDING.
var transitions = map[string][]string{
    model.StatusPending:   {model.StatusConfirmed, model.StatusPaymentFailed, model.StatusCancelled},
    model.StatusConfirmed: {model.StatusCancelled},
}

// CanTransition reports whether moving a booking from one status to
// another is part of the lifecycle.
func CanTransition(from, to string) bool {
    for _, t := range transitions[from] {
        if t == to {
            return true
        }
    }
    return false
}

// Cancellable reports whether a booking in the given status may still
// be cancelled.
func Cancellable(status string) bool {
    return CanTransition(status, model.StatusCancelled)
}

// CheckConfirm validates a request to settle the booking as paid with
// the given settlement reference.  It returns (changed=false, nil)
// when the booking is already CONFIRMED with the same reference, the
// idempotent no-op that makes duplicate webhook and poll deliveries
// safe.  It returns (true, nil) when a PENDING booking may be
// confirmed, and an error in every other case.  The actual write is
// the ledger's compare-and-swap; this guard never mutates anything.
func CheckConfirm(b *model.Booking, settlementRef string) (changed bool, err error) {
    if settlementRef == "" {
        return false, ErrMissingSettlementRef
    }
    switch b.Status {
    case model.StatusConfirmed:
        if b.SettlementRef != nil && *b.SettlementRef == settlementRef {
            return false, nil
        }
        return false, ErrConflictingSettlement
    case model.StatusPending:
        return true, nil
    default:
        return false, ErrIllegalTransition
    }
}

// CheckFail validates a request to end the booking as PAYMENT_FAILED
// after an explicit gateway failure or payment-window expiry.  Already
// failed bookings are an idempotent no-op.
func CheckFail(b *model.Booking) (changed bool, err error) {
    switch b.Status {
    case model.StatusPaymentFailed:
        return false, nil
    case model.StatusPending:
        return true, nil
    default:
        return false, ErrIllegalTransition
    }
}
