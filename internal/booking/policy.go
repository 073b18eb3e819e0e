package booking

import "time"

// Refund tiers in whole days before arrival.  Standard calendar:
// seven or more days earns a full refund, three to six days half,
// anything closer nothing.  Inside a peak window the thresholds double
// to fourteen and seven days.
const (
    stdFullRefundDays  = 7
    stdHalfRefundDays  = 3
    peakFullRefundDays = 14
    peakHalfRefundDays = 7
)

// RefundPolicy evaluates cancellation requests against the configured
// peak calendar.  Peak windows are half-open date ranges (a fixed
// winter or spring season, named festival dates and so on) loaded
// from configuration; the policy itself reads no ambient state so it
// stays independently testable.
type RefundPolicy struct {
    // PeakWindows lists the date ranges during which the stricter
    // refund thresholds apply.  A booking is "peak" when its arrival
    // date falls inside any window.
    PeakWindows []DateRange
}

// RefundQuote is the outcome of a policy evaluation.
//
// Percent is always computable (0, 50 or 100) regardless of whether
// the cancellation is permitted.  Allowed is false only for no-shows:
// once the arrival date has passed the booking can no longer be
// cancelled.  Whether the booking's status permits cancellation at
// all is the state machine's concern, not the policy's.
type RefundQuote struct {
    Percent uint8
    Allowed bool
}

// DaysBefore returns the number of whole calendar days between now
// and the arrival date.  Both instants are truncated to their UTC
// calendar date first, so a request at 23:59 seven days before
// arrival still counts as seven days, never six.  The result is
// negative when the arrival date has already passed.
func DaysBefore(arrival, now time.Time) int {
    return int(Date(arrival).Sub(Date(now)) / (24 * time.Hour))
}

// IsPeak reports whether the arrival date falls inside a configured
// peak window.
func (p RefundPolicy) IsPeak(arrival time.Time) bool {
    d := Date(arrival)
    for _, w := range p.PeakWindows {
        if w.Contains(d) {
            return true
        }
    }
    return false
}

// Evaluate computes the refund quote for cancelling a booking that
// arrives on the given date when the clock reads now.
func (p RefundPolicy) Evaluate(arrival, now time.Time) RefundQuote {
    days := DaysBefore(arrival, now)
    if days < 0 {
        // No-show: the percentage is still reported but cancellation
        // is no longer permitted.
        return RefundQuote{Percent: 0, Allowed: false}
    }

    full, half := stdFullRefundDays, stdHalfRefundDays
    if p.IsPeak(arrival) {
        full, half = peakFullRefundDays, peakHalfRefundDays
    }

    q := RefundQuote{Allowed: true}
    switch {
    case days >= full:
        q.Percent = 100
    case days >= half:
        q.Percent = 50
    default:
        q.Percent = 0
    }
    return q
}
