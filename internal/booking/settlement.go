package booking

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/iliyamo/hotel-reservation/internal/model"
    "github.com/iliyamo/hotel-reservation/internal/repository"
)

// Source tags where a settlement signal came from.  The gateway
// pushes a webhook and the paying client polls; either may arrive
// first, multiple times, or not at all, and the reconciler must
// behave identically under any interleaving.
type Source string

const (
    SourceWebhook Source = "webhook"
    SourcePoll    Source = "poll"
)

// Outcome states as reported by the payment gateway.
type OutcomeState string

const (
    // OutcomePaid means the gateway captured the payment.  The order
    // is only fully settled when DueCents is zero.
    OutcomePaid OutcomeState = "PAID"
    // OutcomeFailed is an explicit failure report from the gateway.
    OutcomeFailed OutcomeState = "FAILED"
    // OutcomePending means the gateway has no final answer yet.  It
    // never fails a booking; confirmation may simply be delayed.
    OutcomePending OutcomeState = "PENDING"
)

// Outcome is a payment confirmation or failure signal for a booking.
type Outcome struct {
    Source        Source
    OrderRef      string
    SettlementRef string
    PaidCents     uint32
    DueCents      uint32
    State         OutcomeState
}

// SettlementResult reports what a Reconcile call did.  Changed is
// true only when this call actually performed the transition, not
// when it found the booking already settled; notification dispatch is
// gated on that distinction so a webhook/poll race produces exactly
// one email.
type SettlementResult struct {
    BookingID uint64
    Status    string
    Changed   bool
    Notified  bool
}

// ErrContention is returned when the bounded retry budget for
// StaleWrite conflicts is exhausted.  It is transient: the caller may
// simply try again.
var ErrContention = errors.New("booking is being updated concurrently, retry later")

// ErrInvalidRange rejects zero-night or inverted date ranges before
// they reach the overlap checker.
var ErrInvalidRange = errors.New("check-in date must be before check-out date")

// ErrStayTooLong rejects ranges longer than MaxStayNights.
var ErrStayTooLong = errors.New("stay exceeds the maximum booking length")

// MaxStayNights caps a single booking.  Beyond keeping requests sane,
// the cap bounds nights * nightly_rate_cents well inside uint32 so
// the total can never wrap.
const MaxStayNights = 90

// settleRetries bounds how many times a reconciliation re-reads and
// retries after losing a compare-and-swap race.
const settleRetries = 3

// Ledger is the persisted collection of bookings.  The two write
// primitives are atomic: CreateIfAvailable performs the overlap check
// and the insert in one transaction, and the transition methods are
// conditional updates guarded by the status and version read at the
// start of the operation, failing with repository.ErrStaleWrite on a
// concurrent modification.
type Ledger interface {
    CreateIfAvailable(ctx context.Context, b *model.Booking) error
    GetByID(ctx context.Context, id uint64) (*model.Booking, error)
    Confirm(ctx context.Context, id uint64, version uint32, settlementRef string) error
    Fail(ctx context.Context, id uint64, version uint32) error
    Cancel(ctx context.Context, id uint64, fromStatus string, version uint32, refundPercent uint8) error
    ExpiredPending(ctx context.Context, olderThan time.Time) ([]model.Booking, error)
}

// Notifier dispatches downstream notifications.  Delivery is fire and
// forget: errors are logged and never affect the outcome of the
// transition that triggered them.
type Notifier interface {
    BookingConfirmed(ctx context.Context, b *model.Booking) error
    BookingCancelled(ctx context.Context, b *model.Booking) error
}

// Service drives bookings through their lifecycle.  It owns no state
// of its own; every mutation goes through the ledger's guarded
// primitives so concurrent request handlers can race safely.
type Service struct {
    ledger   Ledger
    notifier Notifier
    policy   RefundPolicy
}

// NewService constructs a Service.  The notifier may not be nil; pass
// a no-op implementation in tests.
func NewService(ledger Ledger, notifier Notifier, policy RefundPolicy) *Service {
    if ledger == nil || notifier == nil {
        panic("nil dependency passed to booking.NewService")
    }
    return &Service{ledger: ledger, notifier: notifier, policy: policy}
}

// Policy exposes the configured refund policy, e.g. for quoting a
// refund to the guest before they commit to cancelling.
func (s *Service) Policy() RefundPolicy { return s.policy }

// Create books the room for the guest over the given range.  The
// overlap check against active bookings runs inside the same ledger
// transaction as the insert, so two guests racing for the same dates
// cannot both succeed.  The returned booking is PENDING with a fresh
// gateway order reference; payment happens out of band.
func (s *Service) Create(ctx context.Context, roomID, guestID uint64, r DateRange, orderRef string, amountCents uint32) (*model.Booking, error) {
    r = DateRange{CheckIn: Date(r.CheckIn), CheckOut: Date(r.CheckOut)}
    if !r.Valid() {
        return nil, ErrInvalidRange
    }
    if r.Nights() > MaxStayNights {
        return nil, ErrStayTooLong
    }
    b := &model.Booking{
        RoomID:           roomID,
        GuestID:          guestID,
        CheckIn:          r.CheckIn,
        CheckOut:         r.CheckOut,
        Status:           model.StatusPending,
        PaymentRef:       orderRef,
        TotalAmountCents: amountCents,
    }
    if err := s.ledger.CreateIfAvailable(ctx, b); err != nil {
        return nil, err
    }
    return b, nil
}

// Reconcile consumes a settlement signal and drives the booking to
// its terminal payment state exactly once, however many times and in
// whatever order the webhook and poll signals arrive.
//
// The loop re-reads the booking and retries when a compare-and-swap
// loses to a concurrent writer; any other transition failure is a
// non-retryable conflict.  Only a successful first-time confirmation
// dispatches the confirmation notification.
func (s *Service) Reconcile(ctx context.Context, bookingID uint64, oc Outcome) (SettlementResult, error) {
    for attempt := 0; attempt < settleRetries; attempt++ {
        b, err := s.ledger.GetByID(ctx, bookingID)
        if err != nil {
            return SettlementResult{}, err
        }
        if oc.OrderRef != "" && oc.OrderRef != b.PaymentRef {
            return SettlementResult{}, ErrOrderMismatch
        }
        res := SettlementResult{BookingID: b.ID, Status: b.Status}

        switch {
        case oc.State == OutcomePending:
            // No authoritative answer from the gateway yet.  Report
            // the current state; never fail the booking on silence.
            return res, nil

        case oc.State == OutcomePaid && oc.DueCents == 0:
            changed, err := CheckConfirm(b, oc.SettlementRef)
            if err != nil {
                return res, err
            }
            if !changed {
                // Already CONFIRMED with the same settlement
                // reference: idempotent success, no write, no
                // notification.
                return res, nil
            }
            if err := s.ledger.Confirm(ctx, b.ID, b.Version, oc.SettlementRef); err != nil {
                if errors.Is(err, repository.ErrStaleWrite) {
                    continue
                }
                return res, err
            }
            res.Status = model.StatusConfirmed
            res.Changed = true
            b.Status = model.StatusConfirmed
            b.SettlementRef = &oc.SettlementRef
            if nerr := s.notifier.BookingConfirmed(ctx, b); nerr != nil {
                log.Printf("settlement: confirmation notify failed for booking %d: %v", b.ID, nerr)
            } else {
                res.Notified = true
            }
            return res, nil

        default:
            // Explicit gateway failure, or a capture that left an
            // outstanding due amount.
            changed, err := CheckFail(b)
            if err != nil {
                return res, err
            }
            if !changed {
                return res, nil
            }
            if err := s.ledger.Fail(ctx, b.ID, b.Version); err != nil {
                if errors.Is(err, repository.ErrStaleWrite) {
                    continue
                }
                return res, err
            }
            res.Status = model.StatusPaymentFailed
            res.Changed = true
            return res, nil
        }
    }
    return SettlementResult{}, ErrContention
}

// Cancel cancels the booking on behalf of the guest, recording the
// refund percentage computed by the policy.  requestedBy must match
// the booking's guest unless zero (administrative caller).
func (s *Service) Cancel(ctx context.Context, bookingID, requestedBy uint64, now time.Time) (uint8, error) {
    for attempt := 0; attempt < settleRetries; attempt++ {
        b, err := s.ledger.GetByID(ctx, bookingID)
        if err != nil {
            return 0, err
        }
        if requestedBy != 0 && b.GuestID != requestedBy {
            return 0, repository.ErrForbidden
        }
        if !Cancellable(b.Status) {
            return 0, ErrCancellationNotAllowed
        }
        q := s.policy.Evaluate(b.CheckIn, now)
        if !q.Allowed {
            return 0, ErrCancellationNotAllowed
        }
        if err := s.ledger.Cancel(ctx, b.ID, b.Status, b.Version, q.Percent); err != nil {
            if errors.Is(err, repository.ErrStaleWrite) {
                continue
            }
            return 0, err
        }
        b.Status = model.StatusCancelled
        b.RefundPercent = &q.Percent
        if nerr := s.notifier.BookingCancelled(ctx, b); nerr != nil {
            log.Printf("settlement: cancellation notify failed for booking %d: %v", b.ID, nerr)
        }
        return q.Percent, nil
    }
    return 0, ErrContention
}
