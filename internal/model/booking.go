package model

import "time"

// Booking statuses.  A booking starts in PENDING and moves forward
// through the lifecycle exactly once: PENDING may become CONFIRMED,
// PAYMENT_FAILED or CANCELLED, and CONFIRMED may still become
// CANCELLED.  No other transition exists; in particular a failed
// payment never returns to PENDING; the guest must create a new
// booking to retry.
const (
    StatusPending       = "PENDING"
    StatusConfirmed     = "CONFIRMED"
    StatusPaymentFailed = "PAYMENT_FAILED"
    StatusCancelled     = "CANCELLED"
)

// Booking records a guest's reservation of a single room for a
// half-open date range [CheckIn, CheckOut).  The checkout day is
// exclusive so a departing guest's checkout day may be another
// guest's check-in day.
//
// Fields:
//  ID               – primary key identifier.
//  RoomID           – room being reserved.
//  GuestID          – user who created the booking.
//  CheckIn          – arrival date (inclusive), stored as a UTC date.
//  CheckOut         – departure date (exclusive), stored as a UTC date.
//  Status           – lifecycle state (PENDING, CONFIRMED,
//                     PAYMENT_FAILED, CANCELLED).
//  PaymentRef       – gateway order reference assigned at creation,
//                     before any payment happens.
//  SettlementRef    – gateway transaction identifier, set exactly once
//                     when the booking is confirmed.  Non-nil iff
//                     Status is CONFIRMED.
//  RefundPercent    – refund percentage recorded when the booking is
//                     cancelled (nil otherwise).
//  TotalAmountCents – price agreed at creation; immutable afterwards.
//  Version          – optimistic concurrency token, incremented on
//                     every mutation.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Booking struct {
    ID               uint64     // bookings.id
    RoomID           uint64     // bookings.room_id
    GuestID          uint64     // bookings.guest_id
    CheckIn          time.Time  // bookings.check_in
    CheckOut         time.Time  // bookings.check_out
    Status           string     // bookings.status
    PaymentRef       string     // bookings.payment_ref
    SettlementRef    *string    // bookings.settlement_ref (nullable)
    RefundPercent    *uint8     // bookings.refund_percent (nullable)
    TotalAmountCents uint32     // bookings.total_amount_cents
    Version          uint32     // bookings.version
    CreatedAt        time.Time  // bookings.created_at
    UpdatedAt        time.Time  // bookings.updated_at
}

// Terminal reports whether the booking can never change state again.
// CONFIRMED is terminal for payment purposes but still cancellable, so
// it is not terminal here.
func (b *Booking) Terminal() bool {
    return b.Status == StatusPaymentFailed || b.Status == StatusCancelled
}
