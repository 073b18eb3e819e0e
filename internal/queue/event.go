// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names for booking notifications.  Both queues are durable so
// notification events survive a broker restart.
const (
    BookingConfirmedQueue = "booking.confirmed"
    BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published exactly once per real-world
// payment outcome, when the settlement reconciler performs the
// first-time PENDING -> CONFIRMED transition.  It carries enough
// information for the notification worker to compose the guest's
// confirmation email without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID        uint64 `json:"booking_id"`
    GuestID          uint64 `json:"guest_id"`
    RoomID           uint64 `json:"room_id"`
    CheckIn          string `json:"check_in"`
    CheckOut         string `json:"check_out"`
    PaymentRef       string `json:"payment_ref"`
    SettlementRef    string `json:"settlement_ref"`
    TotalAmountCents uint32 `json:"total_amount_cents"`
    ConfirmedAt      string `json:"confirmed_at"`
}

// BookingCancelledEvent is published when a guest cancels a booking.
// RefundPercent carries the policy outcome so downstream refund
// processing needs no further lookup.
type BookingCancelledEvent struct {
    BookingID        uint64 `json:"booking_id"`
    GuestID          uint64 `json:"guest_id"`
    RoomID           uint64 `json:"room_id"`
    CheckIn          string `json:"check_in"`
    CheckOut         string `json:"check_out"`
    RefundPercent    uint8  `json:"refund_percent"`
    TotalAmountCents uint32 `json:"total_amount_cents"`
    CancelledAt      string `json:"cancelled_at"`
}
