package model

import "time"

// Room represents a bookable hotel room.  For booking purposes only
// the identity matters; the display attributes are served to guests
// browsing the catalogue.  This struct corresponds to a row in the
// `rooms` table.
//
// Fields:
//  ID               – primary key identifier.
//  RoomNumber       – unique human-facing room number (e.g. "204").
//  RoomType         – category of the room (e.g. STANDARD, DELUXE).
//  Description      – optional free-text description.
//  NightlyRateCents – price per night in cents.
//  IsActive         – whether the room can accept new bookings.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Room struct {
    ID               uint64    // rooms.id
    RoomNumber       string    // rooms.room_number
    RoomType         string    // rooms.room_type
    Description      *string   // rooms.description (nullable)
    NightlyRateCents uint32    // rooms.nightly_rate_cents
    IsActive         bool      // rooms.is_active
    CreatedAt        time.Time // rooms.created_at
    UpdatedAt        time.Time // rooms.updated_at
}
