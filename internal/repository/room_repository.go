package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// RoomRepo provides CRUD operations for the rooms catalogue.  Rooms
// are immutable for booking purposes beyond their identity; the
// display attributes here feed the public browse endpoints.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo returns a RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, room_number, room_type, description, nightly_rate_cents, is_active, created_at, updated_at`

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
    var rm model.Room
    var desc sql.NullString
    err := row.Scan(&rm.ID, &rm.RoomNumber, &rm.RoomType, &desc,
        &rm.NightlyRateCents, &rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if desc.Valid {
        d := desc.String
        rm.Description = &d
    }
    return &rm, nil
}

// Create inserts a room and populates its generated ID.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO rooms (room_number, room_type, description, nightly_rate_cents, is_active)
         VALUES (?, ?, ?, ?, ?)`,
        rm.RoomNumber, rm.RoomType, rm.Description, rm.NightlyRateCents, rm.IsActive)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rm.ID = uint64(id)
    return nil
}

// Update overwrites the mutable attributes of a room.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE rooms SET room_number = ?, room_type = ?, description = ?,
                nightly_rate_cents = ?, is_active = ?, updated_at = UTC_TIMESTAMP()
         WHERE id = ?`,
        rm.RoomNumber, rm.RoomType, rm.Description, rm.NightlyRateCents, rm.IsActive, rm.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrRoomNotFound
    }
    return nil
}

// GetByID returns the room with the given id or ErrRoomNotFound.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
    rm, err := scanRoom(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrRoomNotFound
    }
    return rm, err
}

// ListActive returns all rooms accepting bookings, ordered by room
// number for deterministic output.
func (r *RoomRepo) ListActive(ctx context.Context) ([]model.Room, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+roomColumns+` FROM rooms WHERE is_active = 1 ORDER BY room_number`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Room, 0)
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *rm)
    }
    return out, rows.Err()
}
