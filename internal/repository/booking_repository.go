package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/iliyamo/hotel-reservation/internal/model"
)

// BookingRepo is the reservation ledger.  It provides the two atomic
// primitives the settlement core is built on: an insert that performs
// the overlap check in the same transaction, and conditional updates
// guarded by the status and version read at the start of an
// operation.  A booking row is never physically locked across
// requests; concurrent writers are detected by the guards and
// reported as ErrStaleWrite.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for callers that need to compose
// transactions across repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, room_id, guest_id, check_in, check_out, status,
       payment_ref, settlement_ref, refund_percent, total_amount_cents,
       version, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
    var b model.Booking
    var settlementRef sql.NullString
    var refundPercent sql.NullInt16
    err := row.Scan(
        &b.ID, &b.RoomID, &b.GuestID, &b.CheckIn, &b.CheckOut, &b.Status,
        &b.PaymentRef, &settlementRef, &refundPercent, &b.TotalAmountCents,
        &b.Version, &b.CreatedAt, &b.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if settlementRef.Valid {
        ref := settlementRef.String
        b.SettlementRef = &ref
    }
    if refundPercent.Valid {
        pct := uint8(refundPercent.Int16)
        b.RefundPercent = &pct
    }
    return &b, nil
}

// CreateIfAvailable inserts a new PENDING booking if and only if no
// active booking on the same room overlaps the requested range.  The
// check and the insert run in one transaction with the conflicting
// rows read under lock, closing the race where two guests request the
// same room and dates concurrently: exactly one insert succeeds, the
// other observes the overlap and gets ErrRoomUnavailable.
//
// Two half-open ranges [a,b) and [c,d) overlap iff a < d AND c < b;
// the predicate below is exactly that, so a candidate whose check-in
// equals an existing checkout does not conflict.
//
// When two transactions race for the same free range, their gap locks
// from the COUNT query are compatible and both inserts then wait on
// each other: InnoDB kills one with a deadlock error.  That loser did
// not do anything wrong, so the transaction is re-run; the retry sees
// the winner's committed row and reports ErrRoomUnavailable.
func (r *BookingRepo) CreateIfAvailable(ctx context.Context, b *model.Booking) error {
    var err error
    for attempt := 0; attempt < createRetries; attempt++ {
        if err = r.createAttempt(ctx, b); !isRetryableTx(err) {
            return err
        }
    }
    return err
}

// createRetries bounds how many times the insert transaction is
// re-run after losing a deadlock or lock-wait race.
const createRetries = 3

// isRetryableTx reports whether a transaction failed only because it
// lost to concurrent activity: InnoDB deadlock victim (1213) or lock
// wait timeout (1205).  Re-running the transaction yields the real
// answer.
func isRetryableTx(err error) bool {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1213 || me.Number == 1205
    }
    return false
}

func (r *BookingRepo) createAttempt(ctx context.Context, b *model.Booking) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const overlapQ = `SELECT COUNT(*) FROM bookings
                      WHERE room_id = ?
                        AND status IN ('PENDING','CONFIRMED')
                        AND check_in < ? AND ? < check_out
                      FOR UPDATE`
    var conflicts int
    if err := tx.QueryRowContext(ctx, overlapQ, b.RoomID, b.CheckOut, b.CheckIn).Scan(&conflicts); err != nil {
        return err
    }
    if conflicts > 0 {
        return ErrRoomUnavailable
    }

    const insertQ = `INSERT INTO bookings
        (room_id, guest_id, check_in, check_out, status, payment_ref, total_amount_cents, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, 1)`
    res, err := tx.ExecContext(ctx, insertQ,
        b.RoomID, b.GuestID, b.CheckIn, b.CheckOut, b.Status, b.PaymentRef, b.TotalAmountCents)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)

    // Query back the full row to populate timestamps and defaults.
    row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID)
    stored, err := scanBooking(row)
    if err != nil {
        return err
    }
    *b = *stored

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID returns the booking with the given id or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
    b, err := scanBooking(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrBookingNotFound
    }
    return b, err
}

// GetByPaymentRef looks a booking up by its gateway order reference.
// Webhook deliveries correlate by order reference, not booking id.
func (r *BookingRepo) GetByPaymentRef(ctx context.Context, orderRef string) (*model.Booking, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE payment_ref = ? LIMIT 1`, orderRef)
    b, err := scanBooking(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrBookingNotFound
    }
    return b, err
}

// ListByGuest returns all bookings created by the given guest, newest
// first.
func (r *BookingRepo) ListByGuest(ctx context.Context, guestID uint64) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE guest_id = ? ORDER BY created_at DESC`, guestID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

// ActiveRanges returns the active (PENDING or CONFIRMED) bookings for
// a room.  Used by the advisory availability probe; the transactional
// check in CreateIfAvailable remains authoritative.
func (r *BookingRepo) ActiveRanges(ctx context.Context, roomID uint64) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings
         WHERE room_id = ? AND status IN ('PENDING','CONFIRMED')
         ORDER BY check_in`, roomID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

// Confirm performs the PENDING -> CONFIRMED transition as a
// compare-and-swap against the status and version the caller read.
// The settlement reference is written exactly once; the guard on
// settlement_ref IS NULL backs the invariant that it is non-null iff
// the booking is CONFIRMED.
func (r *BookingRepo) Confirm(ctx context.Context, id uint64, version uint32, settlementRef string) error {
    const q = `UPDATE bookings
               SET status = 'CONFIRMED', settlement_ref = ?, version = version + 1,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'PENDING' AND version = ? AND settlement_ref IS NULL`
    return r.cas(ctx, id, q, settlementRef, id, version)
}

// Fail performs the PENDING -> PAYMENT_FAILED transition with the
// same guard discipline.
func (r *BookingRepo) Fail(ctx context.Context, id uint64, version uint32) error {
    const q = `UPDATE bookings
               SET status = 'PAYMENT_FAILED', version = version + 1,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'PENDING' AND version = ?`
    return r.cas(ctx, id, q, id, version)
}

// Cancel moves a PENDING or CONFIRMED booking to CANCELLED, recording
// the refund percentage for downstream refund processing.  fromStatus
// must be the status the caller read so a concurrent transition is
// detected as a stale write.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, fromStatus string, version uint32, refundPercent uint8) error {
    const q = `UPDATE bookings
               SET status = 'CANCELLED', refund_percent = ?, version = version + 1,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = ? AND version = ?`
    return r.cas(ctx, id, q, refundPercent, id, fromStatus, version)
}

// ExpiredPending returns PENDING bookings created before the cutoff,
// i.e. those whose payment window has lapsed.  The caller transitions
// them with Fail, which tolerates losing to a late settlement signal.
func (r *BookingRepo) ExpiredPending(ctx context.Context, olderThan time.Time) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings
         WHERE status = 'PENDING' AND created_at < ?`, olderThan.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

// cas executes a guarded update.  Zero rows affected means the guard
// no longer holds: either the row is gone (ErrBookingNotFound) or a
// concurrent writer got there first (ErrStaleWrite); the caller
// re-reads and decides.
func (r *BookingRepo) cas(ctx context.Context, id uint64, query string, args ...any) error {
    res, err := r.db.ExecContext(ctx, query, args...)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    var exists int
    if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, id).Scan(&exists); err != nil {
        return err
    }
    if exists == 0 {
        return ErrBookingNotFound
    }
    return ErrStaleWrite
}
