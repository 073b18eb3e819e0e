package booking

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/iliyamo/hotel-reservation/internal/model"
    "github.com/iliyamo/hotel-reservation/internal/repository"
)

// Sweep fails PENDING bookings whose payment window has expired.  It
// runs outside the request-triggered reconciliation path but uses the
// same guarded transition primitive, so a late-arriving webhook and
// the sweep can race on the same row without corrupting it: whichever
// compare-and-swap lands first wins and the loser simply moves on.
type Sweep struct {
    ledger   Ledger
    window   time.Duration // how long a PENDING booking may await payment
    interval time.Duration // how often the sweep scans the ledger
}

// NewSweep builds a sweep over the given ledger.  window is the
// payment window (e.g. 30 minutes); interval controls the scan
// cadence.
func NewSweep(ledger Ledger, window, interval time.Duration) *Sweep {
    if interval <= 0 {
        interval = time.Minute
    }
    return &Sweep{ledger: ledger, window: window, interval: interval}
}

// Run blocks, scanning the ledger on every tick until the context is
// cancelled.  Intended to be started in its own goroutine from main.
func (s *Sweep) Run(ctx context.Context) {
    ticker := time.NewTicker(s.interval)
    defer ticker.Stop()

    log.Printf("sweep: expiring unpaid bookings older than %s every %s", s.window, s.interval)

    for {
        select {
        case <-ctx.Done():
            log.Println("sweep: stopped")
            return
        case <-ticker.C:
            s.expireOnce(ctx)
        }
    }
}

// expireOnce performs a single scan.  StaleWrite losses are expected
// (a webhook confirmed the booking between the read and the write)
// and are not errors.
func (s *Sweep) expireOnce(ctx context.Context) {
    cutoff := time.Now().UTC().Add(-s.window)
    expired, err := s.ledger.ExpiredPending(ctx, cutoff)
    if err != nil {
        log.Printf("sweep: fetching expired bookings: %v", err)
        return
    }
    for i := range expired {
        b := &expired[i]
        if err := s.ledger.Fail(ctx, b.ID, b.Version); err != nil {
            if errors.Is(err, repository.ErrStaleWrite) {
                continue // a settlement signal got there first
            }
            log.Printf("sweep: failing booking %d: %v", b.ID, err)
            continue
        }
        log.Printf("sweep: booking %d moved to %s after payment window expiry", b.ID, model.StatusPaymentFailed)
    }
}
