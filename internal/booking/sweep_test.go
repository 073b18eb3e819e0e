package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func TestSweepFailsExpiredPending(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()

	stale := mustCreate(t, svc, 1, day(2026, 4, 10), day(2026, 4, 12))
	fresh := mustCreate(t, svc, 2, day(2026, 4, 10), day(2026, 4, 12))

	// Age the first booking past the payment window.
	ledger.mu.Lock()
	ledger.rows[stale.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	ledger.mu.Unlock()

	s := NewSweep(ledger, 30*time.Minute, time.Minute)
	s.expireOnce(ctx)

	got, err := ledger.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentFailed, got.Status)

	got, err = ledger.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status, "inside the window, untouched")
}

func TestSweepSkipsSettledBookings(t *testing.T) {
	svc, ledger, notif := newTestService(t)
	ctx := context.Background()

	b := mustCreate(t, svc, 1, day(2026, 4, 10), day(2026, 4, 12))
	ledger.mu.Lock()
	ledger.rows[b.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	ledger.mu.Unlock()

	// A late webhook settles the booking between the sweep's read and
	// its write; the sweep must lose the compare-and-swap gracefully.
	s := NewSweep(ledger, 30*time.Minute, time.Minute)
	expired, err := ledger.ExpiredPending(ctx, time.Now().UTC().Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)

	_, err = svc.Reconcile(ctx, b.ID, paidOutcome(b.PaymentRef, "stl-1"))
	require.NoError(t, err)

	s.expireOnce(ctx)

	got, err := ledger.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status, "a settled booking is never expired")
	assert.Equal(t, int64(1), notif.confirmed.Load())
}

func TestNewSweepDefaultsInterval(t *testing.T) {
	s := NewSweep(newMemLedger(), 30*time.Minute, 0)
	assert.Equal(t, time.Minute, s.interval)
}
