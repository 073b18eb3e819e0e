package booking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/repository"
)

// memLedger is an in-memory Ledger with the same guard semantics as
// the MySQL repository: the insert checks overlap under the lock, and
// every transition is a compare-and-swap against status and version.
type memLedger struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Booking
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[uint64]*model.Booking)}
}

func (l *memLedger) CreateIfAvailable(_ context.Context, b *model.Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cand := DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
	for _, row := range l.rows {
		if row.RoomID != b.RoomID {
			continue
		}
		if row.Status != model.StatusPending && row.Status != model.StatusConfirmed {
			continue
		}
		if cand.Overlaps(DateRange{CheckIn: row.CheckIn, CheckOut: row.CheckOut}) {
			return repository.ErrRoomUnavailable
		}
	}
	l.nextID++
	b.ID = l.nextID
	b.Version = 1
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	l.rows[b.ID] = &cp
	return nil
}

func (l *memLedger) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *row
	return &cp, nil
}

func (l *memLedger) Confirm(_ context.Context, id uint64, version uint32, settlementRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if row.Status != model.StatusPending || row.Version != version || row.SettlementRef != nil {
		return repository.ErrStaleWrite
	}
	ref := settlementRef
	row.Status = model.StatusConfirmed
	row.SettlementRef = &ref
	row.Version++
	return nil
}

func (l *memLedger) Fail(_ context.Context, id uint64, version uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if row.Status != model.StatusPending || row.Version != version {
		return repository.ErrStaleWrite
	}
	row.Status = model.StatusPaymentFailed
	row.Version++
	return nil
}

func (l *memLedger) Cancel(_ context.Context, id uint64, fromStatus string, version uint32, refundPercent uint8) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if row.Status != fromStatus || row.Version != version {
		return repository.ErrStaleWrite
	}
	pct := refundPercent
	row.Status = model.StatusCancelled
	row.RefundPercent = &pct
	row.Version++
	return nil
}

func (l *memLedger) ExpiredPending(_ context.Context, olderThan time.Time) ([]model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Booking
	for _, row := range l.rows {
		if row.Status == model.StatusPending && row.CreatedAt.Before(olderThan) {
			out = append(out, *row)
		}
	}
	return out, nil
}

// countingNotifier counts dispatches; err, when set, is returned from
// every call to exercise the fire-and-forget contract.
type countingNotifier struct {
	confirmed atomic.Int64
	cancelled atomic.Int64
	err       error
}

func (n *countingNotifier) BookingConfirmed(context.Context, *model.Booking) error {
	n.confirmed.Add(1)
	return n.err
}

func (n *countingNotifier) BookingCancelled(context.Context, *model.Booking) error {
	n.cancelled.Add(1)
	return n.err
}

func newTestService(t *testing.T) (*Service, *memLedger, *countingNotifier) {
	t.Helper()
	ledger := newMemLedger()
	notif := &countingNotifier{}
	return NewService(ledger, notif, RefundPolicy{}), ledger, notif
}

func mustCreate(t *testing.T, svc *Service, roomID uint64, ci, co time.Time) *model.Booking {
	t.Helper()
	b, err := svc.Create(context.Background(), roomID, 42, rng(ci, co), "order-"+ci.Format("0102"), 20000)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, b.Status)
	return b
}

func paidOutcome(orderRef, settlementRef string) Outcome {
	return Outcome{
		Source:        SourceWebhook,
		OrderRef:      orderRef,
		SettlementRef: settlementRef,
		PaidCents:     20000,
		DueCents:      0,
		State:         OutcomePaid,
	}
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), 1, 42, rng(day(2026, 1, 12), day(2026, 1, 12)), "o1", 100)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = svc.Create(context.Background(), 1, 42, rng(day(2026, 1, 14), day(2026, 1, 12)), "o2", 100)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestCreateRejectsOverlongStay(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// 91 nights is one past the cap; the total price of an unbounded
	// range could wrap uint32.
	_, err := svc.Create(ctx, 1, 42, rng(day(2026, 1, 1), day(2026, 4, 2)), "o-long", 100)
	assert.ErrorIs(t, err, ErrStayTooLong)

	// Exactly at the cap is fine.
	_, err = svc.Create(ctx, 1, 42, rng(day(2026, 1, 1), day(2026, 4, 1)), "o-max", 100)
	assert.NoError(t, err)
}

func TestCreateTouchingBoundary(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	b1 := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))
	_, err := svc.Reconcile(ctx, b1.ID, paidOutcome(b1.PaymentRef, "stl-1"))
	require.NoError(t, err)

	// Checkout day equals the next check-in day: no conflict.
	_, err = svc.Create(ctx, 1, 43, rng(day(2026, 1, 12), day(2026, 1, 14)), "o-2", 100)
	require.NoError(t, err)

	// A range straddling the confirmed stay is rejected.
	_, err = svc.Create(ctx, 1, 44, rng(day(2026, 1, 11), day(2026, 1, 13)), "o-3", 100)
	assert.ErrorIs(t, err, repository.ErrRoomUnavailable)
}

func TestCreateNoDoubleBooking(t *testing.T) {
	svc, _, _ := newTestService(t)
	const workers = 16

	var ok, unavailable atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), 7, uint64(100+n),
				rng(day(2026, 2, 1), day(2026, 2, 5)), "order-race", 100)
			switch {
			case err == nil:
				ok.Add(1)
			case err == repository.ErrRoomUnavailable:
				unavailable.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), ok.Load(), "exactly one winner")
	assert.Equal(t, int64(workers-1), unavailable.Load())
}

func TestReconcileIdempotentSettlement(t *testing.T) {
	svc, _, notif := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))

	// Webhook lands first.
	res, err := svc.Reconcile(ctx, b.ID, paidOutcome(b.PaymentRef, "stl-1"))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.Notified)
	assert.Equal(t, model.StatusConfirmed, res.Status)

	// The guest's poll reports the same outcome: no-op success.
	poll := paidOutcome(b.PaymentRef, "stl-1")
	poll.Source = SourcePoll
	res, err = svc.Reconcile(ctx, b.ID, poll)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.False(t, res.Notified)
	assert.Equal(t, model.StatusConfirmed, res.Status)

	assert.Equal(t, int64(1), notif.confirmed.Load(), "exactly one notification")
}

func TestReconcileWebhookPollRace(t *testing.T) {
	svc, ledger, notif := newTestService(t)
	b := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))

	var wg sync.WaitGroup
	for _, src := range []Source{SourceWebhook, SourcePoll} {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			oc := paidOutcome(b.PaymentRef, "stl-1")
			oc.Source = s
			_, err := svc.Reconcile(context.Background(), b.ID, oc)
			assert.NoError(t, err)
		}(src)
	}
	wg.Wait()

	stored, err := ledger.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, stored.Status)
	require.NotNil(t, stored.SettlementRef)
	assert.Equal(t, "stl-1", *stored.SettlementRef)
	assert.Equal(t, int64(1), notif.confirmed.Load(), "the race dispatches exactly one notification")
}

func TestReconcileConflictingSettlement(t *testing.T) {
	svc, ledger, _ := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))

	_, err := svc.Reconcile(ctx, b.ID, paidOutcome(b.PaymentRef, "stl-1"))
	require.NoError(t, err)

	_, err = svc.Reconcile(ctx, b.ID, paidOutcome(b.PaymentRef, "stl-OTHER"))
	assert.ErrorIs(t, err, ErrConflictingSettlement)

	stored, err := ledger.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "stl-1", *stored.SettlementRef, "stored reference must survive the conflict")
	assert.Equal(t, model.StatusConfirmed, stored.Status)
}

func TestReconcileOrderMismatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	b := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))

	_, err := svc.Reconcile(context.Background(), b.ID, paidOutcome("someone-elses-order", "stl-1"))
	assert.ErrorIs(t, err, ErrOrderMismatch)
}

func TestReconcileFailureSignal(t *testing.T) {
	svc, _, notif := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))

	oc := Outcome{Source: SourceWebhook, OrderRef: b.PaymentRef, State: OutcomeFailed}
	res, err := svc.Reconcile(ctx, b.ID, oc)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, model.StatusPaymentFailed, res.Status)

	// Duplicate failure delivery is a no-op.
	res, err = svc.Reconcile(ctx, b.ID, oc)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	assert.Equal(t, int64(0), notif.confirmed.Load(), "failures never notify")
}

func TestReconcilePaidWithOutstandingDue(t *testing.T) {
	svc, _, _ := newTestService(t)
	b := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))

	oc := paidOutcome(b.PaymentRef, "stl-1")
	oc.PaidCents = 15000
	oc.DueCents = 5000
	res, err := svc.Reconcile(context.Background(), b.ID, oc)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaymentFailed, res.Status, "partial settlement does not confirm")
}

func TestReconcilePendingOutcome(t *testing.T) {
	svc, _, notif := newTestService(t)
	b := mustCreate(t, svc, 1, day(2026, 1, 10), day(2026, 1, 12))

	oc := Outcome{Source: SourcePoll, OrderRef: b.PaymentRef, State: OutcomePending}
	res, err := svc.Reconcile(context.Background(), b.ID, oc)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, model.StatusPending, res.Status, "a pending report never transitions anything")
	assert.Equal(t, int64(0), notif.confirmed.Load())
}

func TestReconcileAfterCancellation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2099, 1, 10), day(2099, 1, 12))

	_, err := svc.Cancel(ctx, b.ID, 42, day(2098, 12, 1))
	require.NoError(t, err)

	_, err = svc.Reconcile(ctx, b.ID, paidOutcome(b.PaymentRef, "stl-late"))
	assert.ErrorIs(t, err, ErrIllegalTransition, "a late capture on a cancelled booking is a hard conflict")
}

// staleOnceLedger makes the first Confirm lose the compare-and-swap
// without actually changing anything, so the retry loop must re-read
// and succeed on the second attempt.
type staleOnceLedger struct {
	*memLedger
	stale atomic.Bool
}

func (l *staleOnceLedger) Confirm(ctx context.Context, id uint64, version uint32, ref string) error {
	if l.stale.CompareAndSwap(false, true) {
		return repository.ErrStaleWrite
	}
	return l.memLedger.Confirm(ctx, id, version, ref)
}

func TestReconcileRetriesStaleWrite(t *testing.T) {
	ledger := &staleOnceLedger{memLedger: newMemLedger()}
	notif := &countingNotifier{}
	svc := NewService(ledger, notif, RefundPolicy{})
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 42, rng(day(2026, 1, 10), day(2026, 1, 12)), "o-1", 100)
	require.NoError(t, err)

	res, err := svc.Reconcile(ctx, b.ID, paidOutcome("o-1", "stl-1"))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, model.StatusConfirmed, res.Status)
	assert.Equal(t, int64(1), notif.confirmed.Load())
}

// staleAlwaysLedger never lets a Confirm through.
type staleAlwaysLedger struct{ *memLedger }

func (l *staleAlwaysLedger) Confirm(context.Context, uint64, uint32, string) error {
	return repository.ErrStaleWrite
}

func TestReconcileContentionBudget(t *testing.T) {
	ledger := &staleAlwaysLedger{memLedger: newMemLedger()}
	svc := NewService(ledger, &countingNotifier{}, RefundPolicy{})
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 42, rng(day(2026, 1, 10), day(2026, 1, 12)), "o-1", 100)
	require.NoError(t, err)

	_, err = svc.Reconcile(ctx, b.ID, paidOutcome("o-1", "stl-1"))
	assert.ErrorIs(t, err, ErrContention)
}

func TestReconcileNotifyFailureDoesNotFailSettlement(t *testing.T) {
	ledger := newMemLedger()
	notif := &countingNotifier{err: context.DeadlineExceeded}
	svc := NewService(ledger, notif, RefundPolicy{})
	ctx := context.Background()

	b, err := svc.Create(ctx, 1, 42, rng(day(2026, 1, 10), day(2026, 1, 12)), "o-1", 100)
	require.NoError(t, err)

	res, err := svc.Reconcile(ctx, b.ID, paidOutcome("o-1", "stl-1"))
	require.NoError(t, err, "a broken notifier must not undo the settlement")
	assert.True(t, res.Changed)
	assert.False(t, res.Notified)
	assert.Equal(t, model.StatusConfirmed, res.Status)
}

func TestCancelRecordsRefund(t *testing.T) {
	svc, ledger, notif := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2099, 6, 20), day(2099, 6, 22))

	pct, err := svc.Cancel(ctx, b.ID, 42, day(2099, 6, 13))
	require.NoError(t, err)
	assert.Equal(t, uint8(100), pct)

	stored, err := ledger.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	require.NotNil(t, stored.RefundPercent)
	assert.Equal(t, uint8(100), *stored.RefundPercent)
	assert.Equal(t, int64(1), notif.cancelled.Load())
}

func TestCancelOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2099, 6, 20), day(2099, 6, 22))

	_, err := svc.Cancel(ctx, b.ID, 999, day(2099, 6, 1))
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// Administrative caller (zero) bypasses the ownership check.
	_, err = svc.Cancel(ctx, b.ID, 0, day(2099, 6, 1))
	assert.NoError(t, err)
}

func TestCancelTwice(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2099, 6, 20), day(2099, 6, 22))

	_, err := svc.Cancel(ctx, b.ID, 42, day(2099, 6, 1))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, b.ID, 42, day(2099, 6, 1))
	assert.ErrorIs(t, err, ErrCancellationNotAllowed)
}

func TestCancelNoShow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2026, 6, 20), day(2026, 6, 22))

	_, err := svc.Cancel(ctx, b.ID, 42, day(2026, 6, 21))
	assert.ErrorIs(t, err, ErrCancellationNotAllowed, "arrival date has passed")
}

func TestCancelConfirmedBooking(t *testing.T) {
	svc, _, notif := newTestService(t)
	ctx := context.Background()
	b := mustCreate(t, svc, 1, day(2099, 6, 20), day(2099, 6, 22))

	_, err := svc.Reconcile(ctx, b.ID, paidOutcome(b.PaymentRef, "stl-1"))
	require.NoError(t, err)

	pct, err := svc.Cancel(ctx, b.ID, 42, day(2099, 6, 16))
	require.NoError(t, err)
	assert.Equal(t, uint8(50), pct, "4 days before arrival on the standard calendar")
	assert.Equal(t, int64(1), notif.cancelled.Load())
}
