package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/cache"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/clock"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/metrics"
)

type fakeActivityRepo struct {
	mu         sync.Mutex
	activities map[int64]domain.Activity
	updateErr  error
}

func newFakeActivityRepo(activities ...domain.Activity) *fakeActivityRepo {
	repo := &fakeActivityRepo{activities: make(map[int64]domain.Activity)}
	for _, a := range activities {
		repo.activities[a.ID] = a
	}
	return repo
}

func (r *fakeActivityRepo) Get(_ context.Context, id int64) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[id]
	if !ok || a.Deleted {
		return domain.Activity{}, fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

func (r *fakeActivityRepo) Create(_ context.Context, a domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[a.ID] = a
	return nil
}

func (r *fakeActivityRepo) Update(_ context.Context, a domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.activities[a.ID]; !ok {
		return fmt.Errorf("activity %d: %w", a.ID, domain.ErrNotFound)
	}
	r.activities[a.ID] = a
	return nil
}

func (r *fakeActivityRepo) List(_ context.Context) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Activity
	for _, a := range r.activities {
		if !a.Deleted {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	mu        sync.Mutex
	orders    map[int64]domain.Order
	createErr error
}

func newFakeOrderRepo(orders ...domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[int64]domain.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *fakeOrderRepo) Get(_ context.Context, id int64) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Deleted {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

func (r *fakeOrderRepo) Create(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.orders {
		if existing.UserID == o.UserID && existing.ActivityID == o.ActivityID &&
			existing.Status != domain.OrderCancelled && !existing.Deleted {
			return fmt.Errorf("user %d activity %d: %w", o.UserID, o.ActivityID, domain.ErrAlreadyParticipated)
		}
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return fmt.Errorf("order %d: %w", o.ID, domain.ErrNotFound)
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) FindActiveByUserAndActivity(_ context.Context, userID, activityID int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.UserID == userID && o.ActivityID == activityID &&
			o.Status != domain.OrderCancelled && !o.Deleted {
			found := o
			return &found, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) ListByUser(_ context.Context, userID int64, status *domain.OrderStatus) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID != userID || o.Deleted {
			continue
		}
		if status != nil && o.Status != *status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type seqIDs struct {
	mu   sync.Mutex
	next int64
}

func (s *seqIDs) Next(context.Context, string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

type captureRecorder struct {
	ch chan domain.Order
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{ch: make(chan domain.Order, 8)}
}

func (r *captureRecorder) RecordPaidOrder(_ context.Context, o domain.Order) error {
	r.ch <- o
	return nil
}

type orderFixture struct {
	svc        *OrderService
	activities *fakeActivityRepo
	orders     *fakeOrderRepo
	store      *cache.Memory
	recorder   *captureRecorder
	now        time.Time
}

func newOrderFixture(t *testing.T, activities ...domain.Activity) *orderFixture {
	t.Helper()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	activityRepo := newFakeActivityRepo(activities...)
	orderRepo := newFakeOrderRepo()
	store := cache.NewMemory(clock.NewSystem())
	recorder := newCaptureRecorder()
	svc := NewOrderService(
		activityRepo, orderRepo, store, &seqIDs{}, recorder,
		clock.NewFixed(now), zerolog.Nop(), metrics.New(prometheus.NewRegistry()),
		WithLockWait(500*time.Millisecond),
	)
	return &orderFixture{
		svc:        svc,
		activities: activityRepo,
		orders:     orderRepo,
		store:      store,
		recorder:   recorder,
		now:        now,
	}
}

func liveActivity(id, productID int64, stock int, now time.Time) domain.Activity {
	return domain.Activity{
		ID:             id,
		ProductID:      productID,
		Name:           "flash sale",
		SalePriceCents: 1999,
		SaleStock:      stock,
		StartTime:      now.Add(-time.Hour),
		EndTime:        now.Add(time.Hour),
		Status:         domain.ActivityInProgress,
		CreatedAt:      now.Add(-time.Hour),
		UpdatedAt:      now.Add(-time.Hour),
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("admits and persists an unpaid order", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))

		order, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 2})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.Status != domain.OrderUnpaid {
			t.Fatalf("expected unpaid, got %s", order.Status)
		}
		if order.ProductName != "flash sale" || order.SalePriceCents != 1999 {
			t.Fatalf("expected product snapshot, got %+v", order)
		}
		if order.TotalAmountCents != 2*1999 {
			t.Fatalf("expected total %d, got %d", 2*1999, order.TotalAmountCents)
		}
		if order.OrderNo == "" {
			t.Fatalf("expected order number to be set")
		}

		n, ok, _ := fx.store.GetCounter(ctx, activityStockKey(1))
		if !ok || n != 98 {
			t.Fatalf("expected stock counter 98, got %d (ok=%v)", n, ok)
		}
	})

	t.Run("validation failures have no side effects", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))

		for _, in := range []CreateOrderInput{
			{UserID: 7, ProductID: 10, Quantity: 1},
			{ActivityID: 1, ProductID: 10, Quantity: 1},
			{ActivityID: 1, UserID: 7, Quantity: 1},
			{ActivityID: 1, UserID: 7, ProductID: 10},
		} {
			if _, err := fx.svc.CreateOrder(ctx, in); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("input %+v: expected ErrValidation, got %v", in, err)
			}
		}
		if _, ok, _ := fx.store.GetCounter(ctx, activityStockKey(1)); ok {
			t.Fatalf("expected no counter seeded by rejected calls")
		}
	})

	t.Run("unknown activity", func(t *testing.T) {
		fx := newOrderFixture(t)
		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 9, UserID: 7, ProductID: 10, Quantity: 1})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("activity not in progress", func(t *testing.T) {
		now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
		a := liveActivity(1, 10, 100, now)
		a.Status = domain.ActivityNotStarted
		fx := newOrderFixture(t, a)

		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("activity past end time", func(t *testing.T) {
		now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
		a := liveActivity(1, 10, 100, now)
		a.EndTime = now.Add(-time.Minute)
		fx := newOrderFixture(t, a)

		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("sold out when counter exhausted", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))
		if err := fx.store.SetCounter(ctx, activityStockKey(1), 0, 0); err != nil {
			t.Fatalf("seed counter: %v", err)
		}

		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if !errors.Is(err, domain.ErrSoldOut) {
			t.Fatalf("expected ErrSoldOut, got %v", err)
		}
		if len(fx.orders.orders) != 0 {
			t.Fatalf("expected no orders persisted")
		}
	})

	t.Run("decrement undone when quantity overshoots stock", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))
		if err := fx.store.SetCounter(ctx, activityStockKey(1), 1, 0); err != nil {
			t.Fatalf("seed counter: %v", err)
		}

		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 2})
		if !errors.Is(err, domain.ErrSoldOut) {
			t.Fatalf("expected ErrSoldOut, got %v", err)
		}
		n, ok, _ := fx.store.GetCounter(ctx, activityStockKey(1))
		if !ok || n != 1 {
			t.Fatalf("expected counter restored to 1, got %d (ok=%v)", n, ok)
		}
	})

	t.Run("second participation rejected", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))

		if _, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1}); err != nil {
			t.Fatalf("first call: %v", err)
		}
		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if !errors.Is(err, domain.ErrAlreadyParticipated) {
			t.Fatalf("expected ErrAlreadyParticipated, got %v", err)
		}
		n, _, _ := fx.store.GetCounter(ctx, activityStockKey(1))
		if n != 99 {
			t.Fatalf("expected only one unit reserved, counter=%d", n)
		}
	})

	t.Run("persistence failure compensates the decrement", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))
		fx.orders.createErr = errors.New("connection reset")

		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if !errors.Is(err, domain.ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
		n, ok, _ := fx.store.GetCounter(ctx, activityStockKey(1))
		if !ok || n != 100 {
			t.Fatalf("expected counter restored to 100, got %d (ok=%v)", n, ok)
		}
		p, _, _ := fx.store.GetCounter(ctx, productStockKey(10))
		if p != 100 {
			t.Fatalf("expected product counter restored to 100, got %d", p)
		}
	})

	t.Run("system busy when activity lock is held", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))
		if _, err := fx.store.AcquireLock(ctx, activityLockKey(1), time.Minute); err != nil {
			t.Fatalf("hold lock: %v", err)
		}

		_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if !errors.Is(err, domain.ErrSystemBusy) {
			t.Fatalf("expected ErrSystemBusy, got %v", err)
		}
	})
}

func TestOrderService_CreateOrder_NoOversell(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	const stock = 5
	const callers = 20

	fx := newOrderFixture(t, liveActivity(1, 10, stock, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		userID := int64(i + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: userID, ProductID: 10, Quantity: 1})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, soldOut int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrSoldOut):
			soldOut++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != stock {
		t.Fatalf("expected %d admissions, got %d", stock, succeeded)
	}
	if soldOut != callers-stock {
		t.Fatalf("expected %d sold-out rejections, got %d", callers-stock, soldOut)
	}
	n, _, _ := fx.store.GetCounter(ctx, activityStockKey(1))
	if n != 0 {
		t.Fatalf("expected final counter 0, got %d", n)
	}
}

func TestOrderService_Pay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pays an unpaid order and settles durable stock", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, now))
		order, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 2})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		paid, err := fx.svc.Pay(ctx, order.ID)
		if err != nil {
			t.Fatalf("pay: %v", err)
		}
		if paid.Status != domain.OrderPaid || paid.PayTime == nil {
			t.Fatalf("expected paid order with pay time, got %+v", paid)
		}

		a, _ := fx.activities.Get(ctx, 1)
		if a.SaleStock != 98 {
			t.Fatalf("expected durable stock settled to 98, got %d", a.SaleStock)
		}

		select {
		case recorded := <-fx.recorder.ch:
			if recorded.ID != order.ID {
				t.Fatalf("expected paid order %d recorded, got %d", order.ID, recorded.ID)
			}
		case <-time.After(time.Second):
			t.Fatalf("expected sales recorder to receive the paid order")
		}
	})

	t.Run("settlement failure does not fail the payment", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, now))
		order, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		fx.activities.updateErr = errors.New("region down")

		paid, err := fx.svc.Pay(ctx, order.ID)
		if err != nil {
			t.Fatalf("expected payment to succeed despite settlement failure, got %v", err)
		}
		if paid.Status != domain.OrderPaid {
			t.Fatalf("expected paid, got %s", paid.Status)
		}
	})

	t.Run("rejects non-unpaid orders", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, now))
		order, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := fx.svc.Pay(ctx, order.ID); err != nil {
			t.Fatalf("first pay: %v", err)
		}
		if _, err := fx.svc.Pay(ctx, order.ID); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		fx := newOrderFixture(t)
		if _, err := fx.svc.Pay(ctx, 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestOrderService_Cancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns units to both stock pools", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, now))
		order, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 2})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		cancelled, err := fx.svc.Cancel(ctx, order.ID)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.Status != domain.OrderCancelled {
			t.Fatalf("expected cancelled, got %s", cancelled.Status)
		}

		n, _, _ := fx.store.GetCounter(ctx, activityStockKey(1))
		if n != 100 {
			t.Fatalf("expected activity counter back to 100, got %d", n)
		}
		p, _, _ := fx.store.GetCounter(ctx, productStockKey(10))
		if p != 100 {
			t.Fatalf("expected product counter back to 100, got %d", p)
		}
	})

	t.Run("cancelled user may participate again", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 1, now))

		first, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := fx.svc.Cancel(ctx, first.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1}); err != nil {
			t.Fatalf("expected retry after cancel to succeed, got %v", err)
		}
	})

	t.Run("rejects paid orders", func(t *testing.T) {
		fx := newOrderFixture(t, liveActivity(1, 10, 100, now))
		order, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := fx.svc.Pay(ctx, order.ID); err != nil {
			t.Fatalf("pay: %v", err)
		}
		if _, err := fx.svc.Cancel(ctx, order.ID); !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestOrderService_PayCancelExclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	fx := newOrderFixture(t, liveActivity(1, 10, 100, now))

	order, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: 7, ProductID: 10, Quantity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var payErr, cancelErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, payErr = fx.svc.Pay(ctx, order.ID)
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = fx.svc.Cancel(ctx, order.ID)
	}()
	wg.Wait()

	if (payErr == nil) == (cancelErr == nil) {
		t.Fatalf("expected exactly one winner, pay=%v cancel=%v", payErr, cancelErr)
	}
	loser := payErr
	if loser == nil {
		loser = cancelErr
	}
	if !errors.Is(loser, domain.ErrInvalidState) {
		t.Fatalf("expected loser to fail with ErrInvalidState, got %v", loser)
	}

	final, err := fx.orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != domain.OrderPaid && final.Status != domain.OrderCancelled {
		t.Fatalf("expected terminal status, got %s", final.Status)
	}
}

func TestOrderService_SoldOutThenCancelFreesUnit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	fx := newOrderFixture(t, liveActivity(1, 10, 1, now))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	orders := make([]domain.Order, 2)
	for i, userID := range []int64{101, 102} {
		i, userID := i, userID
		wg.Add(1)
		go func() {
			defer wg.Done()
			orders[i], errs[i] = fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: userID, ProductID: 10, Quantity: 1})
		}()
	}
	wg.Wait()

	winner, loser := 0, 1
	if errs[0] != nil {
		winner, loser = 1, 0
	}
	if errs[winner] != nil {
		t.Fatalf("expected one winner, got %v / %v", errs[0], errs[1])
	}
	if !errors.Is(errs[loser], domain.ErrSoldOut) {
		t.Fatalf("expected loser sold out, got %v", errs[loser])
	}

	if _, err := fx.svc.Cancel(ctx, orders[winner].ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	n, _, _ := fx.store.GetCounter(ctx, activityStockKey(1))
	if n != 1 {
		t.Fatalf("expected counter back to 1, got %d", n)
	}

	loserID := []int64{101, 102}[loser]
	if _, err := fx.svc.CreateOrder(ctx, CreateOrderInput{ActivityID: 1, UserID: loserID, ProductID: 10, Quantity: 1}); err != nil {
		t.Fatalf("expected retry to succeed after cancellation, got %v", err)
	}
}
