package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/cache"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/clock"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/metrics"
	"github.com/rs/zerolog"
)

// ActivityStore is the durable-store surface the order path needs.
type ActivityStore interface {
	Get(ctx context.Context, id int64) (domain.Activity, error)
	Update(ctx context.Context, a domain.Activity) error
}

// OrderStore is the durable-store surface for orders. The user+activity lookup
// preserves the "non-cancelled order per user per activity" contract.
type OrderStore interface {
	Get(ctx context.Context, id int64) (domain.Order, error)
	Create(ctx context.Context, o domain.Order) error
	Update(ctx context.Context, o domain.Order) error
	FindActiveByUserAndActivity(ctx context.Context, userID, activityID int64) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64, status *domain.OrderStatus) ([]domain.Order, error)
}

// SalesRecorder receives paid orders for the analytics subsystem. Delivery is
// best-effort; failures are logged, never propagated to the payment path.
type SalesRecorder interface {
	RecordPaidOrder(ctx context.Context, o domain.Order) error
}

// IDSource issues identifiers for new orders.
type IDSource interface {
	Next(ctx context.Context, entity string) int64
}

const (
	activityLockTTL  = 10 * time.Second
	orderLockTTL     = 5 * time.Second
	settleLockTTL    = 5 * time.Second
	defaultLockWait  = 2 * time.Second
	stockCounterTTL  = 24 * time.Hour
	orderStatusTTL   = 24 * time.Hour
	recordSaleBudget = 5 * time.Second
)

type OrderService struct {
	activities ActivityStore
	orders     OrderStore
	store      cache.Store
	ids        IDSource
	recorder   SalesRecorder
	clock      clock.Clock
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	lockWait   time.Duration
}

func NewOrderService(activities ActivityStore, orders OrderStore, store cache.Store, ids IDSource, recorder SalesRecorder, clk clock.Clock, logger zerolog.Logger, m *metrics.Metrics, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		activities: activities,
		orders:     orders,
		store:      store,
		ids:        ids,
		recorder:   recorder,
		clock:      clk,
		logger:     logger,
		metrics:    m,
		lockWait:   defaultLockWait,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type OrderServiceOption func(*OrderService)

// WithLockWait overrides how long lock acquisition may block before the call
// fails with ErrSystemBusy.
func WithLockWait(d time.Duration) OrderServiceOption {
	return func(s *OrderService) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

type CreateOrderInput struct {
	ActivityID int64
	UserID     int64
	ProductID  int64
	Quantity   int
}

func (in CreateOrderInput) validate() error {
	if in.ActivityID <= 0 {
		return fmt.Errorf("%w: activity id is required", domain.ErrValidation)
	}
	if in.UserID <= 0 {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if in.ProductID <= 0 {
		return fmt.Errorf("%w: product id is required", domain.ErrValidation)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	return nil
}

// CreateOrder runs the admission protocol for one reservation attempt. The
// whole check/decrement/persist sequence for one activity is serialized by the
// activity lock; stock deltas applied before a failed persist are compensated
// before the error surfaces.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := in.validate(); err != nil {
		return domain.Order{}, err
	}

	var created domain.Order
	err := cache.WithLock(ctx, s.store, activityLockKey(in.ActivityID), activityLockTTL, s.lockWait, func(ctx context.Context) error {
		activity, err := s.activities.Get(ctx, in.ActivityID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if activity.Status != domain.ActivityInProgress {
			return fmt.Errorf("activity %d is %s: %w", activity.ID, activity.Status, domain.ErrInvalidState)
		}
		if !activity.EndTime.After(now) {
			return fmt.Errorf("activity %d has ended: %w", activity.ID, domain.ErrInvalidState)
		}

		stockKey := activityStockKey(activity.ID)
		productKey := productStockKey(in.ProductID)

		remaining, ok, err := s.store.GetCounter(ctx, stockKey)
		if err != nil {
			return err
		}
		if !ok {
			// Lazy seed from the durable record. Two concurrent seeders would
			// write the same initial value, so the race is benign.
			remaining = int64(activity.SaleStock)
			if err := s.store.SetCounter(ctx, stockKey, remaining, stockCounterTTL); err != nil {
				return err
			}
			if err := s.store.SetCounter(ctx, productKey, remaining, stockCounterTTL); err != nil {
				return err
			}
		}

		if remaining <= 0 {
			s.metrics.Rejections.WithLabelValues("sold_out").Inc()
			return fmt.Errorf("activity %d: %w", activity.ID, domain.ErrSoldOut)
		}

		existing, err := s.orders.FindActiveByUserAndActivity(ctx, in.UserID, in.ActivityID)
		if err != nil {
			return err
		}
		if existing != nil {
			s.metrics.Rejections.WithLabelValues("already_participated").Inc()
			return fmt.Errorf("user %d: %w", in.UserID, domain.ErrAlreadyParticipated)
		}

		qty := int64(in.Quantity)
		newStock, err := s.store.IncrBy(ctx, stockKey, -qty)
		if err != nil {
			return err
		}
		if newStock < 0 {
			// Undo the speculative decrement before surfacing.
			if _, undoErr := s.store.IncrBy(ctx, stockKey, qty); undoErr != nil {
				s.logger.Error().Err(undoErr).Int64("activity_id", activity.ID).
					Msg("failed to undo stock decrement")
			}
			s.metrics.Rejections.WithLabelValues("sold_out").Inc()
			return fmt.Errorf("activity %d: %w", activity.ID, domain.ErrSoldOut)
		}
		if _, err := s.store.IncrBy(ctx, productKey, -qty); err != nil {
			s.logger.Warn().Err(err).Int64("product_id", in.ProductID).
				Msg("product stock counter decrement failed")
		}

		order := domain.Order{
			ID:               s.ids.Next(ctx, "seckill_order"),
			OrderNo:          newOrderNo(s.clock),
			UserID:           in.UserID,
			ActivityID:       in.ActivityID,
			ProductID:        in.ProductID,
			ProductName:      activity.Name,
			SalePriceCents:   activity.SalePriceCents,
			Quantity:         in.Quantity,
			TotalAmountCents: activity.SalePriceCents * qty,
			Status:           domain.OrderUnpaid,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		if err := s.orders.Create(ctx, order); err != nil {
			s.compensateStock(ctx, stockKey, productKey, qty)
			if errors.Is(err, domain.ErrAlreadyParticipated) {
				return err
			}
			return fmt.Errorf("%w: insert order: %v", domain.ErrPersistence, err)
		}

		s.cacheOrderStatus(ctx, order)
		s.metrics.OrdersCreated.Inc()
		s.logger.Info().Int64("order_id", order.ID).Int64("user_id", in.UserID).
			Int64("activity_id", in.ActivityID).Msg("order admitted")
		created = order
		return nil
	})
	if err != nil {
		if errors.Is(err, cache.ErrLockWaitTimeout) {
			s.metrics.Rejections.WithLabelValues("system_busy").Inc()
			return domain.Order{}, fmt.Errorf("activity %d lock: %w", in.ActivityID, domain.ErrSystemBusy)
		}
		return domain.Order{}, err
	}
	return created, nil
}

// compensateStock re-increments both counters after a failed persist.
func (s *OrderService) compensateStock(ctx context.Context, stockKey, productKey string, qty int64) {
	if _, err := s.store.IncrBy(ctx, stockKey, qty); err != nil {
		s.logger.Error().Err(err).Str("key", stockKey).Msg("stock compensation failed")
	}
	if _, err := s.store.IncrBy(ctx, productKey, qty); err != nil {
		s.logger.Error().Err(err).Str("key", productKey).Msg("stock compensation failed")
	}
	s.metrics.Compensations.Inc()
}

// Pay moves an unpaid order to paid, settles the durable stock field under the
// activity's settlement lock and hands the order to the sales recorder. The
// per-order lock makes a concurrent cancel lose with ErrInvalidState.
func (s *OrderService) Pay(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	var paid domain.Order
	err := cache.WithLock(ctx, s.store, orderLockKey(orderID), orderLockTTL, s.lockWait, func(ctx context.Context) error {
		order, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderUnpaid {
			return fmt.Errorf("order %d is %s: %w", orderID, order.Status, domain.ErrInvalidState)
		}

		now := s.clock.Now()
		order.Status = domain.OrderPaid
		order.PayTime = &now
		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("%w: update order: %v", domain.ErrPersistence, err)
		}

		s.cacheOrderStatus(ctx, order)
		s.settleDurableStock(ctx, order)
		s.recordSale(order)
		s.metrics.OrdersPaid.Inc()
		s.logger.Info().Int64("order_id", order.ID).Msg("order paid")
		paid = order
		return nil
	})
	if err != nil {
		if errors.Is(err, cache.ErrLockWaitTimeout) {
			return domain.Order{}, fmt.Errorf("order %d lock: %w", orderID, domain.ErrSystemBusy)
		}
		return domain.Order{}, err
	}
	return paid, nil
}

// settleDurableStock decrements the activity's durable stock by the paid
// quantity. A failure here is logged and accepted as an eventual-consistency
// gap; it is never rolled back onto the payment.
func (s *OrderService) settleDurableStock(ctx context.Context, order domain.Order) {
	err := cache.WithLock(ctx, s.store, stockUpdateLockKey(order.ActivityID), settleLockTTL, s.lockWait, func(ctx context.Context) error {
		activity, err := s.activities.Get(ctx, order.ActivityID)
		if err != nil {
			return err
		}
		activity.SaleStock -= order.Quantity
		activity.UpdatedAt = s.clock.Now()
		return s.activities.Update(ctx, activity)
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("activity_id", order.ActivityID).
			Int64("order_id", order.ID).Msg("durable stock settlement failed")
	}
}

// recordSale hands the paid order to the analytics collaborator without
// blocking the payment path.
func (s *OrderService) recordSale(order domain.Order) {
	if s.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordSaleBudget)
		defer cancel()
		if err := s.recorder.RecordPaidOrder(ctx, order); err != nil {
			s.logger.Error().Err(err).Int64("order_id", order.ID).
				Msg("sales recording failed")
		}
	}()
}

// Cancel moves an unpaid order to cancelled and returns its units to both
// fast-store stock pools.
func (s *OrderService) Cancel(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	var cancelled domain.Order
	err := cache.WithLock(ctx, s.store, orderLockKey(orderID), orderLockTTL, s.lockWait, func(ctx context.Context) error {
		order, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.OrderUnpaid {
			return fmt.Errorf("order %d is %s: %w", orderID, order.Status, domain.ErrInvalidState)
		}

		order.Status = domain.OrderCancelled
		order.UpdatedAt = s.clock.Now()
		if err := s.orders.Update(ctx, order); err != nil {
			return fmt.Errorf("%w: update order: %v", domain.ErrPersistence, err)
		}

		s.cacheOrderStatus(ctx, order)

		qty := int64(order.Quantity)
		if _, err := s.store.IncrBy(ctx, activityStockKey(order.ActivityID), qty); err != nil {
			s.logger.Error().Err(err).Int64("activity_id", order.ActivityID).
				Msg("failed to return activity stock")
		}
		if _, err := s.store.IncrBy(ctx, productStockKey(order.ProductID), qty); err != nil {
			s.logger.Error().Err(err).Int64("product_id", order.ProductID).
				Msg("failed to return product stock")
		}

		s.metrics.OrdersCancelled.Inc()
		s.logger.Info().Int64("order_id", order.ID).Msg("order cancelled")
		cancelled = order
		return nil
	})
	if err != nil {
		if errors.Is(err, cache.ErrLockWaitTimeout) {
			return domain.Order{}, fmt.Errorf("order %d lock: %w", orderID, domain.ErrSystemBusy)
		}
		return domain.Order{}, err
	}
	return cancelled, nil
}

// Get returns one order by id.
func (s *OrderService) Get(ctx context.Context, orderID int64) (domain.Order, error) {
	if orderID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}
	return s.orders.Get(ctx, orderID)
}

// ListByUser returns the user's orders, optionally filtered by status.
func (s *OrderService) ListByUser(ctx context.Context, userID int64, status *domain.OrderStatus) ([]domain.Order, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return s.orders.ListByUser(ctx, userID, status)
}

// cacheOrderStatus mirrors the current order status into the fast store for
// cheap status polling.
func (s *OrderService) cacheOrderStatus(ctx context.Context, order domain.Order) {
	if err := s.store.Set(ctx, orderStatusKey(order.ID), string(order.Status), orderStatusTTL); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", order.ID).Msg("order status cache write failed")
	}
}
