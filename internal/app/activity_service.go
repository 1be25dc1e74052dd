package app

import (
	"context"
	"fmt"
	"time"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/clock"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
	"github.com/rs/zerolog"
)

// ActivityRepository is the full durable-store surface for activity
// management and the status sweep.
type ActivityRepository interface {
	Get(ctx context.Context, id int64) (domain.Activity, error)
	Create(ctx context.Context, a domain.Activity) error
	Update(ctx context.Context, a domain.Activity) error
	List(ctx context.Context) ([]domain.Activity, error)
}

type ActivityService struct {
	activities ActivityRepository
	ids        IDSource
	clock      clock.Clock
	logger     zerolog.Logger
}

func NewActivityService(activities ActivityRepository, ids IDSource, clk clock.Clock, logger zerolog.Logger) *ActivityService {
	return &ActivityService{
		activities: activities,
		ids:        ids,
		clock:      clk,
		logger:     logger,
	}
}

type CreateActivityInput struct {
	ProductID      int64
	Name           string
	SalePriceCents int64
	SaleStock      int
	StartTime      time.Time
	EndTime        time.Time
}

func (in CreateActivityInput) validate(now time.Time) error {
	if in.Name == "" {
		return fmt.Errorf("%w: activity name is required", domain.ErrValidation)
	}
	if in.ProductID <= 0 {
		return fmt.Errorf("%w: product id is required", domain.ErrValidation)
	}
	if in.SalePriceCents <= 0 {
		return fmt.Errorf("%w: sale price must be positive", domain.ErrValidation)
	}
	if in.SaleStock <= 0 {
		return fmt.Errorf("%w: sale stock must be positive", domain.ErrValidation)
	}
	if in.StartTime.IsZero() || in.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end time are required", domain.ErrValidation)
	}
	if in.StartTime.After(in.EndTime) {
		return fmt.Errorf("%w: start time must not be after end time", domain.ErrValidation)
	}
	if !in.EndTime.After(now) {
		return fmt.Errorf("%w: end time must be in the future", domain.ErrValidation)
	}
	return nil
}

// Create registers a new flash sale. A product may have at most one activity
// that has not yet ended.
func (s *ActivityService) Create(ctx context.Context, in CreateActivityInput) (domain.Activity, error) {
	now := s.clock.Now()
	if err := in.validate(now); err != nil {
		return domain.Activity{}, err
	}

	existing, err := s.activities.List(ctx)
	if err != nil {
		return domain.Activity{}, err
	}
	for _, a := range existing {
		if a.ProductID == in.ProductID && a.Live(now) {
			return domain.Activity{}, fmt.Errorf("product %d already has a live activity: %w", in.ProductID, domain.ErrInvalidState)
		}
	}

	status := domain.ActivityNotStarted
	if !in.StartTime.After(now) {
		status = domain.ActivityInProgress
	}

	activity := domain.Activity{
		ID:             s.ids.Next(ctx, "seckill_activity"),
		ProductID:      in.ProductID,
		Name:           in.Name,
		SalePriceCents: in.SalePriceCents,
		SaleStock:      in.SaleStock,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.activities.Create(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	s.logger.Info().Int64("activity_id", activity.ID).Int64("product_id", in.ProductID).
		Msg("activity created")
	return activity, nil
}

func (s *ActivityService) Get(ctx context.Context, id int64) (domain.Activity, error) {
	if id <= 0 {
		return domain.Activity{}, fmt.Errorf("%w: activity id is required", domain.ErrValidation)
	}
	return s.activities.Get(ctx, id)
}

func (s *ActivityService) List(ctx context.Context) ([]domain.Activity, error) {
	return s.activities.List(ctx)
}

// Delete soft-deletes an activity; orders referencing it are untouched.
func (s *ActivityService) Delete(ctx context.Context, id int64) error {
	activity, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	activity.Deleted = true
	activity.UpdatedAt = s.clock.Now()
	return s.activities.Update(ctx, activity)
}

// RefreshStatuses is the scheduler sweep: it transitions every non-deleted
// activity according to the wall clock. Each transition is written
// individually; one activity's write failure does not block the others, and
// re-running the sweep with nothing to change is a no-op.
func (s *ActivityService) RefreshStatuses(ctx context.Context) error {
	now := s.clock.Now()
	activities, err := s.activities.List(ctx)
	if err != nil {
		return fmt.Errorf("status sweep: %w", err)
	}

	for _, a := range activities {
		var next domain.ActivityStatus
		switch {
		case a.Status != domain.ActivityEnded && !a.EndTime.After(now):
			next = domain.ActivityEnded
		case a.Status == domain.ActivityNotStarted && !a.StartTime.After(now):
			next = domain.ActivityInProgress
		default:
			continue
		}

		a.Status = next
		a.UpdatedAt = now
		if err := s.activities.Update(ctx, a); err != nil {
			s.logger.Error().Err(err).Int64("activity_id", a.ID).
				Str("status", string(next)).Msg("status transition failed")
			continue
		}
		s.logger.Info().Int64("activity_id", a.ID).Str("status", string(next)).
			Msg("activity status updated")
	}
	return nil
}
