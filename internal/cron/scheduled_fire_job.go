package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/floorops-backend/internal/orders"
	"github.com/angelmondragon/floorops-backend/internal/tenant"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
)

const (
	scheduledFireJobName   = "scheduled-order-fire"
	defaultScheduledBatch  = 100
	scheduledFireReasonMsg = "auto-fire time reached"
)

// scheduledOrders is the slice of orders.Service the fire job drives.
type scheduledOrders interface {
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]orders.DueOrder, error)
	ApplyTransition(ctx context.Context, input orders.TransitionInput) (*models.Order, error)
}

type ScheduledFireJobParams struct {
	Logger    *logger.Logger
	Orders    scheduledOrders
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewScheduledFireJob builds the job that releases dormant scheduled orders
// into the kitchen queue once their auto-fire time has passed.
func NewScheduledFireJob(params ScheduledFireJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultScheduledBatch
	}
	return &scheduledFireJob{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type scheduledFireJob struct {
	logg    *logger.Logger
	orders  scheduledOrders
	metrics *metrics.CronJobMetrics
	batch   int
	now     func() time.Time
}

func (j *scheduledFireJob) Name() string { return scheduledFireJobName }

func (j *scheduledFireJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.orders.DueScheduled(ctx, now, j.batch)
	if err != nil {
		return fmt.Errorf("list due scheduled orders: %w", err)
	}

	reason := scheduledFireReasonMsg
	var (
		fired   int
		skipped int
		errs    error
	)
	for _, order := range due {
		orderCtx := tenant.WithContext(ctx, tenant.ForScheduler(order.RestaurantID))
		orderCtx = j.logg.WithOrderID(orderCtx, order.OrderID.String())
		_, err := j.orders.ApplyTransition(orderCtx, orders.TransitionInput{
			OrderID:         order.OrderID,
			ExpectedVersion: order.Version,
			Target:          enums.OrderStatusPending,
			Reason:          &reason,
		})
		switch {
		case err == nil:
			fired++
		case isRaceLost(err):
			// Someone fired, cancelled, or edited the order first.
			skipped++
			j.logg.Debug(orderCtx, "scheduled order changed before auto-fire")
		default:
			errs = multierr.Append(errs, fmt.Errorf("fire order %s: %w", order.OrderID, err))
		}
	}

	failed := len(multierr.Errors(errs))
	j.metrics.AddItems(scheduledFireJobName, "fired", fired)
	j.metrics.AddItems(scheduledFireJobName, "skipped", skipped)
	j.metrics.AddItems(scheduledFireJobName, "failed", failed)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"due":     len(due),
		"fired":   fired,
		"skipped": skipped,
		"failed":  failed,
	})
	j.logg.Info(logCtx, "scheduled order fire complete")
	return errs
}

func isRaceLost(err error) bool {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeConflict, pkgerrors.CodeInvalidTransition, pkgerrors.CodeNotFound:
		return true
	}
	return false
}
