package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floorops-backend/internal/orders"
	"github.com/angelmondragon/floorops-backend/internal/tenant"
	"github.com/angelmondragon/floorops-backend/pkg/db/models"
	"github.com/angelmondragon/floorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
)

type fakeScheduledOrders struct {
	due      []orders.DueOrder
	dueErr   error
	results  map[uuid.UUID]error
	seenNow  time.Time
	seenCtx  []tenant.Context
	requests []orders.TransitionInput
}

func (f *fakeScheduledOrders) DueScheduled(_ context.Context, now time.Time, _ int) ([]orders.DueOrder, error) {
	f.seenNow = now
	return f.due, f.dueErr
}

func (f *fakeScheduledOrders) ApplyTransition(ctx context.Context, input orders.TransitionInput) (*models.Order, error) {
	tc, _ := tenant.FromContext(ctx)
	f.seenCtx = append(f.seenCtx, tc)
	f.requests = append(f.requests, input)
	if err := f.results[input.OrderID]; err != nil {
		return nil, err
	}
	return &models.Order{ID: input.OrderID, Status: input.Target, Version: input.ExpectedVersion + 1}, nil
}

func newScheduledFireJob(t *testing.T, fake *fakeScheduledOrders, m *metrics.CronJobMetrics) *scheduledFireJob {
	t.Helper()
	job, err := NewScheduledFireJob(ScheduledFireJobParams{
		Logger:  logger.Nop(),
		Orders:  fake,
		Metrics: m,
	})
	require.NoError(t, err)
	return job.(*scheduledFireJob)
}

func TestScheduledFireJobFiresAsScheduler(t *testing.T) {
	restaurant := uuid.New()
	orderID := uuid.New()
	fake := &fakeScheduledOrders{due: []orders.DueOrder{{OrderID: orderID, RestaurantID: restaurant, Version: 3}}}
	job := newScheduledFireJob(t, fake, nil)
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, now, fake.seenNow)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, enums.OrderStatusPending, fake.requests[0].Target)
	assert.Equal(t, int64(3), fake.requests[0].ExpectedVersion)
	require.NotNil(t, fake.requests[0].Reason)
	assert.Equal(t, restaurant, fake.seenCtx[0].TenantID)
	assert.Equal(t, tenant.SchedulerActor, fake.seenCtx[0].ActorID)
	assert.Equal(t, enums.ActorRoleSystem, fake.seenCtx[0].Role)
}

func TestScheduledFireJobSkipsLostRaces(t *testing.T) {
	won, lost, gone, broken := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	restaurant := uuid.New()
	fake := &fakeScheduledOrders{
		due: []orders.DueOrder{
			{OrderID: won, RestaurantID: restaurant, Version: 1},
			{OrderID: lost, RestaurantID: restaurant, Version: 1},
			{OrderID: gone, RestaurantID: restaurant, Version: 2},
			{OrderID: broken, RestaurantID: restaurant, Version: 1},
		},
		results: map[uuid.UUID]error{
			lost:   pkgerrors.New(pkgerrors.CodeConflict, "version moved"),
			gone:   pkgerrors.New(pkgerrors.CodeInvalidTransition, "cancelled"),
			broken: pkgerrors.New(pkgerrors.CodePersistenceFailure, "db down"),
		},
	}
	reg := prometheus.NewRegistry()
	job := newScheduledFireJob(t, fake, metrics.NewCronJobMetrics(reg))

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken.String())
	assert.NotContains(t, err.Error(), lost.String())
	assert.Len(t, fake.requests, 4)

	count, gatherErr := testutil.GatherAndCount(reg, "floorops_cron_job_items_total")
	require.NoError(t, gatherErr)
	assert.Equal(t, 3, count)
}

func TestScheduledFireJobListError(t *testing.T) {
	fake := &fakeScheduledOrders{dueErr: errors.New("boom")}
	job := newScheduledFireJob(t, fake, nil)
	assert.Error(t, job.Run(context.Background()))
	assert.Empty(t, fake.requests)
}

func TestNewScheduledFireJobRequiresDeps(t *testing.T) {
	_, err := NewScheduledFireJob(ScheduledFireJobParams{Orders: &fakeScheduledOrders{}})
	assert.Error(t, err)
	_, err = NewScheduledFireJob(ScheduledFireJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
