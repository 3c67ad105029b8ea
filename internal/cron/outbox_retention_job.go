package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
)

const (
	outboxRetentionJobName      = "outbox-retention"
	defaultOutboxRetention      = 30 * 24 * time.Hour
	defaultOutboxRetentionBatch = 1000
	// A single run stops after this many batches; the rest waits for the next tick.
	maxOutboxRetentionBatches = 50
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxRetentionRepo
	Metrics    *metrics.CronJobMetrics
	Retention  time.Duration
	BatchSize  int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// outboxRetentionJob trims published outbox rows in bounded batches so a large
// backlog never holds one long delete.
type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxRetentionRepo
	metrics   *metrics.CronJobMetrics
	retention time.Duration
	batch     int
	now       func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("outbox retention: logger required")
	case params.Repository == nil:
		return nil, errors.New("outbox retention: repository required")
	}
	job := &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		metrics:   params.Metrics,
		retention: params.Retention,
		batch:     params.BatchSize,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.batch <= 0 {
		job.batch = defaultOutboxRetentionBatch
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return outboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var total int64
	batches := 0
	for batches < maxOutboxRetentionBatches {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff, j.batch)
		if err != nil {
			j.metrics.AddItems(outboxRetentionJobName, "deleted", int(total))
			return fmt.Errorf("outbox retention after %d rows: %w", total, err)
		}
		batches++
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}
	j.metrics.AddItems(outboxRetentionJobName, "deleted", int(total))

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
		"batches":      batches,
	}), "outbox.retention.done")
	return nil
}
