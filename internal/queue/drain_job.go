package queue

import (
	"context"
	"errors"
)

var errNilService = errors.New("queue service required")

// DrainJob adapts the queue service to the worker job interface.
type DrainJob struct {
	svc *Service
}

// NewDrainJob wraps the queue service as a scheduled job.
func NewDrainJob(svc *Service) (*DrainJob, error) {
	if svc == nil {
		return nil, errNilService
	}
	return &DrainJob{svc: svc}, nil
}

// Name identifies the job in logs and metrics.
func (j *DrainJob) Name() string { return "checkout-queue-drain" }

// Run executes one drain pass.
func (j *DrainJob) Run(ctx context.Context) error {
	stats, err := j.svc.Drain(ctx)
	if err != nil {
		return err
	}
	if stats.Picked > 0 {
		logCtx := j.svc.logg.WithFields(ctx, map[string]any{
			"picked":    stats.Picked,
			"completed": stats.Completed,
			"failed":    stats.Failed,
			"skipped":   stats.Skipped,
		})
		j.svc.logg.Info(logCtx, "queue drain pass finished")
	}
	return nil
}
