package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/adforge/adforge/internal/domain/job"
	"github.com/adforge/adforge/internal/logger"
	"github.com/adforge/adforge/internal/types"
	"github.com/grafana/pyroscope-go"
	"github.com/sourcegraph/conc/pool"
)

// JobReconciler periodically settles running jobs against their providers and
// enforces the max wait of a dispatch
type JobReconciler struct {
	jobRepo     job.Repository
	dispatch    DispatchService
	interval    time.Duration
	batch       int
	concurrency int
	logger      *logger.Logger
}

// NewJobReconciler creates a new reconciler
func NewJobReconciler(params ServiceParams, dispatch DispatchService) *JobReconciler {
	cfg := params.Config.Dispatch
	return &JobReconciler{
		jobRepo:     params.JobRepo,
		dispatch:    dispatch,
		interval:    cfg.ReconcileInterval,
		batch:       max(cfg.ReconcileBatch, 1),
		concurrency: max(cfg.ReconcileConcurrency, 1),
		logger:      params.Logger,
	}
}

// Run reconciles a batch every interval until ctx is done
func (r *JobReconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Infow("job reconciler disabled")
		return
	}

	r.logger.Infow("job reconciler started",
		"interval", r.interval,
		"batch", r.batch,
		"concurrency", r.concurrency,
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Infow("job reconciler stopped")
			return
		case <-ticker.C:
			pyroscope.TagWrapper(ctx, pyroscope.Labels("component", "job_reconciler"), func(ctx context.Context) {
				if _, err := r.RunOnce(ctx); err != nil {
					r.logger.Errorw("job reconciliation failed", "error", err)
				}
			})
		}
	}
}

// RunOnce reconciles the oldest running jobs and returns how many of them
// reached a final state
func (r *JobReconciler) RunOnce(ctx context.Context) (int, error) {
	jobs, err := r.jobRepo.List(ctx, &types.JobFilter{
		Statuses: []types.JobStatus{types.JobStatusRunning},
		Limit:    r.batch,
	})
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	var settled atomic.Int64
	p := pool.New().WithMaxGoroutines(r.concurrency)
	for _, j := range jobs {
		jobID := j.ID
		p.Go(func() {
			reconciled, err := r.dispatch.Reconcile(ctx, jobID)
			if err != nil {
				r.logger.Warnw("failed to reconcile job", "job_id", jobID, "error", err)
			}
			if reconciled != nil && reconciled.Status != types.JobStatusRunning {
				settled.Add(1)
			}
		})
	}
	p.Wait()

	r.logger.Debugw("reconciled running jobs",
		"examined", len(jobs),
		"settled", settled.Load(),
	)
	return int(settled.Load()), nil
}
