package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/recalculation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/joblock"
)

const (
	JobSyncBaseOrders        = "sync-base-orders"
	JobRecalculateDailyStats = "recalculate-daily-stats"
	JobEvaluateWageStatus    = "evaluate-wage-status"
)

// DefaultLockTTLSeconds bounds how long a crashed holder blocks a job.
const DefaultLockTTLSeconds = 600

var ErrUnknownJob = errors.New("unknown cron job")

// Intervals configures the in-process schedule. A zero interval disables the job.
type Intervals struct {
	SyncBaseOrders        time.Duration
	RecalculateDailyStats time.Duration
	EvaluateWageStatus    time.Duration
}

// RunResult is the outcome of one guarded job invocation.
type RunResult struct {
	Job     string      `json:"job"`
	Skipped bool        `json:"skipped"`
	Data    interface{} `json:"data,omitempty"`
}

// Jobs runs the scheduled jobs under the shared job lock, so the HTTP cron
// endpoints and the in-process scheduler never overlap on the same job.
type Jobs struct {
	syncSvc    externalorder.SyncService
	recalcSvc  recalculation.RecalculationService
	wageSvc    wagestatus.WageStatusService
	locker     *joblock.Locker
	ttlSeconds int
	logger     *slog.Logger
}

func NewJobs(
	syncSvc externalorder.SyncService,
	recalcSvc recalculation.RecalculationService,
	wageSvc wagestatus.WageStatusService,
	locker *joblock.Locker,
	ttlSeconds int,
	logger *slog.Logger,
) *Jobs {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultLockTTLSeconds
	}
	return &Jobs{
		syncSvc:    syncSvc,
		recalcSvc:  recalcSvc,
		wageSvc:    wageSvc,
		locker:     locker,
		ttlSeconds: ttlSeconds,
		logger:     logger,
	}
}

func (j *Jobs) RegisterJobs(scheduler *Scheduler, intervals Intervals) {
	scheduler.AddJob(JobSyncBaseOrders, intervals.SyncBaseOrders, j.runner(JobSyncBaseOrders))
	scheduler.AddJob(JobRecalculateDailyStats, intervals.RecalculateDailyStats, j.runner(JobRecalculateDailyStats))
	scheduler.AddJob(JobEvaluateWageStatus, intervals.EvaluateWageStatus, j.runner(JobEvaluateWageStatus))
}

func (j *Jobs) runner(name string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := j.Run(ctx, name)
		return err
	}
}

// Run executes the named job. A job already held elsewhere returns Skipped.
func (j *Jobs) Run(ctx context.Context, name string) (RunResult, error) {
	switch name {
	case JobSyncBaseOrders:
		return j.SyncBaseOrders(ctx)
	case JobRecalculateDailyStats:
		return j.RecalculateDailyStats(ctx)
	case JobEvaluateWageStatus:
		return j.EvaluateWageStatus(ctx)
	}
	return RunResult{}, ErrUnknownJob
}

func (j *Jobs) SyncBaseOrders(ctx context.Context) (RunResult, error) {
	res, err := joblock.WithLock(ctx, j.locker, JobSyncBaseOrders, j.ttlSeconds, j.syncSvc.SyncAll)
	if err != nil {
		return RunResult{Job: JobSyncBaseOrders}, err
	}
	return j.result(JobSyncBaseOrders, res.Skipped, res.Value), nil
}

func (j *Jobs) RecalculateDailyStats(ctx context.Context) (RunResult, error) {
	res, err := joblock.WithLock(ctx, j.locker, JobRecalculateDailyStats, j.ttlSeconds, j.recalcSvc.RunScheduled)
	if err != nil {
		return RunResult{Job: JobRecalculateDailyStats}, err
	}
	res.Value.Skipped = res.Skipped
	return j.result(JobRecalculateDailyStats, res.Skipped, res.Value), nil
}

func (j *Jobs) EvaluateWageStatus(ctx context.Context) (RunResult, error) {
	res, err := joblock.WithLock(ctx, j.locker, JobEvaluateWageStatus, j.ttlSeconds, j.wageSvc.EvaluateAll)
	if err != nil {
		return RunResult{Job: JobEvaluateWageStatus}, err
	}
	return j.result(JobEvaluateWageStatus, res.Skipped, res.Value), nil
}

func (j *Jobs) result(name string, skipped bool, data interface{}) RunResult {
	if skipped {
		j.logger.Info("Cron job skipped, lock held", "job", name)
		return RunResult{Job: name, Skipped: true}
	}
	return RunResult{Job: name, Data: data}
}
