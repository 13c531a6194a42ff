package di

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/aristath/bullbear/internal/config"
	"github.com/aristath/bullbear/internal/modules/pipeline"
	"github.com/aristath/bullbear/internal/scheduler"
	"github.com/rs/zerolog"
)

// Job names
const (
	JobDailyPipeline = "daily_pipeline"
	JobBacktest      = "backtest"
)

// BacktestWindow is how far back the scheduled backtest replays
const BacktestWindow = 52 * 7 * 24 * time.Hour

// JobInstances holds the created jobs for manual triggering via the API
type JobInstances struct {
	DailyPipeline scheduler.Job
	Backtest      scheduler.Job
	CacheCleanup  scheduler.Job
	WALCheckpoint scheduler.Job
}

// All returns every job.
func (j *JobInstances) All() []scheduler.Job {
	return []scheduler.Job{j.DailyPipeline, j.Backtest, j.CacheCleanup, j.WALCheckpoint}
}

// RegisterJobs creates the jobs and, when sched is not nil, adds each one
// whose schedule is set.
func RegisterJobs(container *Container, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Pipeline == nil {
		return nil, errors.New("container cannot be nil")
	}
	cfg := container.Config

	instances := &JobInstances{
		DailyPipeline: scheduler.NewFuncJob(JobDailyPipeline, 2*time.Hour, func(ctx context.Context) error {
			tickers, err := config.LoadTickers(cfg.TickersPath())
			if err != nil {
				return err
			}
			_, err = container.Pipeline.RunDaily(ctx, tickers, pipeline.Options{Upload: cfg.UploadOutput})
			return err
		}),
		Backtest: scheduler.NewFuncJob(JobBacktest, 6*time.Hour, func(ctx context.Context) error {
			tickers, err := config.LoadTickers(cfg.TickersPath())
			if err != nil {
				return err
			}
			end := time.Now()
			_, err = container.Pipeline.RunBacktest(ctx, tickers, end.Add(-BacktestWindow), end)
			return err
		}),
		CacheCleanup:  clientdata.NewCleanupJob(container.ClientData, log),
		WALCheckpoint: scheduler.NewCheckWALCheckpointsJob(container.CacheDB, log),
	}

	if sched == nil {
		return instances, nil
	}

	schedules := container.Settings.Schedules
	entries := []struct {
		spec string
		job  scheduler.Job
	}{
		{schedules.Daily, instances.DailyPipeline},
		{schedules.Backtest, instances.Backtest},
		{schedules.CacheCleanup, instances.CacheCleanup},
		{schedules.WALCheckpoint, instances.WALCheckpoint},
	}
	for _, e := range entries {
		if e.spec == "" {
			log.Info().Str("job", e.job.Name()).Msg("Job has no schedule, manual only")
			continue
		}
		if err := sched.AddJob(e.spec, e.job); err != nil {
			return nil, err
		}
	}
	return instances, nil
}
