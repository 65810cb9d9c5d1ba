// Package schedule runs the worker's periodic jobs (settlement sweep,
// activation sweep, housekeeping) on a gocron scheduler.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Task is one periodic job. A run that outlasts Every delays the next one
// instead of overlapping it.
type Task struct {
	Name    string
	Every   time.Duration
	Timeout time.Duration // zero means Every
	Run     func(ctx context.Context) error
}

// Start registers every task with a positive interval, runs each once
// immediately and keeps scheduling until ctx is cancelled. The returned
// scheduler is already started; callers Shutdown it on exit.
func Start(ctx context.Context, tasks []Task, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	for _, t := range tasks {
		if t.Every <= 0 {
			logger.Info("Job disabled", "job", t.Name)
			continue
		}
		_, err := sched.NewJob(
			gocron.DurationJob(t.Every),
			gocron.NewTask(runner(ctx, t, logger)),
			gocron.WithName(t.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("schedule %s: %w", t.Name, err)
		}
		logger.Info("Job scheduled", "job", t.Name, "every", t.Every)
	}

	sched.Start()
	return sched, nil
}

func runner(ctx context.Context, t Task, logger *slog.Logger) func() {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = t.Every
	}
	return func() {
		if ctx.Err() != nil {
			return
		}
		rctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := time.Now()
		if err := t.Run(rctx); err != nil {
			logger.Error("Job failed", "job", t.Name, "duration", time.Since(start).Round(time.Millisecond), "error", err)
			return
		}
		logger.Debug("Job finished", "job", t.Name, "duration", time.Since(start).Round(time.Millisecond))
	}
}
