package orchestrator

import (
	"context"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/appforge/appforge/pkg/logging"
)

// watchWorkers bounds how many environments are reported on concurrently in
// one watch cycle. Report takes no lock, so concurrent cycles are safe.
const watchWorkers = 4

// WatchTarget names one environment to refresh in watch mode
type WatchTarget struct {
	EnvironmentID string
	WorkDir       string
}

// Watch repeatedly issues a read-only report for each target on a timer until
// the context is cancelled. Each cycle is independent: a failure in one cycle
// is logged and never aborts subsequent cycles.
func (o *Orchestrator) Watch(ctx context.Context, project string, targets []WatchTarget, interval time.Duration) error {
	if interval <= 0 {
		interval = o.cfg.WatchInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Watch.Info("watching %d environment(s) of project %s every %s", len(targets), project, interval)
	o.watchCycle(ctx, project, targets)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.watchCycle(ctx, project, targets)
		}
	}
}

// watchCycle reports on every target concurrently and waits for the cycle to finish
func (o *Orchestrator) watchCycle(ctx context.Context, project string, targets []WatchTarget) {
	pool := workerpool.New(watchWorkers)
	for _, target := range targets {
		target := target
		pool.Submit(func() {
			result, err := o.Report(ctx, RunRequest{
				Project:       project,
				EnvironmentID: target.EnvironmentID,
				WorkDir:       target.WorkDir,
				Actor:         "watch",
			})
			if err != nil {
				logging.Watch.Warn("watch report failed for environment %s: %v", target.EnvironmentID, err)
				return
			}
			logging.Watch.Info("environment %s: %s", target.EnvironmentID, result.EnvironmentStatus)
		})
	}
	pool.StopWait()
}
