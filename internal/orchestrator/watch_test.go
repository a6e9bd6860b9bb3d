package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/appforge/appforge/internal/interfaces"
)

func TestOrchestrator_Watch(t *testing.T) {
	t.Parallel()

	t.Run("ReportsEveryTargetThenStopsOnCancel", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed("staging", "prod")

		reported := make(chan string, 8)
		f.runner.On("Report", mock.Anything).Run(func(mock.Arguments) {
			reported <- "report"
		}).Return(&interfaces.ReportResult{Status: interfaces.StatusHealthy}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- f.orch.Watch(ctx, testProject, []WatchTarget{
				{EnvironmentID: "staging", WorkDir: "/tmp/ws/staging"},
				{EnvironmentID: "prod", WorkDir: "/tmp/ws/prod"},
			}, time.Hour)
		}()

		// The first cycle runs immediately; both targets must be reported.
		for i := 0; i < 2; i++ {
			select {
			case <-reported:
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for watch cycle reports")
			}
		}

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop after cancellation")
		}
	})

	t.Run("ReportFailureDoesNotAbortTheCycle", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.seed("staging")

		reported := make(chan struct{}, 4)
		f.runner.On("Report", mock.Anything).Run(func(mock.Arguments) {
			reported <- struct{}{}
		}).Return(nil, assert.AnError)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- f.orch.Watch(ctx, testProject, []WatchTarget{
				{EnvironmentID: "staging", WorkDir: "/tmp/ws/staging"},
			}, 20*time.Millisecond)
		}()

		// At least two cycles must complete despite every report failing.
		for i := 0; i < 2; i++ {
			select {
			case <-reported:
			case <-time.After(5 * time.Second):
				t.Fatal("timed out waiting for watch cycles")
			}
		}

		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})
}
