package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/appforge/internal/interfaces"
)

const testRetention = 30 * 24 * time.Hour

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestStore_Record(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(testRetention).WithClock(fixedClock(now))
	doc := &interfaces.ProjectDocument{Name: "shop"}

	record, err := store.Record(doc, RecordParams{
		EnvironmentID: "staging",
		Action:        interfaces.ActionApply,
		Status:        interfaces.RunStatusSuccess,
		Actor:         "alice",
		Summary:       &interfaces.ChangeSummary{Add: 2},
		Logs:          []string{"Apply complete!", "db_password=hunter2"},
		StartedAt:     now.Add(-time.Minute),
		FinishedAt:    now,
	})
	require.NoError(t, err)

	assert.True(t, len(record.ID) > len("run-"))
	assert.Equal(t, now.Add(testRetention), record.ExpiresAt)
	assert.Equal(t, []string{"Apply complete!", "db_password=[REDACTED]"}, record.Logs)
	require.Len(t, doc.DeploymentRunHistory, 1)
	assert.Same(t, record, doc.DeploymentRunHistory[0])
}

func TestStore_Record_PrependsNewest(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(testRetention).WithClock(fixedClock(now))
	doc := &interfaces.ProjectDocument{Name: "shop"}

	first, err := store.Record(doc, RecordParams{EnvironmentID: "staging", Action: interfaces.ActionPlan, Status: interfaces.RunStatusSuccess})
	require.NoError(t, err)
	second, err := store.Record(doc, RecordParams{EnvironmentID: "staging", Action: interfaces.ActionApply, Status: interfaces.RunStatusSuccess})
	require.NoError(t, err)

	require.Len(t, doc.DeploymentRunHistory, 2)
	assert.Equal(t, second.ID, doc.DeploymentRunHistory[0].ID)
	assert.Equal(t, first.ID, doc.DeploymentRunHistory[1].ID)
}

func TestStore_RetentionWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := &interfaces.ProjectDocument{
		Name: "shop",
		DeploymentRunHistory: []*interfaces.DeploymentRunRecord{
			{
				ID:            "run-old",
				EnvironmentID: "staging",
				CreatedAt:     now.Add(-35 * 24 * time.Hour),
				ExpiresAt:     now.Add(-5 * 24 * time.Hour),
			},
			{
				ID:            "run-recent",
				EnvironmentID: "staging",
				CreatedAt:     now.Add(-20 * 24 * time.Hour),
				ExpiresAt:     now.Add(10 * 24 * time.Hour),
			},
		},
	}

	store := NewStore(testRetention).WithClock(fixedClock(now))
	records := store.List(doc, "")
	require.Len(t, records, 1)
	assert.Equal(t, "run-recent", records[0].ID)
	assert.Len(t, doc.DeploymentRunHistory, 1, "expired records are dropped from the document")
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := &interfaces.ProjectDocument{
		Name: "shop",
		DeploymentRunHistory: []*interfaces.DeploymentRunRecord{
			{ID: "run-a", EnvironmentID: "staging", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(time.Hour)},
			{ID: "run-b", EnvironmentID: "prod", CreatedAt: now.Add(-1 * time.Hour), ExpiresAt: now.Add(time.Hour)},
			{ID: "run-c", EnvironmentID: "staging", CreatedAt: now.Add(-30 * time.Minute), ExpiresAt: now.Add(time.Hour)},
		},
	}
	store := NewStore(testRetention).WithClock(fixedClock(now))

	t.Run("AllEnvironmentsDescending", func(t *testing.T) {
		records := store.List(doc, "")
		require.Len(t, records, 3)
		assert.Equal(t, "run-c", records[0].ID)
		assert.Equal(t, "run-b", records[1].ID)
		assert.Equal(t, "run-a", records[2].ID)
	})

	t.Run("FilteredByEnvironment", func(t *testing.T) {
		records := store.List(doc, "staging")
		require.Len(t, records, 2)
		assert.Equal(t, "run-c", records[0].ID)
		assert.Equal(t, "run-a", records[1].ID)
	})

	t.Run("UnknownEnvironmentIsEmpty", func(t *testing.T) {
		assert.Empty(t, store.List(doc, "nosuch"))
	})
}
