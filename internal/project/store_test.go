package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/appforge/internal/interfaces"
)

func sampleDocument() *interfaces.ProjectDocument {
	planAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &interfaces.ProjectDocument{
		Name:              "shop",
		ProviderConnected: true,
		Backend: interfaces.BackendSettings{
			Bucket:       "acme-infra-state",
			Region:       "us-east-1",
			StatePrefix:  "projects/shop",
			LockStrategy: "dynamodb",
		},
		Environments: map[string]*interfaces.EnvironmentConfig{
			"staging": {
				Capabilities: []interfaces.Capability{interfaces.CapabilityAppRuntime, interfaces.CapabilityPostgres},
				Constraints:  map[string]string{"region": "us-east-1"},
			},
		},
		DeploymentState: map[string]*interfaces.EnvironmentDeploymentState{
			"staging": {
				LastStatus:          interfaces.StatusHealthy,
				LastPlanAt:          &planAt,
				LastStatusUpdatedAt: planAt,
			},
		},
		EnvironmentOutputs: map[string][]*interfaces.ResolvedOutput{
			"staging": {
				{Key: "appUrl", Type: interfaces.OutputTypeString, Source: interfaces.OutputSourceProvider, Value: "https://shop.example.com"},
			},
		},
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	ctx := context.Background()
	doc := sampleDocument()

	require.NoError(t, store.Save(ctx, "shop", doc))

	loaded, err := store.Load(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", loaded.Name)
	assert.True(t, loaded.ProviderConnected)
	assert.Equal(t, doc.Backend, loaded.Backend)
	require.Contains(t, loaded.Environments, "staging")
	assert.Equal(t, doc.Environments["staging"].Capabilities, loaded.Environments["staging"].Capabilities)

	state := loaded.DeploymentState["staging"]
	require.NotNil(t, state)
	assert.Equal(t, interfaces.StatusHealthy, state.LastStatus)
	require.NotNil(t, state.LastPlanAt)
	assert.True(t, state.LastPlanAt.Equal(*doc.DeploymentState["staging"].LastPlanAt))

	outputs := loaded.EnvironmentOutputs["staging"]
	require.Len(t, outputs, 1)
	assert.Equal(t, "https://shop.example.com", outputs[0].Value)
}

func TestFileStore_LoadMissingDocument(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	_, err := store.Load(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestFileStore_LoadToleratesUnknownFields(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := `{"name":"shop","providerConnected":true,"futureField":{"nested":1}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.json"), []byte(raw), 0o600))

	store := NewFileStore(dir)
	loaded, err := store.Load(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", loaded.Name)
}

func TestFileStore_SaveIsAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "shop", sampleDocument()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shop.json", entries[0].Name())

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_Delete(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "shop", sampleDocument()))
	require.NoError(t, store.Delete(ctx, "shop"))

	_, err := store.Load(ctx, "shop")
	require.Error(t, err)

	assert.Error(t, store.Delete(ctx, "shop"), "deleting a missing document fails")
}
