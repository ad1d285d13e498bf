package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/config"
	"github.com/Ramsey-B/sorrel/pkg/logging"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/pipeline"
	"github.com/Ramsey-B/sorrel/pkg/routes/runs"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(`[
		{"id": "A", "created_at": "2024-01-01T00:00:00Z", "properties": {"email": "a@x.com"}},
		{"id": "B", "created_at": "2024-01-02T00:00:00Z", "properties": {"email": "a@x.com", "tags": ["vip"]}}
	]`), 0o600))

	return &config.Config{
		AppName:            "sorrel-test",
		StartupMaxAttempts: 1,
		StoreDriver:        StoreDriverMemory,
		StoreSeedFile:      seed,
		ChangeDetection:    string(models.ChangeDetectionCardinality),
		ExecutorWorkers:    2,
		BackupBoltPath:     filepath.Join(dir, "backup.db"),
	}
}

func TestApp_MemoryStore(t *testing.T) {
	ctx := context.Background()
	a, err := New(memoryConfig(t), logging.Nop())
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer func() { assert.NoError(t, a.Stop(ctx)) }()

	require.NotNil(t, a.Pipeline())
	require.NotNil(t, a.Backup())
	assert.Nil(t, a.Documents())
	assert.Empty(t, a.Checks())
	assert.IsType(t, &runs.MemoryHistory{}, a.History())

	report, err := a.Pipeline().Run(ctx, pipeline.RunOptions{RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, report.Status)
	assert.Equal(t, 1, report.Counts.RecordsArchived)

	stored, err := a.History().Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, report.RunID, stored.RunID)

	backup, err := a.Backup().ReadBackup(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, backup, 1)
}

func TestApp_CollectionOverride(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Collection = "people"

	a, err := New(cfg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "people", a.Policy().Collection)
}

func TestApp_PolicyFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.PolicyFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg, logging.Nop())
	assert.Error(t, err)
}

func TestApp_UnknownStoreDriver(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	cfg.StoreDriver = "cassandra"
	cfg.BackupBoltPath = ""

	a, err := New(cfg, logging.Nop())
	require.NoError(t, err)
	assert.Error(t, a.Start(ctx))
	assert.NoError(t, a.Stop(ctx))
}
