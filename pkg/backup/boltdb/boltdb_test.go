package boltdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

func newTestStorage(t *testing.T) *Storage {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s, err := New(filepath.Join(t.TempDir(), "backup.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStorage_WriteReadBackup(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	archivedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	records := []models.BackupRecord{
		{RunID: "run-1", GroupID: "a@x.com", PageID: "C", IdentityKey: "a@x.com", Attributes: map[string]any{"phone": "555"}, ArchivedAt: archivedAt},
		{RunID: "run-1", GroupID: "a@x.com", PageID: "B", IdentityKey: "a@x.com", Attributes: map[string]any{"tags": []any{"x"}}, ArchivedAt: archivedAt},
	}
	require.NoError(t, s.WriteBackup(ctx, "run-1", records))
	require.NoError(t, s.WriteBackup(ctx, "run-2", records[:1]))

	got, err := s.ReadBackup(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].PageID)
	assert.Equal(t, "C", got[1].PageID)
	assert.Equal(t, "555", got[1].Attributes["phone"])
	assert.True(t, archivedAt.Equal(got[1].ArchivedAt))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1", "run-2"}, runs)
}

func TestStorage_RewriteIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	rec := models.BackupRecord{RunID: "run-1", PageID: "B", Attributes: map[string]any{}}

	require.NoError(t, s.WriteBackup(ctx, "run-1", []models.BackupRecord{rec}))
	require.NoError(t, s.WriteBackup(ctx, "run-1", []models.BackupRecord{rec}))

	got, err := s.ReadBackup(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStorage_Errors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.ReadBackup(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.Error(t, s.WriteBackup(ctx, "", nil))
}

func TestNew_InvalidPath(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s, err := New(filepath.Join(t.TempDir(), "missing", "dir", "backup.db"), logger)
	assert.Error(t, err)
	assert.Nil(t, s)
}
