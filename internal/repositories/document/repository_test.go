package document_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/internal/repositories/document"
	"github.com/Ramsey-B/sorrel/internal/testenv"
	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

func getTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func getTestDB(t *testing.T) database.DB {
	dsn, dbName := testenv.Postgres(t)
	db, err := database.Connect(context.Background(), dsn, database.PoolConfig{}, getTestLogger())
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(getTestLogger(), &database.MigrationConfig{MigrationFolderPath: "../../../db/pg"})
	require.NoError(t, migrations.MigratePostgres(db, dbName))
	return db
}

func TestRepository_QueryAllPaginates(t *testing.T) {
	db := getTestDB(t)
	repo := document.NewRepository(db, 2, getTestLogger())
	ctx := context.Background()
	collection := "contacts-" + uuid.NewString()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []models.Document{
		{ID: collection + "-a", CreatedAt: &created, Properties: map[string]any{"email": "a@x.com", "status": "lead"}},
		{ID: collection + "-b", Properties: map[string]any{"email": "b@x.com", "status": "customer"}},
		{ID: collection + "-c", Properties: map[string]any{"email": "c@x.com", "status": "lead"}},
		{ID: collection + "-d", Properties: map[string]any{"email": "d@x.com"}},
		{ID: collection + "-e", Properties: map[string]any{"email": "e@x.com", "status": "lead"}},
	}
	require.NoError(t, repo.Insert(ctx, collection, docs))

	got, err := repo.QueryAll(ctx, collection, nil)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, d := range got {
		assert.Equal(t, docs[i].ID, d.ID)
		assert.Equal(t, collection, d.Collection)
	}
	require.NotNil(t, got[0].CreatedAt)
	assert.True(t, created.Equal(*got[0].CreatedAt))
	assert.Nil(t, got[1].CreatedAt)

	filtered, err := repo.QueryAll(ctx, collection, &models.QueryFilter{Properties: map[string]any{"status": "lead"}})
	require.NoError(t, err)
	assert.Len(t, filtered, 3)
}

func TestRepository_UpdatePartialAndArchive(t *testing.T) {
	db := getTestDB(t)
	repo := document.NewRepository(db, 100, getTestLogger())
	ctx := context.Background()
	collection := "contacts-" + uuid.NewString()
	id := collection + "-a"

	require.NoError(t, repo.Insert(ctx, collection, []models.Document{
		{ID: id, Properties: map[string]any{"email": "a@x.com", "phone": ""}},
	}))

	require.NoError(t, repo.UpdatePartial(ctx, id, map[string]any{"phone": "555", "tags": []string{"vip"}}))

	got, err := repo.QueryAll(ctx, collection, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a@x.com", got[0].Properties["email"])
	assert.Equal(t, "555", got[0].Properties["phone"])
	assert.Equal(t, []any{"vip"}, got[0].Properties["tags"])

	require.NoError(t, repo.Archive(ctx, id))

	got, err = repo.QueryAll(ctx, collection, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	err = repo.Archive(ctx, id)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))

	err = repo.UpdatePartial(ctx, collection+"-missing", map[string]any{"phone": "1"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
