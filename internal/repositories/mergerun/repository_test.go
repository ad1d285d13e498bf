package mergerun_test

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

	"github.com/Ramsey-B/sorrel/internal/repositories/mergerun"
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

func TestRepository_WriteGetList(t *testing.T) {
	db := getTestDB(t)
	repo := mergerun.NewRepository(db, getTestLogger())
	ctx := context.Background()
	collection := "contacts-" + uuid.NewString()
	started := time.Now().UTC().Truncate(time.Millisecond)

	report := &models.Report{
		RunID:      uuid.NewString(),
		Collection: collection,
		Mode:       models.RunModeLive,
		Status:     models.RunStatusPartialFailure,
		Message:    "merged 1 duplicate groups, archived 0 records",
		Counts:     models.ReportCounts{Groups: 1, Errors: 1},
		Groups:     []models.GroupReport{{GroupID: "a@x.com", DestinationID: "A", Status: models.GroupStatusPartialFailure}},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	require.NoError(t, repo.WriteReport(ctx, report))

	report.Status = models.RunStatusSuccess
	report.Counts.Errors = 0
	require.NoError(t, repo.WriteReport(ctx, report), "rewriting a run upserts")

	got, err := repo.Get(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, got.Status)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "A", got.Groups[0].DestinationID)

	runs, err := repo.List(ctx, collection, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].RunID)
	assert.Equal(t, 0, runs[0].Errors)
	assert.Equal(t, 1, runs[0].Groups)

	_, err = repo.Get(ctx, uuid.NewString())
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
