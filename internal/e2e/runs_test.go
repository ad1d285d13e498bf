package e2e

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/events"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

func setup(t *testing.T) (Config, *APIClient) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping e2e test in short mode")
	}
	if os.Getenv("SORREL_URL") == "" {
		t.Skip("SORREL_URL not set")
	}
	cfg := DefaultConfig()
	client := NewAPIClient(cfg.BaseURL)
	RequireService(t, client)
	return cfg, client
}

func TestRuns_DryRunIsStored(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	resp, err := client.Post(ctx, "/api/v1/runs", map[string]any{"mode": models.RunModeDryRun})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))

	var report models.Report
	require.NoError(t, resp.Decode(&report))
	assert.Contains(t, []models.RunStatus{models.RunStatusPlanned, models.RunStatusNoDuplicates}, report.Status)
	assert.Equal(t, 0, report.Counts.MutationsExecuted)

	resp, err = client.Get(ctx, "/api/v1/runs/"+report.RunID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Report
	require.NoError(t, resp.Decode(&stored))
	assert.Equal(t, report.RunID, stored.RunID)
	assert.Equal(t, report.Counts, stored.Counts)
}

func TestRuns_RejectsUnknownMode(t *testing.T) {
	_, client := setup(t)

	resp, err := client.Post(context.Background(), "/api/v1/runs", map[string]any{"mode": "everything"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRuns_PublishesRunCompleted(t *testing.T) {
	cfg, client := setup(t)
	if len(cfg.KafkaBrokers) == 0 {
		t.Skip("KAFKA_BROKERS not set")
	}
	ctx := context.Background()

	resp, err := client.Post(ctx, "/api/v1/runs", map[string]any{"mode": models.RunModeDryRun})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(resp.Body))
	var report models.Report
	require.NoError(t, resp.Decode(&report))

	received, err := ConsumeEvents(ctx, cfg.KafkaBrokers, cfg.EventsTopic, report.RunID, 1, 30*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, received, "no run event for %s", report.RunID)

	last := received[len(received)-1]
	assert.Equal(t, string(events.EventTypeRunCompleted), last.Headers["event_type"])
	assert.Equal(t, report.RunID, last.Body["run_id"])
}
