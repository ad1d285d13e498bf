package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

type recordingPublisher struct {
	batches [][]kafka.Message
	err     error
}

func (r *recordingPublisher) Publish(_ context.Context, messages ...kafka.Message) error {
	r.batches = append(r.batches, messages)
	return r.err
}

func newTestEmitter(pub Publisher) *Emitter {
	e := NewEmitter(pub, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	e.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestEmitter_WriteReport(t *testing.T) {
	pub := &recordingPublisher{}
	e := newTestEmitter(pub)

	report := &models.Report{
		RunID:      "run-1",
		Collection: "contacts",
		Mode:       models.RunModeLive,
		Status:     models.RunStatusPartialFailure,
		Counts:     models.ReportCounts{Groups: 2, RecordsArchived: 1, Errors: 1},
		Groups: []models.GroupReport{
			{
				GroupID:           "a@x.com",
				DestinationID:     "A",
				Status:            models.GroupStatusSuccess,
				Updated:           true,
				ChangedAttributes: []string{"phone"},
				Archived:          []models.ArchivedSource{{PageID: "B", Archived: true}},
			},
			{
				GroupID:       "c@x.com",
				DestinationID: "C",
				Status:        models.GroupStatusPartialFailure,
				Archived:      []models.ArchivedSource{{PageID: "D", Archived: false}},
				Errors:        []models.MutationError{{Kind: models.MutationArchiveSource, PageID: "D", Message: "boom"}},
			},
		},
	}

	require.NoError(t, e.WriteReport(context.Background(), report))
	require.Len(t, pub.batches, 1)
	batch := pub.batches[0]
	require.Len(t, batch, 3)

	assert.Equal(t, "a@x.com", batch[0].Key)
	assert.Equal(t, string(EventTypeGroupMerged), batch[0].EventType)
	group := batch[0].Value.(*GroupMergedEvent)
	assert.Equal(t, []string{"B"}, group.ArchivedIDs)
	assert.Equal(t, "run-1", group.CorrelationID)
	assert.True(t, group.Updated)

	failed := batch[1].Value.(*GroupMergedEvent)
	assert.Empty(t, failed.ArchivedIDs)
	assert.Equal(t, 1, failed.ErrorCount)

	assert.Equal(t, "contacts", batch[2].Key)
	run := batch[2].Value.(*RunCompletedEvent)
	assert.Equal(t, EventTypeRunCompleted, run.EventType)
	assert.Equal(t, models.RunStatusPartialFailure, run.Status)
	assert.Equal(t, 1, run.Counts.RecordsArchived)
}

func TestEmitter_DryRunEmitsRunEventOnly(t *testing.T) {
	pub := &recordingPublisher{}
	e := newTestEmitter(pub)

	report := &models.Report{
		RunID:  "run-2",
		Mode:   models.RunModeDryRun,
		Status: models.RunStatusPlanned,
		Groups: []models.GroupReport{{GroupID: "a@x.com", Status: models.GroupStatusPlanned}},
	}
	require.NoError(t, e.WriteReport(context.Background(), report))
	require.Len(t, pub.batches[0], 1)
	assert.Equal(t, string(EventTypeRunCompleted), pub.batches[0][0].EventType)
}

func TestEmitter_PublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	e := newTestEmitter(pub)

	err := e.WriteReport(context.Background(), &models.Report{RunID: "run-3"})
	assert.EqualError(t, err, "broker down")
}
