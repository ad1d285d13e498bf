// Package events publishes run outcomes to Kafka
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/kafka"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Publisher writes a batch of messages
type Publisher interface {
	Publish(ctx context.Context, messages ...kafka.Message) error
}

// Emitter is a ReportSink that emits one event per written group plus a run event
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WriteReport publishes group events followed by the run event in one batch.
// Planned groups of a dry run produce no group events.
func (e *Emitter) WriteReport(ctx context.Context, report *models.Report) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.WriteReport")
	defer span.End()

	messages := make([]kafka.Message, 0, len(report.Groups)+1)
	for _, g := range report.Groups {
		if g.Status == models.GroupStatusPlanned {
			continue
		}
		messages = append(messages, kafka.Message{
			Key:       g.GroupID,
			EventType: string(EventTypeGroupMerged),
			Value:     e.groupEvent(report, g),
		})
	}
	messages = append(messages, kafka.Message{
		Key:       report.Collection,
		EventType: string(EventTypeRunCompleted),
		Value:     e.runEvent(report),
	})

	if err := e.publisher.Publish(ctx, messages...); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("run_id", report.RunID).Error("Failed to emit run events")
		return err
	}
	return nil
}

func (e *Emitter) base(eventType EventType, report *models.Report) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Collection:    report.Collection,
		Timestamp:     e.now(),
		CorrelationID: report.RunID,
	}
}

func (e *Emitter) runEvent(report *models.Report) *RunCompletedEvent {
	return &RunCompletedEvent{
		BaseEvent:  e.base(EventTypeRunCompleted, report),
		RunID:      report.RunID,
		Mode:       report.Mode,
		Status:     report.Status,
		Message:    report.Message,
		Error:      report.Error,
		Counts:     report.Counts,
		Coverage:   report.Coverage,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
}

func (e *Emitter) groupEvent(report *models.Report, g models.GroupReport) *GroupMergedEvent {
	archived := make([]string, 0, len(g.Archived))
	for _, a := range g.Archived {
		if a.Archived {
			archived = append(archived, a.PageID)
		}
	}
	return &GroupMergedEvent{
		BaseEvent:         e.base(EventTypeGroupMerged, report),
		RunID:             report.RunID,
		GroupID:           g.GroupID,
		DestinationID:     g.DestinationID,
		ArchivedIDs:       archived,
		Updated:           g.Updated,
		ChangedAttributes: g.ChangedAttributes,
		Status:            g.Status,
		ErrorCount:        len(g.Errors),
	}
}
