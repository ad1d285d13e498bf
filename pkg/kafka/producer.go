package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// SchemaVersion is stamped on every message header
const SchemaVersion = "1.0"

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// Message is an event to publish. Value is JSON encoded.
type Message struct {
	Key       string
	EventType string
	Value     any
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compressionCodec(cfg.Compression),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Topic returns the output topic
func (p *Producer) Topic() string {
	return p.topic
}

// Publish writes the messages in one batch
func (p *Producer) Publish(ctx context.Context, messages ...Message) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish")
	defer span.End()

	if len(messages) == 0 {
		return nil
	}

	out, err := p.encode(messages)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, out...)
	if err != nil {
		metrics.RecordKafkaPublish(p.topic, "error", time.Since(start).Seconds())
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(messages),
		}).Error("Failed to publish events batch")
		return err
	}
	metrics.RecordKafkaPublish(p.topic, "success", time.Since(start).Seconds())

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(messages),
		"topic":      p.topic,
	}).Debug("Published events batch")
	return nil
}

func (p *Producer) encode(messages []Message) ([]kafka.Message, error) {
	out := make([]kafka.Message, len(messages))
	for i, m := range messages {
		data, err := json.Marshal(m.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s event: %w", m.EventType, err)
		}
		out[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(m.Key),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(m.EventType)},
				{Key: "schema_version", Value: []byte(SchemaVersion)},
			},
		}
	}
	return out, nil
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Snappy
	}
}
