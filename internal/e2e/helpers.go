// Package e2e drives a running sorrel service over HTTP and Kafka
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sorrel/pkg/httpclient"
	"github.com/Ramsey-B/sorrel/pkg/logging"
)

// Config holds e2e configuration
type Config struct {
	BaseURL      string
	KafkaBrokers []string
	EventsTopic  string
}

// DefaultConfig reads the e2e configuration from the environment
func DefaultConfig() Config {
	cfg := Config{
		BaseURL:     getEnv("SORREL_URL", "http://localhost:3004"),
		EventsTopic: getEnv("KAFKA_OUTPUT_TOPIC", "sorrel-events"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// APIClient calls the sorrel API
type APIClient struct {
	client  *httpclient.Client
	baseURL string
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 2 * time.Minute
	return &APIClient{
		client:  httpclient.NewClient(cfg, logging.Nop()),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Get performs a GET request
func (c *APIClient) Get(ctx context.Context, path string) (*httpclient.Response, error) {
	return c.client.DoJSON(ctx, http.MethodGet, c.baseURL+path, nil, nil)
}

// Post performs a POST request with a JSON body
func (c *APIClient) Post(ctx context.Context, path string, body any) (*httpclient.Response, error) {
	return c.client.DoJSON(ctx, http.MethodPost, c.baseURL+path, nil, body)
}

// RequireService skips the test when the service is not reachable
func RequireService(t *testing.T, client *APIClient) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/api/v1/health/live")
	if err != nil || !resp.IsSuccess() {
		t.Skipf("sorrel not reachable at %s", client.baseURL)
	}
}

// Event is a decoded message from the events topic
type Event struct {
	Headers map[string]string
	Body    map[string]any
}

// ConsumeEvents reads events whose correlation id matches runID until want are found or
// the timeout passes
func ConsumeEvents(ctx context.Context, brokers []string, topic, runID string, want int, timeout time.Duration) ([]Event, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		Partition:   0,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	defer reader.Close()

	events := make([]Event, 0, want)
	deadline := time.Now().Add(timeout)
	for len(events) < want && time.Now().Before(deadline) {
		readCtx, cancel := context.WithTimeout(ctx, time.Second)
		msg, err := reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return events, ctx.Err()
			}
			continue
		}

		var body map[string]any
		if err := json.Unmarshal(msg.Value, &body); err != nil {
			continue
		}
		if body["correlation_id"] != runID {
			continue
		}

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		events = append(events, Event{Headers: headers, Body: body})
	}
	return events, nil
}
