package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTraceID(t *testing.T) {
	t.Cleanup(func() { SetTracer(nil) })

	ctx, span := StartSpan(context.Background(), "untraced")
	span.End()
	assert.Empty(t, GetTraceID(ctx))

	p, err := Setup(context.Background(), Config{ServiceName: "sorrel-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx, span = StartSpan(context.Background(), "traced")
	defer span.End()
	id := GetTraceID(ctx)
	assert.Len(t, id, 32)
	assert.Equal(t, span.SpanContext().TraceID().String(), id)
}

func TestSetup_UnsupportedProtocol(t *testing.T) {
	t.Cleanup(func() { SetTracer(nil) })

	_, err := Setup(context.Background(), Config{ServiceName: "sorrel-test", Endpoint: "localhost:4317", Protocol: "udp"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported OTLP protocol")
}
