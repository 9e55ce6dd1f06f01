package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const traceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func TestTraceParent(t *testing.T) {
	t.Run("should leave the context alone without a tracer", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "test")
		defer span.End()
		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetTraceParent(ctx))
	})

	t.Run("should continue a remote trace", func(t *testing.T) {
		SetTracer(sdktrace.NewTracerProvider().Tracer("test"))
		t.Cleanup(func() { SetTracer(nil) })

		ctx := WithTraceParent(context.Background(), traceParent)
		ctx, span := StartSpan(ctx, "processor.ProcessMessage")
		defer span.End()

		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
		assert.Contains(t, GetTraceParent(ctx), "4bf92f3577b34da6a3ce929d0e0e4736")
	})

	t.Run("should ignore an empty trace parent", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, ctx, WithTraceParent(ctx, ""))
	})
}
