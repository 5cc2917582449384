package arbiter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startSpan starts a span on the broker's tracer (a no-op tracer by
// default; see WithTracer), tagging it with the instance and topic.
func (b *Broker) startSpan(ctx context.Context, name, topic string) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("arbiter.instance_id", b.instanceID),
		attribute.String("arbiter.topic", topic),
	))
}
