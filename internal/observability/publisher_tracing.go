package observability

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "travel"

// PublisherWithTracing opens a producer span per message and injects its
// context into the metadata.
type PublisherWithTracing struct {
	message.Publisher
}

func (p PublisherWithTracing) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		ctx, span := otel.Tracer(tracerName).Start(
			messages[i].Context(),
			"publish "+topic,
			trace.WithSpanKind(trace.SpanKindProducer),
			trace.WithAttributes(
				attribute.String("messaging.destination", topic),
				attribute.String("messaging.message_id", messages[i].UUID),
			),
		)
		otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(messages[i].Metadata))
		span.End()
	}
	return p.Publisher.Publish(topic, messages...)
}

// TracingMiddleware continues the trace carried in the message metadata.
func TracingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := otel.GetTextMapPropagator().Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))

		ctx, span := otel.Tracer(tracerName).Start(
			ctx,
			message.HandlerNameFromCtx(msg.Context()),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.source", message.SubscribeTopicFromCtx(msg.Context())),
				attribute.String("messaging.message_id", msg.UUID),
			),
		)
		defer span.End()

		msg.SetContext(ctx)

		msgs, err := next(msg)
		if err != nil {
			span.RecordError(err)
		}
		return msgs, err
	}
}
