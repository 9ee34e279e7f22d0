package event_publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"

	"travel/internal/entities"
	"travel/internal/infrastructure/broker"
	"travel/internal/observability"
)

const (
	EventTypeMetadata = "event-type"
	ServiceMetadata   = "service"
)

// NewMessage encodes a booking event with the metadata every consumer and
// transport relies on. The event id doubles as the message uuid.
func NewMessage(ctx context.Context, event entities.BookingEvent, service string) (*message.Message, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal booking event: %w", err)
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.Metadata.Set(EventTypeMetadata, string(event.EventType))
	msg.Metadata.Set(ServiceMetadata, service)
	msg.Metadata.Set(broker.PartitionKeyMetadata, event.PartitionKey())
	msg.Metadata.Set(CorrelationIDMetadata, log.CorrelationIDFromContext(ctx))
	msg.SetContext(ctx)

	return msg, nil
}

// BookingPublisher publishes booking events to the bookings topic.
type BookingPublisher struct {
	publisher message.Publisher
	topic     string
	service   string
}

func NewBookingPublisher(publisher message.Publisher, topic, service string) *BookingPublisher {
	return &BookingPublisher{
		publisher: observability.PublisherWithTracing{
			Publisher: CorrelationPublisherDecorator{Publisher: publisher},
		},
		topic:   topic,
		service: service,
	}
}

func (p *BookingPublisher) Publish(ctx context.Context, event entities.BookingEvent) error {
	msg, err := NewMessage(ctx, event, p.service)
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.EventType, p.topic, err)
	}

	log.FromContext(ctx).
		WithField("event_id", event.EventID).
		WithField("event_type", event.EventType).
		WithField("booking_id", event.BookingID).
		Info("Booking event published")

	return nil
}
