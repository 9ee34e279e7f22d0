package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"

	"travel/internal/entities"
)

type HandlerFunc func(ctx context.Context, event entities.BookingEvent) error

// BookingConsumer is one service's subscription to the bookings topic.
// Each consumer reads through its own consumer group.
type BookingConsumer struct {
	name     string
	group    string
	handlers map[entities.EventType]HandlerFunc
}

func NewBookingConsumer(service, groupPrefix string) *BookingConsumer {
	return &BookingConsumer{
		name:     service + "_booking_events",
		group:    groupPrefix + "-" + service,
		handlers: map[entities.EventType]HandlerFunc{},
	}
}

func (c *BookingConsumer) On(eventType entities.EventType, h HandlerFunc) *BookingConsumer {
	c.handlers[eventType] = h
	return c
}

func (c *BookingConsumer) Name() string  { return c.name }
func (c *BookingConsumer) Group() string { return c.group }

func (c *BookingConsumer) AddTo(router *message.Router, subscriber message.Subscriber, topic string) {
	router.AddNoPublisherHandler(c.name, topic, subscriber, c.Handle)
}

// Handle decodes the event and runs the handler of its type. Event types
// the service does not handle are acked.
func (c *BookingConsumer) Handle(msg *message.Message) error {
	var event entities.BookingEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrJsonUnmarshal, err)
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrJsonUnmarshal, err)
	}

	h, ok := c.handlers[event.EventType]
	if !ok {
		log.FromContext(msg.Context()).
			WithField("consumer", c.name).
			WithField("event_type", event.EventType).
			Warn("No handler for event type, acking")
		return nil
	}

	return h(msg.Context(), event)
}
