package event_publisher

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
)

const CorrelationIDMetadata = "correlation_id"

// CorrelationPublisherDecorator copies the correlation id of the message
// context into its metadata unless the message already carries one.
type CorrelationPublisherDecorator struct {
	message.Publisher
}

func (c CorrelationPublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if msg.Metadata.Get(CorrelationIDMetadata) != "" {
			continue
		}
		msg.Metadata.Set(CorrelationIDMetadata, log.CorrelationIDFromContext(msg.Context()))
	}
	return c.Publisher.Publish(topic, messages...)
}
