package broker

import (
	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// PartitionKeyMetadata is the metadata key used as the kafka message key.
const PartitionKeyMetadata = "partition_key"

// Marshaler keys every message by its partition key so events of one
// booking keep their order.
var Marshaler = kafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(PartitionKeyMetadata), nil
})

func NewKafkaPublisher(
	wlogger watermill.LoggerAdapter,
	brokers []string,
) (message.Publisher, error) {
	cfg := kafka.DefaultSaramaSyncPublisherConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             Marshaler,
			OverwriteSaramaConfig: cfg,
		},
		wlogger,
	)
}

func NewKafkaSubscriber(
	wlogger watermill.LoggerAdapter,
	brokers []string,
	consumerGroup string,
) (message.Subscriber, error) {
	cfg := kafka.DefaultSaramaSubscriberConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           Marshaler,
			ConsumerGroup:         consumerGroup,
			OverwriteSaramaConfig: cfg,
		},
		wlogger,
	)
}
