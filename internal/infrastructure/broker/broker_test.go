package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/internal/config"
	"travel/internal/infrastructure/broker"
)

func TestMemoryBroker_everyGroupGetsEachMessage(t *testing.T) {
	b := broker.NewMemory(watermill.NopLogger{})
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var channels []<-chan *message.Message
	for _, group := range []string{"svc-users", "svc-flights"} {
		sub, err := b.Subscriber(group)
		require.NoError(t, err)
		messages, err := sub.Subscribe(ctx, "bookings")
		require.NoError(t, err)
		channels = append(channels, messages)
	}

	pub, err := b.Publisher()
	require.NoError(t, err)
	require.NoError(t, pub.Publish("bookings", message.NewMessage("m-1", []byte(`{}`))))

	for _, messages := range channels {
		select {
		case msg := <-messages:
			assert.Equal(t, "m-1", msg.UUID)
			msg.Ack()
		case <-ctx.Done():
			t.Fatal("message not delivered")
		}
	}
}

func TestNew_redisNeedsClient(t *testing.T) {
	_, err := broker.New(config.Config{BusDriver: config.BusRedis}, nil, watermill.NopLogger{})
	assert.Error(t, err)
}

func TestMarshaler_usesPartitionKey(t *testing.T) {
	msg := message.NewMessage("m-1", []byte(`{}`))
	msg.Metadata.Set(broker.PartitionKeyMetadata, "BKG1")

	produced, err := broker.Marshaler.Marshal("bookings", msg)
	require.NoError(t, err)

	key, err := produced.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "BKG1", string(key))
}
