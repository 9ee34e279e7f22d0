package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jmoiron/sqlx"

	"travel/internal/entities"
	"travel/internal/infrastructure/event_publisher"
)

// Topic holds booking events the bus rejected until the forwarder
// delivers them.
const Topic = "bookings_outbox"

// Outbox stores failed booking events and replays them to the bus.
type Outbox struct {
	publisher     message.Publisher
	forwarder     *forwarder.Forwarder
	bookingsTopic string
	service       string
}

// NewPostgres keeps pending events in the watermill sql tables.
func NewPostgres(
	db *sqlx.DB,
	bus message.Publisher,
	bookingsTopic string,
	service string,
	logger watermill.LoggerAdapter,
) (*Outbox, error) {
	subscriber, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:  watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter: watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox subscriber: %w", err)
	}

	if err := subscriber.SubscribeInitialize(Topic); err != nil {
		return nil, fmt.Errorf("failed to initialize outbox schema: %w", err)
	}

	publisher, err := watermillSQL.NewPublisher(
		db,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create outbox publisher: %w", err)
	}

	return newOutbox(subscriber, publisher, bus, bookingsTopic, service, logger)
}

// NewMemory keeps pending events in process.
func NewMemory(
	bus message.Publisher,
	bookingsTopic string,
	service string,
	logger watermill.LoggerAdapter,
) (*Outbox, error) {
	channel := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, logger)
	return newOutbox(channel, channel, bus, bookingsTopic, service, logger)
}

func newOutbox(
	subscriber message.Subscriber,
	publisher message.Publisher,
	bus message.Publisher,
	bookingsTopic string,
	service string,
	logger watermill.LoggerAdapter,
) (*Outbox, error) {
	fwd, err := forwarder.NewForwarder(subscriber, bus, logger, forwarder.Config{
		ForwarderTopic: Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create forwarder: %w", err)
	}

	return &Outbox{
		publisher: forwarder.NewPublisher(publisher, forwarder.PublisherConfig{
			ForwarderTopic: Topic,
		}),
		forwarder:     fwd,
		bookingsTopic: bookingsTopic,
		service:       service,
	}, nil
}

// Store enqueues the event for the bookings topic.
func (o *Outbox) Store(ctx context.Context, event entities.BookingEvent) error {
	msg, err := event_publisher.NewMessage(ctx, event, o.service)
	if err != nil {
		return err
	}

	if err := o.publisher.Publish(o.bookingsTopic, msg); err != nil {
		return fmt.Errorf("store %s in outbox: %w", event.EventType, err)
	}

	log.FromContext(ctx).
		WithField("event_id", event.EventID).
		WithField("event_type", event.EventType).
		Info("Booking event stored in outbox")

	return nil
}

// Run forwards stored events until ctx is done.
func (o *Outbox) Run(ctx context.Context) error {
	return o.forwarder.Run(ctx)
}

func (o *Outbox) Running() chan struct{} {
	return o.forwarder.Running()
}

func (o *Outbox) Close() error {
	return o.forwarder.Close()
}
