package broker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"travel/internal/config"
)

// Broker opens publishers and per consumer group subscribers on the
// configured transport and closes them together.
type Broker struct {
	driver  string
	brokers []string
	redis   redis.UniversalClient
	logger  watermill.LoggerAdapter

	channel *gochannel.GoChannel

	mu      sync.Mutex
	closers []interface{ Close() error }
}

func New(cfg config.Config, redisClient redis.UniversalClient, logger watermill.LoggerAdapter) (*Broker, error) {
	b := &Broker{
		driver:  cfg.BusDriver,
		brokers: cfg.KafkaBrokers,
		redis:   redisClient,
		logger:  logger,
	}

	switch cfg.BusDriver {
	case config.BusMemory:
		b.channel = gochannel.NewGoChannel(gochannel.Config{}, logger)
		b.closers = append(b.closers, b.channel)
	case config.BusRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("bus driver %q needs a redis client", cfg.BusDriver)
		}
	case config.BusKafka:
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.BusDriver)
	}

	return b, nil
}

// NewMemory returns an in-process broker, used by tests.
func NewMemory(logger watermill.LoggerAdapter) *Broker {
	b, _ := New(config.Config{BusDriver: config.BusMemory}, nil, logger)
	return b
}

func (b *Broker) Publisher() (message.Publisher, error) {
	var (
		pub message.Publisher
		err error
	)
	switch b.driver {
	case config.BusMemory:
		return b.channel, nil
	case config.BusRedis:
		pub, err = NewRedisPublisher(b.logger, b.redis)
	case config.BusKafka:
		pub, err = NewKafkaPublisher(b.logger, b.brokers)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s publisher: %w", b.driver, err)
	}

	b.track(pub)
	return pub, nil
}

// Subscriber returns a subscriber of consumerGroup. Every group receives
// its own copy of each message.
func (b *Broker) Subscriber(consumerGroup string) (message.Subscriber, error) {
	var (
		sub message.Subscriber
		err error
	)
	switch b.driver {
	case config.BusMemory:
		return b.channel, nil
	case config.BusRedis:
		sub, err = NewRedisSubscriber(b.logger, b.redis, consumerGroup)
	case config.BusKafka:
		sub, err = NewKafkaSubscriber(b.logger, b.brokers, consumerGroup)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s subscriber %s: %w", b.driver, consumerGroup, err)
	}

	b.track(sub)
	return sub, nil
}

func (b *Broker) track(c interface{ Close() error }) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closers = append(b.closers, c)
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil

	return errors.Join(errs...)
}
