package message

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"travel/internal/interfaces/message/events"
	"travel/internal/observability"
)

type RouterConfig struct {
	BookingsTopic string
	DLQTopic      string

	RetryMax             int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
}

// NewRouter builds a router running every consumer on its own subscriber.
// Messages that still fail after the retries go to the dead letter topic.
func NewRouter(
	watermillLogger watermill.LoggerAdapter,
	cfg RouterConfig,
	dlqPublisher message.Publisher,
	subscriberFor func(consumerGroup string) (message.Subscriber, error),
	consumers ...*events.BookingConsumer,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, err
	}

	if err := initMiddlewares(watermillLogger, router, cfg, dlqPublisher); err != nil {
		return nil, err
	}

	for _, c := range consumers {
		sub, err := subscriberFor(c.Group())
		if err != nil {
			return nil, fmt.Errorf("subscriber for %s: %w", c.Name(), err)
		}
		c.AddTo(router, sub, cfg.BookingsTopic)
	}

	return router, nil
}

func initMiddlewares(
	watermillLogger watermill.LoggerAdapter,
	router *message.Router,
	cfg RouterConfig,
	dlqPublisher message.Publisher,
) error {
	router.AddMiddleware(observability.TracingMiddleware)
	router.AddMiddleware(events.CorrelationIDMiddleware)
	router.AddMiddleware(events.LoggingMiddleware)

	if dlqPublisher != nil && cfg.DLQTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(dlqPublisher, cfg.DLQTopic)
		if err != nil {
			return fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poisonQueue)
	}

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      cfg.RetryMax,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)
	router.AddMiddleware(middleware.Recoverer)

	// skip marshalling errors before retrying
	router.AddMiddleware(events.SkipMarshallingErrorsMiddleware)
	router.AddMiddleware(events.MetricsMiddleware)

	return nil
}
