package events

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/lithammer/shortuuid/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"travel/internal/infrastructure/event_publisher"
)

// ErrJsonUnmarshal marks messages that can never be handled.
var ErrJsonUnmarshal = errors.New("json unmarshal error")

func CorrelationIDMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := msg.Metadata.Get(event_publisher.CorrelationIDMetadata)
		if correlationID == "" {
			correlationID = "gen_" + shortuuid.New()
		}

		ctx := log.ContextWithCorrelationID(msg.Context(), correlationID)
		ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{
			"correlation_id": correlationID,
			"message_uuid":   msg.UUID,
			"event_type":     msg.Metadata.Get(event_publisher.EventTypeMetadata),
			"handler":        message.HandlerNameFromCtx(msg.Context()),
		}))

		msg.SetContext(ctx)

		return next(msg)
	}
}

func LoggingMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := log.FromContext(msg.Context())
		logger.
			WithField("payload", string(msg.Payload)).
			WithField("metadata", msg.Metadata).
			Info("Handling a message")

		start := time.Now()
		msgs, err := next(msg)
		if err != nil {
			logger.
				WithError(err).
				WithField("duration", time.Since(start).String()).
				Error("Message handling error")
		}

		return msgs, err
	}
}

// SkipMarshallingErrorsMiddleware acks malformed messages so they are
// neither retried nor dead lettered.
func SkipMarshallingErrorsMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		msgs, err := h(msg)
		if err != nil && errors.Is(err, ErrJsonUnmarshal) {
			log.FromContext(msg.Context()).
				WithError(err).
				Warn("Skipping malformed message")
			messagesSkippedTotal.WithLabelValues(message.HandlerNameFromCtx(msg.Context()), "malformed").Inc()
			return nil, nil
		}

		return msgs, err
	}
}

var (
	messagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_processed_total",
		Help: "Total number of messages processed",
	}, []string{"topic", "handler", "event_type"})
	messagesProcessingFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_processing_failed_total",
		Help: "Total number of messages processing failures",
	}, []string{"topic", "handler", "event_type"})
	messagesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_skipped_total",
		Help: "Total number of messages acked without handling",
	}, []string{"handler", "reason"})

	messagesProcessingDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Name:       "messages_processing_duration_seconds",
		Help:       "Duration of message processing in seconds",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"topic", "handler"})
)

func MetricsMiddleware(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		topic := message.SubscribeTopicFromCtx(msg.Context())
		handler := message.HandlerNameFromCtx(msg.Context())
		eventType := msg.Metadata.Get(event_publisher.EventTypeMetadata)

		start := time.Now()
		msgs, err := next(msg)
		messagesProcessingDuration.WithLabelValues(topic, handler).Observe(time.Since(start).Seconds())

		messagesProcessedTotal.WithLabelValues(topic, handler, eventType).Inc()
		if err != nil {
			messagesProcessingFailedTotal.WithLabelValues(topic, handler, eventType).Inc()
		}

		return msgs, err
	}
}
