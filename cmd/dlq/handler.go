package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"travel/internal/infrastructure/event_publisher"
)

var errMessageNotFound = errors.New("message not found")

type DeadLetter struct {
	ID        string
	EventType string
	Reason    string
}

// Handler walks the dead letter topic once per command. Every message it
// keeps is published back to the end of the topic.
type Handler struct {
	subscriber    message.Subscriber
	publisher     message.Publisher
	dlqTopic      string
	bookingsTopic string
	logger        watermill.LoggerAdapter
	timeout       time.Duration
}

func NewHandler(
	subscriber message.Subscriber,
	publisher message.Publisher,
	dlqTopic string,
	bookingsTopic string,
	logger watermill.LoggerAdapter,
) *Handler {
	return &Handler{
		subscriber:    subscriber,
		publisher:     publisher,
		dlqTopic:      dlqTopic,
		bookingsTopic: bookingsTopic,
		logger:        logger,
		timeout:       10 * time.Second,
	}
}

func (h *Handler) Preview(ctx context.Context) ([]DeadLetter, error) {
	res := make([]DeadLetter, 0)

	err := h.scan(ctx, "preview_dead_letters", func(msg *message.Message) (bool, bool, error) {
		res = append(res, DeadLetter{
			ID:        msg.UUID,
			EventType: msg.Metadata.Get(event_publisher.EventTypeMetadata),
			Reason:    msg.Metadata.Get(middleware.ReasonForPoisonedKey),
		})
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Remove drops the message with the given id.
func (h *Handler) Remove(ctx context.Context, id string) error {
	found := false

	err := h.scan(ctx, "remove_dead_letter", func(msg *message.Message) (bool, bool, error) {
		if msg.UUID != id {
			return true, false, nil
		}
		found = true
		return false, true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return errMessageNotFound
	}

	return nil
}

// Replay moves the message with the given id back to the bookings topic.
func (h *Handler) Replay(ctx context.Context, id string) error {
	found := false

	err := h.scan(ctx, "replay_dead_letter", func(msg *message.Message) (bool, bool, error) {
		if msg.UUID != id {
			return true, false, nil
		}

		replayed := msg.Copy()
		for _, key := range []string{
			middleware.ReasonForPoisonedKey,
			middleware.PoisonedTopicKey,
			middleware.PoisonedHandlerKey,
			middleware.PoisonedSubscriberKey,
		} {
			delete(replayed.Metadata, key)
		}

		if err := h.publisher.Publish(h.bookingsTopic, replayed); err != nil {
			return true, true, fmt.Errorf("replay %s: %w", id, err)
		}

		found = true
		return false, true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return errMessageNotFound
	}

	return nil
}

// visitFunc reports whether msg stays in the topic and whether the walk is
// over.
type visitFunc func(msg *message.Message) (keep bool, stop bool, err error)

func (h *Handler) scan(ctx context.Context, name string, visit visitFunc) error {
	router, err := message.NewRouter(message.RouterConfig{}, h.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	firstMessageID := ""
	done := false
	var visitErr error

	router.AddHandler(
		name,
		h.dlqTopic,
		h.subscriber,
		h.dlqTopic,
		h.publisher,
		func(msg *message.Message) ([]*message.Message, error) {
			if done {
				cancel()
				return nil, fmt.Errorf("done")
			}

			if firstMessageID == "" {
				firstMessageID = msg.UUID
			} else if msg.UUID == firstMessageID {
				done = true
				return []*message.Message{msg}, nil
			}

			keep, stop, err := visit(msg)
			if err != nil {
				visitErr = err
			}
			if stop {
				done = true
			}
			if !keep {
				return nil, nil
			}

			return []*message.Message{msg}, nil
		},
	)

	if err := router.Run(ctx); err != nil {
		return err
	}

	return visitErr
}
