package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/internal/entities"
	"travel/internal/infrastructure/event_publisher"
	"travel/internal/interfaces/message/events"
)

func bookingMessage(t *testing.T, eventType entities.EventType) *message.Message {
	t.Helper()

	event := entities.NewBookingEvent(eventType, time.Now())
	event.BookingID = "BKG1"
	event.Type = entities.BookingTypeHotel
	if eventType == entities.EventBookingCreated {
		event.Data.BookingDetails = entities.HotelBookingDetails{
			HotelID:  "h-1",
			CheckIn:  time.Now().Add(24 * time.Hour),
			CheckOut: time.Now().Add(72 * time.Hour),
			Rooms:    map[string]int{"single": 1},
		}
	}

	msg, err := event_publisher.NewMessage(context.Background(), event, "billing")
	require.NoError(t, err)
	return msg
}

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) handler(name string) events.HandlerFunc {
	return func(ctx context.Context, event entities.BookingEvent) error {
		r.calls = append(r.calls, name+":"+event.BookingID)
		return r.err
	}
}

func TestBookingConsumer_Handle(t *testing.T) {
	testCases := []struct {
		name       string
		eventType  entities.EventType
		payload    string
		handlerErr error
		wantCalls  []string
		wantErr    error
	}{
		{
			name:      "created goes to the created handler",
			eventType: entities.EventBookingCreated,
			wantCalls: []string{"created:BKG1"},
		},
		{
			name:      "cancelled goes to the cancelled handler",
			eventType: entities.EventBookingCancelled,
			wantCalls: []string{"cancelled:BKG1"},
		},
		{
			name:      "event type without handler is acked",
			eventType: entities.EventBookingConfirmed,
		},
		{
			name:    "invalid json",
			payload: `{"eventType":`,
			wantErr: events.ErrJsonUnmarshal,
		},
		{
			name:    "event without booking id",
			payload: `{"eventType":"booking.cancelled","type":"car"}`,
			wantErr: events.ErrJsonUnmarshal,
		},
		{
			name:    "created without booking details",
			payload: `{"eventType":"booking.created","bookingId":"BKG1","type":"car"}`,
			wantErr: events.ErrJsonUnmarshal,
		},
		{
			name:    "unknown event type",
			payload: `{"eventType":"booking.archived","bookingId":"BKG1"}`,
			wantErr: events.ErrJsonUnmarshal,
		},
		{
			name:       "handler error is returned for retry",
			eventType:  entities.EventBookingCancelled,
			handlerErr: errors.New("database down"),
			wantCalls:  []string{"cancelled:BKG1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := &recorder{err: tc.handlerErr}
			consumer := events.NewBookingConsumer("hotels", "svc").
				On(entities.EventBookingCreated, r.handler("created")).
				On(entities.EventBookingCancelled, r.handler("cancelled"))

			msg := message.NewMessage("m-1", []byte(tc.payload))
			if tc.payload == "" {
				msg = bookingMessage(t, tc.eventType)
			}

			err := consumer.Handle(msg)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.handlerErr != nil:
				assert.ErrorIs(t, err, tc.handlerErr)
				assert.NotErrorIs(t, err, events.ErrJsonUnmarshal)
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantCalls, r.calls)
		})
	}
}

func TestBookingConsumer_names(t *testing.T) {
	consumer := events.NewBookingConsumer("cars", "travel")

	assert.Equal(t, "cars_booking_events", consumer.Name())
	assert.Equal(t, "travel-cars", consumer.Group())
}

type analyticsCache struct {
	invalidated []entities.EventType
}

func (a *analyticsCache) InvalidateAnalytics(ctx context.Context, event entities.BookingEvent) error {
	a.invalidated = append(a.invalidated, event.EventType)
	return nil
}

func TestAdminConsumer_invalidatesOnEveryBookingEvent(t *testing.T) {
	cache := &analyticsCache{}
	consumer := events.NewAdminConsumer("svc", cache)

	all := []entities.EventType{
		entities.EventBookingCreated,
		entities.EventBookingConfirmed,
		entities.EventBookingCancelled,
		entities.EventBookingFailed,
	}
	for _, eventType := range all {
		require.NoError(t, consumer.Handle(bookingMessage(t, eventType)))
	}

	assert.Equal(t, all, cache.invalidated)
}
