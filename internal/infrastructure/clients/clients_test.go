package clients_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/internal/domain/cars"
	"travel/internal/domain/flights"
	"travel/internal/domain/hotels"
	"travel/internal/domain/users"
	"travel/internal/entities"
	"travel/internal/infrastructure/clients"
)

type recorded struct {
	path          string
	body          map[string]any
	correlationID string
}

func server(t *testing.T, status int) (*httptest.Server, *[]recorded) {
	t.Helper()

	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, recorded{
			path:          r.URL.Path,
			body:          body,
			correlationID: r.Header.Get("Correlation-ID"),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func TestUsersClient_AddBooking(t *testing.T) {
	srv, calls := server(t, http.StatusCreated)
	c := clients.NewUsersClient(srv.URL+"/", time.Second)

	ctx := log.ContextWithCorrelationID(context.Background(), "corr-1")
	err := c.AddBooking(ctx, "U1", users.HistoryEntry{
		BookingID: "BKG1",
		Type:      entities.BookingTypeFlight,
		Status:    users.StatusUpcoming,
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/api/users/U1/bookings", call.path)
	assert.Equal(t, "BKG1", call.body["bookingId"])
	assert.Equal(t, "corr-1", call.correlationID)
}

func TestBillingClient_serverErrorIsUnavailable(t *testing.T) {
	srv, calls := server(t, http.StatusInternalServerError)
	c := clients.NewBillingClient(srv.URL, time.Second)

	err := c.CancelByBooking(context.Background(), "BKG1", "Booking cancelled by user")
	assert.True(t, errors.Is(err, clients.ServiceUnavailableError))

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/billing/cancel-by-booking", (*calls)[0].path)
	assert.Equal(t, "Booking cancelled by user", (*calls)[0].body["reason"])
}

func TestBillingClient_breakerOpensAfterFailures(t *testing.T) {
	srv, calls := server(t, http.StatusBadGateway)
	c := clients.NewBillingClient(srv.URL, time.Second)

	for i := 0; i < 10; i++ {
		_ = c.CancelByBooking(context.Background(), "BKG1", "")
	}
	assert.Len(t, *calls, 5, "open breaker stops calling the service")
}

func TestNotificationsClient_NotifyPriceDrop(t *testing.T) {
	srv, calls := server(t, http.StatusOK)
	c := clients.NewNotificationsClient(srv.URL, time.Second)

	flight := flights.Flight{
		ID:               "f-1",
		DepartureAirport: flights.Airport{Code: "WAW", City: "Warsaw"},
		ArrivalAirport:   flights.Airport{Code: "LHR"},
	}
	err := c.NotifyPriceDrop(context.Background(), "U1", flight, flights.PriceDrop{
		FlightNumber: "AA1",
		OldPrice:     decimal.NewFromInt(400),
		NewPrice:     decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/api/users/service/notifications/create/U1", call.path)
	assert.Equal(t, "Price Drop Alert!", call.body["title"])
	assert.Equal(t, "deal", call.body["relatedType"])
	assert.Equal(t,
		"Great news! The flight from Warsaw to LHR (AA1) has dropped by $100.00 (25%). New price: $300.00",
		call.body["message"],
	)
}

func TestNotificationsClient_hotelAndCarPriceDrops(t *testing.T) {
	srv, calls := server(t, http.StatusOK)
	c := clients.NewNotificationsClient(srv.URL, time.Second)
	ctx := context.Background()

	err := c.NotifyHotelPriceDrop(ctx, "U1", hotels.Hotel{ID: "h-1", Name: "Grand", City: "Lisbon"}, hotels.PriceDrop{
		RoomType: hotels.RoomDouble,
		OldPrice: decimal.NewFromInt(120),
		NewPrice: decimal.NewFromInt(90),
	})
	require.NoError(t, err)

	err = c.NotifyCarPriceDrop(ctx, "U2", cars.Car{ID: "c-1", Model: "Corolla"}, cars.PriceDrop{
		OldPrice: decimal.NewFromInt(40),
		NewPrice: decimal.NewFromInt(30),
	})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, "/api/users/service/notifications/create/U1", (*calls)[0].path)
	assert.Equal(t, "h-1", (*calls)[0].body["relatedId"])
	assert.Equal(t,
		"Great news! Grand in Lisbon (h-1) has dropped by $30.00 (25.0%). New price: $90.00 per night for DOUBLE rooms",
		(*calls)[0].body["message"],
	)
	assert.Equal(t, "/api/users/service/notifications/create/U2", (*calls)[1].path)
	assert.Equal(t,
		"Great news! Corolla in Location (c-1) has dropped by $10.00 (25.0%). New price: $30.00 per day",
		(*calls)[1].body["message"],
	)
}
