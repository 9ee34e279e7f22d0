package flights_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/internal/domain"
	"travel/internal/domain/flights"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newFlight(t *testing.T, seats int) *flights.Flight {
	t.Helper()

	f, err := flights.NewFlight(flights.Flight{
		ID:               "f-1",
		Airline:          "Test Air",
		DepartureAirport: flights.Airport{Code: "SFO"},
		ArrivalAirport:   flights.Airport{Code: "JFK"},
		Outbound: flights.SeatInventory{
			FlightNumber:      "TA100",
			DepartureDateTime: t0,
			ArrivalDateTime:   t0.Add(5 * time.Hour),
			Class:             flights.ClassEconomy,
			TicketPrice:       decimal.NewFromInt(200),
			TotalSeats:        seats,
			AvailableSeats:    seats,
		},
	}, t0)
	require.NoError(t, err)
	return f
}

func statusOf(f *flights.Flight, seatNumber string) flights.SeatStatus {
	for _, s := range f.Outbound.SeatMap {
		if s.SeatNumber == seatNumber {
			return s.Status
		}
	}
	return ""
}

func TestGenerateSeatMap(t *testing.T) {
	m := flights.GenerateSeatMap(14, flights.ClassBusiness)

	require.Len(t, m, 14)
	assert.Equal(t, "1A", m[0].SeatNumber)
	assert.Equal(t, "1F", m[5].SeatNumber)
	assert.Equal(t, "3B", m[13].SeatNumber)
	assert.Equal(t, 3, m[13].Row)
	for _, s := range m {
		assert.Equal(t, flights.SeatAvailable, s.Status)
		assert.Equal(t, flights.ClassBusiness, s.Class)
		assert.Nil(t, s.BookedBy)
	}

	assert.Empty(t, flights.GenerateSeatMap(0, flights.ClassEconomy))
}

func TestSeatInventory_EnsureSeatMapIsIdempotent(t *testing.T) {
	f := newFlight(t, 12)
	_, err := f.Outbound.Reserve([]string{"1A"}, "B1", "U1", t0)
	require.NoError(t, err)

	assert.False(t, f.Outbound.EnsureSeatMap())
	assert.Equal(t, flights.SeatReserved, statusOf(f, "1A"))
}

func TestSeatInventory_Reserve(t *testing.T) {
	t.Run("reserves and decrements", func(t *testing.T) {
		f := newFlight(t, 12)

		res, err := f.Outbound.Reserve([]string{"1A", "1B"}, "BKG1", "U1", t0)
		require.NoError(t, err)

		assert.Equal(t, []string{"1A", "1B"}, res.ReservedSeats)
		assert.Equal(t, 10, f.Outbound.AvailableSeats)
		assert.Equal(t, flights.SeatReserved, statusOf(f, "1A"))
	})

	t.Run("same holder is idempotent", func(t *testing.T) {
		f := newFlight(t, 12)

		_, err := f.Outbound.Reserve([]string{"1A"}, "BKG1", "U1", t0)
		require.NoError(t, err)
		res, err := f.Outbound.Reserve([]string{"1A", "1B"}, "BKG1", "U1", t0)
		require.NoError(t, err)

		assert.Equal(t, []string{"1A", "1B"}, res.ReservedSeats)
		assert.Equal(t, 1, res.NewlyReserved)
		assert.Equal(t, 10, f.Outbound.AvailableSeats)
	})

	t.Run("other holder is rejected", func(t *testing.T) {
		f := newFlight(t, 12)

		_, err := f.Outbound.Reserve([]string{"1A"}, "BKG1", "U1", t0)
		require.NoError(t, err)
		_, err = f.Outbound.Reserve([]string{"1A"}, "BKG2", "U2", t0)

		var unavailable domain.UnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, []string{"1A"}, unavailable.Items)
	})

	t.Run("batch with a booked seat leaves nothing reserved", func(t *testing.T) {
		f := newFlight(t, 12)
		_, err := f.Outbound.Reserve([]string{"2C"}, "BKG0", "U0", t0)
		require.NoError(t, err)
		f.Outbound.Confirm([]string{"2C"}, "BKG0")
		_, err = f.Outbound.Reserve([]string{"1D"}, "BKG1", "U1", t0)
		require.NoError(t, err)
		before := f.Outbound.AvailableSeats

		_, err = f.Outbound.Reserve([]string{"1A", "1B", "1B", "2C", "9Z"}, "BKG1", "U1", t0)

		var unavailable domain.UnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.ElementsMatch(t, []string{"2C", "9Z"}, unavailable.Items)
		assert.Equal(t, flights.SeatAvailable, statusOf(f, "1A"))
		assert.Equal(t, flights.SeatAvailable, statusOf(f, "1B"))
		assert.Equal(t, flights.SeatBooked, statusOf(f, "2C"))
		assert.Equal(t, flights.SeatReserved, statusOf(f, "1D"), "earlier holds are kept")
		assert.Equal(t, before, f.Outbound.AvailableSeats)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFlight(t, 2)

		_, err := f.Outbound.Reserve(nil, "B", "U", t0)
		assert.True(t, domain.IsValidation(err))

		_, err = f.Outbound.Reserve([]string{"1A", "1B", "1C"}, "B", "U", t0)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("repeated seat numbers count once against capacity", func(t *testing.T) {
		f := newFlight(t, 2)

		res, err := f.Outbound.Reserve([]string{"1A", "1A", "1A", "1B"}, "BKG1", "U1", t0)
		require.NoError(t, err)

		assert.Equal(t, []string{"1A", "1B"}, res.ReservedSeats)
		assert.Equal(t, 0, f.Outbound.AvailableSeats)

		confirmed, err := f.Outbound.Confirm([]string{"1A", "1B", "1B"}, "BKG1")
		require.NoError(t, err)
		assert.Equal(t, []string{"1A", "1B"}, confirmed)
	})
}

func TestSeatInventory_ExpiryReleasesExactlyTheHeldSeats(t *testing.T) {
	f := newFlight(t, 30)
	_, err := f.Outbound.Reserve([]string{"1A", "1B", "1C"}, "BKG1", "U1", t0)
	require.NoError(t, err)
	_, err = f.Outbound.Reserve([]string{"2A"}, "BKG2", "U2", t0.Add(10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 26, f.Outbound.AvailableSeats)

	released := f.Outbound.CleanupExpired(t0.Add(16*time.Minute), flights.DefaultReservationTTL)

	assert.Equal(t, 3, released)
	assert.Equal(t, 29, f.Outbound.AvailableSeats)
	assert.Equal(t, flights.SeatAvailable, statusOf(f, "1A"))
	assert.Equal(t, flights.SeatReserved, statusOf(f, "2A"))

	again := f.Outbound.CleanupExpired(t0.Add(16*time.Minute), flights.DefaultReservationTTL)
	assert.Zero(t, again)
}

func TestSeatInventory_Confirm(t *testing.T) {
	f := newFlight(t, 12)
	_, err := f.Outbound.Reserve([]string{"1A", "1B"}, "BKG1", "U1", t0)
	require.NoError(t, err)
	_, err = f.Outbound.Reserve([]string{"1C"}, "BKG2", "U2", t0)
	require.NoError(t, err)

	confirmed, err := f.Outbound.Confirm([]string{"1A", "1B", "1C", "2A"}, "BKG1")
	require.NoError(t, err)

	assert.Equal(t, []string{"1A", "1B"}, confirmed)
	assert.Equal(t, flights.SeatReserved, statusOf(f, "1C"))
	assert.Equal(t, flights.SeatAvailable, statusOf(f, "2A"))
	assert.Equal(t, 9, f.Outbound.AvailableSeats)

	_, err = f.Outbound.Confirm([]string{"1A"}, "")
	assert.True(t, domain.IsValidation(err))
}

func TestSeatInventory_Release(t *testing.T) {
	f := newFlight(t, 12)
	_, err := f.Outbound.Reserve([]string{"1A"}, "BKG1", "U1", t0)
	require.NoError(t, err)
	_, err = f.Outbound.Reserve([]string{"1B"}, "BKG2", "U2", t0)
	require.NoError(t, err)
	_, err = f.Outbound.Reserve([]string{"1C"}, "BKG3", "U3", t0)
	require.NoError(t, err)

	released, err := f.Outbound.Release([]string{"1A", "1B"}, "BKG1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1A"}, released)

	released, err = f.Outbound.Release([]string{"1B"}, "", "U2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1B"}, released)

	released, err = f.Outbound.Release([]string{"1C"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1C"}, released)

	assert.Equal(t, 12, f.Outbound.AvailableSeats)
}

func TestFlight_RestoreBookingIsClampedAndScoped(t *testing.T) {
	f := newFlight(t, 12)
	_, err := f.Outbound.Reserve([]string{"1A", "1B"}, "BKG1", "U1", t0)
	require.NoError(t, err)
	_, err = f.Outbound.Confirm([]string{"1A", "1B"}, "BKG1")
	require.NoError(t, err)
	_, err = f.Outbound.Reserve([]string{"2A"}, "BKG2", "U2", t0)
	require.NoError(t, err)
	_, err = f.Outbound.Confirm([]string{"2A"}, "BKG2")
	require.NoError(t, err)

	// counter drifted to the total while seats are still booked
	f.Outbound.AvailableSeats = 11

	released := f.RestoreBooking("BKG1")

	assert.Equal(t, 2, released)
	assert.Equal(t, 12, f.Outbound.AvailableSeats)
	assert.Equal(t, flights.SeatAvailable, statusOf(f, "1A"))
	assert.Equal(t, flights.SeatAvailable, statusOf(f, "1B"))
	assert.Equal(t, flights.SeatBooked, statusOf(f, "2A"))
	assert.False(t, f.HasBooking("BKG1"))
	assert.True(t, f.HasBooking("BKG2"))

	assert.Zero(t, f.RestoreBooking("BKG1"))
}

func TestFlight_BookedSeatsAlwaysCarryBookingID(t *testing.T) {
	f := newFlight(t, 18)
	for i, booking := range []string{"B1", "B2", "B3"} {
		seats := []string{f.Outbound.SeatMap[i*2].SeatNumber, f.Outbound.SeatMap[i*2+1].SeatNumber}
		_, err := f.Outbound.Reserve(seats, booking, "U", t0)
		require.NoError(t, err)
		_, err = f.Outbound.Confirm(seats, booking)
		require.NoError(t, err)
	}

	owners := map[string]int{}
	for _, s := range f.Outbound.SeatMap {
		if s.Status != flights.SeatBooked {
			continue
		}
		require.NotNil(t, s.BookedBy)
		require.NotEmpty(t, s.BookedBy.BookingID)
		owners[s.BookedBy.BookingID]++
	}
	assert.Equal(t, map[string]int{"B1": 2, "B2": 2, "B3": 2}, owners)
}

func TestNewFlight_validation(t *testing.T) {
	_, err := flights.NewFlight(flights.Flight{
		ID:      "f-2",
		Airline: "Test Air",
		Outbound: flights.SeatInventory{
			FlightNumber:   "TA1",
			Class:          "Premium",
			TotalSeats:     61,
			AvailableSeats: 70,
		},
	}, t0)

	fields := map[string]bool{}
	for _, fe := range domain.FieldErrors(err) {
		fields[fe.Field] = true
	}
	assert.True(t, fields["airport"])
	assert.True(t, fields["class"])
	assert.True(t, fields["totalAvailableSeats"])
	assert.True(t, fields["availableSeats"])
}

func TestFlight_ApplyReportsPriceDrops(t *testing.T) {
	f := newFlight(t, 6)
	lower := decimal.NewFromInt(150)

	drops, err := f.Apply(flights.Update{TicketPrice: &lower}, t0.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, drops, 1)
	assert.True(t, drops[0].OldPrice.Equal(decimal.NewFromInt(200)))
	assert.True(t, f.Outbound.TicketPrice.Equal(lower))

	_, err = f.Apply(flights.Update{ReturnTicketPrice: &lower}, t0)
	assert.True(t, domain.IsValidation(err))
}
