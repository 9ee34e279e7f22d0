package hotels_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/internal/domain"
	"travel/internal/domain/hotels"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newHotel(t *testing.T) *hotels.Hotel {
	t.Helper()

	h, err := hotels.NewHotel(hotels.Hotel{
		ID:             "h-1",
		Name:           "Seaside",
		NumberOfRooms:  10,
		AvailableRooms: 10,
		RoomTypes: []hotels.RoomType{
			{Type: hotels.RoomSingle, PricePerNight: decimal.NewFromInt(80), Available: 5},
			{Type: hotels.RoomDouble, PricePerNight: decimal.NewFromInt(120), Available: 3},
			{Type: hotels.RoomSuite, PricePerNight: decimal.NewFromInt(300), Available: 2},
		},
	}, now)
	require.NoError(t, err)
	return h
}

func available(h *hotels.Hotel, t string) int {
	for _, rt := range h.RoomTypes {
		if rt.Type == t {
			return rt.Available
		}
	}
	return -1
}

func TestHotel_UpdateRoomsByType(t *testing.T) {
	h := newHotel(t)

	err := h.UpdateRooms(hotels.RoomsRequest{RoomTypes: map[string]int{"SINGLE": 2, "SUITE": 1}}, now)
	require.NoError(t, err)

	assert.Equal(t, 3, available(h, hotels.RoomSingle))
	assert.Equal(t, 1, available(h, hotels.RoomSuite))
	assert.Equal(t, 7, h.AvailableRooms)
}

func TestHotel_UpdateRoomsRejectsWholeRequest(t *testing.T) {
	h := newHotel(t)

	err := h.UpdateRooms(hotels.RoomsRequest{RoomTypes: map[string]int{"SINGLE": 2, "DOUBLE": 4, "PENTHOUSE": 1}}, now)

	var unavailable domain.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"Not enough DOUBLE rooms available", "Room type PENTHOUSE not found"}, unavailable.Items)
	assert.Equal(t, 5, available(h, hotels.RoomSingle), "partial decrements must not persist")
	assert.Equal(t, 10, h.AvailableRooms)
}

func TestHotel_UpdateRoomsAggregate(t *testing.T) {
	h := newHotel(t)

	require.NoError(t, h.UpdateRooms(hotels.RoomsRequest{Rooms: 9}, now))
	assert.Equal(t, 1, h.AvailableRooms)

	err := h.UpdateRooms(hotels.RoomsRequest{Rooms: 2}, now)
	assert.True(t, domain.IsUnavailable(err))

	err = h.UpdateRooms(hotels.RoomsRequest{}, now)
	assert.True(t, domain.IsValidation(err))
}

func TestHotel_ReleaseBookingRestoresOnce(t *testing.T) {
	h := newHotel(t)
	req := hotels.RoomsRequest{RoomTypes: map[string]int{"DOUBLE": 2}, BookingID: "BKG1"}

	require.NoError(t, h.UpdateRooms(req, now))
	require.NoError(t, h.UpdateRooms(req, now), "repeated booking id is a no-op")
	assert.Equal(t, 1, available(h, hotels.RoomDouble))
	assert.Equal(t, 8, h.AvailableRooms)

	assert.True(t, h.ReleaseBooking("BKG1", now))
	assert.False(t, h.ReleaseBooking("BKG1", now))
	assert.Equal(t, 3, available(h, hotels.RoomDouble))
	assert.Equal(t, 10, h.AvailableRooms)
}

func TestHotel_ReleaseBookingIsClamped(t *testing.T) {
	h := newHotel(t)
	require.NoError(t, h.UpdateRooms(hotels.RoomsRequest{RoomTypes: map[string]int{"SUITE": 1}, BookingID: "BKG1"}, now))

	// counters were corrected by an operator in the meantime
	h.RoomTypes[2].Available = 2
	h.AvailableRooms = 10

	require.True(t, h.ReleaseBooking("BKG1", now))
	assert.Equal(t, 2, available(h, hotels.RoomSuite))
	assert.Equal(t, 10, h.AvailableRooms)
}

func TestNewHotel_validation(t *testing.T) {
	_, err := hotels.NewHotel(hotels.Hotel{
		ID:             "h-2",
		Name:           "Broken",
		NumberOfRooms:  2,
		AvailableRooms: 3,
		RoomTypes:      []hotels.RoomType{{Type: "BUNK", Available: 1}},
	}, now)

	require.True(t, domain.IsValidation(err))
	assert.Len(t, domain.FieldErrors(err), 2)
}
