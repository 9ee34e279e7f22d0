package hotels_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"travel/internal/application/usecases/hotels"
	"travel/internal/domain"
	hdomain "travel/internal/domain/hotels"
	"travel/internal/entities"
	"travel/internal/repository/memory"
)

func setup(t *testing.T) *hotels.Usecase {
	t.Helper()
	return setupWithNotifier(t, nil)
}

func setupWithNotifier(t *testing.T, notifier hotels.PriceDropNotifier) *hotels.Usecase {
	t.Helper()

	uc := hotels.NewUsecase(memory.NewHotelsRepository(), notifier, func() time.Time {
		return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	})
	_, err := uc.Create(context.Background(), hdomain.Hotel{
		ID:             "h-1",
		Name:           "Grand",
		City:           "Lisbon",
		NumberOfRooms:  10,
		AvailableRooms: 10,
		RoomTypes: []hdomain.RoomType{
			{Type: hdomain.RoomSingle, PricePerNight: decimal.NewFromInt(80), Available: 4, MaxGuests: 1},
			{Type: hdomain.RoomDouble, PricePerNight: decimal.NewFromInt(120), Available: 6, MaxGuests: 2},
		},
	})
	require.NoError(t, err)
	return uc
}

func TestUpdateRoomsAndReleaseOnCancel(t *testing.T) {
	ctx := context.Background()
	uc := setup(t)

	hotel, err := uc.UpdateRooms(ctx, "h-1", hdomain.RoomsRequest{
		RoomTypes: map[string]int{hdomain.RoomDouble: 2},
		BookingID: "BKG1",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, hotel.AvailableRooms)

	event := entities.NewBookingEvent(entities.EventBookingCancelled, time.Now())
	event.BookingID = "BKG1"
	event.Type = entities.BookingTypeHotel
	event.ItemID = "h-1"

	require.NoError(t, uc.ReleaseOnCancel(ctx, event))
	require.NoError(t, uc.ReleaseOnCancel(ctx, event), "a redelivery is a no-op")

	hotel, err = uc.Get(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, 10, hotel.AvailableRooms)
	assert.Equal(t, 6, hotel.RoomTypes[1].Available)
}

func TestUpdateRooms_notEnough(t *testing.T) {
	uc := setup(t)

	_, err := uc.UpdateRooms(context.Background(), "h-1", hdomain.RoomsRequest{
		RoomTypes: map[string]int{hdomain.RoomSingle: 5, hdomain.RoomSuite: 1},
	})
	require.True(t, domain.IsUnavailable(err))
	assert.ErrorContains(t, err, "Not enough SINGLE rooms available")
	assert.ErrorContains(t, err, "Room type SUITE not found")

	hotel, err := uc.Get(context.Background(), "h-1")
	require.NoError(t, err)
	assert.Equal(t, 10, hotel.AvailableRooms)
}

func TestUpdateRooms_unknownHotel(t *testing.T) {
	uc := setup(t)

	_, err := uc.UpdateRooms(context.Background(), "nope", hdomain.RoomsRequest{Rooms: 1})
	assert.True(t, domain.IsNotFound(err))
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyHotelPriceDrop(ctx context.Context, userID string, hotel hdomain.Hotel, drop hdomain.PriceDrop) error {
	args := m.Called(ctx, userID, hotel, drop)
	return args.Error(0)
}

func TestUpdate_priceDropNotifiesGuests(t *testing.T) {
	ctx := context.Background()
	notifier := &MockNotifier{}
	uc := setupWithNotifier(t, notifier)

	for _, req := range []hdomain.RoomsRequest{
		{Rooms: 1, BookingID: "BKG1", UserID: "U1"},
		{Rooms: 1, BookingID: "BKG2", UserID: "U1"},
		{Rooms: 1, BookingID: "BKG3", UserID: "U2"},
	} {
		_, err := uc.UpdateRooms(ctx, "h-1", req)
		require.NoError(t, err)
	}

	isDoubleDrop := mock.MatchedBy(func(d hdomain.PriceDrop) bool {
		return d.RoomType == hdomain.RoomDouble && d.OldPrice.Equal(decimal.NewFromInt(120)) && d.NewPrice.Equal(decimal.NewFromInt(100))
	})
	notifier.On("NotifyHotelPriceDrop", mock.Anything, "U1", mock.Anything, isDoubleDrop).Return(nil).Once()
	notifier.On("NotifyHotelPriceDrop", mock.Anything, "U2", mock.Anything, isDoubleDrop).Return(errors.New("user service down")).Once()

	name := "Grand Palace"
	hotel, err := uc.Update(ctx, "h-1", hdomain.Update{
		Name: &name,
		RoomPrices: map[string]decimal.Decimal{
			hdomain.RoomSingle: decimal.NewFromInt(90),
			hdomain.RoomDouble: decimal.NewFromInt(100),
		},
	})
	require.NoError(t, err, "notification failures never fail the update")

	assert.Equal(t, "Grand Palace", hotel.Name)
	assert.True(t, hotel.RoomTypes[0].PricePerNight.Equal(decimal.NewFromInt(90)))
	assert.True(t, hotel.RoomTypes[1].PricePerNight.Equal(decimal.NewFromInt(100)))
	notifier.AssertExpectations(t)
}

func TestUpdate_invalidChangeKeepsHotel(t *testing.T) {
	ctx := context.Background()
	uc := setup(t)

	_, err := uc.Update(ctx, "h-1", hdomain.Update{
		RoomPrices: map[string]decimal.Decimal{
			hdomain.RoomSingle: decimal.NewFromInt(10),
			hdomain.RoomSuite:  decimal.NewFromInt(500),
		},
	})
	require.True(t, domain.IsValidation(err))

	hotel, err := uc.Get(ctx, "h-1")
	require.NoError(t, err)
	assert.True(t, hotel.RoomTypes[0].PricePerNight.Equal(decimal.NewFromInt(80)))

	_, err = uc.Update(ctx, "nope", hdomain.Update{})
	assert.True(t, domain.IsNotFound(err))
}
