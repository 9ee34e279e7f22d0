package users_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"travel/internal/application/usecases/users"
	"travel/internal/domain"
	udomain "travel/internal/domain/users"
	"travel/internal/entities"
	"travel/internal/repository/memory"
)

type MockBilling struct {
	mock.Mock
}

func (m *MockBilling) CancelByBooking(ctx context.Context, bookingID, reason string) error {
	args := m.Called(ctx, bookingID, reason)
	return args.Error(0)
}

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*users.Usecase, *MockBilling) {
	t.Helper()

	billing := &MockBilling{}
	uc := users.NewUsecase(memory.NewUsersRepository(), billing, func() time.Time { return now })

	_, err := uc.Create(context.Background(), udomain.User{ID: "u-1", UserID: "123-45-6789", Email: "a@example.com"})
	require.NoError(t, err)

	return uc, billing
}

func createdEvent() entities.BookingEvent {
	event := entities.NewBookingEvent(entities.EventBookingCreated, now)
	event.BookingID = "BKG1"
	event.BillingID = "BLI1000"
	event.UserID = "123-45-6789"
	event.Type = entities.BookingTypeCar
	event.TotalAmountPaid = decimal.NewFromInt(90)
	event.Data.BookingDetails = entities.CarBookingDetails{CarID: "c-1", PickupDate: now, ReturnDate: now.Add(48 * time.Hour)}
	return event
}

func TestApplyCreated_isIdempotent(t *testing.T) {
	ctx := context.Background()
	uc, _ := setup(t)

	require.NoError(t, uc.ApplyCreated(ctx, createdEvent()))
	require.NoError(t, uc.ApplyCreated(ctx, createdEvent()))

	history, err := uc.History(ctx, "u-1", "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "c-1", history[0].Details["carId"])
	assert.Equal(t, "BLI1000", history[0].Details["billingId"])
}

func TestApplyCreated_unknownUserIsAcked(t *testing.T) {
	uc, _ := setup(t)

	event := createdEvent()
	event.UserID = "ghost"
	assert.NoError(t, uc.ApplyCreated(context.Background(), event))
}

func TestApplyCancelled(t *testing.T) {
	ctx := context.Background()
	uc, _ := setup(t)
	require.NoError(t, uc.ApplyCreated(ctx, createdEvent()))

	cancelled := createdEvent()
	cancelled.EventType = entities.EventBookingCancelled
	require.NoError(t, uc.ApplyCancelled(ctx, cancelled))
	require.NoError(t, uc.ApplyCancelled(ctx, cancelled))

	history, err := uc.History(ctx, "u-1", udomain.StatusCancelled)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCancel_callsBillingFailOpen(t *testing.T) {
	ctx := context.Background()
	uc, billing := setup(t)
	require.NoError(t, uc.ApplyCreated(ctx, createdEvent()))

	billing.On("CancelByBooking", mock.Anything, "BKG1", "Booking cancelled by user").
		Return(errors.New("billing unavailable")).
		Once()

	entry, err := uc.Cancel(ctx, "u-1", "BKG1")
	require.NoError(t, err)
	assert.Equal(t, udomain.StatusCancelled, entry.Status)
	billing.AssertExpectations(t)

	_, err = uc.Cancel(ctx, "u-1", "BKG1")
	assert.ErrorContains(t, err, "Booking is already cancelled")

	_, err = uc.Cancel(ctx, "nobody", "BKG1")
	assert.True(t, domain.IsNotFound(err))
}
