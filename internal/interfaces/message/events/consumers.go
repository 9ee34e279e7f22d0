package events

import (
	"context"

	"travel/internal/config"
	"travel/internal/entities"
)

type UserHistory interface {
	ApplyCreated(ctx context.Context, event entities.BookingEvent) error
	ApplyCancelled(ctx context.Context, event entities.BookingEvent) error
}

type FlightInventory interface {
	RestoreOnCancel(ctx context.Context, event entities.BookingEvent) error
}

type HotelInventory interface {
	ReleaseOnCancel(ctx context.Context, event entities.BookingEvent) error
}

type CarInventory interface {
	RemoveOnCancel(ctx context.Context, event entities.BookingEvent) error
}

type AnalyticsCache interface {
	InvalidateAnalytics(ctx context.Context, event entities.BookingEvent) error
}

func NewUsersConsumer(groupPrefix string, users UserHistory) *BookingConsumer {
	return NewBookingConsumer(config.ServiceUsers, groupPrefix).
		On(entities.EventBookingCreated, users.ApplyCreated).
		On(entities.EventBookingCancelled, users.ApplyCancelled)
}

func NewFlightsConsumer(groupPrefix string, flights FlightInventory) *BookingConsumer {
	return NewBookingConsumer(config.ServiceFlights, groupPrefix).
		On(entities.EventBookingCancelled, flights.RestoreOnCancel)
}

func NewHotelsConsumer(groupPrefix string, hotels HotelInventory) *BookingConsumer {
	return NewBookingConsumer(config.ServiceHotels, groupPrefix).
		On(entities.EventBookingCancelled, hotels.ReleaseOnCancel)
}

func NewCarsConsumer(groupPrefix string, cars CarInventory) *BookingConsumer {
	return NewBookingConsumer(config.ServiceCars, groupPrefix).
		On(entities.EventBookingCancelled, cars.RemoveOnCancel)
}

func NewAdminConsumer(groupPrefix string, analytics AnalyticsCache) *BookingConsumer {
	return NewBookingConsumer(config.ServiceAdmin, groupPrefix).
		On(entities.EventBookingCreated, analytics.InvalidateAnalytics).
		On(entities.EventBookingConfirmed, analytics.InvalidateAnalytics).
		On(entities.EventBookingCancelled, analytics.InvalidateAnalytics).
		On(entities.EventBookingFailed, analytics.InvalidateAnalytics)
}
