package hotels

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"travel/internal/domain"
	hdomain "travel/internal/domain/hotels"
	"travel/internal/entities"
)

type HotelsRepo interface {
	Create(ctx context.Context, h *hdomain.Hotel) error
	Get(ctx context.Context, id string) (*hdomain.Hotel, error)
	Update(ctx context.Context, id string, updateFn func(h *hdomain.Hotel) error) (*hdomain.Hotel, error)
	FindByBookingID(ctx context.Context, bookingID string) (*hdomain.Hotel, error)
}

type PriceDropNotifier interface {
	NotifyHotelPriceDrop(ctx context.Context, userID string, hotel hdomain.Hotel, drop hdomain.PriceDrop) error
}

type Usecase struct {
	repo     HotelsRepo
	notifier PriceDropNotifier
	now      func() time.Time
}

// NewUsecase builds the hotels use case. A nil notifier disables price drop
// notifications.
func NewUsecase(repo HotelsRepo, notifier PriceDropNotifier, now func() time.Time) *Usecase {
	if now == nil {
		now = time.Now
	}
	return &Usecase{
		repo:     repo,
		notifier: notifier,
		now:      now,
	}
}

func (u *Usecase) Create(ctx context.Context, h hdomain.Hotel) (*hdomain.Hotel, error) {
	hotel, err := hdomain.NewHotel(h, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, hotel); err != nil {
		return nil, err
	}
	return hotel, nil
}

func (u *Usecase) Get(ctx context.Context, id string) (*hdomain.Hotel, error) {
	return u.repo.Get(ctx, id)
}

func (u *Usecase) Update(ctx context.Context, id string, update hdomain.Update) (*hdomain.Hotel, error) {
	var drops []hdomain.PriceDrop

	hotel, err := u.repo.Update(ctx, id, func(h *hdomain.Hotel) error {
		var err error
		drops, err = h.Apply(update, u.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, drop := range drops {
		u.notifyPriceDrop(ctx, *hotel, drop)
	}

	return hotel, nil
}

// notifyPriceDrop tells every guest holding rooms about the lower price.
// Failures are logged only.
func (u *Usecase) notifyPriceDrop(ctx context.Context, hotel hdomain.Hotel, drop hdomain.PriceDrop) {
	if u.notifier == nil {
		return
	}

	for _, userID := range hotel.Guests() {
		if err := u.notifier.NotifyHotelPriceDrop(ctx, userID, hotel, drop); err != nil {
			log.FromContext(ctx).
				WithError(err).
				WithField("hotel_id", hotel.ID).
				WithField("user_id", userID).
				Warn("Price drop notification failed")
		}
	}
}

// UpdateRooms takes rooms out of the hotel counters, all or nothing.
func (u *Usecase) UpdateRooms(ctx context.Context, id string, req hdomain.RoomsRequest) (*hdomain.Hotel, error) {
	hotel, err := u.repo.Update(ctx, id, func(h *hdomain.Hotel) error {
		return h.UpdateRooms(req, u.now())
	})
	if err != nil {
		return nil, err
	}

	log.FromContext(ctx).
		WithField("hotel_id", id).
		WithField("booking_id", req.BookingID).
		WithField("available_rooms", hotel.AvailableRooms).
		Info("Hotel rooms updated")

	return hotel, nil
}

// ReleaseOnCancel restores the rooms recorded for a cancelled hotel
// booking. The allocation is dropped on release, so redeliveries are no-ops.
func (u *Usecase) ReleaseOnCancel(ctx context.Context, event entities.BookingEvent) error {
	if event.Type != entities.BookingTypeHotel {
		return nil
	}

	hotelID, err := u.hotelOfBooking(ctx, event)
	if err != nil {
		if domain.IsNotFound(err) {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				Warn("No hotel allocation for the cancelled booking")
			return nil
		}
		return err
	}

	var released bool
	_, err = u.repo.Update(ctx, hotelID, func(h *hdomain.Hotel) error {
		released = h.ReleaseBooking(event.BookingID, u.now())
		return nil
	})
	if err != nil {
		return err
	}

	log.FromContext(ctx).
		WithField("hotel_id", hotelID).
		WithField("booking_id", event.BookingID).
		WithField("released", released).
		Info("Hotel rooms restored for cancelled booking")

	return nil
}

func (u *Usecase) hotelOfBooking(ctx context.Context, event entities.BookingEvent) (string, error) {
	if event.ItemID != "" {
		h, err := u.repo.Get(ctx, event.ItemID)
		if err == nil {
			if _, ok := h.Allocations[event.BookingID]; ok {
				return h.ID, nil
			}
		}
		if err != nil && !domain.IsNotFound(err) {
			return "", err
		}
	}

	h, err := u.repo.FindByBookingID(ctx, event.BookingID)
	if err != nil {
		return "", err
	}
	return h.ID, nil
}
