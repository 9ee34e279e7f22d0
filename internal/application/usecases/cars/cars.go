package cars

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"travel/internal/domain"
	cdomain "travel/internal/domain/cars"
	"travel/internal/entities"
)

type CarsRepo interface {
	Create(ctx context.Context, c *cdomain.Car) error
	Get(ctx context.Context, id string) (*cdomain.Car, error)
	List(ctx context.Context) ([]cdomain.Car, error)
	Update(ctx context.Context, id string, updateFn func(c *cdomain.Car) error) (*cdomain.Car, error)
	FindByBookingID(ctx context.Context, bookingID string) (*cdomain.Car, error)
}

type PriceDropNotifier interface {
	NotifyCarPriceDrop(ctx context.Context, userID string, car cdomain.Car, drop cdomain.PriceDrop) error
}

type Usecase struct {
	repo     CarsRepo
	notifier PriceDropNotifier
	now      func() time.Time
}

// NewUsecase builds the cars use case. A nil notifier disables price drop
// notifications.
func NewUsecase(repo CarsRepo, notifier PriceDropNotifier, now func() time.Time) *Usecase {
	if now == nil {
		now = time.Now
	}
	return &Usecase{
		repo:     repo,
		notifier: notifier,
		now:      now,
	}
}

func (u *Usecase) Create(ctx context.Context, c cdomain.Car) (*cdomain.Car, error) {
	car, err := cdomain.NewCar(c, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, car); err != nil {
		return nil, err
	}
	return car, nil
}

func (u *Usecase) Get(ctx context.Context, id string) (*cdomain.Car, error) {
	return u.repo.Get(ctx, id)
}

func (u *Usecase) Update(ctx context.Context, id string, update cdomain.Update) (*cdomain.Car, error) {
	var drop *cdomain.PriceDrop

	car, err := u.repo.Update(ctx, id, func(c *cdomain.Car) error {
		var err error
		drop, err = c.Apply(update, u.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if drop != nil && u.notifier != nil {
		for _, userID := range car.Renters() {
			if err := u.notifier.NotifyCarPriceDrop(ctx, userID, *car, *drop); err != nil {
				log.FromContext(ctx).
					WithError(err).
					WithField("car_id", car.ID).
					WithField("user_id", userID).
					Warn("Price drop notification failed")
			}
		}
	}

	return car, nil
}

// ListAvailable returns cars free for the whole range. Bookings that ended
// in the past are pruned on the way.
func (u *Usecase) ListAvailable(ctx context.Context, pickup, ret time.Time) ([]cdomain.Car, error) {
	start, end, err := cdomain.NormalizeRange(pickup, ret)
	if err != nil {
		return nil, err
	}
	now := u.now()

	all, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	available := []cdomain.Car{}
	for _, c := range all {
		if c.CleanupExpired(now) > 0 {
			if _, err := u.repo.Update(ctx, c.ID, func(c *cdomain.Car) error {
				c.CleanupExpired(now)
				return nil
			}); err != nil {
				log.FromContext(ctx).WithError(err).WithField("car_id", c.ID).Warn("Cannot prune expired car bookings")
			}
		}
		if c.AvailableFor(start, end, now) {
			available = append(available, c)
		}
	}

	return available, nil
}

func (u *Usecase) AddBooking(ctx context.Context, id string, b cdomain.Booking) (*cdomain.Car, error) {
	car, err := u.repo.Update(ctx, id, func(c *cdomain.Car) error {
		return c.AddBooking(b, u.now())
	})
	if err != nil {
		return nil, err
	}

	log.FromContext(ctx).
		WithField("car_id", id).
		WithField("booking_id", b.BookingID).
		Info("Car booked")

	return car, nil
}

// RemoveOnCancel drops the interval of a cancelled car booking.
func (u *Usecase) RemoveOnCancel(ctx context.Context, event entities.BookingEvent) error {
	if event.Type != entities.BookingTypeCar {
		return nil
	}

	carID, err := u.carOfBooking(ctx, event)
	if err != nil {
		if domain.IsNotFound(err) {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				Warn("No car interval for the cancelled booking")
			return nil
		}
		return err
	}

	var removed bool
	_, err = u.repo.Update(ctx, carID, func(c *cdomain.Car) error {
		removed = c.RemoveBooking(event.BookingID, u.now())
		return nil
	})
	if err != nil {
		if domain.IsNotFound(err) {
			return nil
		}
		return err
	}

	log.FromContext(ctx).
		WithField("car_id", carID).
		WithField("booking_id", event.BookingID).
		WithField("removed", removed).
		Info("Car interval removed for cancelled booking")

	return nil
}

// carOfBooking trusts the event's item id only when that car holds the
// booking. Otherwise the car is looked up by booking id.
func (u *Usecase) carOfBooking(ctx context.Context, event entities.BookingEvent) (string, error) {
	if event.ItemID != "" {
		c, err := u.repo.Get(ctx, event.ItemID)
		if err == nil && c.HasBooking(event.BookingID) {
			return c.ID, nil
		}
		if err != nil && !domain.IsNotFound(err) {
			return "", err
		}
	}

	c, err := u.repo.FindByBookingID(ctx, event.BookingID)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}
