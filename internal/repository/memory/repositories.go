package memory

import (
	"context"

	"travel/internal/domain"
	"travel/internal/domain/cars"
	"travel/internal/domain/flights"
	"travel/internal/domain/hotels"
	"travel/internal/domain/users"
)

type FlightsRepository struct {
	docs *documents[flights.Flight]
}

func NewFlightsRepository() *FlightsRepository {
	return &FlightsRepository{docs: newDocuments[flights.Flight]("flight")}
}

func (r *FlightsRepository) Create(ctx context.Context, f *flights.Flight) error {
	return r.docs.create(ctx, f.ID, f)
}

func (r *FlightsRepository) Get(ctx context.Context, id string) (*flights.Flight, error) {
	return r.docs.get(ctx, id)
}

func (r *FlightsRepository) List(ctx context.Context) ([]flights.Flight, error) {
	return r.docs.list(ctx)
}

func (r *FlightsRepository) Delete(ctx context.Context, id string) error {
	return r.docs.delete(ctx, id)
}

func (r *FlightsRepository) Update(ctx context.Context, id string, updateFn func(f *flights.Flight) error) (*flights.Flight, error) {
	return r.docs.update(ctx, id, updateFn)
}

func (r *FlightsRepository) FindByBookingID(ctx context.Context, bookingID string) (*flights.Flight, error) {
	return r.docs.findOne(ctx, func(f *flights.Flight) bool {
		return f.HasBooking(bookingID)
	})
}

type HotelsRepository struct {
	docs *documents[hotels.Hotel]
}

func NewHotelsRepository() *HotelsRepository {
	return &HotelsRepository{docs: newDocuments[hotels.Hotel]("hotel")}
}

func (r *HotelsRepository) Create(ctx context.Context, h *hotels.Hotel) error {
	return r.docs.create(ctx, h.ID, h)
}

func (r *HotelsRepository) Get(ctx context.Context, id string) (*hotels.Hotel, error) {
	return r.docs.get(ctx, id)
}

func (r *HotelsRepository) List(ctx context.Context) ([]hotels.Hotel, error) {
	return r.docs.list(ctx)
}

func (r *HotelsRepository) Update(ctx context.Context, id string, updateFn func(h *hotels.Hotel) error) (*hotels.Hotel, error) {
	return r.docs.update(ctx, id, updateFn)
}

func (r *HotelsRepository) FindByBookingID(ctx context.Context, bookingID string) (*hotels.Hotel, error) {
	return r.docs.findOne(ctx, func(h *hotels.Hotel) bool {
		_, ok := h.Allocations[bookingID]
		return ok
	})
}

type CarsRepository struct {
	docs *documents[cars.Car]
}

func NewCarsRepository() *CarsRepository {
	return &CarsRepository{docs: newDocuments[cars.Car]("car")}
}

func (r *CarsRepository) Create(ctx context.Context, c *cars.Car) error {
	return r.docs.create(ctx, c.ID, c)
}

func (r *CarsRepository) Get(ctx context.Context, id string) (*cars.Car, error) {
	return r.docs.get(ctx, id)
}

func (r *CarsRepository) List(ctx context.Context) ([]cars.Car, error) {
	return r.docs.list(ctx)
}

func (r *CarsRepository) Update(ctx context.Context, id string, updateFn func(c *cars.Car) error) (*cars.Car, error) {
	return r.docs.update(ctx, id, updateFn)
}

func (r *CarsRepository) FindByBookingID(ctx context.Context, bookingID string) (*cars.Car, error) {
	return r.docs.findOne(ctx, func(c *cars.Car) bool {
		for _, b := range c.Bookings {
			if b.BookingID == bookingID {
				return true
			}
		}
		return false
	})
}

type UsersRepository struct {
	docs *documents[users.User]
}

func NewUsersRepository() *UsersRepository {
	return &UsersRepository{docs: newDocuments[users.User]("user")}
}

func (r *UsersRepository) Create(ctx context.Context, u *users.User) error {
	return r.docs.create(ctx, u.ID, u)
}

func (r *UsersRepository) Get(ctx context.Context, id string) (*users.User, error) {
	return r.docs.get(ctx, id)
}

func (r *UsersRepository) FindByIDOrUserID(ctx context.Context, id string) (*users.User, error) {
	u, err := r.docs.findOne(ctx, func(u *users.User) bool {
		return u.ID == id || u.UserID == id
	})
	if domain.IsNotFound(err) {
		return nil, domain.NotFoundError{Resource: "user", ID: id}
	}
	return u, err
}

func (r *UsersRepository) Update(ctx context.Context, id string, updateFn func(u *users.User) error) (*users.User, error) {
	return r.docs.update(ctx, id, updateFn)
}
