package repository

import (
	"context"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"

	"travel/internal/domain/cars"
)

type CarsRepository struct {
	docs *documents[cars.Car]
}

func NewCarsRepository(
	db *sqlx.DB,
	getter *trmsqlx.CtxGetter,
	trManager *trmanager.Manager,
) *CarsRepository {
	return &CarsRepository{
		docs: newDocuments[cars.Car](db, getter, trManager, tableCars, "car"),
	}
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

func (r *CarsRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(c *cars.Car) error,
) (*cars.Car, error) {
	return r.docs.update(ctx, id, updateFn)
}

// FindByBookingID returns the car with a reserved interval of bookingID.
func (r *CarsRepository) FindByBookingID(ctx context.Context, bookingID string) (*cars.Car, error) {
	return r.docs.findOne(
		ctx,
		`jsonb_path_exists(payload, '$.bookings[*] ? (@.bookingId == $id)', jsonb_build_object('id', $1::text))`,
		bookingID,
	)
}
