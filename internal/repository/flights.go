package repository

import (
	"context"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"

	"travel/internal/domain/flights"
)

type FlightsRepository struct {
	docs *documents[flights.Flight]
}

func NewFlightsRepository(
	db *sqlx.DB,
	getter *trmsqlx.CtxGetter,
	trManager *trmanager.Manager,
) *FlightsRepository {
	return &FlightsRepository{
		docs: newDocuments[flights.Flight](db, getter, trManager, tableFlights, "flight"),
	}
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

func (r *FlightsRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(f *flights.Flight) error,
) (*flights.Flight, error) {
	return r.docs.update(ctx, id, updateFn)
}

// FindByBookingID returns the flight that holds a seat of bookingID in
// either direction.
func (r *FlightsRepository) FindByBookingID(ctx context.Context, bookingID string) (*flights.Flight, error) {
	return r.docs.findOne(
		ctx,
		`jsonb_path_exists(payload, '$.outbound.seatMap[*] ? (@.bookedBy.bookingId == $id)', jsonb_build_object('id', $1::text))
		OR jsonb_path_exists(payload, '$.return.seatMap[*] ? (@.bookedBy.bookingId == $id)', jsonb_build_object('id', $1::text))`,
		bookingID,
	)
}
