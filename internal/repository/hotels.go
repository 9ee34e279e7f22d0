package repository

import (
	"context"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"

	"travel/internal/domain/hotels"
)

type HotelsRepository struct {
	docs *documents[hotels.Hotel]
}

func NewHotelsRepository(
	db *sqlx.DB,
	getter *trmsqlx.CtxGetter,
	trManager *trmanager.Manager,
) *HotelsRepository {
	return &HotelsRepository{
		docs: newDocuments[hotels.Hotel](db, getter, trManager, tableHotels, "hotel"),
	}
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

func (r *HotelsRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(h *hotels.Hotel) error,
) (*hotels.Hotel, error) {
	return r.docs.update(ctx, id, updateFn)
}

// FindByBookingID returns the hotel holding an allocation for bookingID.
func (r *HotelsRepository) FindByBookingID(ctx context.Context, bookingID string) (*hotels.Hotel, error) {
	return r.docs.findOne(ctx, `payload->'allocations' ? $1`, bookingID)
}
