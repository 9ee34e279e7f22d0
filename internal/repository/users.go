package repository

import (
	"context"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"

	"travel/internal/domain"
	"travel/internal/domain/users"
)

type UsersRepository struct {
	docs *documents[users.User]
}

func NewUsersRepository(
	db *sqlx.DB,
	getter *trmsqlx.CtxGetter,
	trManager *trmanager.Manager,
) *UsersRepository {
	return &UsersRepository{
		docs: newDocuments[users.User](db, getter, trManager, tableUsers, "user"),
	}
}

func (r *UsersRepository) Create(ctx context.Context, u *users.User) error {
	return r.docs.create(ctx, u.ID, u)
}

func (r *UsersRepository) Get(ctx context.Context, id string) (*users.User, error) {
	return r.docs.get(ctx, id)
}

// FindByIDOrUserID resolves either the primary id or the external userId.
func (r *UsersRepository) FindByIDOrUserID(ctx context.Context, id string) (*users.User, error) {
	u, err := r.docs.findOne(ctx, `id = $1 OR payload->>'userId' = $1`, id)
	if domain.IsNotFound(err) {
		return nil, domain.NotFoundError{Resource: "user", ID: id}
	}
	return u, err
}

func (r *UsersRepository) Update(
	ctx context.Context,
	id string,
	updateFn func(u *users.User) error,
) (*users.User, error) {
	return r.docs.update(ctx, id, updateFn)
}
