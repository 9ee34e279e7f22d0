package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"travel/internal/domain"
)

const (
	tableFlights = "flights"
	tableHotels  = "hotels"
	tableCars    = "cars"
	tableUsers   = "users"

	updateAttempts = 3
)

// documents keeps one JSON document per row. Updates run in a transaction
// holding the row lock and compare the version on write.
type documents[T any] struct {
	db        *sqlx.DB
	getter    *trmsqlx.CtxGetter
	trManager *trmanager.Manager

	table    string
	resource string
}

func newDocuments[T any](
	db *sqlx.DB,
	getter *trmsqlx.CtxGetter,
	trManager *trmanager.Manager,
	table string,
	resource string,
) *documents[T] {
	return &documents[T]{
		db:        db,
		getter:    getter,
		trManager: trManager,
		table:     table,
		resource:  resource,
	}
}

func (d *documents[T]) create(ctx context.Context, id string, doc *T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", d.resource, err)
	}

	_, err = d.getter.DefaultTrOrDB(ctx, d.db).ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s (id, payload, version) VALUES ($1, $2, 1)`, d.table),
		id,
		payload,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s %s already exists: %w", d.resource, id, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("insert %s: %w", d.resource, err)
	}

	return nil
}

func (d *documents[T]) get(ctx context.Context, id string) (*T, error) {
	var payload []byte
	err := d.getter.DefaultTrOrDB(ctx, d.db).QueryRowxContext(
		ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, d.table),
		id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: d.resource, ID: id}
		}
		return nil, fmt.Errorf("select %s: %w", d.resource, err)
	}

	return d.unmarshal(payload)
}

// findOne returns the first document matched by where, which may use $1.
func (d *documents[T]) findOne(ctx context.Context, where string, arg any) (*T, error) {
	var payload []byte
	err := d.getter.DefaultTrOrDB(ctx, d.db).QueryRowxContext(
		ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE %s ORDER BY created_at LIMIT 1`, d.table, where),
		arg,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: d.resource}
		}
		return nil, fmt.Errorf("select %s: %w", d.resource, err)
	}

	return d.unmarshal(payload)
}

func (d *documents[T]) list(ctx context.Context) ([]T, error) {
	rows, err := d.getter.DefaultTrOrDB(ctx, d.db).QueryxContext(
		ctx,
		fmt.Sprintf(`SELECT payload FROM %s ORDER BY created_at`, d.table),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.resource, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}

		doc, err := d.unmarshal(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}

	return out, rows.Err()
}

func (d *documents[T]) delete(ctx context.Context, id string) error {
	res, err := d.getter.DefaultTrOrDB(ctx, d.db).ExecContext(
		ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, d.table),
		id,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", d.resource, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: d.resource, ID: id}
	}
	return nil
}

// update loads the document under a row lock, applies updateFn and writes it
// back if the version is unchanged. Version conflicts are retried.
func (d *documents[T]) update(ctx context.Context, id string, updateFn func(doc *T) error) (*T, error) {
	var (
		updated *T
		err     error
	)
	for attempt := 0; attempt < updateAttempts; attempt++ {
		updated, err = d.updateOnce(ctx, id, updateFn)
		if !errors.Is(err, domain.ErrConflict) {
			return updated, err
		}
	}
	return nil, err
}

func (d *documents[T]) updateOnce(ctx context.Context, id string, updateFn func(doc *T) error) (*T, error) {
	var updated *T

	err := d.trManager.DoWithSettings(
		ctx,
		trmsql.MustSettings(
			settings.Must(settings.WithCancelable(true)),
			trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelReadCommitted}),
		),
		func(ctx context.Context) error {
			tx := d.getter.DefaultTrOrDB(ctx, d.db)

			var (
				payload []byte
				version int64
			)
			err := tx.QueryRowxContext(
				ctx,
				fmt.Sprintf(`SELECT payload, version FROM %s WHERE id = $1 FOR UPDATE`, d.table),
				id,
			).Scan(&payload, &version)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.NotFoundError{Resource: d.resource, ID: id}
				}
				return fmt.Errorf("select %s for update: %w", d.resource, err)
			}

			doc, err := d.unmarshal(payload)
			if err != nil {
				return err
			}

			if err := updateFn(doc); err != nil {
				return err
			}

			payload, err = json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", d.resource, err)
			}

			res, err := tx.ExecContext(
				ctx,
				fmt.Sprintf(`UPDATE %s SET payload = $1, version = version + 1, updated_at = now() WHERE id = $2 AND version = $3`, d.table),
				payload,
				id,
				version,
			)
			if err != nil {
				if isSerializationFailure(err) {
					return domain.ErrConflict
				}
				return fmt.Errorf("update %s: %w", d.resource, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domain.ErrConflict
			}

			updated = doc
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (d *documents[T]) unmarshal(payload []byte) (*T, error) {
	var doc T
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", d.resource, err)
	}
	return &doc, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && (pqErr.Code == "40001" || pqErr.Code == "40P01")
}
