package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/avito-tech/go-transaction-manager/trm/v2/settings"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"travel/internal/domain"
	"travel/internal/domain/billing"
	"travel/internal/entities"
)

const billingColumns = `billing_id, user_id, booking_type, booking_id, item_id, total_amount_paid,
	payment_method, transaction_status, invoice_number, receipt_number, booking_details,
	refund_details, idempotency_key, date_of_transaction, updated_at`

type billingRow struct {
	BillingID         string          `db:"billing_id"`
	UserID            string          `db:"user_id"`
	BookingType       string          `db:"booking_type"`
	BookingID         string          `db:"booking_id"`
	ItemID            string          `db:"item_id"`
	TotalAmountPaid   decimal.Decimal `db:"total_amount_paid"`
	PaymentMethod     string          `db:"payment_method"`
	TransactionStatus string          `db:"transaction_status"`
	InvoiceNumber     string          `db:"invoice_number"`
	ReceiptNumber     string          `db:"receipt_number"`
	BookingDetails    []byte          `db:"booking_details"`
	RefundDetails     []byte          `db:"refund_details"`
	IdempotencyKey    sql.NullString  `db:"idempotency_key"`
	DateOfTransaction time.Time       `db:"date_of_transaction"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func toBillingRow(r *billing.Record) (billingRow, error) {
	row := billingRow{
		BillingID:         r.BillingID,
		UserID:            r.UserID,
		BookingType:       string(r.BookingType),
		BookingID:         r.BookingID,
		ItemID:            r.ItemID,
		TotalAmountPaid:   r.TotalAmountPaid,
		PaymentMethod:     string(r.PaymentMethod),
		TransactionStatus: string(r.TransactionStatus),
		InvoiceNumber:     r.InvoiceDetails.InvoiceNumber,
		ReceiptNumber:     r.InvoiceDetails.ReceiptNumber,
		IdempotencyKey:    sql.NullString{String: r.IdempotencyKey, Valid: r.IdempotencyKey != ""},
		DateOfTransaction: r.DateOfTransaction,
		UpdatedAt:         r.UpdatedAt,
	}

	if r.BookingDetails != nil {
		payload, err := json.Marshal(r.BookingDetails)
		if err != nil {
			return row, fmt.Errorf("marshal booking details: %w", err)
		}
		row.BookingDetails = payload
	}
	if r.RefundDetails != nil {
		payload, err := json.Marshal(r.RefundDetails)
		if err != nil {
			return row, fmt.Errorf("marshal refund details: %w", err)
		}
		row.RefundDetails = payload
	}

	return row, nil
}

func (row billingRow) record() (*billing.Record, error) {
	r := &billing.Record{
		BillingID:         row.BillingID,
		UserID:            row.UserID,
		BookingType:       entities.BookingType(row.BookingType),
		BookingID:         row.BookingID,
		ItemID:            row.ItemID,
		TotalAmountPaid:   row.TotalAmountPaid,
		PaymentMethod:     billing.PaymentMethod(row.PaymentMethod),
		TransactionStatus: billing.TransactionStatus(row.TransactionStatus),
		InvoiceDetails: billing.InvoiceDetails{
			InvoiceNumber: row.InvoiceNumber,
			ReceiptNumber: row.ReceiptNumber,
			IssuedAt:      row.DateOfTransaction.UTC(),
		},
		IdempotencyKey:    row.IdempotencyKey.String,
		DateOfTransaction: row.DateOfTransaction.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}

	details, err := entities.DecodeBookingDetails(r.BookingType, row.BookingDetails)
	if err != nil {
		return nil, fmt.Errorf("billing %s: %w", row.BillingID, err)
	}
	r.BookingDetails = details

	if len(row.RefundDetails) > 0 {
		var refund entities.RefundDetails
		if err := json.Unmarshal(row.RefundDetails, &refund); err != nil {
			return nil, fmt.Errorf("billing %s refund details: %w", row.BillingID, err)
		}
		r.RefundDetails = &refund
	}

	return r, nil
}

type BillingRepository struct {
	db        *sqlx.DB
	getter    *trmsqlx.CtxGetter
	trManager *trmanager.Manager
}

func NewBillingRepository(
	db *sqlx.DB,
	getter *trmsqlx.CtxGetter,
	trManager *trmanager.Manager,
) *BillingRepository {
	return &BillingRepository{
		db:        db,
		getter:    getter,
		trManager: trManager,
	}
}

func (r *BillingRepository) Create(ctx context.Context, record *billing.Record) error {
	row, err := toBillingRow(record)
	if err != nil {
		return err
	}

	_, err = r.getter.DefaultTrOrDB(ctx, r.db).ExecContext(
		ctx,
		`INSERT INTO billing_records (`+billingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		row.BillingID,
		row.UserID,
		row.BookingType,
		row.BookingID,
		row.ItemID,
		row.TotalAmountPaid,
		row.PaymentMethod,
		row.TransactionStatus,
		row.InvoiceNumber,
		row.ReceiptNumber,
		row.BookingDetails,
		row.RefundDetails,
		row.IdempotencyKey,
		row.DateOfTransaction,
		row.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("billing %s: %w", record.BillingID, domain.ErrDuplicateKey)
		}
		return fmt.Errorf("insert billing record: %w", err)
	}

	return nil
}

func (r *BillingRepository) BillingIDExists(ctx context.Context, billingID string) (bool, error) {
	return r.exists(ctx, "billing_id", billingID)
}

func (r *BillingRepository) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	return r.exists(ctx, "invoice_number", invoiceNumber)
}

func (r *BillingRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var exists bool
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(
		ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM billing_records WHERE %s = $1)`, column),
		value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", column, err)
	}
	return exists, nil
}

func (r *BillingRepository) Get(ctx context.Context, billingID string) (*billing.Record, error) {
	return r.findOne(ctx, `billing_id = $1`, billingID, billingID)
}

// GetByBookingID returns the latest record of a booking.
func (r *BillingRepository) GetByBookingID(ctx context.Context, bookingID string) (*billing.Record, error) {
	return r.findOne(ctx, `booking_id = $1`, bookingID, bookingID)
}

func (r *BillingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*billing.Record, error) {
	return r.findOne(ctx, `idempotency_key = $1`, key, "")
}

func (r *BillingRepository) findOne(ctx context.Context, where string, arg any, id string) (*billing.Record, error) {
	var row billingRow
	err := r.getter.DefaultTrOrDB(ctx, r.db).QueryRowxContext(
		ctx,
		`SELECT `+billingColumns+` FROM billing_records WHERE `+where+`
		ORDER BY date_of_transaction DESC LIMIT 1`,
		arg,
	).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundError{Resource: "billing", ID: id}
		}
		return nil, fmt.Errorf("select billing record: %w", err)
	}

	return row.record()
}

func (r *BillingRepository) List(ctx context.Context, filter billing.Filter) ([]billing.Record, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Status != "" {
		add("transaction_status = $%d", string(filter.Status))
	}
	if filter.From != nil {
		add("date_of_transaction >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date_of_transaction <= $%d", *filter.To)
	}

	query := `SELECT ` + billingColumns + ` FROM billing_records`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY date_of_transaction DESC`

	rows, err := r.getter.DefaultTrOrDB(ctx, r.db).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list billing records: %w", err)
	}
	defer rows.Close()

	records := []billing.Record{}
	for rows.Next() {
		var row billingRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan billing record: %w", err)
		}
		record, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// Update applies updateFn to the record while holding its row lock.
func (r *BillingRepository) Update(
	ctx context.Context,
	billingID string,
	updateFn func(record *billing.Record) error,
) (*billing.Record, error) {
	var updated *billing.Record

	err := r.trManager.DoWithSettings(
		ctx,
		trmsql.MustSettings(
			settings.Must(settings.WithCancelable(true)),
			trmsql.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelReadCommitted}),
		),
		func(ctx context.Context) error {
			tx := r.getter.DefaultTrOrDB(ctx, r.db)

			var row billingRow
			err := tx.QueryRowxContext(
				ctx,
				`SELECT `+billingColumns+` FROM billing_records WHERE billing_id = $1 FOR UPDATE`,
				billingID,
			).StructScan(&row)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domain.NotFoundError{Resource: "billing", ID: billingID}
				}
				return fmt.Errorf("select billing record for update: %w", err)
			}

			record, err := row.record()
			if err != nil {
				return err
			}

			if err := updateFn(record); err != nil {
				return err
			}

			row, err = toBillingRow(record)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(
				ctx,
				`UPDATE billing_records
				SET transaction_status = $1, refund_details = $2, updated_at = $3
				WHERE billing_id = $4`,
				row.TransactionStatus,
				row.RefundDetails,
				row.UpdatedAt,
				billingID,
			)
			if err != nil {
				return fmt.Errorf("update billing record: %w", err)
			}

			updated = record
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	return updated, nil
}
