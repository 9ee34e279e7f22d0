package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel/internal/domain"
	"travel/internal/domain/billing"
	"travel/internal/entities"
	"travel/internal/repository"
)

var billingColumnNames = []string{
	"billing_id", "user_id", "booking_type", "booking_id", "item_id", "total_amount_paid",
	"payment_method", "transaction_status", "invoice_number", "receipt_number", "booking_details",
	"refund_details", "idempotency_key", "date_of_transaction", "updated_at",
}

func newMockBillingRepo(t *testing.T) (*repository.BillingRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dbx := sqlx.NewDb(db, "postgres")
	trManager := manager.Must(trmsqlx.NewDefaultFactory(dbx))

	return repository.NewBillingRepository(dbx, trmsqlx.DefaultCtxGetter, trManager), mock
}

func billingRecordRow(status string) *sqlmock.Rows {
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(billingColumnNames).AddRow(
		"BLI1234", "U1", "flight", "BKG1", "f-1", "400.00",
		"Credit Card", status, "INV1234", "RCP1234",
		[]byte(`{"flightId":"f-1","seatNumbers":["1A","1B"]}`),
		nil, nil, ts, ts,
	)
}

func TestBillingRepository_CreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockBillingRepo(t)

	mock.ExpectExec("INSERT INTO billing_records").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &billing.Record{
		BillingID:       "BLI1234",
		BookingType:     entities.BookingTypeFlight,
		TotalAmountPaid: decimal.NewFromInt(400),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepository_GetDecodesDetails(t *testing.T) {
	repo, mock := newMockBillingRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM billing_records WHERE billing_id = \\$1").
		WithArgs("BLI1234").
		WillReturnRows(billingRecordRow("completed"))

	record, err := repo.Get(context.Background(), "BLI1234")
	require.NoError(t, err)

	assert.Equal(t, billing.StatusCompleted, record.TransactionStatus)
	assert.Equal(t, "INV1234", record.InvoiceDetails.InvoiceNumber)
	assert.True(t, record.TotalAmountPaid.Equal(decimal.NewFromInt(400)))

	details, ok := record.BookingDetails.(entities.FlightBookingDetails)
	require.True(t, ok)
	assert.Equal(t, []string{"1A", "1B"}, details.SeatNumbers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepository_GetNotFound(t *testing.T) {
	repo, mock := newMockBillingRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM billing_records").
		WithArgs("BLI0000").
		WillReturnRows(sqlmock.NewRows(billingColumnNames))

	_, err := repo.Get(context.Background(), "BLI0000")
	assert.True(t, domain.IsNotFound(err))
}

func TestBillingRepository_ListBuildsFilter(t *testing.T) {
	repo, mock := newMockBillingRepo(t)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WHERE user_id = \\$1 AND transaction_status = \\$2 AND date_of_transaction >= \\$3").
		WithArgs("U1", "completed", from).
		WillReturnRows(billingRecordRow("completed"))

	records, err := repo.List(context.Background(), billing.Filter{
		UserID: "U1",
		Status: billing.StatusCompleted,
		From:   &from,
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepository_UpdateRunsInTransaction(t *testing.T) {
	repo, mock := newMockBillingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs("BLI1234").
		WillReturnRows(billingRecordRow("completed"))
	mock.ExpectExec("UPDATE billing_records").
		WithArgs("cancelled", sqlmock.AnyArg(), sqlmock.AnyArg(), "BLI1234").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	record, err := repo.Update(context.Background(), "BLI1234", func(r *billing.Record) error {
		r.Cancel("", now)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, billing.StatusCancelled, record.TransactionStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingRepository_UpdateRollsBackOnError(t *testing.T) {
	repo, mock := newMockBillingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs("BLI1234").
		WillReturnRows(billingRecordRow("cancelled"))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), "BLI1234", func(r *billing.Record) error {
		_, _, err := r.SetStatus(billing.StatusCompleted, time.Now())
		return err
	})
	assert.True(t, domain.IsValidation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
