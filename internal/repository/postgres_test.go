package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"travel/internal/domain"
	"travel/internal/domain/billing"
	"travel/internal/domain/flights"
	"travel/internal/domain/hotels"
	"travel/internal/domain/users"
	"travel/internal/entities"
	"travel/internal/repository"
)

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "travel",
				"POSTGRES_PASSWORD": "travel",
				"POSTGRES_DB":       "travel",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := sqlx.Open("postgres", fmt.Sprintf(
		"postgres://travel:travel@%s:%s/travel?sslmode=disable", host, port.Port(),
	))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.InitializeDBSchema(ctx, db))
	return db
}

func TestPostgres(t *testing.T) {
	db := startPostgres(t)
	trManager := manager.Must(trmsqlx.NewDefaultFactory(db))
	getter := trmsqlx.DefaultCtxGetter
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("concurrent reservations of one seat", func(t *testing.T) {
		repo := repository.NewFlightsRepository(db, getter, trManager)
		ctx := context.Background()

		f, err := flights.NewFlight(flights.Flight{
			ID:               "f-concurrent",
			Airline:          "Air",
			DepartureAirport: flights.Airport{Code: "WAW"},
			ArrivalAirport:   flights.Airport{Code: "LHR"},
			Outbound: flights.SeatInventory{
				FlightNumber:   "AA1",
				Class:          flights.ClassEconomy,
				TicketPrice:    decimal.NewFromInt(100),
				TotalSeats:     6,
				AvailableSeats: 6,
			},
		}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, f))

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Update(ctx, f.ID, func(f *flights.Flight) error {
					_, err := f.Outbound.Reserve([]string{"1A"}, fmt.Sprintf("BKG%d", i), "U1", now)
					return err
				})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)

		stored, err := repo.Get(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, stored.Outbound.AvailableSeats)

		holder := stored.Outbound.SeatMap[0].BookedBy.BookingID
		found, err := repo.FindByBookingID(ctx, holder)
		require.NoError(t, err)
		assert.Equal(t, f.ID, found.ID)

		_, err = repo.FindByBookingID(ctx, "missing")
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("duplicate document id", func(t *testing.T) {
		repo := repository.NewHotelsRepository(db, getter, trManager)
		h := &hotels.Hotel{ID: "h-dup", Name: "Grand"}

		require.NoError(t, repo.Create(context.Background(), h))
		assert.ErrorIs(t, repo.Create(context.Background(), h), domain.ErrDuplicateKey)
	})

	t.Run("user by external id", func(t *testing.T) {
		repo := repository.NewUsersRepository(db, getter, trManager)
		u, err := users.NewUser(users.User{ID: "u-ext", UserID: "123-45-6789", Email: "a@example.com"}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(context.Background(), u))

		found, err := repo.FindByIDOrUserID(context.Background(), "123-45-6789")
		require.NoError(t, err)
		assert.Equal(t, "u-ext", found.ID)
	})

	t.Run("billing lifecycle", func(t *testing.T) {
		repo := repository.NewBillingRepository(db, getter, trManager)
		ctx := context.Background()

		record, err := billing.NewRecord(billing.Record{
			BillingID:       "BLI5555",
			UserID:          "U1",
			BookingType:     entities.BookingTypeCar,
			BookingID:       "BKG5555",
			ItemID:          "c-1",
			TotalAmountPaid: decimal.RequireFromString("120.50"),
			PaymentMethod:   billing.PaymentPayPal,
			InvoiceDetails:  billing.InvoiceDetails{InvoiceNumber: "INV5555", ReceiptNumber: "RCP5555"},
			BookingDetails:  entities.CarBookingDetails{CarID: "c-1", PickupDate: now.AddDate(0, 1, 0), ReturnDate: now.AddDate(0, 1, 2)},
			IdempotencyKey:  "key-1",
		}, now)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, record))

		exists, err := repo.InvoiceNumberExists(ctx, "INV5555")
		require.NoError(t, err)
		assert.True(t, exists)

		byKey, err := repo.GetByIdempotencyKey(ctx, "key-1")
		require.NoError(t, err)
		assert.Equal(t, "BLI5555", byKey.BillingID)

		_, err = repo.Update(ctx, "BLI5555", func(r *billing.Record) error {
			r.Cancel("changed plans", now)
			return nil
		})
		require.NoError(t, err)

		stored, err := repo.GetByBookingID(ctx, "BKG5555")
		require.NoError(t, err)
		assert.Equal(t, billing.StatusCancelled, stored.TransactionStatus)
		require.NotNil(t, stored.RefundDetails)
		assert.Equal(t, "changed plans", stored.RefundDetails.Reason)
		assert.True(t, stored.TotalAmountPaid.Equal(decimal.RequireFromString("120.5")))
	})
}
