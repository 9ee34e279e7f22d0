package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var documentTables = []string{tableFlights, tableHotels, tableCars, tableUsers}

func InitializeDBSchema(ctx context.Context, db *sqlx.DB) error {
	for _, table := range documentTables {
		_, err := db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(255) PRIMARY KEY,
	payload JSONB NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
);`, table))
		if err != nil {
			return fmt.Errorf("failed to create %s table: %w", table, err)
		}
	}

	_, err := db.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS users_external_id_idx ON users ((payload->>'userId'));`)
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS billing_records (
	billing_id VARCHAR(32) PRIMARY KEY,
	user_id VARCHAR(255) NOT NULL,
	booking_type VARCHAR(16) NOT NULL,
	booking_id VARCHAR(255) NOT NULL,
	item_id VARCHAR(255) NOT NULL,
	total_amount_paid NUMERIC(12, 2) NOT NULL,
	payment_method VARCHAR(32) NOT NULL,
	transaction_status VARCHAR(16) NOT NULL,
	invoice_number VARCHAR(32) NOT NULL UNIQUE,
	receipt_number VARCHAR(32) NOT NULL,
	booking_details JSONB,
	refund_details JSONB,
	idempotency_key VARCHAR(255) UNIQUE,
	date_of_transaction TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("failed to create billing_records table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS billing_records_booking_id_idx ON billing_records (booking_id);`)
	if err != nil {
		return fmt.Errorf("failed to create billing_records index: %w", err)
	}

	return nil
}
