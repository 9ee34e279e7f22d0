package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"travel/internal/domain"
	"travel/internal/domain/billing"
)

type BillingRepository struct {
	mu      sync.Mutex
	records map[string]billing.Record
}

func NewBillingRepository() *BillingRepository {
	return &BillingRepository{records: map[string]billing.Record{}}
}

func copyRecord(r billing.Record) billing.Record {
	if r.RefundDetails != nil {
		refund := *r.RefundDetails
		r.RefundDetails = &refund
	}
	return r
}

func (r *BillingRepository) Create(_ context.Context, record *billing.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.records {
		if existing.BillingID == record.BillingID ||
			existing.InvoiceDetails.InvoiceNumber == record.InvoiceDetails.InvoiceNumber ||
			(record.IdempotencyKey != "" && existing.IdempotencyKey == record.IdempotencyKey) {
			return fmt.Errorf("billing %s: %w", record.BillingID, domain.ErrDuplicateKey)
		}
	}
	r.records[record.BillingID] = copyRecord(*record)

	return nil
}

func (r *BillingRepository) BillingIDExists(_ context.Context, billingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.records[billingID]
	return ok, nil
}

func (r *BillingRepository) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	_, err := r.find(func(rec billing.Record) bool {
		return rec.InvoiceDetails.InvoiceNumber == invoiceNumber
	}, "")
	if domain.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *BillingRepository) Get(_ context.Context, billingID string) (*billing.Record, error) {
	return r.find(func(rec billing.Record) bool { return rec.BillingID == billingID }, billingID)
}

func (r *BillingRepository) GetByBookingID(_ context.Context, bookingID string) (*billing.Record, error) {
	return r.find(func(rec billing.Record) bool { return rec.BookingID == bookingID }, bookingID)
}

func (r *BillingRepository) GetByIdempotencyKey(_ context.Context, key string) (*billing.Record, error) {
	return r.find(func(rec billing.Record) bool { return rec.IdempotencyKey == key }, "")
}

// find returns the latest record matching match.
func (r *BillingRepository) find(match func(billing.Record) bool, id string) (*billing.Record, error) {
	records := r.sorted(match)
	if len(records) == 0 {
		return nil, domain.NotFoundError{Resource: "billing", ID: id}
	}
	return &records[0], nil
}

func (r *BillingRepository) List(_ context.Context, filter billing.Filter) ([]billing.Record, error) {
	return r.sorted(filter.Match), nil
}

func (r *BillingRepository) sorted(match func(billing.Record) bool) []billing.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []billing.Record{}
	for _, rec := range r.records {
		if match(rec) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateOfTransaction.After(out[j].DateOfTransaction)
	})
	return out
}

func (r *BillingRepository) Update(
	_ context.Context,
	billingID string,
	updateFn func(record *billing.Record) error,
) (*billing.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.records[billingID]
	if !ok {
		return nil, domain.NotFoundError{Resource: "billing", ID: billingID}
	}

	record := copyRecord(existing)
	if err := updateFn(&record); err != nil {
		return nil, err
	}
	r.records[billingID] = copyRecord(record)

	return &record, nil
}
