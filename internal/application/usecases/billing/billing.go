package billing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"travel/internal/domain"
	bdomain "travel/internal/domain/billing"
	"travel/internal/domain/users"
	"travel/internal/entities"
)

const idAttempts = 100

var fallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "billing",
		Name:      "publish_fallbacks_total",
		Help:      "The total number of booking events that could not be published",
	},
	[]string{"event_type", "path", "result"},
)

type BillingRepo interface {
	Create(ctx context.Context, record *bdomain.Record) error
	BillingIDExists(ctx context.Context, billingID string) (bool, error)
	InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error)
	Get(ctx context.Context, billingID string) (*bdomain.Record, error)
	GetByBookingID(ctx context.Context, bookingID string) (*bdomain.Record, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*bdomain.Record, error)
	List(ctx context.Context, filter bdomain.Filter) ([]bdomain.Record, error)
	Update(ctx context.Context, billingID string, updateFn func(record *bdomain.Record) error) (*bdomain.Record, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entities.BookingEvent) error
}

// FailedEventStore keeps events the bus rejected until they are replayed.
type FailedEventStore interface {
	Store(ctx context.Context, event entities.BookingEvent) error
}

// HistoryFallback writes a booking straight into the user history.
type HistoryFallback interface {
	AddBooking(ctx context.Context, userID string, entry users.HistoryEntry) error
}

type Usecase struct {
	repo      BillingRepo
	publisher EventPublisher
	outbox    FailedEventStore
	fallback  HistoryFallback

	now  func() time.Time
	intn func(n int) int
}

func NewUsecase(
	repo BillingRepo,
	publisher EventPublisher,
	outbox FailedEventStore,
	fallback HistoryFallback,
	now func() time.Time,
) *Usecase {
	if now == nil {
		now = time.Now
	}
	return &Usecase{
		repo:      repo,
		publisher: publisher,
		outbox:    outbox,
		fallback:  fallback,
		now:       now,
		intn:      rand.Intn,
	}
}

// WithIDSource replaces the random source of generated identifiers.
func (u *Usecase) WithIDSource(intn func(n int) int) *Usecase {
	u.intn = intn
	return u
}

// Create stores a billing record and announces the booking. A repeated
// idempotency key returns the stored record and reports created as false.
func (u *Usecase) Create(ctx context.Context, r bdomain.Record) (record *bdomain.Record, created bool, err error) {
	if r.IdempotencyKey != "" {
		existing, err := u.repo.GetByIdempotencyKey(ctx, r.IdempotencyKey)
		if err == nil {
			return existing, false, nil
		}
		if !domain.IsNotFound(err) {
			return nil, false, err
		}
	}

	record, err = bdomain.NewRecord(r, u.now())
	if err != nil {
		return nil, false, err
	}

	if err := u.assignIDs(ctx, record); err != nil {
		return nil, false, err
	}

	err = u.repo.Create(ctx, record)
	if errors.Is(err, domain.ErrDuplicateKey) {
		if record.IdempotencyKey != "" {
			if existing, getErr := u.repo.GetByIdempotencyKey(ctx, record.IdempotencyKey); getErr == nil {
				return existing, false, nil
			}
		}

		log.FromContext(ctx).WithField("billing_id", record.BillingID).Warn("Billing id collision, regenerating")
		record.BillingID = ""
		record.InvoiceDetails.InvoiceNumber = ""
		record.InvoiceDetails.ReceiptNumber = ""
		if err := u.assignIDs(ctx, record); err != nil {
			return nil, false, err
		}
		err = u.repo.Create(ctx, record)
	}
	if err != nil {
		return nil, false, fmt.Errorf("create billing record: %w", err)
	}

	log.FromContext(ctx).
		WithField("billing_id", record.BillingID).
		WithField("booking_id", record.BookingID).
		Info("Billing record created")

	u.publishOrFallback(ctx, record.Event(entities.EventBookingCreated, u.now()))

	return record, true, nil
}

func (u *Usecase) assignIDs(ctx context.Context, record *bdomain.Record) error {
	if record.BillingID != "" {
		taken, err := u.repo.BillingIDExists(ctx, record.BillingID)
		if err != nil {
			return err
		}
		if taken {
			record.BillingID = ""
		}
	}

	var err error
	if record.BillingID == "" {
		record.BillingID, err = u.uniqueID(ctx, bdomain.BillingIDPrefix, u.repo.BillingIDExists)
		if err != nil {
			return err
		}
	}
	if record.InvoiceDetails.InvoiceNumber == "" {
		record.InvoiceDetails.InvoiceNumber, err = u.uniqueID(ctx, bdomain.InvoicePrefix, u.repo.InvoiceNumberExists)
		if err != nil {
			return err
		}
	}
	if record.InvoiceDetails.ReceiptNumber == "" {
		record.InvoiceDetails.ReceiptNumber = bdomain.GenerateID(bdomain.ReceiptPrefix, u.intn)
	}
	return nil
}

// uniqueID draws random identifiers until exists reports a free one, then
// falls back to a time based suffix.
func (u *Usecase) uniqueID(
	ctx context.Context,
	prefix string,
	exists func(ctx context.Context, id string) (bool, error),
) (string, error) {
	for attempt := 0; attempt < idAttempts; attempt++ {
		id := bdomain.GenerateID(prefix, u.intn)
		taken, err := exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return bdomain.FallbackID(prefix, u.now()), nil
}

// publishOrFallback never fails the caller. A rejected event is kept for
// replay, and a created booking is also written to the user history
// directly.
func (u *Usecase) publishOrFallback(ctx context.Context, event entities.BookingEvent) {
	logger := log.FromContext(ctx).
		WithField("event_id", event.EventID).
		WithField("event_type", event.EventType).
		WithField("booking_id", event.BookingID)

	err := u.publisher.Publish(ctx, event)
	if err == nil {
		return
	}
	logger.WithError(err).Error("Booking event publish failed, using fallback")

	if u.outbox != nil {
		if err := u.outbox.Store(ctx, event); err != nil {
			fallbacksTotal.WithLabelValues(string(event.EventType), "outbox", "failed").Inc()
			logger.WithError(err).Error("Cannot store booking event for replay")
		} else {
			fallbacksTotal.WithLabelValues(string(event.EventType), "outbox", "ok").Inc()
			logger.Info("Booking event stored for replay")
		}
	}

	if event.EventType != entities.EventBookingCreated || u.fallback == nil {
		return
	}
	if err := u.fallback.AddBooking(ctx, event.UserID, users.EntryFromEvent(event)); err != nil {
		fallbacksTotal.WithLabelValues(string(event.EventType), "user_history", "failed").Inc()
		logger.WithError(err).Error("User history fallback failed")
		return
	}
	fallbacksTotal.WithLabelValues(string(event.EventType), "user_history", "ok").Inc()
	logger.Info("Booking added to user history directly")
}

func (u *Usecase) Get(ctx context.Context, billingID string) (*bdomain.Record, error) {
	return u.repo.Get(ctx, billingID)
}

func (u *Usecase) List(ctx context.Context, filter bdomain.Filter) ([]bdomain.Record, error) {
	return u.repo.List(ctx, filter)
}

// UpdateStatus changes the transaction status. Moving into completed or
// failed announces the booking as confirmed or failed.
func (u *Usecase) UpdateStatus(ctx context.Context, billingID string, status bdomain.TransactionStatus) (*bdomain.Record, error) {
	var (
		eventType entities.EventType
		publish   bool
	)
	record, err := u.repo.Update(ctx, billingID, func(r *bdomain.Record) error {
		var err error
		eventType, publish, err = r.SetStatus(status, u.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if publish {
		u.publishOrFallback(ctx, record.Event(eventType, u.now()))
	}

	return record, nil
}

// CancelByBooking cancels the latest record of a booking. Records already
// cancelled or refunded are returned unchanged and nothing is published.
func (u *Usecase) CancelByBooking(ctx context.Context, bookingID, reason string) (*bdomain.Record, error) {
	if bookingID == "" {
		return nil, domain.ValidationError{Field: "bookingId", Msg: "Booking ID is required"}
	}

	existing, err := u.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var cancelled bool
	record, err := u.repo.Update(ctx, existing.BillingID, func(r *bdomain.Record) error {
		cancelled = r.Cancel(reason, u.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !cancelled {
		log.FromContext(ctx).
			WithField("billing_id", record.BillingID).
			WithField("status", record.TransactionStatus).
			Info("Billing record already closed, nothing to cancel")
		return record, nil
	}

	u.publishOrFallback(ctx, record.Event(entities.EventBookingCancelled, u.now()))

	return record, nil
}

func (u *Usecase) Refund(ctx context.Context, billingID string, amount *decimal.Decimal, reason string) (*bdomain.Record, error) {
	return u.repo.Update(ctx, billingID, func(r *bdomain.Record) error {
		return r.Refund(amount, reason, u.now())
	})
}

func (u *Usecase) RevenueStats(ctx context.Context, filter bdomain.Filter) (bdomain.RevenueStats, error) {
	filter.Status = bdomain.StatusCompleted
	records, err := u.repo.List(ctx, filter)
	if err != nil {
		return bdomain.RevenueStats{}, err
	}
	return bdomain.Revenue(records), nil
}
