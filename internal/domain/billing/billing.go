package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"travel/internal/domain"
	"travel/internal/entities"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusRefunded  TransactionStatus = "refunded"
	StatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded, StatusCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "Credit Card"
	PaymentDebitCard    PaymentMethod = "Debit Card"
	PaymentPayPal       PaymentMethod = "PayPal"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
	PaymentCash         PaymentMethod = "Cash"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentDebitCard, PaymentPayPal, PaymentBankTransfer, PaymentCash:
		return true
	}
	return false
}

const (
	BillingIDPrefix = "BLI"
	InvoicePrefix   = "INV"
	ReceiptPrefix   = "RCP"

	DefaultCancelReason = "Booking cancelled"
	RefundPending       = "pending"
	RefundProcessed     = "processed"
)

type InvoiceDetails struct {
	InvoiceNumber string    `json:"invoiceNumber"`
	ReceiptNumber string    `json:"receiptNumber"`
	IssuedAt      time.Time `json:"issuedAt"`
}

type Record struct {
	BillingID         string                  `json:"billingId"`
	UserID            string                  `json:"userId"`
	BookingType       entities.BookingType    `json:"bookingType"`
	BookingID         string                  `json:"bookingId"`
	ItemID            string                  `json:"itemId"`
	TotalAmountPaid   decimal.Decimal         `json:"totalAmountPaid"`
	PaymentMethod     PaymentMethod           `json:"paymentMethod"`
	TransactionStatus TransactionStatus       `json:"transactionStatus"`
	InvoiceDetails    InvoiceDetails          `json:"invoiceDetails"`
	RefundDetails     *entities.RefundDetails `json:"refundDetails,omitempty"`
	BookingDetails    entities.BookingDetails `json:"bookingDetails,omitempty"`
	IdempotencyKey    string                  `json:"-"`
	DateOfTransaction time.Time               `json:"dateOfTransaction"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// NewRecord validates a billing request. Identifiers are assigned by the
// caller.
func NewRecord(r Record, now time.Time) (*Record, error) {
	var errs domain.ValidationErrors
	if r.UserID == "" {
		errs = append(errs, domain.ValidationError{Field: "userId", Msg: "is required"})
	}
	if !r.BookingType.Valid() {
		errs = append(errs, domain.ValidationError{Field: "bookingType", Msg: "must be flight, hotel or car"})
	}
	if r.BookingID == "" {
		errs = append(errs, domain.ValidationError{Field: "bookingId", Msg: "is required"})
	}
	if r.ItemID == "" {
		errs = append(errs, domain.ValidationError{Field: "itemId", Msg: "is required"})
	}
	if r.TotalAmountPaid.IsNegative() {
		errs = append(errs, domain.ValidationError{Field: "totalAmountPaid", Msg: "must not be negative"})
	}
	if !r.PaymentMethod.Valid() {
		errs = append(errs, domain.ValidationError{Field: "paymentMethod", Msg: "must be one of Credit Card, Debit Card, PayPal, Bank Transfer, Cash"})
	}
	if r.TransactionStatus == "" {
		r.TransactionStatus = StatusPending
	}
	if !r.TransactionStatus.Valid() {
		errs = append(errs, domain.ValidationError{Field: "transactionStatus", Msg: "is not a known status"})
	}
	switch {
	case r.BookingDetails == nil:
		errs = append(errs, domain.ValidationError{Field: "bookingDetails", Msg: "is required"})
	case r.BookingDetails.BookingType() != r.BookingType:
		errs = append(errs, domain.ValidationError{Field: "bookingDetails", Msg: "do not match bookingType"})
	default:
		if err := r.BookingDetails.Validate(); err != nil {
			errs = append(errs, domain.ValidationError{Field: "bookingDetails", Msg: err.Error()})
		}
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	r.DateOfTransaction = now.UTC()
	r.UpdatedAt = r.DateOfTransaction
	r.InvoiceDetails.IssuedAt = r.DateOfTransaction

	return &r, nil
}

// GenerateID builds prefix plus four digits using intn, which must return a
// value in [0, n).
func GenerateID(prefix string, intn func(n int) int) string {
	return fmt.Sprintf("%s%d", prefix, 1000+intn(9000))
}

// FallbackID is used once random suffixes are exhausted.
func FallbackID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s%d", prefix, now.UnixMilli()%1_000_000)
}

func (r *Record) terminal() bool {
	return r.TransactionStatus == StatusCancelled || r.TransactionStatus == StatusRefunded
}

// SetStatus moves the record to status and returns the event the move
// produces, if any.
func (r *Record) SetStatus(status TransactionStatus, now time.Time) (entities.EventType, bool, error) {
	if !status.Valid() {
		return "", false, domain.ValidationError{Field: "transactionStatus", Msg: "is not a known status"}
	}
	if status == r.TransactionStatus {
		return "", false, nil
	}
	if r.terminal() {
		return "", false, domain.ValidationError{
			Field: "transactionStatus",
			Msg:   fmt.Sprintf("cannot change status of a %s transaction", r.TransactionStatus),
		}
	}

	r.TransactionStatus = status
	r.UpdatedAt = now.UTC()

	switch status {
	case StatusCompleted:
		return entities.EventBookingConfirmed, true, nil
	case StatusFailed:
		return entities.EventBookingFailed, true, nil
	}
	return "", false, nil
}

// Cancel marks the record cancelled with a pending refund of the full
// amount. It reports false when the record was already cancelled or
// refunded.
func (r *Record) Cancel(reason string, now time.Time) bool {
	if r.terminal() {
		return false
	}
	if reason == "" {
		reason = DefaultCancelReason
	}

	r.TransactionStatus = StatusCancelled
	r.RefundDetails = &entities.RefundDetails{
		RefundAmount: r.TotalAmountPaid,
		RefundDate:   now.UTC(),
		Reason:       reason,
		Status:       RefundPending,
	}
	r.UpdatedAt = now.UTC()

	return true
}

// Refund settles a completed or cancelled transaction. A nil amount refunds
// everything.
func (r *Record) Refund(amount *decimal.Decimal, reason string, now time.Time) error {
	if r.TransactionStatus != StatusCompleted && r.TransactionStatus != StatusCancelled {
		return domain.ValidationError{
			Field: "transactionStatus",
			Msg:   fmt.Sprintf("cannot refund a %s transaction", r.TransactionStatus),
		}
	}

	refund := r.TotalAmountPaid
	if amount != nil {
		refund = *amount
	}
	if refund.IsNegative() || refund.GreaterThan(r.TotalAmountPaid) {
		return domain.ValidationError{Field: "refundAmount", Msg: "must be between 0 and the amount paid"}
	}
	if reason == "" && r.RefundDetails != nil {
		reason = r.RefundDetails.Reason
	}

	r.TransactionStatus = StatusRefunded
	r.RefundDetails = &entities.RefundDetails{
		RefundAmount: refund,
		RefundDate:   now.UTC(),
		Reason:       reason,
		Status:       RefundProcessed,
	}
	r.UpdatedAt = now.UTC()

	return nil
}

func (r *Record) Event(eventType entities.EventType, now time.Time) entities.BookingEvent {
	event := entities.NewBookingEvent(eventType, now)
	event.BookingID = r.BookingID
	event.BillingID = r.BillingID
	event.UserID = r.UserID
	event.Type = r.BookingType
	event.ItemID = r.ItemID
	event.TotalAmountPaid = r.TotalAmountPaid
	event.PaymentMethod = string(r.PaymentMethod)
	event.TransactionStatus = string(r.TransactionStatus)
	event.Data = entities.EventData{
		InvoiceNumber:  r.InvoiceDetails.InvoiceNumber,
		ReceiptNumber:  r.InvoiceDetails.ReceiptNumber,
		BookingDetails: r.BookingDetails,
	}
	if eventType == entities.EventBookingCancelled && r.RefundDetails != nil {
		event.Data.Reason = r.RefundDetails.Reason
		event.Data.RefundDetails = r.RefundDetails
	}
	return event
}

type RevenueStats struct {
	TotalRevenue       decimal.Decimal `json:"totalRevenue"`
	TotalTransactions  int             `json:"totalTransactions"`
	AverageTransaction decimal.Decimal `json:"averageTransaction"`
}

// Revenue aggregates completed transactions only.
func Revenue(records []Record) RevenueStats {
	stats := RevenueStats{TotalRevenue: decimal.Zero, AverageTransaction: decimal.Zero}
	for _, r := range records {
		if r.TransactionStatus != StatusCompleted {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(r.TotalAmountPaid)
		stats.TotalTransactions++
	}
	if stats.TotalTransactions > 0 {
		stats.AverageTransaction = stats.TotalRevenue.
			Div(decimal.NewFromInt(int64(stats.TotalTransactions))).
			Round(2)
	}
	return stats
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	UserID string
	Status TransactionStatus
	From   *time.Time
	To     *time.Time
}

func (f Filter) Match(r Record) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Status != "" && r.TransactionStatus != f.Status {
		return false
	}
	if f.From != nil && r.DateOfTransaction.Before(*f.From) {
		return false
	}
	if f.To != nil && r.DateOfTransaction.After(*f.To) {
		return false
	}
	return true
}
