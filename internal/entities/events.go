package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingFailed    EventType = "booking.failed"
)

func (t EventType) Valid() bool {
	switch t {
	case EventBookingCreated, EventBookingConfirmed, EventBookingCancelled, EventBookingFailed:
		return true
	}
	return false
}

// BookingEvent is the envelope carried on the bookings topic.
type BookingEvent struct {
	EventID           string          `json:"eventId"`
	EventType         EventType       `json:"eventType"`
	Timestamp         time.Time       `json:"timestamp"`
	BookingID         string          `json:"bookingId"`
	BillingID         string          `json:"billingId"`
	UserID            string          `json:"userId"`
	Type              BookingType     `json:"type"`
	ItemID            string          `json:"itemId"`
	TotalAmountPaid   decimal.Decimal `json:"totalAmountPaid"`
	PaymentMethod     string          `json:"paymentMethod"`
	TransactionStatus string          `json:"transactionStatus"`
	Data              EventData       `json:"data"`
}

type EventData struct {
	InvoiceNumber  string         `json:"invoiceNumber,omitempty"`
	ReceiptNumber  string         `json:"receiptNumber,omitempty"`
	BookingDetails BookingDetails `json:"bookingDetails,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	RefundDetails  *RefundDetails `json:"refundDetails,omitempty"`
}

type RefundDetails struct {
	RefundAmount decimal.Decimal `json:"refundAmount"`
	RefundDate   time.Time       `json:"refundDate"`
	Reason       string          `json:"reason"`
	Status       string          `json:"status"`
}

func NewBookingEvent(eventType EventType, timestamp time.Time) BookingEvent {
	return BookingEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: timestamp.UTC(),
	}
}

// PartitionKey keeps all events of one booking on the same partition.
func (e BookingEvent) PartitionKey() string {
	switch {
	case e.BookingID != "":
		return e.BookingID
	case e.BillingID != "":
		return e.BillingID
	default:
		return fmt.Sprintf("event-%d", e.Timestamp.UnixMilli())
	}
}

func (e BookingEvent) Validate() error {
	if !e.EventType.Valid() {
		return fmt.Errorf("unknown event type %q", e.EventType)
	}
	if e.BookingID == "" {
		return fmt.Errorf("bookingId is required")
	}
	if e.Type != "" && !e.Type.Valid() {
		return fmt.Errorf("unknown booking type %q", e.Type)
	}
	if e.EventType == EventBookingCreated {
		if e.Data.BookingDetails == nil {
			return fmt.Errorf("bookingDetails are required for %s", e.EventType)
		}
		if err := e.Data.BookingDetails.Validate(); err != nil {
			return fmt.Errorf("invalid %s booking details: %w", e.Type, err)
		}
	}
	return nil
}

func (e *BookingEvent) UnmarshalJSON(b []byte) error {
	type plain BookingEvent
	var raw struct {
		plain
		Data struct {
			InvoiceNumber  string          `json:"invoiceNumber"`
			ReceiptNumber  string          `json:"receiptNumber"`
			BookingDetails json.RawMessage `json:"bookingDetails"`
			Reason         string          `json:"reason"`
			RefundDetails  *RefundDetails  `json:"refundDetails"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	details, err := DecodeBookingDetails(raw.Type, raw.Data.BookingDetails)
	if err != nil {
		return err
	}

	*e = BookingEvent(raw.plain)
	e.Data = EventData{
		InvoiceNumber:  raw.Data.InvoiceNumber,
		ReceiptNumber:  raw.Data.ReceiptNumber,
		BookingDetails: details,
		Reason:         raw.Data.Reason,
		RefundDetails:  raw.Data.RefundDetails,
	}
	return nil
}
