package users

import (
	"time"

	"travel/internal/domain"
	"travel/internal/entities"
)

type HistoryStatus string

const (
	StatusUpcoming  HistoryStatus = "upcoming"
	StatusCurrent   HistoryStatus = "current"
	StatusPast      HistoryStatus = "past"
	StatusCancelled HistoryStatus = "cancelled"
)

func (s HistoryStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusCurrent, StatusPast, StatusCancelled:
		return true
	}
	return false
}

type HistoryEntry struct {
	BookingID   string               `json:"bookingId"`
	Type        entities.BookingType `json:"type"`
	BookingDate time.Time            `json:"bookingDate"`
	Status      HistoryStatus        `json:"status"`
	Details     map[string]any       `json:"details"`
}

type User struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	FirstName      string         `json:"firstName"`
	LastName       string         `json:"lastName"`
	Email          string         `json:"email"`
	BookingHistory []HistoryEntry `json:"bookingHistory"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func NewUser(u User, now time.Time) (*User, error) {
	var errs domain.ValidationErrors
	if u.ID == "" {
		errs = append(errs, domain.ValidationError{Field: "id", Msg: "is required"})
	}
	if u.Email == "" {
		errs = append(errs, domain.ValidationError{Field: "email", Msg: "is required"})
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	u.BookingHistory = []HistoryEntry{}
	u.CreatedAt = now.UTC()
	u.UpdatedAt = u.CreatedAt

	return &u, nil
}

func (u *User) entry(bookingID string) *HistoryEntry {
	for i := range u.BookingHistory {
		if u.BookingHistory[i].BookingID == bookingID {
			return &u.BookingHistory[i]
		}
	}
	return nil
}

// AddBooking appends the entry unless its booking id is already present.
func (u *User) AddBooking(e HistoryEntry, now time.Time) (bool, error) {
	if e.BookingID == "" {
		return false, domain.ValidationError{Field: "bookingId", Msg: "is required"}
	}
	if !e.Type.Valid() {
		return false, domain.ValidationError{Field: "type", Msg: "must be flight, hotel or car"}
	}
	if u.entry(e.BookingID) != nil {
		return false, nil
	}

	if e.Status == "" {
		e.Status = StatusUpcoming
	}
	if !e.Status.Valid() {
		return false, domain.ValidationError{Field: "status", Msg: "is not a known status"}
	}
	if e.BookingDate.IsZero() {
		e.BookingDate = now.UTC()
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}

	u.BookingHistory = append(u.BookingHistory, e)
	u.UpdatedAt = now.UTC()

	return true, nil
}

// MarkCancelled flips the entry to cancelled. It reports false when there is
// no such entry or it is already cancelled.
func (u *User) MarkCancelled(bookingID string, now time.Time) bool {
	e := u.entry(bookingID)
	if e == nil || e.Status == StatusCancelled {
		return false
	}
	e.Status = StatusCancelled
	u.UpdatedAt = now.UTC()
	return true
}

// Cancel is the user initiated cancellation. Unlike MarkCancelled it
// refuses entries that cannot be cancelled any more.
func (u *User) Cancel(bookingID string, now time.Time) (HistoryEntry, error) {
	if bookingID == "" {
		return HistoryEntry{}, domain.ValidationError{Field: "bookingId", Msg: "Booking ID is required"}
	}

	e := u.entry(bookingID)
	if e == nil {
		return HistoryEntry{}, domain.NotFoundError{Resource: "booking", ID: bookingID}
	}
	switch e.Status {
	case StatusCancelled:
		return HistoryEntry{}, domain.ValidationError{Field: "bookingId", Msg: "Booking is already cancelled"}
	case StatusPast:
		return HistoryEntry{}, domain.ValidationError{Field: "bookingId", Msg: "Cannot cancel a completed booking"}
	}

	e.Status = StatusCancelled
	u.UpdatedAt = now.UTC()

	return *e, nil
}

// History returns entries, optionally only those with status.
func (u *User) History(status HistoryStatus) []HistoryEntry {
	out := []HistoryEntry{}
	for _, e := range u.BookingHistory {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// EntryFromEvent projects a booking.created event into a history entry.
func EntryFromEvent(event entities.BookingEvent) HistoryEntry {
	details := entities.DetailsMap(event.Data.BookingDetails)
	details["totalAmountPaid"] = event.TotalAmountPaid.String()
	details["paymentMethod"] = event.PaymentMethod
	details["transactionStatus"] = event.TransactionStatus
	details["billingId"] = event.BillingID
	details["itemId"] = event.ItemID
	if event.Data.InvoiceNumber != "" {
		details["invoiceNumber"] = event.Data.InvoiceNumber
	}
	if event.Data.ReceiptNumber != "" {
		details["receiptNumber"] = event.Data.ReceiptNumber
	}

	return HistoryEntry{
		BookingID:   event.BookingID,
		Type:        event.Type,
		BookingDate: event.Timestamp,
		Status:      StatusUpcoming,
		Details:     details,
	}
}
