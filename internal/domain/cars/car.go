package cars

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"travel/internal/domain"
)

const dateLayout = "2006-01-02"

type Booking struct {
	BookingID  string    `json:"bookingId"`
	UserID     string    `json:"userId"`
	PickupDate time.Time `json:"pickupDate"`
	ReturnDate time.Time `json:"returnDate"`
}

func (b Booking) overlaps(pickup, ret time.Time) bool {
	return !b.PickupDate.After(ret) && !b.ReturnDate.Before(pickup)
}

type Car struct {
	ID        string          `json:"id"`
	Company   string          `json:"company"`
	Model     string          `json:"model"`
	CarType   string          `json:"carType"`
	Location  string          `json:"location"`
	DailyRate decimal.Decimal `json:"dailyRate"`
	Bookings  []Booking       `json:"bookings"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewCar(c Car, now time.Time) (*Car, error) {
	var errs domain.ValidationErrors
	if c.ID == "" {
		errs = append(errs, domain.ValidationError{Field: "id", Msg: "is required"})
	}
	if c.Model == "" {
		errs = append(errs, domain.ValidationError{Field: "model", Msg: "is required"})
	}
	if c.DailyRate.IsNegative() {
		errs = append(errs, domain.ValidationError{Field: "dailyRate", Msg: "must not be negative"})
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	c.Bookings = []Booking{}
	c.CreatedAt = now.UTC()
	c.UpdatedAt = c.CreatedAt

	return &c, nil
}

// NormalizeRange widens a requested range to whole UTC days, from the start
// of the pickup day to the last instant of the return day.
func NormalizeRange(pickup, ret time.Time) (time.Time, time.Time, error) {
	if pickup.IsZero() {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "pickupDate", Msg: "Pickup date is required"}
	}
	if ret.IsZero() {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "returnDate", Msg: "Return date is required"}
	}

	p := pickup.UTC()
	r := ret.UTC()
	start := time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(r.Year(), r.Month(), r.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if end.Before(start) {
		return time.Time{}, time.Time{}, domain.ValidationError{Field: "returnDate", Msg: "Return date must be after pickup date"}
	}

	return start, end, nil
}

func (c *Car) Conflicts(pickup, ret time.Time) []Booking {
	var out []Booking
	for _, b := range c.Bookings {
		if b.overlaps(pickup, ret) {
			out = append(out, b)
		}
	}
	return out
}

// AddBooking stores the interval unless it overlaps an existing one. A
// repeated booking id changes nothing.
func (c *Car) AddBooking(b Booking, now time.Time) error {
	start, end, err := NormalizeRange(b.PickupDate, b.ReturnDate)
	if err != nil {
		return err
	}

	if b.BookingID != "" {
		for _, existing := range c.Bookings {
			if existing.BookingID == b.BookingID {
				return nil
			}
		}
	}

	if conflicts := c.Conflicts(start, end); len(conflicts) > 0 {
		items := make([]string, 0, len(conflicts))
		for _, cb := range conflicts {
			items = append(items, fmt.Sprintf("%s..%s", cb.PickupDate.Format(dateLayout), cb.ReturnDate.Format(dateLayout)))
		}
		return domain.UnavailableError{Resource: "car", Items: items}
	}

	b.PickupDate = start
	b.ReturnDate = end
	c.Bookings = append(c.Bookings, b)
	c.UpdatedAt = now.UTC()

	return nil
}

func (c *Car) HasBooking(bookingID string) bool {
	for _, b := range c.Bookings {
		if b.BookingID == bookingID {
			return true
		}
	}
	return false
}

func (c *Car) RemoveBooking(bookingID string, now time.Time) bool {
	for i, b := range c.Bookings {
		if b.BookingID == bookingID {
			c.Bookings = append(c.Bookings[:i], c.Bookings[i+1:]...)
			c.UpdatedAt = now.UTC()
			return true
		}
	}
	return false
}

// CleanupExpired drops bookings that ended before now.
func (c *Car) CleanupExpired(now time.Time) int {
	kept := c.Bookings[:0]
	for _, b := range c.Bookings {
		if !b.ReturnDate.Before(now) {
			kept = append(kept, b)
		}
	}
	removed := len(c.Bookings) - len(kept)
	c.Bookings = kept
	return removed
}

// AvailableFor reports whether no still active booking overlaps the range.
func (c *Car) AvailableFor(pickup, ret, now time.Time) bool {
	for _, b := range c.Bookings {
		if b.ReturnDate.Before(now) {
			continue
		}
		if b.overlaps(pickup, ret) {
			return false
		}
	}
	return true
}

// Update is a partial change of the listing and its daily rate.
type Update struct {
	Company   *string          `json:"company"`
	Model     *string          `json:"model"`
	CarType   *string          `json:"carType"`
	Location  *string          `json:"location"`
	DailyRate *decimal.Decimal `json:"dailyRate"`
}

// PriceDrop describes a lowered daily rate.
type PriceDrop struct {
	OldPrice decimal.Decimal
	NewPrice decimal.Decimal
}

// Apply changes the car as a whole or not at all. The returned drop is nil
// unless the daily rate went down.
func (c *Car) Apply(u Update, now time.Time) (*PriceDrop, error) {
	var errs domain.ValidationErrors
	if u.Model != nil && *u.Model == "" {
		errs = append(errs, domain.ValidationError{Field: "model", Msg: "must not be empty"})
	}
	if u.DailyRate != nil && u.DailyRate.IsNegative() {
		errs = append(errs, domain.ValidationError{Field: "dailyRate", Msg: "must not be negative"})
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	if u.Company != nil {
		c.Company = *u.Company
	}
	if u.Model != nil {
		c.Model = *u.Model
	}
	if u.CarType != nil {
		c.CarType = *u.CarType
	}
	if u.Location != nil {
		c.Location = *u.Location
	}

	var drop *PriceDrop
	if u.DailyRate != nil {
		if u.DailyRate.LessThan(c.DailyRate) {
			drop = &PriceDrop{OldPrice: c.DailyRate, NewPrice: *u.DailyRate}
		}
		c.DailyRate = *u.DailyRate
	}
	c.UpdatedAt = now.UTC()

	return drop, nil
}

// Renters returns the users with a booking on the car, each once.
func (c *Car) Renters() []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range c.Bookings {
		if b.UserID == "" || seen[b.UserID] {
			continue
		}
		seen[b.UserID] = true
		out = append(out, b.UserID)
	}
	return out
}
