package flights

import (
	"time"

	"github.com/shopspring/decimal"

	"travel/internal/domain"
)

type Airport struct {
	Code    string `json:"code" validate:"required"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// SeatInventory is the seat map of one direction together with its counters.
type SeatInventory struct {
	FlightNumber      string          `json:"flightNumber"`
	DepartureDateTime time.Time       `json:"departureDateTime"`
	ArrivalDateTime   time.Time       `json:"arrivalDateTime"`
	Class             Class           `json:"class"`
	TicketPrice       decimal.Decimal `json:"ticketPrice"`
	TotalSeats        int             `json:"totalAvailableSeats"`
	AvailableSeats    int             `json:"availableSeats"`
	SeatMap           SeatMap         `json:"seatMap"`
}

// EnsureSeatMap generates the seat map once. It reports whether it did.
func (inv *SeatInventory) EnsureSeatMap() bool {
	if len(inv.SeatMap) > 0 || inv.TotalSeats <= 0 {
		return false
	}
	inv.SeatMap = GenerateSeatMap(inv.TotalSeats, inv.Class)
	return true
}

func (inv *SeatInventory) CleanupExpired(now time.Time, ttl time.Duration) int {
	released := inv.SeatMap.CleanupExpired(now, ttl)
	inv.restore(released)
	return released
}

func (inv *SeatInventory) Reserve(seatNumbers []string, bookingID, userID string, now time.Time) (ReserveResult, error) {
	if err := inv.validateSelection(seatNumbers); err != nil {
		return ReserveResult{}, err
	}

	res, err := inv.SeatMap.Reserve(seatNumbers, bookingID, userID, now)
	if err != nil {
		return res, err
	}

	inv.AvailableSeats -= res.NewlyReserved
	if inv.AvailableSeats < 0 {
		inv.AvailableSeats = 0
	}
	return res, nil
}

func (inv *SeatInventory) Confirm(seatNumbers []string, bookingID string) ([]string, error) {
	if err := inv.validateSelection(seatNumbers); err != nil {
		return nil, err
	}
	if bookingID == "" {
		return nil, domain.ValidationError{Field: "bookingId", Msg: "bookingId is required"}
	}
	return inv.SeatMap.Confirm(seatNumbers, bookingID), nil
}

func (inv *SeatInventory) Release(seatNumbers []string, bookingID, userID string) ([]string, error) {
	if len(seatNumbers) == 0 {
		return nil, domain.ValidationError{Field: "seatNumbers", Msg: "Seat numbers are required"}
	}
	released := inv.SeatMap.Release(seatNumbers, bookingID, userID)
	inv.restore(len(released))
	return released, nil
}

// ReleaseBooking returns booked seats of bookingID to the pool.
func (inv *SeatInventory) ReleaseBooking(bookingID string) int {
	released := inv.SeatMap.ReleaseBooking(bookingID)
	inv.restore(released)
	return released
}

func (inv *SeatInventory) restore(n int) {
	inv.AvailableSeats += n
	if inv.AvailableSeats > inv.TotalSeats {
		inv.AvailableSeats = inv.TotalSeats
	}
}

func (inv *SeatInventory) validateSelection(seatNumbers []string) error {
	if len(seatNumbers) == 0 {
		return domain.ValidationError{Field: "seatNumbers", Msg: "Seat numbers are required"}
	}
	if len(distinct(seatNumbers)) > inv.TotalSeats {
		return domain.ValidationError{Field: "seatNumbers", Msg: "seat count exceeds flight capacity"}
	}
	return nil
}

func (inv SeatInventory) validate(prefix string) domain.ValidationErrors {
	var errs domain.ValidationErrors
	if inv.FlightNumber == "" {
		errs = append(errs, domain.ValidationError{Field: prefix + "flightNumber", Msg: "is required"})
	}
	if !inv.Class.Valid() {
		errs = append(errs, domain.ValidationError{Field: prefix + "class", Msg: "must be Economy, Business or First"})
	}
	if inv.TicketPrice.IsNegative() {
		errs = append(errs, domain.ValidationError{Field: prefix + "ticketPrice", Msg: "must not be negative"})
	}
	if inv.TotalSeats < 0 || inv.TotalSeats > MaxSeats {
		errs = append(errs, domain.ValidationError{Field: prefix + "totalAvailableSeats", Msg: "Total available seats cannot exceed 60"})
	}
	if inv.AvailableSeats < 0 || inv.AvailableSeats > inv.TotalSeats {
		errs = append(errs, domain.ValidationError{Field: prefix + "availableSeats", Msg: "Available seats cannot exceed total available seats"})
	}
	if !inv.ArrivalDateTime.IsZero() && !inv.ArrivalDateTime.After(inv.DepartureDateTime) {
		errs = append(errs, domain.ValidationError{Field: prefix + "arrivalDateTime", Msg: "must be after departure"})
	}
	return errs
}

type Flight struct {
	ID               string         `json:"id"`
	Airline          string         `json:"airline"`
	DepartureAirport Airport        `json:"departureAirport"`
	ArrivalAirport   Airport        `json:"arrivalAirport"`
	Outbound         SeatInventory  `json:"outbound"`
	Return           *SeatInventory `json:"return,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func NewFlight(f Flight, now time.Time) (*Flight, error) {
	var errs domain.ValidationErrors
	if f.ID == "" {
		errs = append(errs, domain.ValidationError{Field: "id", Msg: "is required"})
	}
	if f.Airline == "" {
		errs = append(errs, domain.ValidationError{Field: "airline", Msg: "is required"})
	}
	if f.DepartureAirport.Code == "" || f.ArrivalAirport.Code == "" {
		errs = append(errs, domain.ValidationError{Field: "airport", Msg: "departure and arrival airport codes are required"})
	}
	errs = append(errs, f.Outbound.validate("")...)
	if f.Return != nil {
		errs = append(errs, f.Return.validate("return.")...)
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	f.Outbound.SeatMap = nil
	f.Outbound.EnsureSeatMap()
	if f.Return != nil {
		f.Return.SeatMap = nil
		f.Return.EnsureSeatMap()
	}
	f.CreatedAt = now.UTC()
	f.UpdatedAt = f.CreatedAt

	return &f, nil
}

// Inventory selects the outbound or return direction.
func (f *Flight) Inventory(returnFlight bool) (*SeatInventory, error) {
	if !returnFlight {
		return &f.Outbound, nil
	}
	if f.Return == nil {
		return nil, domain.ValidationError{Field: "returnFlight", Msg: "flight has no return leg"}
	}
	return f.Return, nil
}

// EnsureSeatMaps lazily generates missing seat maps of both directions.
func (f *Flight) EnsureSeatMaps() bool {
	changed := f.Outbound.EnsureSeatMap()
	if f.Return != nil && f.Return.EnsureSeatMap() {
		changed = true
	}
	return changed
}

func (f *Flight) CleanupExpired(now time.Time, ttl time.Duration) (outbound, ret int) {
	outbound = f.Outbound.CleanupExpired(now, ttl)
	if f.Return != nil {
		ret = f.Return.CleanupExpired(now, ttl)
	}
	return outbound, ret
}

// RestoreBooking frees the booked seats of bookingID in both directions.
func (f *Flight) RestoreBooking(bookingID string) int {
	released := f.Outbound.ReleaseBooking(bookingID)
	if f.Return != nil {
		released += f.Return.ReleaseBooking(bookingID)
	}
	return released
}

func (f *Flight) HasBooking(bookingID string) bool {
	if f.Outbound.SeatMap.HasBooking(bookingID) {
		return true
	}
	return f.Return != nil && f.Return.SeatMap.HasBooking(bookingID)
}

// Update is a partial change of schedule and price.
type Update struct {
	Airline           *string          `json:"airline"`
	DepartureDateTime *time.Time       `json:"departureDateTime"`
	ArrivalDateTime   *time.Time       `json:"arrivalDateTime"`
	TicketPrice       *decimal.Decimal `json:"ticketPrice"`
	ReturnTicketPrice *decimal.Decimal `json:"returnTicketPrice"`
}

// PriceDrop describes a lowered ticket price of one direction.
type PriceDrop struct {
	FlightNumber string
	OldPrice     decimal.Decimal
	NewPrice     decimal.Decimal
}

func (f *Flight) Apply(u Update, now time.Time) ([]PriceDrop, error) {
	next := *f
	if u.Airline != nil {
		next.Airline = *u.Airline
	}
	if u.DepartureDateTime != nil {
		next.Outbound.DepartureDateTime = *u.DepartureDateTime
	}
	if u.ArrivalDateTime != nil {
		next.Outbound.ArrivalDateTime = *u.ArrivalDateTime
	}

	var drops []PriceDrop
	if u.TicketPrice != nil {
		if u.TicketPrice.LessThan(f.Outbound.TicketPrice) {
			drops = append(drops, PriceDrop{FlightNumber: f.Outbound.FlightNumber, OldPrice: f.Outbound.TicketPrice, NewPrice: *u.TicketPrice})
		}
		next.Outbound.TicketPrice = *u.TicketPrice
	}
	if u.ReturnTicketPrice != nil {
		if f.Return == nil {
			return nil, domain.ValidationError{Field: "returnTicketPrice", Msg: "flight has no return leg"}
		}
		ret := *f.Return
		if u.ReturnTicketPrice.LessThan(ret.TicketPrice) {
			drops = append(drops, PriceDrop{FlightNumber: ret.FlightNumber, OldPrice: ret.TicketPrice, NewPrice: *u.ReturnTicketPrice})
		}
		ret.TicketPrice = *u.ReturnTicketPrice
		next.Return = &ret
	}

	errs := next.Outbound.validate("")
	if next.Return != nil {
		errs = append(errs, next.Return.validate("return.")...)
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	next.UpdatedAt = now.UTC()
	*f = next
	return drops, nil
}

func distinct(seatNumbers []string) map[string]struct{} {
	out := make(map[string]struct{}, len(seatNumbers))
	for _, sn := range seatNumbers {
		out[sn] = struct{}{}
	}
	return out
}
