package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type BookingType string

const (
	BookingTypeFlight BookingType = "flight"
	BookingTypeHotel  BookingType = "hotel"
	BookingTypeCar    BookingType = "car"
)

func (t BookingType) Valid() bool {
	switch t {
	case BookingTypeFlight, BookingTypeHotel, BookingTypeCar:
		return true
	}
	return false
}

// BookingDetails is one of FlightBookingDetails, HotelBookingDetails or
// CarBookingDetails, selected by the envelope type.
type BookingDetails interface {
	BookingType() BookingType
	Validate() error
}

type FlightBookingDetails struct {
	FlightID          string    `json:"flightId"`
	SeatNumbers       []string  `json:"seatNumbers"`
	ReturnSeatNumbers []string  `json:"returnSeatNumbers,omitempty"`
	Passengers        int       `json:"passengers,omitempty"`
	DepartureDate     time.Time `json:"departureDate"`
}

func (FlightBookingDetails) BookingType() BookingType { return BookingTypeFlight }

func (d FlightBookingDetails) Validate() error {
	if d.FlightID == "" {
		return fmt.Errorf("flightId is required")
	}
	if len(d.SeatNumbers) == 0 {
		return fmt.Errorf("seatNumbers are required")
	}
	return nil
}

type HotelBookingDetails struct {
	HotelID  string         `json:"hotelId"`
	CheckIn  time.Time      `json:"checkIn"`
	CheckOut time.Time      `json:"checkOut"`
	Rooms    map[string]int `json:"rooms"`
	Guests   int            `json:"guests,omitempty"`
}

func (HotelBookingDetails) BookingType() BookingType { return BookingTypeHotel }

func (d HotelBookingDetails) Validate() error {
	if d.HotelID == "" {
		return fmt.Errorf("hotelId is required")
	}
	if d.CheckIn.IsZero() || d.CheckOut.IsZero() {
		return fmt.Errorf("checkIn and checkOut are required")
	}
	if !d.CheckOut.After(d.CheckIn) {
		return fmt.Errorf("checkOut must be after checkIn")
	}
	if len(d.Rooms) == 0 {
		return fmt.Errorf("rooms are required")
	}
	return nil
}

type CarBookingDetails struct {
	CarID          string    `json:"carId"`
	PickupDate     time.Time `json:"pickupDate"`
	ReturnDate     time.Time `json:"returnDate"`
	PickupLocation string    `json:"pickupLocation,omitempty"`
}

func (CarBookingDetails) BookingType() BookingType { return BookingTypeCar }

func (d CarBookingDetails) Validate() error {
	if d.CarID == "" {
		return fmt.Errorf("carId is required")
	}
	if d.PickupDate.IsZero() || d.ReturnDate.IsZero() {
		return fmt.Errorf("pickupDate and returnDate are required")
	}
	if d.ReturnDate.Before(d.PickupDate) {
		return fmt.Errorf("returnDate must not be before pickupDate")
	}
	return nil
}

// DecodeBookingDetails picks the variant for bookingType. Empty or null
// input yields nil details.
func DecodeBookingDetails(bookingType BookingType, raw json.RawMessage) (BookingDetails, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var (
		details BookingDetails
		err     error
	)
	switch bookingType {
	case BookingTypeFlight:
		var d FlightBookingDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case BookingTypeHotel:
		var d HotelBookingDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case BookingTypeCar:
		var d CarBookingDetails
		err = json.Unmarshal(raw, &d)
		details = d
	default:
		return nil, fmt.Errorf("cannot decode booking details for type %q", bookingType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s booking details: %w", bookingType, err)
	}

	return details, nil
}

// DetailsMap flattens details into the loose map kept in user history.
func DetailsMap(details BookingDetails) map[string]any {
	out := map[string]any{}
	if details == nil {
		return out
	}

	b, err := json.Marshal(details)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(b, &out)

	return out
}
