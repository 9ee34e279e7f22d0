package hotels

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"travel/internal/domain"
)

const (
	RoomSingle = "SINGLE"
	RoomDouble = "DOUBLE"
	RoomSuite  = "SUITE"
)

func validRoomType(t string) bool {
	switch t {
	case RoomSingle, RoomDouble, RoomSuite:
		return true
	}
	return false
}

type RoomType struct {
	Type          string          `json:"type"`
	PricePerNight decimal.Decimal `json:"pricePerNight"`
	Available     int             `json:"available"`
	Total         int             `json:"total"`
	MaxGuests     int             `json:"maxGuests"`
}

// Allocation is what one booking took out of the hotel.
type Allocation struct {
	Rooms     int            `json:"rooms"`
	RoomTypes map[string]int `json:"roomTypes,omitempty"`
	UserID    string         `json:"userId,omitempty"`
}

type Hotel struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	City           string                `json:"city"`
	StarRating     int                   `json:"starRating"`
	NumberOfRooms  int                   `json:"numberOfRooms"`
	AvailableRooms int                   `json:"availableRooms"`
	RoomTypes      []RoomType            `json:"roomTypes"`
	Allocations    map[string]Allocation `json:"allocations,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

func NewHotel(h Hotel, now time.Time) (*Hotel, error) {
	var errs domain.ValidationErrors
	if h.ID == "" {
		errs = append(errs, domain.ValidationError{Field: "id", Msg: "is required"})
	}
	if h.Name == "" {
		errs = append(errs, domain.ValidationError{Field: "name", Msg: "is required"})
	}
	if h.NumberOfRooms < 0 {
		errs = append(errs, domain.ValidationError{Field: "numberOfRooms", Msg: "must not be negative"})
	}
	if h.AvailableRooms < 0 || h.AvailableRooms > h.NumberOfRooms {
		errs = append(errs, domain.ValidationError{Field: "availableRooms", Msg: "must be between 0 and numberOfRooms"})
	}

	seen := map[string]bool{}
	for i := range h.RoomTypes {
		rt := &h.RoomTypes[i]
		field := fmt.Sprintf("roomTypes[%d]", i)
		if !validRoomType(rt.Type) {
			errs = append(errs, domain.ValidationError{Field: field + ".type", Msg: "must be SINGLE, DOUBLE or SUITE"})
		}
		if seen[rt.Type] {
			errs = append(errs, domain.ValidationError{Field: field + ".type", Msg: "is duplicated"})
		}
		seen[rt.Type] = true
		if rt.Total == 0 {
			rt.Total = rt.Available
		}
		if rt.Available < 0 || rt.Available > rt.Total {
			errs = append(errs, domain.ValidationError{Field: field + ".available", Msg: "must be between 0 and total"})
		}
		if rt.PricePerNight.IsNegative() {
			errs = append(errs, domain.ValidationError{Field: field + ".pricePerNight", Msg: "must not be negative"})
		}
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	h.Allocations = map[string]Allocation{}
	h.CreatedAt = now.UTC()
	h.UpdatedAt = h.CreatedAt

	return &h, nil
}

// RoomsRequest takes either an aggregate room count or per type counts.
type RoomsRequest struct {
	Rooms     int            `json:"rooms"`
	RoomTypes map[string]int `json:"roomTypes"`
	BookingID string         `json:"bookingId"`
	UserID    string         `json:"userId"`
}

func (h *Hotel) roomType(t string) *RoomType {
	for i := range h.RoomTypes {
		if h.RoomTypes[i].Type == t {
			return &h.RoomTypes[i]
		}
	}
	return nil
}

// UpdateRooms takes rooms out of the counters, all or nothing. A request
// carrying an already recorded booking id changes nothing.
func (h *Hotel) UpdateRooms(req RoomsRequest, now time.Time) error {
	if req.BookingID != "" {
		if _, ok := h.Allocations[req.BookingID]; ok {
			return nil
		}
	}

	alloc, err := h.checkAvailability(req)
	if err != nil {
		return err
	}

	for t, n := range alloc.RoomTypes {
		h.roomType(t).Available -= n
	}
	h.AvailableRooms -= alloc.Rooms

	if req.BookingID != "" {
		alloc.UserID = req.UserID
		if h.Allocations == nil {
			h.Allocations = map[string]Allocation{}
		}
		h.Allocations[req.BookingID] = alloc
	}
	h.UpdatedAt = now.UTC()

	return nil
}

func (h *Hotel) checkAvailability(req RoomsRequest) (Allocation, error) {
	if len(req.RoomTypes) == 0 {
		if req.Rooms <= 0 {
			return Allocation{}, domain.ValidationError{Field: "rooms", Msg: "rooms or roomTypes are required"}
		}
		if h.AvailableRooms < req.Rooms {
			return Allocation{}, domain.UnavailableError{Resource: "rooms", Items: []string{"Not enough rooms available"}}
		}
		return Allocation{Rooms: req.Rooms}, nil
	}

	types := make([]string, 0, len(req.RoomTypes))
	for t := range req.RoomTypes {
		types = append(types, t)
	}
	sort.Strings(types)

	var problems []string
	alloc := Allocation{RoomTypes: map[string]int{}}
	for _, t := range types {
		n := req.RoomTypes[t]
		if n < 0 {
			return Allocation{}, domain.ValidationError{Field: "roomTypes." + t, Msg: "must not be negative"}
		}
		if n == 0 {
			continue
		}
		rt := h.roomType(t)
		switch {
		case rt == nil:
			problems = append(problems, fmt.Sprintf("Room type %s not found", t))
		case rt.Available < n:
			problems = append(problems, fmt.Sprintf("Not enough %s rooms available", t))
		default:
			alloc.RoomTypes[t] = n
			alloc.Rooms += n
		}
	}
	if len(problems) > 0 {
		return Allocation{}, domain.UnavailableError{Resource: "rooms", Items: problems}
	}
	if alloc.Rooms == 0 {
		return Allocation{}, domain.ValidationError{Field: "roomTypes", Msg: "at least one room is required"}
	}
	if h.AvailableRooms < alloc.Rooms {
		return Allocation{}, domain.UnavailableError{Resource: "rooms", Items: []string{"Not enough rooms available"}}
	}

	return alloc, nil
}

// ReleaseBooking puts a recorded allocation back, clamped to the totals.
// It reports false when bookingID holds nothing here.
func (h *Hotel) ReleaseBooking(bookingID string, now time.Time) bool {
	alloc, ok := h.Allocations[bookingID]
	if !ok {
		return false
	}

	for t, n := range alloc.RoomTypes {
		if rt := h.roomType(t); rt != nil {
			rt.Available = min(rt.Available+n, rt.Total)
		}
	}
	h.AvailableRooms = min(h.AvailableRooms+alloc.Rooms, h.NumberOfRooms)

	delete(h.Allocations, bookingID)
	h.UpdatedAt = now.UTC()

	return true
}

// Update is a partial change of the listing and its nightly room prices.
type Update struct {
	Name       *string                    `json:"name"`
	City       *string                    `json:"city"`
	StarRating *int                       `json:"starRating"`
	RoomPrices map[string]decimal.Decimal `json:"roomPrices"`
}

// PriceDrop describes a lowered nightly price of one room type.
type PriceDrop struct {
	RoomType string
	OldPrice decimal.Decimal
	NewPrice decimal.Decimal
}

// Apply changes the hotel as a whole or not at all and reports the room
// types that got cheaper.
func (h *Hotel) Apply(u Update, now time.Time) ([]PriceDrop, error) {
	var errs domain.ValidationErrors
	if u.Name != nil && *u.Name == "" {
		errs = append(errs, domain.ValidationError{Field: "name", Msg: "must not be empty"})
	}
	if u.StarRating != nil && (*u.StarRating < 0 || *u.StarRating > 5) {
		errs = append(errs, domain.ValidationError{Field: "starRating", Msg: "must be between 0 and 5"})
	}

	types := make([]string, 0, len(u.RoomPrices))
	for t := range u.RoomPrices {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, t := range types {
		field := "roomPrices." + t
		if h.roomType(t) == nil {
			errs = append(errs, domain.ValidationError{Field: field, Msg: "room type not found"})
		}
		if u.RoomPrices[t].IsNegative() {
			errs = append(errs, domain.ValidationError{Field: field, Msg: "must not be negative"})
		}
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.City != nil {
		h.City = *u.City
	}
	if u.StarRating != nil {
		h.StarRating = *u.StarRating
	}

	var drops []PriceDrop
	for _, t := range types {
		rt := h.roomType(t)
		price := u.RoomPrices[t]
		if price.LessThan(rt.PricePerNight) {
			drops = append(drops, PriceDrop{RoomType: t, OldPrice: rt.PricePerNight, NewPrice: price})
		}
		rt.PricePerNight = price
	}
	h.UpdatedAt = now.UTC()

	return drops, nil
}

// Guests returns the users holding rooms, each once, in booking id order.
func (h *Hotel) Guests() []string {
	bookingIDs := make([]string, 0, len(h.Allocations))
	for id := range h.Allocations {
		bookingIDs = append(bookingIDs, id)
	}
	sort.Strings(bookingIDs)

	seen := map[string]bool{}
	var out []string
	for _, id := range bookingIDs {
		userID := h.Allocations[id].UserID
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		out = append(out, userID)
	}
	return out
}
