package flights

import (
	"fmt"
	"math"
	"time"

	"travel/internal/domain"
)

const (
	SeatsPerRow = 6
	MaxSeats    = 60

	DefaultReservationTTL = 15 * time.Minute
)

var seatColumns = [SeatsPerRow]string{"A", "B", "C", "D", "E", "F"}

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatBooked    SeatStatus = "booked"
)

type Class string

const (
	ClassEconomy  Class = "Economy"
	ClassBusiness Class = "Business"
	ClassFirst    Class = "First"
)

func (c Class) Valid() bool {
	switch c {
	case ClassEconomy, ClassBusiness, ClassFirst:
		return true
	}
	return false
}

type BookedBy struct {
	UserID     string    `json:"userId,omitempty"`
	BookingID  string    `json:"bookingId,omitempty"`
	ReservedAt time.Time `json:"reservedAt"`
}

type Seat struct {
	SeatNumber string     `json:"seatNumber"`
	Row        int        `json:"row"`
	Column     string     `json:"column"`
	Class      Class      `json:"class"`
	Status     SeatStatus `json:"status"`
	BookedBy   *BookedBy  `json:"bookedBy"`
}

func (s *Seat) free() {
	s.Status = SeatAvailable
	s.BookedBy = nil
}

func (s *Seat) heldBy(bookingID, userID string) bool {
	return s.BookedBy != nil && s.BookedBy.BookingID == bookingID && s.BookedBy.UserID == userID
}

type SeatMap []Seat

// GenerateSeatMap lays out totalSeats seats in rows of six, columns A to F.
func GenerateSeatMap(totalSeats int, class Class) SeatMap {
	if totalSeats <= 0 {
		return SeatMap{}
	}

	rows := int(math.Ceil(float64(totalSeats) / SeatsPerRow))
	seats := make(SeatMap, 0, totalSeats)
	for row := 1; row <= rows; row++ {
		for _, col := range seatColumns {
			if len(seats) == totalSeats {
				break
			}
			seats = append(seats, Seat{
				SeatNumber: fmt.Sprintf("%d%s", row, col),
				Row:        row,
				Column:     col,
				Class:      class,
				Status:     SeatAvailable,
			})
		}
	}

	return seats
}

func (m SeatMap) index(seatNumber string) int {
	for i := range m {
		if m[i].SeatNumber == seatNumber {
			return i
		}
	}
	return -1
}

// CleanupExpired frees reserved seats held for longer than ttl and returns
// how many were freed.
func (m SeatMap) CleanupExpired(now time.Time, ttl time.Duration) int {
	released := 0
	for i := range m {
		seat := &m[i]
		if seat.Status != SeatReserved || seat.BookedBy == nil || seat.BookedBy.ReservedAt.IsZero() {
			continue
		}
		if now.Sub(seat.BookedBy.ReservedAt) > ttl {
			seat.free()
			released++
		}
	}
	return released
}

// Reserve holds every requested seat for the booking or none of them. Seats
// already held by the same booking and user count as held.
func (m SeatMap) Reserve(seatNumbers []string, bookingID, userID string, now time.Time) (ReserveResult, error) {
	var (
		unavailable []string
		fresh       []int
		result      ReserveResult
		seen        = map[string]bool{}
	)

	for _, sn := range seatNumbers {
		if seen[sn] {
			continue
		}
		seen[sn] = true

		i := m.index(sn)
		if i < 0 {
			unavailable = append(unavailable, sn)
			continue
		}

		switch seat := m[i]; seat.Status {
		case SeatBooked:
			unavailable = append(unavailable, sn)
		case SeatReserved:
			if !seat.heldBy(bookingID, userID) {
				unavailable = append(unavailable, sn)
				continue
			}
			result.ReservedSeats = append(result.ReservedSeats, sn)
		default:
			fresh = append(fresh, i)
			result.ReservedSeats = append(result.ReservedSeats, sn)
		}
	}

	if len(unavailable) > 0 {
		return ReserveResult{}, domain.UnavailableError{Resource: "seats", Items: unavailable}
	}

	for _, i := range fresh {
		m[i].Status = SeatReserved
		m[i].BookedBy = &BookedBy{
			UserID:     userID,
			BookingID:  bookingID,
			ReservedAt: now.UTC(),
		}
	}
	result.NewlyReserved = len(fresh)

	return result, nil
}

// Confirm books reserved seats. Seats that are not reserved, or are held by
// another booking, are skipped.
func (m SeatMap) Confirm(seatNumbers []string, bookingID string) []string {
	confirmed := []string{}
	for _, sn := range seatNumbers {
		i := m.index(sn)
		if i < 0 || m[i].Status != SeatReserved {
			continue
		}

		seat := &m[i]
		if seat.BookedBy == nil {
			seat.BookedBy = &BookedBy{}
		}
		if seat.BookedBy.BookingID != "" && seat.BookedBy.BookingID != bookingID {
			continue
		}

		seat.Status = SeatBooked
		seat.BookedBy.BookingID = bookingID
		confirmed = append(confirmed, sn)
	}
	return confirmed
}

// Release frees reserved seats whose holder matches bookingID or userID.
// With neither given every requested reserved seat is freed.
func (m SeatMap) Release(seatNumbers []string, bookingID, userID string) []string {
	released := []string{}
	for _, sn := range seatNumbers {
		i := m.index(sn)
		if i < 0 || m[i].Status != SeatReserved {
			continue
		}

		seat := &m[i]
		if bookingID != "" || userID != "" {
			if seat.BookedBy == nil {
				continue
			}
			matches := (bookingID != "" && seat.BookedBy.BookingID == bookingID) ||
				(userID != "" && seat.BookedBy.UserID == userID)
			if !matches {
				continue
			}
		}

		seat.free()
		released = append(released, sn)
	}
	return released
}

// ReleaseBooking frees every booked seat owned by bookingID.
func (m SeatMap) ReleaseBooking(bookingID string) int {
	released := 0
	for i := range m {
		seat := &m[i]
		if seat.Status == SeatBooked && seat.BookedBy != nil && seat.BookedBy.BookingID == bookingID {
			seat.free()
			released++
		}
	}
	return released
}

func (m SeatMap) HasBooking(bookingID string) bool {
	for _, seat := range m {
		if seat.BookedBy != nil && seat.BookedBy.BookingID == bookingID {
			return true
		}
	}
	return false
}

func (m SeatMap) CountStatus(status SeatStatus) int {
	n := 0
	for _, seat := range m {
		if seat.Status == status {
			n++
		}
	}
	return n
}

type ReserveResult struct {
	ReservedSeats []string `json:"reservedSeats"`
	NewlyReserved int      `json:"-"`
}
