package flights

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"travel/internal/cache"
	"travel/internal/domain"
	fdomain "travel/internal/domain/flights"
	"travel/internal/entities"
)

var (
	seatsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "flights",
		Name:      "seats_reserved_total",
		Help:      "The total number of seats put on hold",
	})
	seatsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flights",
			Name:      "seats_released_total",
			Help:      "The total number of seats returned to the pool",
		},
		[]string{"reason"},
	)
)

type FlightsRepo interface {
	Create(ctx context.Context, f *fdomain.Flight) error
	Get(ctx context.Context, id string) (*fdomain.Flight, error)
	List(ctx context.Context) ([]fdomain.Flight, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, updateFn func(f *fdomain.Flight) error) (*fdomain.Flight, error)
	FindByBookingID(ctx context.Context, bookingID string) (*fdomain.Flight, error)
}

type PriceDropNotifier interface {
	NotifyPriceDrop(ctx context.Context, userID string, flight fdomain.Flight, drop fdomain.PriceDrop) error
}

type Usecase struct {
	repo     FlightsRepo
	cache    *cache.Cache
	notifier PriceDropNotifier
	ttl      time.Duration
	now      func() time.Time
}

func NewUsecase(
	repo FlightsRepo,
	cache *cache.Cache,
	notifier PriceDropNotifier,
	ttl time.Duration,
	now func() time.Time,
) *Usecase {
	if ttl <= 0 {
		ttl = fdomain.DefaultReservationTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Usecase{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		ttl:      ttl,
		now:      now,
	}
}

func (u *Usecase) Create(ctx context.Context, f fdomain.Flight) (*fdomain.Flight, error) {
	flight, err := fdomain.NewFlight(f, u.now())
	if err != nil {
		return nil, err
	}

	if err := u.repo.Create(ctx, flight); err != nil {
		return nil, err
	}
	u.cache.DeletePattern(ctx, cache.FlightSearchPattern)

	return flight, nil
}

func (u *Usecase) Get(ctx context.Context, id string) (*fdomain.Flight, error) {
	return cache.Fetch(ctx, u.cache, cache.FlightKey(id), cache.FlightTTL, func(ctx context.Context) (*fdomain.Flight, error) {
		return u.repo.Get(ctx, id)
	})
}

type SearchQuery struct {
	From string
	To   string
	Date string
}

func (q SearchQuery) params() map[string]string {
	params := map[string]string{}
	if q.From != "" {
		params["from"] = strings.ToUpper(q.From)
	}
	if q.To != "" {
		params["to"] = strings.ToUpper(q.To)
	}
	if q.Date != "" {
		params["date"] = q.Date
	}
	return params
}

func matchAirport(a fdomain.Airport, query string) bool {
	return query == "" || strings.EqualFold(a.Code, query) || strings.EqualFold(a.City, query)
}

// Search matches airports by code or city and the outbound departure day.
func (u *Usecase) Search(ctx context.Context, q SearchQuery) ([]fdomain.Flight, error) {
	return cache.Fetch(ctx, u.cache, cache.FlightSearchKey(q.params()), cache.FlightSearchTTL, func(ctx context.Context) ([]fdomain.Flight, error) {
		all, err := u.repo.List(ctx)
		if err != nil {
			return nil, err
		}

		found := []fdomain.Flight{}
		for _, f := range all {
			if !matchAirport(f.DepartureAirport, q.From) || !matchAirport(f.ArrivalAirport, q.To) {
				continue
			}
			if q.Date != "" && f.Outbound.DepartureDateTime.UTC().Format(time.DateOnly) != q.Date {
				continue
			}
			found = append(found, f)
		}
		return found, nil
	})
}

func (u *Usecase) Update(ctx context.Context, id string, update fdomain.Update) (*fdomain.Flight, error) {
	var drops []fdomain.PriceDrop

	flight, err := u.repo.Update(ctx, id, func(f *fdomain.Flight) error {
		var err error
		drops, err = f.Apply(update, u.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	u.invalidate(ctx, id)

	for _, drop := range drops {
		u.notifyPriceDrop(ctx, *flight, drop)
	}

	return flight, nil
}

// notifyPriceDrop tells every passenger holding a seat about the lower
// price. Failures are logged only.
func (u *Usecase) notifyPriceDrop(ctx context.Context, flight fdomain.Flight, drop fdomain.PriceDrop) {
	if u.notifier == nil {
		return
	}

	for _, userID := range passengers(flight) {
		if err := u.notifier.NotifyPriceDrop(ctx, userID, flight, drop); err != nil {
			log.FromContext(ctx).
				WithError(err).
				WithField("flight_id", flight.ID).
				WithField("user_id", userID).
				Warn("Price drop notification failed")
		}
	}
}

func passengers(f fdomain.Flight) []string {
	seen := map[string]bool{}
	var out []string
	add := func(m fdomain.SeatMap) {
		for _, seat := range m {
			if seat.BookedBy == nil || seat.BookedBy.UserID == "" || seen[seat.BookedBy.UserID] {
				continue
			}
			seen[seat.BookedBy.UserID] = true
			out = append(out, seat.BookedBy.UserID)
		}
	}
	add(f.Outbound.SeatMap)
	if f.Return != nil {
		add(f.Return.SeatMap)
	}
	return out
}

func (u *Usecase) Delete(ctx context.Context, id string) error {
	if err := u.repo.Delete(ctx, id); err != nil {
		return err
	}
	u.invalidate(ctx, id)
	return nil
}

func (u *Usecase) invalidate(ctx context.Context, id string) {
	u.cache.Delete(ctx, cache.FlightKey(id))
	u.cache.DeletePattern(ctx, cache.FlightSearchPattern)
}

type SeatMapView struct {
	SeatMap        fdomain.SeatMap `json:"seatMap"`
	TotalSeats     int             `json:"totalSeats"`
	AvailableSeats int             `json:"availableSeats"`
}

// refresh generates missing seat maps and frees expired holds. It returns
// whether anything changed and how many holds expired.
func (u *Usecase) refresh(f *fdomain.Flight, now time.Time) (bool, int) {
	generated := f.EnsureSeatMaps()
	outbound, ret := f.CleanupExpired(now, u.ttl)
	return generated || outbound+ret > 0, outbound + ret
}

// SeatMap returns the seat map of one direction. Missing maps are generated
// and expired holds released, and either change is persisted.
func (u *Usecase) SeatMap(ctx context.Context, id string, returnFlight bool) (SeatMapView, error) {
	now := u.now()

	flight, err := u.repo.Get(ctx, id)
	if err != nil {
		return SeatMapView{}, err
	}

	if changed, _ := u.refresh(flight, now); changed {
		var expired int
		flight, err = u.repo.Update(ctx, id, func(f *fdomain.Flight) error {
			_, expired = u.refresh(f, now)
			return nil
		})
		if err != nil {
			return SeatMapView{}, err
		}
		seatsReleased.WithLabelValues("expired").Add(float64(expired))
		u.cache.Delete(ctx, cache.FlightKey(id))
	}

	inv, err := flight.Inventory(returnFlight)
	if err != nil {
		return SeatMapView{}, err
	}

	return SeatMapView{
		SeatMap:        inv.SeatMap,
		TotalSeats:     inv.TotalSeats,
		AvailableSeats: inv.AvailableSeats,
	}, nil
}

type SeatsCommand struct {
	SeatNumbers  []string `json:"seatNumbers"`
	BookingID    string   `json:"bookingId"`
	UserID       string   `json:"userId"`
	ReturnFlight bool     `json:"returnFlight"`
}

type ReserveResult struct {
	ReservedSeats    []string `json:"reservedSeats"`
	UnavailableSeats []string `json:"unavailableSeats"`
}

// Reserve holds all requested seats or none.
func (u *Usecase) Reserve(ctx context.Context, id string, cmd SeatsCommand) (ReserveResult, error) {
	now := u.now()

	var (
		result  fdomain.ReserveResult
		expired int
	)
	_, err := u.repo.Update(ctx, id, func(f *fdomain.Flight) error {
		_, expired = u.refresh(f, now)

		inv, err := f.Inventory(cmd.ReturnFlight)
		if err != nil {
			return err
		}

		result, err = inv.Reserve(cmd.SeatNumbers, cmd.BookingID, cmd.UserID, now)
		if err != nil {
			return err
		}
		f.UpdatedAt = now.UTC()
		return nil
	})
	if err != nil {
		return ReserveResult{}, err
	}
	u.cache.Delete(ctx, cache.FlightKey(id))

	seatsReserved.Add(float64(result.NewlyReserved))
	seatsReleased.WithLabelValues("expired").Add(float64(expired))
	log.FromContext(ctx).
		WithField("flight_id", id).
		WithField("booking_id", cmd.BookingID).
		WithField("seats", result.ReservedSeats).
		Info("Seats reserved")

	return ReserveResult{ReservedSeats: result.ReservedSeats, UnavailableSeats: []string{}}, nil
}

func (u *Usecase) Release(ctx context.Context, id string, cmd SeatsCommand) ([]string, error) {
	var released []string
	_, err := u.repo.Update(ctx, id, func(f *fdomain.Flight) error {
		inv, err := f.Inventory(cmd.ReturnFlight)
		if err != nil {
			return err
		}

		released, err = inv.Release(cmd.SeatNumbers, cmd.BookingID, cmd.UserID)
		if err != nil {
			return err
		}
		f.UpdatedAt = u.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.cache.Delete(ctx, cache.FlightKey(id))

	seatsReleased.WithLabelValues("released").Add(float64(len(released)))
	return released, nil
}

// Confirm turns holds of the booking into bookings. Expired holds are
// released first and cannot be confirmed.
func (u *Usecase) Confirm(ctx context.Context, id string, cmd SeatsCommand) ([]string, error) {
	now := u.now()

	var (
		confirmed []string
		expired   int
	)
	_, err := u.repo.Update(ctx, id, func(f *fdomain.Flight) error {
		_, expired = u.refresh(f, now)

		inv, err := f.Inventory(cmd.ReturnFlight)
		if err != nil {
			return err
		}

		confirmed, err = inv.Confirm(cmd.SeatNumbers, cmd.BookingID)
		if err != nil {
			return err
		}
		f.UpdatedAt = now.UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.cache.Delete(ctx, cache.FlightKey(id))
	seatsReleased.WithLabelValues("expired").Add(float64(expired))

	return confirmed, nil
}

type CleanupResult struct {
	OutboundReleased int `json:"outboundReleased"`
	ReturnReleased   int `json:"returnReleased"`
	TotalReleased    int `json:"totalReleased"`
}

func (u *Usecase) Cleanup(ctx context.Context, id string) (CleanupResult, error) {
	now := u.now()

	var result CleanupResult
	_, err := u.repo.Update(ctx, id, func(f *fdomain.Flight) error {
		f.EnsureSeatMaps()
		result.OutboundReleased, result.ReturnReleased = f.CleanupExpired(now, u.ttl)
		result.TotalReleased = result.OutboundReleased + result.ReturnReleased
		return nil
	})
	if err != nil {
		return CleanupResult{}, err
	}

	if result.TotalReleased > 0 {
		seatsReleased.WithLabelValues("expired").Add(float64(result.TotalReleased))
		u.cache.Delete(ctx, cache.FlightKey(id))
	}

	return result, nil
}

// RestoreOnCancel frees the seats booked for a cancelled flight booking.
// Repeated deliveries find nothing to free.
func (u *Usecase) RestoreOnCancel(ctx context.Context, event entities.BookingEvent) error {
	if event.Type != entities.BookingTypeFlight {
		return nil
	}

	flightID, err := u.flightOfBooking(ctx, event)
	if err != nil {
		if domain.IsNotFound(err) {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				Warn("No flight holds seats of the cancelled booking")
			return nil
		}
		return err
	}

	var released int
	_, err = u.repo.Update(ctx, flightID, func(f *fdomain.Flight) error {
		released = f.RestoreBooking(event.BookingID)
		if released > 0 {
			f.UpdatedAt = u.now().UTC()
		}
		return nil
	})
	if err != nil {
		return err
	}

	if released > 0 {
		seatsReleased.WithLabelValues("cancelled").Add(float64(released))
		u.cache.Delete(ctx, cache.FlightKey(flightID))
	}

	log.FromContext(ctx).
		WithField("flight_id", flightID).
		WithField("booking_id", event.BookingID).
		WithField("released", released).
		Info("Seats restored for cancelled booking")

	return nil
}

func (u *Usecase) flightOfBooking(ctx context.Context, event entities.BookingEvent) (string, error) {
	if event.ItemID != "" {
		f, err := u.repo.Get(ctx, event.ItemID)
		if err == nil && f.HasBooking(event.BookingID) {
			return f.ID, nil
		}
		if err != nil && !domain.IsNotFound(err) {
			return "", err
		}
	}

	f, err := u.repo.FindByBookingID(ctx, event.BookingID)
	if err != nil {
		return "", err
	}
	return f.ID, nil
}
