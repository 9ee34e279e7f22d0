package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"travel/internal/application/usecases/flights"
	fdomain "travel/internal/domain/flights"
)

func (s *Server) registerFlights(g *echo.Group) {
	g.POST("", s.CreateFlightHandler)
	g.GET("", s.SearchFlightsHandler)
	g.GET("/:id", s.GetFlightHandler)
	g.PUT("/:id", s.UpdateFlightHandler)
	g.DELETE("/:id", s.DeleteFlightHandler)

	g.GET("/:id/seatmap", s.SeatMapHandler)
	g.POST("/:id/reserve-seats", s.ReserveSeatsHandler)
	g.POST("/:id/release-seats", s.ReleaseSeatsHandler)
	g.POST("/:id/confirm-seats", s.ConfirmSeatsHandler)
	g.POST("/:id/cleanup-reservations", s.CleanupReservationsHandler)
}

type seatsRequest struct {
	SeatNumbers  []string    `json:"seatNumbers" validate:"required,min=1,dive,required"`
	BookingID    string      `json:"bookingId"`
	UserID       string      `json:"userId"`
	ReturnFlight *returnFlag `json:"returnFlight"`
}

func (r seatsRequest) command(c echo.Context) flights.SeatsCommand {
	return flights.SeatsCommand{
		SeatNumbers:  r.SeatNumbers,
		BookingID:    r.BookingID,
		UserID:       r.UserID,
		ReturnFlight: r.ReturnFlight.orQuery(c),
	}
}

type reserveSeatsRequest struct {
	SeatNumbers  []string    `json:"seatNumbers" validate:"required,min=1,dive,required"`
	BookingID    string      `json:"bookingId" validate:"required"`
	UserID       string      `json:"userId" validate:"required"`
	ReturnFlight *returnFlag `json:"returnFlight"`
}

// returnFlag accepts a JSON bool or a "true"/"false" string. Without it in
// the body the returnFlight query parameter is used.
type returnFlag bool

func (f *returnFlag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch v := v.(type) {
	case bool:
		*f = returnFlag(v)
	case string:
		*f = returnFlag(parseReturnFlag(v))
	case float64:
		*f = v != 0
	default:
		*f = false
	}
	return nil
}

func (f *returnFlag) orQuery(c echo.Context) bool {
	if f != nil {
		return bool(*f)
	}
	return parseReturnFlag(c.QueryParam("returnFlight"))
}

func parseReturnFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0":
		return false
	}
	return true
}

func (s *Server) CreateFlightHandler(c echo.Context) error {
	var request fdomain.Flight
	if err := c.Bind(&request); err != nil {
		return err
	}

	flight, err := s.services.Flights.Create(c.Request().Context(), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, "Flight created successfully", flight)
}

func (s *Server) GetFlightHandler(c echo.Context) error {
	flight, err := s.services.Flights.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", flight)
}

func (s *Server) SearchFlightsHandler(c echo.Context) error {
	found, err := s.services.Flights.Search(c.Request().Context(), flights.SearchQuery{
		From: c.QueryParam("from"),
		To:   c.QueryParam("to"),
		Date: c.QueryParam("date"),
	})
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", found)
}

func (s *Server) UpdateFlightHandler(c echo.Context) error {
	var request fdomain.Update
	if err := c.Bind(&request); err != nil {
		return err
	}

	flight, err := s.services.Flights.Update(c.Request().Context(), c.Param("id"), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Flight updated successfully", flight)
}

func (s *Server) DeleteFlightHandler(c echo.Context) error {
	if err := s.services.Flights.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Flight deleted successfully", nil)
}

func (s *Server) SeatMapHandler(c echo.Context) error {
	returnFlight, _ := strconv.ParseBool(c.QueryParam("returnFlight"))

	view, err := s.services.Flights.SeatMap(c.Request().Context(), c.Param("id"), returnFlight)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", view)
}

func (s *Server) ReserveSeatsHandler(c echo.Context) error {
	var request reserveSeatsRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	result, err := s.services.Flights.Reserve(c.Request().Context(), c.Param("id"), flights.SeatsCommand{
		SeatNumbers:  request.SeatNumbers,
		BookingID:    request.BookingID,
		UserID:       request.UserID,
		ReturnFlight: request.ReturnFlight.orQuery(c),
	})
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Seats reserved successfully", result)
}

func (s *Server) ReleaseSeatsHandler(c echo.Context) error {
	var request seatsRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	released, err := s.services.Flights.Release(c.Request().Context(), c.Param("id"), request.command(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Seats released successfully", map[string]any{"releasedSeats": released})
}

func (s *Server) ConfirmSeatsHandler(c echo.Context) error {
	var request seatsRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	confirmed, err := s.services.Flights.Confirm(c.Request().Context(), c.Param("id"), request.command(c))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Seats confirmed successfully", map[string]any{"confirmedSeats": confirmed})
}

func (s *Server) CleanupReservationsHandler(c echo.Context) error {
	result, err := s.services.Flights.Cleanup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Expired reservations cleaned up", result)
}
