package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	udomain "travel/internal/domain/users"
)

func (s *Server) registerUsers(g *echo.Group) {
	g.POST("", s.CreateUserHandler)
	g.GET("/:id", s.GetUserHandler)
	g.POST("/:id/bookings", s.AddUserBookingHandler)
	g.GET("/:id/bookings", s.UserBookingsHandler)
	g.PUT("/:id/bookings/cancel", s.CancelUserBookingHandler)
}

type cancelBookingRequest struct {
	BookingID string `json:"bookingId"`
}

func (s *Server) CreateUserHandler(c echo.Context) error {
	var request udomain.User
	if err := c.Bind(&request); err != nil {
		return err
	}

	user, err := s.services.Users.Create(c.Request().Context(), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, "User created successfully", user)
}

func (s *Server) GetUserHandler(c echo.Context) error {
	user, err := s.services.Users.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", user)
}

func (s *Server) AddUserBookingHandler(c echo.Context) error {
	var request udomain.HistoryEntry
	if err := c.Bind(&request); err != nil {
		return err
	}

	added, err := s.services.Users.AddBooking(c.Request().Context(), c.Param("id"), request)
	if err != nil {
		return err
	}

	if !added {
		return ok(c, http.StatusOK, "Booking already in history", nil)
	}
	return ok(c, http.StatusCreated, "Booking added to history", nil)
}

func (s *Server) UserBookingsHandler(c echo.Context) error {
	history, err := s.services.Users.History(
		c.Request().Context(),
		c.Param("id"),
		udomain.HistoryStatus(c.QueryParam("status")),
	)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", history)
}

func (s *Server) CancelUserBookingHandler(c echo.Context) error {
	var request cancelBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	entry, err := s.services.Users.Cancel(c.Request().Context(), c.Param("id"), request.BookingID)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Booking cancelled successfully", entry)
}
