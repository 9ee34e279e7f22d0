package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	cdomain "travel/internal/domain/cars"
)

func (s *Server) registerCars(g *echo.Group) {
	g.POST("", s.CreateCarHandler)
	g.GET("", s.ListAvailableCarsHandler)
	g.GET("/:id", s.GetCarHandler)
	g.PUT("/:id", s.UpdateCarHandler)
	g.POST("/:id/bookings", s.AddCarBookingHandler)
}

type carBookingRequest struct {
	PickupDate string `json:"pickupDate" validate:"required"`
	ReturnDate string `json:"returnDate" validate:"required"`
	BookingID  string `json:"bookingId" validate:"required"`
	UserID     string `json:"userId"`
}

func (s *Server) CreateCarHandler(c echo.Context) error {
	var request cdomain.Car
	if err := c.Bind(&request); err != nil {
		return err
	}

	car, err := s.services.Cars.Create(c.Request().Context(), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, "Car created successfully", car)
}

func (s *Server) GetCarHandler(c echo.Context) error {
	car, err := s.services.Cars.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", car)
}

func (s *Server) UpdateCarHandler(c echo.Context) error {
	var request cdomain.Update
	if err := c.Bind(&request); err != nil {
		return err
	}

	car, err := s.services.Cars.Update(c.Request().Context(), c.Param("id"), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Car updated successfully", car)
}

func (s *Server) ListAvailableCarsHandler(c echo.Context) error {
	pickup, err := parseDate("pickupDate", c.QueryParam("pickupDate"))
	if err != nil {
		return err
	}
	ret, err := parseDate("returnDate", c.QueryParam("returnDate"))
	if err != nil {
		return err
	}

	available, err := s.services.Cars.ListAvailable(c.Request().Context(), pickup, ret)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", available)
}

func (s *Server) AddCarBookingHandler(c echo.Context) error {
	var request carBookingRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	pickup, err := parseDate("pickupDate", request.PickupDate)
	if err != nil {
		return err
	}
	ret, err := parseDate("returnDate", request.ReturnDate)
	if err != nil {
		return err
	}

	car, err := s.services.Cars.AddBooking(c.Request().Context(), c.Param("id"), cdomain.Booking{
		BookingID:  request.BookingID,
		UserID:     request.UserID,
		PickupDate: pickup,
		ReturnDate: ret,
	})
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Car booked successfully", car)
}
