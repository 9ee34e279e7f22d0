package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	hdomain "travel/internal/domain/hotels"
)

func (s *Server) registerHotels(g *echo.Group) {
	g.POST("", s.CreateHotelHandler)
	g.GET("/:id", s.GetHotelHandler)
	g.PUT("/:id", s.UpdateHotelHandler)
	g.PUT("/:id/rooms", s.UpdateRoomsHandler)
}

func (s *Server) CreateHotelHandler(c echo.Context) error {
	var request hdomain.Hotel
	if err := c.Bind(&request); err != nil {
		return err
	}

	hotel, err := s.services.Hotels.Create(c.Request().Context(), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusCreated, "Hotel created successfully", hotel)
}

func (s *Server) GetHotelHandler(c echo.Context) error {
	hotel, err := s.services.Hotels.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", hotel)
}

func (s *Server) UpdateHotelHandler(c echo.Context) error {
	var request hdomain.Update
	if err := c.Bind(&request); err != nil {
		return err
	}

	hotel, err := s.services.Hotels.Update(c.Request().Context(), c.Param("id"), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Hotel updated successfully", hotel)
}

func (s *Server) UpdateRoomsHandler(c echo.Context) error {
	var request hdomain.RoomsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	hotel, err := s.services.Hotels.UpdateRooms(c.Request().Context(), c.Param("id"), request)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Hotel rooms updated successfully", hotel)
}
