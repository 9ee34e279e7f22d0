package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"travel/internal/application/usecases/admin"
)

func (s *Server) registerAdmin(g *echo.Group) {
	g.GET("/analytics", s.AnalyticsHandler)
	g.GET("/bookings", s.RecentBookingsHandler)
}

func (s *Server) AnalyticsHandler(c echo.Context) error {
	from, err := parseOptionalDate("from", c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := parseOptionalDate("to", c.QueryParam("to"))
	if err != nil {
		return err
	}

	stats, err := s.services.Admin.Analytics(c.Request().Context(), admin.AnalyticsQuery{From: from, To: to})
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", stats)
}

func (s *Server) RecentBookingsHandler(c echo.Context) error {
	recent, err := s.services.Admin.RecentBookings(c.Request().Context())
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", recent)
}
