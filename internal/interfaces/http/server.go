package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"travel/internal/application/usecases/admin"
	"travel/internal/application/usecases/billing"
	"travel/internal/application/usecases/cars"
	"travel/internal/application/usecases/flights"
	"travel/internal/application/usecases/hotels"
	"travel/internal/application/usecases/users"
	"travel/internal/idempotency"
)

// Services holds the use cases of the enabled services. Routes of a nil
// service are not registered.
type Services struct {
	Flights *flights.Usecase
	Hotels  *hotels.Usecase
	Cars    *cars.Usecase
	Billing *billing.Usecase
	Users   *users.Usecase
	Admin   *admin.Usecase
}

type Server struct {
	e        *echo.Echo
	services Services
}

func NewServer(
	e *echo.Echo,
	services Services,
	routerIsRunning func() bool,
) *Server {
	srv := &Server{
		e:        e,
		services: services,
	}

	e.HTTPErrorHandler = errorHandler
	e.Validator = newValidator()

	// logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log.FromContext(c.Request().Context()).
				WithField("method", c.Request().Method).
				WithField("path", c.Request().URL.Path).
				Info("Handling a request")

			err := next(c)

			if err != nil {
				log.FromContext(c.Request().Context()).
					WithField("error", err).
					Error("Request handling error")
			}

			return err
		}
	})

	e.GET("/health", func(c echo.Context) error {
		if routerIsRunning != nil && !routerIsRunning() {
			return c.String(http.StatusServiceUnavailable, "router is not running")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	if services.Flights != nil {
		srv.registerFlights(api.Group("/flights"))
	}
	if services.Hotels != nil {
		srv.registerHotels(api.Group("/hotels"))
	}
	if services.Cars != nil {
		srv.registerCars(api.Group("/cars"))
	}
	if services.Billing != nil {
		srv.registerBilling(api.Group("/billing", idempotency.Middleware))
	}
	if services.Users != nil {
		srv.registerUsers(api.Group("/users"))
	}
	if services.Admin != nil {
		srv.registerAdmin(api.Group("/admin"))
	}

	return srv
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	err := s.e.Start(addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
