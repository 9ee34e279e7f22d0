package http

import (
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"travel/internal/domain"
)

type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// envelope is the body of every API response.
type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`

	UnavailableSeats     []string `json:"unavailableSeats,omitempty"`
	UnavailableRoomTypes []string `json:"unavailableRoomTypes,omitempty"`
	ConflictingBookings  []string `json:"conflictingBookings,omitempty"`
}

func ok(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// errorHandler maps domain errors to status codes.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(c.Request().Context()).WithError(err).Error("Request failed")
	}

	if err := c.JSON(status, body); err != nil {
		log.FromContext(c.Request().Context()).WithError(err).Error("Cannot write error response")
	}
}

func errorResponse(err error) (int, envelope) {
	body := envelope{Success: false, Message: err.Error()}

	var (
		unavailable domain.UnavailableError
		validation  validator.ValidationErrors
		httpErr     *echo.HTTPError
	)
	switch {
	case errors.As(err, &validation):
		body.Message = "Validation failed"
		for _, fe := range validation {
			body.Errors = append(body.Errors, fieldError{Field: fe.Field(), Message: fe.Error()})
		}
		return http.StatusBadRequest, body
	case domain.IsValidation(err):
		fields := domain.FieldErrors(err)
		if len(fields) == 1 {
			body.Message = fields[0].Msg
		}
		for _, fe := range fields {
			body.Errors = append(body.Errors, fieldError{Field: fe.Field, Message: fe.Msg})
		}
		return http.StatusBadRequest, body
	case errors.As(err, &unavailable):
		switch unavailable.Resource {
		case "seats":
			body.Message = "Some seats are not available"
			body.UnavailableSeats = unavailable.Items
		case "rooms":
			body.Message = "Rooms not available"
			body.UnavailableRoomTypes = unavailable.Items
		default:
			body.Message = "Car is not available for the selected dates"
			body.ConflictingBookings = unavailable.Items
		}
		return http.StatusBadRequest, body
	case domain.IsNotFound(err):
		return http.StatusNotFound, body
	case errors.Is(err, domain.ErrConflict):
		body.Message = "Resource was modified concurrently, please retry"
		return http.StatusConflict, body
	case errors.As(err, &httpErr):
		if msg, isString := httpErr.Message.(string); isString {
			body.Message = msg
		}
		return httpErr.Code, body
	default:
		body.Message = "Internal server error"
		return http.StatusInternalServerError, body
	}
}
