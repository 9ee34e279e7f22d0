package http

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"travel/internal/domain"
	bdomain "travel/internal/domain/billing"
	"travel/internal/entities"
	"travel/internal/idempotency"
)

func (s *Server) registerBilling(g *echo.Group) {
	g.POST("", s.CreateBillingHandler)
	g.POST("/cancel-by-booking", s.CancelByBookingHandler)
	g.GET("/stats/revenue", s.RevenueStatsHandler)
	g.GET("/user/:userId", s.UserBillingHandler)
	g.GET("/:billingId", s.GetBillingHandler)
	g.PUT("/:billingId", s.UpdateBillingStatusHandler)
	g.POST("/:billingId/refund", s.RefundHandler)
}

type createBillingRequest struct {
	BillingID         string                    `json:"billingId"`
	UserID            string                    `json:"userId"`
	BookingType       entities.BookingType      `json:"bookingType"`
	BookingID         string                    `json:"bookingId"`
	ItemID            string                    `json:"itemId"`
	TotalAmountPaid   decimal.Decimal           `json:"totalAmountPaid"`
	PaymentMethod     bdomain.PaymentMethod     `json:"paymentMethod"`
	TransactionStatus bdomain.TransactionStatus `json:"transactionStatus"`
	BookingDetails    json.RawMessage           `json:"bookingDetails"`
}

type statusRequest struct {
	TransactionStatus bdomain.TransactionStatus `json:"transactionStatus" validate:"required"`
}

type cancelByBookingRequest struct {
	BookingID string `json:"bookingId"`
	Reason    string `json:"reason"`
}

type refundRequest struct {
	RefundAmount *decimal.Decimal `json:"refundAmount"`
	Reason       string           `json:"reason"`
}

func (s *Server) CreateBillingHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var request createBillingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	details, err := entities.DecodeBookingDetails(request.BookingType, request.BookingDetails)
	if err != nil {
		return domain.ValidationError{Field: "bookingDetails", Msg: err.Error()}
	}

	record, created, err := s.services.Billing.Create(ctx, bdomain.Record{
		BillingID:         request.BillingID,
		UserID:            request.UserID,
		BookingType:       request.BookingType,
		BookingID:         request.BookingID,
		ItemID:            request.ItemID,
		TotalAmountPaid:   request.TotalAmountPaid,
		PaymentMethod:     request.PaymentMethod,
		TransactionStatus: request.TransactionStatus,
		BookingDetails:    details,
		IdempotencyKey:    idempotency.GetKey(ctx),
	})
	if err != nil {
		return err
	}

	if !created {
		return ok(c, http.StatusOK, "Billing record already exists", record)
	}
	return ok(c, http.StatusCreated, "Billing record created successfully", record)
}

func (s *Server) GetBillingHandler(c echo.Context) error {
	record, err := s.services.Billing.Get(c.Request().Context(), c.Param("billingId"))
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", record)
}

func (s *Server) UserBillingHandler(c echo.Context) error {
	records, err := s.services.Billing.List(c.Request().Context(), bdomain.Filter{
		UserID: c.Param("userId"),
		Status: bdomain.TransactionStatus(c.QueryParam("status")),
	})
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", records)
}

func (s *Server) UpdateBillingStatusHandler(c echo.Context) error {
	var request statusRequest
	if err := bind(c, &request); err != nil {
		return err
	}

	record, err := s.services.Billing.UpdateStatus(c.Request().Context(), c.Param("billingId"), request.TransactionStatus)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Billing record updated successfully", record)
}

func (s *Server) CancelByBookingHandler(c echo.Context) error {
	var request cancelByBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	record, err := s.services.Billing.CancelByBooking(c.Request().Context(), request.BookingID, request.Reason)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Billing cancelled successfully", record)
}

func (s *Server) RefundHandler(c echo.Context) error {
	var request refundRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	record, err := s.services.Billing.Refund(c.Request().Context(), c.Param("billingId"), request.RefundAmount, request.Reason)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "Refund processed successfully", record)
}

func (s *Server) RevenueStatsHandler(c echo.Context) error {
	from, err := parseOptionalDate("from", c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := parseOptionalDate("to", c.QueryParam("to"))
	if err != nil {
		return err
	}

	stats, err := s.services.Billing.RevenueStats(c.Request().Context(), bdomain.Filter{From: from, To: to})
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, "", stats)
}
