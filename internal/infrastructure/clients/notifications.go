package clients

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"travel/internal/domain/cars"
	"travel/internal/domain/flights"
	"travel/internal/domain/hotels"
)

type NotificationsClient struct {
	client *serviceClient
}

func NewNotificationsClient(baseURL string, timeout time.Duration) NotificationsClient {
	return NotificationsClient{
		client: newServiceClient("notification-service", baseURL, timeout),
	}
}

type notificationRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	RelatedID   string `json:"relatedId"`
	RelatedType string `json:"relatedType"`
}

func (c NotificationsClient) NotifyPriceDrop(ctx context.Context, userID string, flight flights.Flight, drop flights.PriceDrop) error {
	return c.sendPriceDrop(ctx, userID, flight.ID, priceDropMessage(flight, drop))
}

func (c NotificationsClient) NotifyHotelPriceDrop(ctx context.Context, userID string, hotel hotels.Hotel, drop hotels.PriceDrop) error {
	return c.sendPriceDrop(ctx, userID, hotel.ID, fmt.Sprintf(
		"Great news! %s in %s (%s) has dropped by $%s (%s%%). New price: $%s per night for %s rooms",
		orDefault(hotel.Name, "Hotel"),
		orDefault(hotel.City, "Location"),
		hotel.ID,
		drop.OldPrice.Sub(drop.NewPrice).StringFixed(2),
		dropPercent(drop.OldPrice, drop.NewPrice).StringFixed(1),
		drop.NewPrice.StringFixed(2),
		drop.RoomType,
	))
}

func (c NotificationsClient) NotifyCarPriceDrop(ctx context.Context, userID string, car cars.Car, drop cars.PriceDrop) error {
	return c.sendPriceDrop(ctx, userID, car.ID, fmt.Sprintf(
		"Great news! %s in %s (%s) has dropped by $%s (%s%%). New price: $%s per day",
		orDefault(strings.TrimSpace(car.Company+" "+car.Model), "Car"),
		orDefault(car.Location, "Location"),
		car.ID,
		drop.OldPrice.Sub(drop.NewPrice).StringFixed(2),
		dropPercent(drop.OldPrice, drop.NewPrice).StringFixed(1),
		drop.NewPrice.StringFixed(2),
	))
}

func (c NotificationsClient) sendPriceDrop(ctx context.Context, userID, relatedID, message string) error {
	err := c.client.postJSON(
		ctx,
		"/api/users/service/notifications/create/"+url.PathEscape(userID),
		notificationRequest{
			Type:        "info",
			Title:       "Price Drop Alert!",
			Message:     message,
			RelatedID:   relatedID,
			RelatedType: "deal",
		},
	)
	if err != nil {
		return fmt.Errorf("error notifying user %s about price drop: %w", userID, err)
	}
	return nil
}

func dropPercent(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	if !oldPrice.IsPositive() {
		return decimal.Zero
	}
	return oldPrice.Sub(newPrice).Div(oldPrice).Mul(decimal.NewFromInt(100))
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func priceDropMessage(flight flights.Flight, drop flights.PriceDrop) string {
	origin := placeName(flight.DepartureAirport, "Origin")
	destination := placeName(flight.ArrivalAirport, "Destination")

	diff := drop.OldPrice.Sub(drop.NewPrice)
	percent := decimal.Zero
	if drop.OldPrice.IsPositive() {
		percent = diff.Div(drop.OldPrice).Mul(decimal.NewFromInt(100)).Round(0)
	}

	return fmt.Sprintf(
		"Great news! The flight from %s to %s (%s) has dropped by $%s (%s%%). New price: $%s",
		origin, destination, drop.FlightNumber, diff.StringFixed(2), percent.String(), drop.NewPrice.StringFixed(2),
	)
}

func placeName(a flights.Airport, fallback string) string {
	switch {
	case a.City != "":
		return a.City
	case a.Code != "":
		return a.Code
	default:
		return fallback
	}
}
