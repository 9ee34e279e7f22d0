package clients

import (
	"context"
	"fmt"
	"time"
)

type BillingClient struct {
	client *serviceClient
}

func NewBillingClient(baseURL string, timeout time.Duration) BillingClient {
	return BillingClient{
		client: newServiceClient("billing-service", baseURL, timeout),
	}
}

type cancelByBookingRequest struct {
	BookingID string `json:"bookingId"`
	Reason    string `json:"reason"`
}

func (c BillingClient) CancelByBooking(ctx context.Context, bookingID, reason string) error {
	err := c.client.postJSON(ctx, "/api/billing/cancel-by-booking", cancelByBookingRequest{
		BookingID: bookingID,
		Reason:    reason,
	})
	if err != nil {
		return fmt.Errorf("error cancelling billing of booking %s: %w", bookingID, err)
	}
	return nil
}
