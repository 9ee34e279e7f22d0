package clients

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"travel/internal/domain/users"
)

// UsersClient writes booking history straight into the user service.
type UsersClient struct {
	client *serviceClient
}

func NewUsersClient(baseURL string, timeout time.Duration) UsersClient {
	return UsersClient{
		client: newServiceClient("user-service", baseURL, timeout),
	}
}

func (c UsersClient) AddBooking(ctx context.Context, userID string, entry users.HistoryEntry) error {
	err := c.client.postJSON(ctx, "/api/users/"+url.PathEscape(userID)+"/bookings", entry)
	if err != nil {
		return fmt.Errorf("error adding booking %s to user history: %w", entry.BookingID, err)
	}
	return nil
}
