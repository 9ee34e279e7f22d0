package app

import (
	"context"

	"travel/internal/application/usecases/billing"
	"travel/internal/application/usecases/cars"
	"travel/internal/application/usecases/flights"
	"travel/internal/application/usecases/hotels"
	"travel/internal/application/usecases/users"
	"travel/internal/config"
	udomain "travel/internal/domain/users"
	"travel/internal/infrastructure/clients"
)

// Clients reach the services that may run in another process. A nil field
// disables the call that depends on it.
type Clients struct {
	UserHistory   billing.HistoryFallback
	Billing       users.BillingCanceller
	Notifications PriceDropNotifier
}

type PriceDropNotifier interface {
	flights.PriceDropNotifier
	hotels.PriceDropNotifier
	cars.PriceDropNotifier
}

func NewClients(cfg config.Config) Clients {
	c := Clients{
		UserHistory: clients.NewUsersClient(cfg.UserServiceURL, cfg.HTTPClientTimeout),
		Billing:     clients.NewBillingClient(cfg.BillingServiceURL, cfg.HTTPClientTimeout),
	}
	if cfg.NotificationServiceURL != "" {
		c.Notifications = clients.NewNotificationsClient(cfg.NotificationServiceURL, cfg.HTTPClientTimeout)
	}
	return c
}

// localUserHistory calls the users use case when it runs in this process.
type localUserHistory struct {
	users *users.Usecase
}

func (l localUserHistory) AddBooking(ctx context.Context, userID string, entry udomain.HistoryEntry) error {
	_, err := l.users.AddBooking(ctx, userID, entry)
	return err
}

// localBilling calls the billing use case when it runs in this process. It
// is bound after construction since billing and users depend on each other.
type localBilling struct {
	billing *billing.Usecase
}

func (l *localBilling) CancelByBooking(ctx context.Context, bookingID, reason string) error {
	_, err := l.billing.CancelByBooking(ctx, bookingID, reason)
	return err
}
