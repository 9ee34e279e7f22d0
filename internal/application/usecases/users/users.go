package users

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"travel/internal/domain"
	udomain "travel/internal/domain/users"
	"travel/internal/entities"
)

const userCancelReason = "Booking cancelled by user"

type UsersRepo interface {
	Create(ctx context.Context, u *udomain.User) error
	FindByIDOrUserID(ctx context.Context, id string) (*udomain.User, error)
	Update(ctx context.Context, id string, updateFn func(u *udomain.User) error) (*udomain.User, error)
}

type BillingCanceller interface {
	CancelByBooking(ctx context.Context, bookingID, reason string) error
}

type Usecase struct {
	repo    UsersRepo
	billing BillingCanceller
	now     func() time.Time
}

func NewUsecase(repo UsersRepo, billing BillingCanceller, now func() time.Time) *Usecase {
	if now == nil {
		now = time.Now
	}
	return &Usecase{
		repo:    repo,
		billing: billing,
		now:     now,
	}
}

func (u *Usecase) Create(ctx context.Context, user udomain.User) (*udomain.User, error) {
	created, err := udomain.NewUser(user, u.now())
	if err != nil {
		return nil, err
	}
	if err := u.repo.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// Get resolves the user by id or by external userId.
func (u *Usecase) Get(ctx context.Context, id string) (*udomain.User, error) {
	return u.repo.FindByIDOrUserID(ctx, id)
}

func (u *Usecase) update(ctx context.Context, id string, updateFn func(user *udomain.User) error) (*udomain.User, error) {
	user, err := u.repo.FindByIDOrUserID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.repo.Update(ctx, user.ID, updateFn)
}

// AddBooking appends a history entry unless the booking is already there.
func (u *Usecase) AddBooking(ctx context.Context, id string, entry udomain.HistoryEntry) (bool, error) {
	var added bool
	_, err := u.update(ctx, id, func(user *udomain.User) error {
		var err error
		added, err = user.AddBooking(entry, u.now())
		return err
	})
	return added, err
}

func (u *Usecase) History(ctx context.Context, id string, status udomain.HistoryStatus) ([]udomain.HistoryEntry, error) {
	user, err := u.repo.FindByIDOrUserID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.History(status), nil
}

// Cancel cancels a booking on behalf of the user and asks billing to follow.
// A billing failure is logged and does not undo the cancellation.
func (u *Usecase) Cancel(ctx context.Context, id, bookingID string) (udomain.HistoryEntry, error) {
	var entry udomain.HistoryEntry
	_, err := u.update(ctx, id, func(user *udomain.User) error {
		var err error
		entry, err = user.Cancel(bookingID, u.now())
		return err
	})
	if err != nil {
		return udomain.HistoryEntry{}, err
	}

	if u.billing != nil {
		if err := u.billing.CancelByBooking(ctx, bookingID, userCancelReason); err != nil {
			log.FromContext(ctx).
				WithError(err).
				WithField("booking_id", bookingID).
				Warn("Billing cancellation failed, the booking stays cancelled in history")
		}
	}

	return entry, nil
}

// ApplyCreated records a booking.created event in the history of its user.
func (u *Usecase) ApplyCreated(ctx context.Context, event entities.BookingEvent) error {
	added, err := u.AddBooking(ctx, event.UserID, udomain.EntryFromEvent(event))
	if domain.IsNotFound(err) {
		log.FromContext(ctx).
			WithField("user_id", event.UserID).
			WithField("booking_id", event.BookingID).
			Warn("Booking event for unknown user")
		return nil
	}
	if err != nil {
		return err
	}

	log.FromContext(ctx).
		WithField("user_id", event.UserID).
		WithField("booking_id", event.BookingID).
		WithField("added", added).
		Info("Booking added to user history")

	return nil
}

// ApplyCancelled marks the history entry of a booking.cancelled event.
func (u *Usecase) ApplyCancelled(ctx context.Context, event entities.BookingEvent) error {
	var changed bool
	_, err := u.update(ctx, event.UserID, func(user *udomain.User) error {
		changed = user.MarkCancelled(event.BookingID, u.now())
		return nil
	})
	if domain.IsNotFound(err) {
		log.FromContext(ctx).
			WithField("user_id", event.UserID).
			WithField("booking_id", event.BookingID).
			Warn("Cancellation event for unknown user")
		return nil
	}
	if err != nil {
		return err
	}

	log.FromContext(ctx).
		WithField("user_id", event.UserID).
		WithField("booking_id", event.BookingID).
		WithField("changed", changed).
		Info("Booking cancelled in user history")

	return nil
}
