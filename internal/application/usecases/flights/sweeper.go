package flights

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// RunSweeper periodically releases expired holds on every flight until ctx
// is done. A non-positive interval disables it.
func (u *Usecase) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := u.Sweep(ctx); err != nil {
				log.FromContext(ctx).WithError(err).Error("Reservation sweep failed")
			}
		}
	}
}

// Sweep applies Cleanup to flights with expired holds and returns how many
// seats were released.
func (u *Usecase) Sweep(ctx context.Context) (int, error) {
	all, err := u.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	now := u.now()
	total := 0
	for _, f := range all {
		if _, expired := u.refresh(&f, now); expired == 0 {
			continue
		}

		res, err := u.Cleanup(ctx, f.ID)
		if err != nil {
			log.FromContext(ctx).WithError(err).WithField("flight_id", f.ID).Warn("Cannot clean up flight")
			continue
		}
		total += res.TotalReleased
	}

	if total > 0 {
		log.FromContext(ctx).WithField("released", total).Info("Expired reservations released")
	}
	return total, nil
}
