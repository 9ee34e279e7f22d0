package admin

import (
	"context"
	"sort"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/shopspring/decimal"

	"travel/internal/cache"
	bdomain "travel/internal/domain/billing"
	"travel/internal/entities"
)

const recentLimit = 20

type BillingReader interface {
	List(ctx context.Context, filter bdomain.Filter) ([]bdomain.Record, error)
}

type AnalyticsQuery struct {
	From *time.Time
	To   *time.Time
}

type TypeStats struct {
	BookingType   entities.BookingType `json:"bookingType"`
	TotalBookings int                  `json:"totalBookings"`
	Completed     int                  `json:"completed"`
	Cancelled     int                  `json:"cancelled"`
	Revenue       decimal.Decimal      `json:"revenue"`
}

type Analytics struct {
	ByType       []TypeStats     `json:"byType"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalCount   int             `json:"totalBookings"`
}

type Usecase struct {
	billing BillingReader
	cache   *cache.Cache
}

func NewUsecase(billing BillingReader, cache *cache.Cache) *Usecase {
	return &Usecase{
		billing: billing,
		cache:   cache,
	}
}

func (u *Usecase) Analytics(ctx context.Context, q AnalyticsQuery) (Analytics, error) {
	params := map[string]string{}
	if q.From != nil {
		params["from"] = q.From.UTC().Format(time.RFC3339)
	}
	if q.To != nil {
		params["to"] = q.To.UTC().Format(time.RFC3339)
	}

	return cache.Fetch(ctx, u.cache, cache.AnalyticsKey(params), cache.AnalyticsTTL, func(ctx context.Context) (Analytics, error) {
		records, err := u.billing.List(ctx, bdomain.Filter{From: q.From, To: q.To})
		if err != nil {
			return Analytics{}, err
		}
		return aggregate(records), nil
	})
}

// BookingSummary is the admin list row of a billing record.
type BookingSummary struct {
	BillingID         string                    `json:"billingId"`
	BookingID         string                    `json:"bookingId"`
	UserID            string                    `json:"userId"`
	BookingType       entities.BookingType      `json:"bookingType"`
	TotalAmountPaid   decimal.Decimal           `json:"totalAmountPaid"`
	TransactionStatus bdomain.TransactionStatus `json:"transactionStatus"`
	DateOfTransaction time.Time                 `json:"dateOfTransaction"`
}

// RecentBookings returns the newest billing records first.
func (u *Usecase) RecentBookings(ctx context.Context) ([]BookingSummary, error) {
	return cache.Fetch(ctx, u.cache, cache.AdminListKey, cache.AnalyticsTTL, func(ctx context.Context) ([]BookingSummary, error) {
		records, err := u.billing.List(ctx, bdomain.Filter{})
		if err != nil {
			return nil, err
		}
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].DateOfTransaction.After(records[j].DateOfTransaction)
		})
		if len(records) > recentLimit {
			records = records[:recentLimit]
		}

		out := make([]BookingSummary, 0, len(records))
		for _, r := range records {
			out = append(out, BookingSummary{
				BillingID:         r.BillingID,
				BookingID:         r.BookingID,
				UserID:            r.UserID,
				BookingType:       r.BookingType,
				TotalAmountPaid:   r.TotalAmountPaid,
				TransactionStatus: r.TransactionStatus,
				DateOfTransaction: r.DateOfTransaction,
			})
		}
		return out, nil
	})
}

// InvalidateAnalytics drops every cached aggregate after a booking event.
func (u *Usecase) InvalidateAnalytics(ctx context.Context, event entities.BookingEvent) error {
	u.cache.DeletePattern(ctx, cache.AnalyticsPattern)
	u.cache.Delete(ctx, cache.AdminListKey)

	log.FromContext(ctx).
		WithField("event_type", event.EventType).
		WithField("booking_id", event.BookingID).
		Debug("Admin analytics cache invalidated")

	return nil
}

func aggregate(records []bdomain.Record) Analytics {
	out := Analytics{TotalRevenue: decimal.Zero}
	byType := map[entities.BookingType]*TypeStats{}

	for _, r := range records {
		stats, ok := byType[r.BookingType]
		if !ok {
			stats = &TypeStats{BookingType: r.BookingType, Revenue: decimal.Zero}
			byType[r.BookingType] = stats
		}
		stats.TotalBookings++
		out.TotalCount++

		switch r.TransactionStatus {
		case bdomain.StatusCompleted:
			stats.Completed++
			stats.Revenue = stats.Revenue.Add(r.TotalAmountPaid)
			out.TotalRevenue = out.TotalRevenue.Add(r.TotalAmountPaid)
		case bdomain.StatusCancelled, bdomain.StatusRefunded:
			stats.Cancelled++
		}
	}

	out.ByType = make([]TypeStats, 0, len(byType))
	for _, stats := range byType {
		out.ByType = append(out.ByType, *stats)
	}
	sort.Slice(out.ByType, func(i, j int) bool {
		return out.ByType[i].BookingType < out.ByType[j].BookingType
	})

	return out
}
