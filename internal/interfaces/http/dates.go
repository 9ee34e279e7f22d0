package http

import (
	"time"

	"travel/internal/domain"
)

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: field, Msg: "must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"}
	}
	return t, nil
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	t, err := parseDate(field, value)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
