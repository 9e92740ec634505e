package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Accepted timestamp layouts, tried in order. Values without a zone are UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ValidateUserID rejects empty ids and ids that are not UUIDs.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%w: userId must be a UUID", ErrInvalidInput)
	}

	return nil
}

// ParseTimestamp parses an ISO-8601 timestamp or date.
func ParseTimestamp(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %s must be an ISO-8601 date", ErrInvalidInput, field)
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
