package domain

import (
	"fmt"
	"strings"
	"time"
)

// WithdrawalType distinguishes full and partial withdrawals.
type WithdrawalType string

const (
	WithdrawalTypeTotal   WithdrawalType = "TOTAL"
	WithdrawalTypePartial WithdrawalType = "PARTIAL"
)

// IsValid reports whether t is a known withdrawal type.
func (t WithdrawalType) IsValid() bool {
	return t == WithdrawalTypeTotal || t == WithdrawalTypePartial
}

// WithdrawalStatus is the lifecycle state of a persisted withdrawal.
type WithdrawalStatus string

const (
	WithdrawalStatusProcessed WithdrawalStatus = "PROCESSED"
)

// Notes longer than this are rejected.
const MaxWithdrawalNotesLength = 512

// WithdrawalRequest is an immutable request to redeem contributions.
type WithdrawalRequest struct {
	requestedAt     time.Time
	requestedAmount *Money
	id              string
	userID          string
	withdrawalType  WithdrawalType
	notes           string
}

// NewWithdrawalRequest validates the request shape. PARTIAL requires a
// strictly positive amount and TOTAL must not carry one.
func NewWithdrawalRequest(
	id, userID string,
	withdrawalType WithdrawalType,
	requestedAmount *Money,
	requestedAt time.Time,
	notes string,
) (*WithdrawalRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: withdrawal id is required", ErrInvalidWithdrawal)
	}

	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidWithdrawal)
	}

	if requestedAt.IsZero() {
		return nil, fmt.Errorf("%w: requestedAt must be a valid date", ErrInvalidWithdrawal)
	}

	switch withdrawalType {
	case WithdrawalTypePartial:
		if requestedAmount == nil || !requestedAmount.IsPositive() {
			return nil, fmt.Errorf("%w: missing-amount", ErrInvalidWithdrawal)
		}
	case WithdrawalTypeTotal:
		if requestedAmount != nil {
			return nil, fmt.Errorf("%w: total withdrawal must not carry an amount", ErrInvalidWithdrawal)
		}
	default:
		return nil, fmt.Errorf("%w: unknown withdrawal type %q", ErrInvalidWithdrawal, withdrawalType)
	}

	if len(notes) > MaxWithdrawalNotesLength {
		return nil, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidWithdrawal, MaxWithdrawalNotesLength)
	}

	var amount *Money
	if requestedAmount != nil {
		copied := *requestedAmount
		amount = &copied
	}

	return &WithdrawalRequest{
		id:              id,
		userID:          userID,
		withdrawalType:  withdrawalType,
		requestedAmount: amount,
		requestedAt:     requestedAt.UTC(),
		notes:           notes,
	}, nil
}

func (r *WithdrawalRequest) ID() string { return r.id }

func (r *WithdrawalRequest) UserID() string { return r.userID }

func (r *WithdrawalRequest) Type() WithdrawalType { return r.withdrawalType }

func (r *WithdrawalRequest) RequestedAt() time.Time { return r.requestedAt }

func (r *WithdrawalRequest) Notes() string { return r.notes }

// RequestedAmount returns the requested amount and whether one was given.
func (r *WithdrawalRequest) RequestedAmount() (Money, bool) {
	if r.requestedAmount == nil {
		return Money{}, false
	}

	return *r.requestedAmount, true
}

// Withdrawal is the persisted outcome of an allocated withdrawal.
type Withdrawal struct {
	RequestedAt     time.Time
	ProcessedAt     time.Time
	ID              string
	UserID          string
	Type            WithdrawalType
	Status          WithdrawalStatus
	Notes           string
	Items           []WithdrawalItem
	RequestedAmount Money
	ApprovedAmount  Money
}

// WithdrawalItem records the part of a withdrawal redeemed from one contribution.
type WithdrawalItem struct {
	ID             string
	WithdrawalID   string
	ContributionID string
	Amount         Money
}
