package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

// BirthDateLayout is the wire format of birth dates.
const BirthDateLayout = "2006-01-02"

// CreateWithdrawalRequest represents a withdrawal request body.
type CreateWithdrawalRequest struct {
	RequestedAmount *decimal.Decimal `json:"requestedAmount,omitempty"`
	RequestedAt     *time.Time       `json:"requestedAt,omitempty"`
	Type            string           `json:"type"                validate:"required,oneof=TOTAL PARTIAL"`
	RequestID       string           `json:"requestId,omitempty" validate:"max=64"`
	Notes           string           `json:"notes,omitempty"     validate:"max=512"`
}

// ToUseCaseInput validates the body and converts it to use case input.
func (r *CreateWithdrawalRequest) ToUseCaseInput(userID string) (usecase.RequestWithdrawalInput, error) {
	if err := Validate(r); err != nil {
		return usecase.RequestWithdrawalInput{}, err
	}

	input := usecase.RequestWithdrawalInput{
		UserID:      userID,
		Type:        domain.WithdrawalType(r.Type),
		RequestID:   r.RequestID,
		RequestedAt: r.RequestedAt,
		Notes:       r.Notes,
	}

	if r.RequestedAmount != nil {
		amount, err := parseAmount("requestedAmount", *r.RequestedAmount)
		if err != nil {
			return usecase.RequestWithdrawalInput{}, err
		}
		input.RequestedAmount = &amount
	}

	return input, nil
}

// CreateUserRequest represents a user registration body.
type CreateUserRequest struct {
	FullName  string `json:"fullName"  validate:"required,max=255"`
	Document  string `json:"document"  validate:"required,max=20"`
	BirthDate string `json:"birthDate" validate:"required,datetime=2006-01-02"`
}

// ToUseCaseInput validates the body and converts it to use case input.
func (r *CreateUserRequest) ToUseCaseInput() (usecase.CreateUserInput, error) {
	if err := Validate(r); err != nil {
		return usecase.CreateUserInput{}, err
	}

	birthDate, err := time.Parse(BirthDateLayout, r.BirthDate)
	if err != nil {
		return usecase.CreateUserInput{}, fmt.Errorf("%w: birthDate: %v", domain.ErrInvalidInput, err)
	}

	return usecase.CreateUserInput{
		FullName:  r.FullName,
		Document:  r.Document,
		BirthDate: birthDate,
	}, nil
}

// VestingRequest is one scheduled release in a contribution body.
type VestingRequest struct {
	ReleaseAt time.Time       `json:"releaseAt"`
	Amount    decimal.Decimal `json:"amount"`
}

// RecordContributionRequest represents a contribution body.
type RecordContributionRequest struct {
	ContributedAt *time.Time       `json:"contributedAt,omitempty"`
	CarencyDate   *time.Time       `json:"carencyDate,omitempty"`
	Vestings      []VestingRequest `json:"vestings,omitempty" validate:"max=120"`
	Amount        decimal.Decimal  `json:"amount"`
}

// ToUseCaseInput validates the body and converts it to use case input.
func (r *RecordContributionRequest) ToUseCaseInput(userID string) (usecase.RecordContributionInput, error) {
	if err := Validate(r); err != nil {
		return usecase.RecordContributionInput{}, err
	}

	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return usecase.RecordContributionInput{}, err
	}

	input := usecase.RecordContributionInput{
		UserID:        userID,
		Amount:        amount,
		ContributedAt: r.ContributedAt,
		CarencyDate:   r.CarencyDate,
	}

	for i, v := range r.Vestings {
		vestingAmount, err := parseAmount(fmt.Sprintf("vestings[%d].amount", i), v.Amount)
		if err != nil {
			return usecase.RecordContributionInput{}, err
		}
		input.Vestings = append(input.Vestings, usecase.VestingInput{
			Amount:    vestingAmount,
			ReleaseAt: v.ReleaseAt,
		})
	}

	return input, nil
}

// RecalculateRequest represents an explicit projection refresh body.
type RecalculateRequest struct {
	Async bool `json:"async"`
}

// parseAmount accepts positive amounts with at most two fractional digits.
func parseAmount(field string, d decimal.Decimal) (domain.Money, error) {
	if !d.Equal(d.Round(domain.MoneyPlaces)) {
		return domain.Money{}, fmt.Errorf("%w: %s must have at most %d decimal places",
			domain.ErrInvalidInput, field, domain.MoneyPlaces)
	}

	if !d.IsPositive() {
		return domain.Money{}, fmt.Errorf("%w: %s must be greater than zero", domain.ErrInvalidInput, field)
	}

	money, err := domain.NewMoney(d)
	if err != nil {
		return domain.Money{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, field, err)
	}

	return money, nil
}
