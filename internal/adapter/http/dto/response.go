package dto

import (
	"time"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

// Amount renders Money as a JSON number with exactly two fractional digits.
type Amount struct {
	money domain.Money
}

// NewAmount wraps m for encoding.
func NewAmount(m domain.Money) Amount {
	return Amount{money: m}
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.money.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	money, err := domain.ParseMoney(string(data))
	if err != nil {
		return err
	}
	a.money = money

	return nil
}

// String returns the two-decimal representation.
func (a Amount) String() string {
	return a.money.String()
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// BalanceResponse represents a user's balance.
type BalanceResponse struct {
	CalculatedAt time.Time `json:"calculatedAt"`
	UserID       string    `json:"userId"`
	Source       string    `json:"source"`
	Total        Amount    `json:"total"`
	Available    Amount    `json:"available"`
	Locked       Amount    `json:"locked"`
}

// BalanceFromOutput converts a balance read to a response.
func BalanceFromOutput(o *usecase.BalanceOutput) *BalanceResponse {
	return &BalanceResponse{
		UserID:       o.UserID,
		Total:        NewAmount(o.Total),
		Available:    NewAmount(o.Available),
		Locked:       NewAmount(o.Locked),
		Source:       o.Source,
		CalculatedAt: o.CalculatedAt.UTC(),
	}
}

// ProjectionResponse represents a stored balance projection.
type ProjectionResponse struct {
	CalculatedAt time.Time `json:"calculatedAt"`
	UserID       string    `json:"userId"`
	Total        Amount    `json:"total"`
	Available    Amount    `json:"available"`
	Locked       Amount    `json:"locked"`
}

// ProjectionFromDomain converts a projection to a response. It returns nil for nil.
func ProjectionFromDomain(p *domain.BalanceProjection) *ProjectionResponse {
	if p == nil {
		return nil
	}

	return &ProjectionResponse{
		UserID:       p.UserID,
		Total:        NewAmount(p.TotalAmount),
		Available:    NewAmount(p.AvailableAmount),
		Locked:       NewAmount(p.LockedAmount),
		CalculatedAt: p.CalculatedAt.UTC(),
	}
}

// RecalculationAccepted is returned when a refresh was queued.
type RecalculationAccepted struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// WithdrawalResponse represents an approved withdrawal.
type WithdrawalResponse struct {
	RequestedAt                  time.Time `json:"requestedAt"`
	RequestID                    string    `json:"requestId"`
	UserID                       string    `json:"userId"`
	Type                         string    `json:"type"`
	Notes                        string    `json:"notes,omitempty"`
	ApprovedAmount               Amount    `json:"approvedAmount"`
	AvailableBalanceAfterRequest Amount    `json:"availableBalanceAfterRequest"`
}

// WithdrawalFromOutput converts an approved withdrawal to a response.
func WithdrawalFromOutput(o *usecase.WithdrawalOutput) *WithdrawalResponse {
	return &WithdrawalResponse{
		RequestID:                    o.RequestID,
		UserID:                       o.UserID,
		Type:                         string(o.Type),
		ApprovedAmount:               NewAmount(o.ApprovedAmount),
		AvailableBalanceAfterRequest: NewAmount(o.AvailableBalanceAfterRequest),
		RequestedAt:                  o.RequestedAt.UTC(),
		Notes:                        o.Notes,
	}
}

// WithdrawalItemResponse is the part of a withdrawal taken from one contribution.
type WithdrawalItemResponse struct {
	ContributionID string `json:"contributionId"`
	Amount         Amount `json:"amount"`
}

// WithdrawalRecordResponse represents a processed withdrawal in history listings.
type WithdrawalRecordResponse struct {
	RequestedAt     time.Time                `json:"requestedAt"`
	ProcessedAt     time.Time                `json:"processedAt"`
	ID              string                   `json:"id"`
	UserID          string                   `json:"userId"`
	Type            string                   `json:"type"`
	Status          string                   `json:"status"`
	Notes           string                   `json:"notes,omitempty"`
	Items           []WithdrawalItemResponse `json:"items"`
	RequestedAmount Amount                   `json:"requestedAmount"`
	ApprovedAmount  Amount                   `json:"approvedAmount"`
}

// WithdrawalsFromDomain converts withdrawal records to responses.
func WithdrawalsFromDomain(withdrawals []*domain.Withdrawal) []*WithdrawalRecordResponse {
	result := make([]*WithdrawalRecordResponse, len(withdrawals))
	for i, w := range withdrawals {
		items := make([]WithdrawalItemResponse, len(w.Items))
		for j, item := range w.Items {
			items[j] = WithdrawalItemResponse{
				ContributionID: item.ContributionID,
				Amount:         NewAmount(item.Amount),
			}
		}

		result[i] = &WithdrawalRecordResponse{
			ID:              w.ID,
			UserID:          w.UserID,
			Type:            string(w.Type),
			Status:          string(w.Status),
			Notes:           w.Notes,
			Items:           items,
			RequestedAmount: NewAmount(w.RequestedAmount),
			ApprovedAmount:  NewAmount(w.ApprovedAmount),
			RequestedAt:     w.RequestedAt.UTC(),
			ProcessedAt:     w.ProcessedAt.UTC(),
		}
	}

	return result
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Document  string    `json:"document"`
	BirthDate string    `json:"birthDate"`
}

// UserFromDomain converts a domain user to a response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		FullName:  u.FullName,
		Document:  u.Document,
		BirthDate: u.BirthDate.Format(BirthDateLayout),
		CreatedAt: u.CreatedAt.UTC(),
	}
}

// UsersFromDomain converts domain users to responses.
func UsersFromDomain(users []*domain.User) []*UserResponse {
	result := make([]*UserResponse, len(users))
	for i, u := range users {
		result[i] = UserFromDomain(u)
	}
	return result
}

// VestingResponse is one scheduled release of a contribution.
type VestingResponse struct {
	ReleaseAt time.Time `json:"releaseAt"`
	ID        string    `json:"id"`
	Amount    Amount    `json:"amount"`
}

// AvailabilityResponse is a contribution's state at the reference date.
type AvailabilityResponse struct {
	Total     Amount `json:"total"`
	Matured   Amount `json:"matured"`
	Available Amount `json:"available"`
	Locked    Amount `json:"locked"`
}

// ContributionResponse represents a contribution in API responses.
type ContributionResponse struct {
	ContributedAt  time.Time             `json:"contributedAt"`
	CarencyDate    *time.Time            `json:"carencyDate,omitempty"`
	Availability   *AvailabilityResponse `json:"availability,omitempty"`
	ID             string                `json:"id"`
	UserID         string                `json:"userId"`
	Vestings       []VestingResponse     `json:"vestings"`
	Amount         Amount                `json:"amount"`
	RedeemedAmount Amount                `json:"redeemedAmount"`
}

// ContributionFromDomain converts a contribution to a response without availability.
func ContributionFromDomain(c *domain.Contribution) *ContributionResponse {
	resp := &ContributionResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		Amount:         NewAmount(c.Amount),
		RedeemedAmount: NewAmount(c.RedeemedAmount),
		ContributedAt:  c.ContributedAt.UTC(),
		Vestings:       make([]VestingResponse, len(c.Vestings)),
	}

	if c.CarencyDate != nil {
		carency := c.CarencyDate.Time().UTC()
		resp.CarencyDate = &carency
	}

	for i, v := range c.Vestings {
		resp.Vestings[i] = VestingResponse{
			ID:        v.ID,
			Amount:    NewAmount(v.Amount),
			ReleaseAt: v.ReleaseAt.UTC(),
		}
	}

	return resp
}

// ContributionsFromViews converts contribution views to responses with availability.
func ContributionsFromViews(views []usecase.ContributionView) []*ContributionResponse {
	result := make([]*ContributionResponse, len(views))
	for i, v := range views {
		resp := ContributionFromDomain(v.Contribution)
		resp.Availability = &AvailabilityResponse{
			Total:     NewAmount(v.Availability.Total),
			Matured:   NewAmount(v.Availability.Matured),
			Available: NewAmount(v.Availability.Available),
			Locked:    NewAmount(v.Availability.Locked),
		}
		result[i] = resp
	}

	return result
}

// ReconciliationResponse represents the reconciliation of one user.
type ReconciliationResponse struct {
	CheckedAt    time.Time           `json:"checkedAt"`
	Recorded     *ProjectionResponse `json:"recorded"`
	Calculated   *ProjectionResponse `json:"calculated"`
	UserID       string              `json:"userId"`
	IsReconciled bool                `json:"isReconciled"`
	Repaired     bool                `json:"repaired"`
}

// ReconciliationFromResult converts a reconciliation result to a response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		UserID:       r.UserID,
		IsReconciled: r.IsReconciled,
		Repaired:     r.Repaired,
		Recorded:     ProjectionFromDomain(r.Recorded),
		Calculated:   ProjectionFromDomain(r.Calculated),
		CheckedAt:    r.CheckedAt.UTC(),
	}
}

// ReconciliationReportResponse represents a full reconciliation run.
type ReconciliationReportResponse struct {
	CheckedAt          time.Time                 `json:"checkedAt"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
	TotalUsers         int                       `json:"totalUsers"`
	ReconciledUsers    int                       `json:"reconciledUsers"`
	MissingProjections int                       `json:"missingProjections"`
	RepairedUsers      int                       `json:"repairedUsers"`
}

// ReconciliationReportFromDomain converts a report to a response.
func ReconciliationReportFromDomain(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromResult(d)
	}

	return &ReconciliationReportResponse{
		CheckedAt:          r.CheckedAt.UTC(),
		Discrepancies:      discrepancies,
		TotalUsers:         r.TotalUsers,
		ReconciledUsers:    r.ReconciledUsers,
		MissingProjections: r.MissingProjections,
		RepairedUsers:      r.RepairedUsers,
	}
}
