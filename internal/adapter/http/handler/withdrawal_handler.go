package handler

import (
	"context"
	"net/http"

	"github.com/iho/pensionledger/internal/adapter/http/dto"
	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

// WithdrawalService defines the behavior needed by WithdrawalHandler.
type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, input usecase.RequestWithdrawalInput) (*usecase.WithdrawalOutput, error)
	ListWithdrawals(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error)
}

// WithdrawalHandler handles withdrawal requests and history.
type WithdrawalHandler struct {
	withdrawalUC WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalUC WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalUC: withdrawalUC}
}

// Create requests a withdrawal for the user.
func (h *WithdrawalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	var req dto.CreateWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid withdrawal request", err.Error())
		return
	}

	output, err := h.withdrawalUC.RequestWithdrawal(r.Context(), input)
	if err != nil {
		writeDomainError(w, err, "failed to process withdrawal")
		return
	}

	writeJSON(w, http.StatusCreated, dto.WithdrawalFromOutput(output))
}

// List returns the user's processed withdrawals, newest first.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	limit, offset := pagination(r)

	withdrawals, err := h.withdrawalUC.ListWithdrawals(r.Context(), userID, limit, offset)
	if err != nil {
		writeDomainError(w, err, "failed to list withdrawals")
		return
	}

	writeJSON(w, http.StatusOK, dto.WithdrawalsFromDomain(withdrawals))
}
