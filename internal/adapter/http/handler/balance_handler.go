package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/iho/pensionledger/internal/adapter/http/dto"
	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	GetBalance(ctx context.Context, input usecase.GetBalanceInput) (*usecase.BalanceOutput, error)
	Recalculate(ctx context.Context, input usecase.RecalculateInput) (*domain.BalanceProjection, error)
}

// BalanceHandler handles balance reads and projection refreshes.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// Get returns the user's balance, optionally at ?referenceDate=.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	ref, err := parseDateQuery(r, "referenceDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reference date", err.Error())
		return
	}

	balance, err := h.balanceUC.GetBalance(r.Context(), usecase.GetBalanceInput{
		UserID:        userID,
		ReferenceDate: ref,
	})
	if err != nil {
		writeDomainError(w, err, "failed to get balance")
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromOutput(balance))
}

// Recalculate refreshes the user's projection inline, or queues it when the
// body asks for async.
func (h *BalanceHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	var req dto.RecalculateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	projection, err := h.balanceUC.Recalculate(r.Context(), usecase.RecalculateInput{
		UserID: userID,
		Async:  req.Async,
	})
	if err != nil {
		writeDomainError(w, err, "failed to recalculate balance")
		return
	}

	if req.Async {
		writeJSON(w, http.StatusAccepted, dto.RecalculationAccepted{UserID: userID, Status: "queued"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ProjectionFromDomain(projection))
}
