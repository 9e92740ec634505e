package handler

import (
	"context"
	"net/http"

	"github.com/iho/pensionledger/internal/adapter/http/dto"
	"github.com/iho/pensionledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	ReconcileUser(ctx context.Context, userID string, repair bool) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context, repair bool) (*usecase.ReconciliationReport, error)
}

// ReconciliationHandler reports projection drift. ?repair=true refreshes drifted projections.
type ReconciliationHandler struct {
	reconciliationUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationUC: reconciliationUC}
}

// User reconciles one user.
func (h *ReconciliationHandler) User(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	result, err := h.reconciliationUC.ReconcileUser(r.Context(), userID, parseBoolQuery(r, "repair"))
	if err != nil {
		writeDomainError(w, err, "failed to reconcile user")
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}

// Report reconciles every user.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReconciliationReport(r.Context(), parseBoolQuery(r, "repair"))
	if err != nil {
		writeDomainError(w, err, "failed to generate reconciliation report")
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromDomain(report))
}
