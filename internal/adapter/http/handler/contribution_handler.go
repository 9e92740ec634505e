package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/pensionledger/internal/adapter/http/dto"
	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

// ContributionService defines the behavior needed by ContributionHandler.
type ContributionService interface {
	RecordContribution(ctx context.Context, input usecase.RecordContributionInput) (*domain.Contribution, error)
	ListContributions(ctx context.Context, userID string, ref *time.Time) ([]usecase.ContributionView, error)
}

// ContributionHandler handles contribution recording and listing.
type ContributionHandler struct {
	contributionUC ContributionService
}

// NewContributionHandler creates a new ContributionHandler.
func NewContributionHandler(contributionUC ContributionService) *ContributionHandler {
	return &ContributionHandler{contributionUC: contributionUC}
}

// Create records a contribution for the user.
func (h *ContributionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID", err.Error())
		return
	}

	var req dto.RecordContributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contribution", err.Error())
		return
	}

	contribution, err := h.contributionUC.RecordContribution(r.Context(), input)
	if err != nil {
		writeDomainError(w, err, "failed to record contribution")
		return
	}

	writeJSON(w, http.StatusCreated, dto.ContributionFromDomain(contribution))
}

// List returns the user's contributions with availability at ?referenceDate=.
func (h *ContributionHandler) List(w http.ResponseWriter, r *http.Request) {
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

	views, err := h.contributionUC.ListContributions(r.Context(), userID, ref)
	if err != nil {
		writeDomainError(w, err, "failed to list contributions")
		return
	}

	writeJSON(w, http.StatusOK, dto.ContributionsFromViews(views))
}
