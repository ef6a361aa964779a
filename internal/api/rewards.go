package api

import (
	"net/http"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
)

func (s *LedgerService) handleStreak(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	view, err := s.engine.Streak(r.Context(), p.UserId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *LedgerService) handleClaimStreak(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	res, err := s.engine.ClaimStreak(r.Context(), p.UserId)
	writeSettlement(w, r, res, err)
}

// handlePayTaskReward is called by the task service once a submission is approved.
func (s *LedgerService) handlePayTaskReward(w http.ResponseWriter, r *http.Request) {
	var req models.TaskRewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.engine.PayTaskReward(r.Context(), req.UserId, req.TaskId, amount)
	writeSettlement(w, r, res, err)
}

func (s *LedgerService) handlePayReferral(w http.ResponseWriter, r *http.Request) {
	var req models.ReferralPayoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res, err := s.engine.PayReferralBonus(r.Context(), req.ReferrerId, req.ReferredId)
	writeSettlement(w, r, res, err)
}
