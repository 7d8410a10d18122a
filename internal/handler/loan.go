package handler

import (
	"net/http"

	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/service"
	"chatbot-economy-api/pkg/response"
	"chatbot-economy-api/pkg/uid"
)

// LoanHandler handles the loan request flow.
type LoanHandler struct {
	economy *service.EconomyService
}

// NewLoanHandler creates a new loan handler.
func NewLoanHandler(economy *service.EconomyService) *LoanHandler {
	return &LoanHandler{economy: economy}
}

// OfferLoanRequest asks LenderID for Amount on behalf of BorrowerID.
type OfferLoanRequest struct {
	BorrowerID string `json:"borrower_id"`
	LenderID   string `json:"lender_id"`
	Amount     int64  `json:"amount"`
}

// ResolveLoanRequest is the lender's answer. ActorID must be the lender.
type ResolveLoanRequest struct {
	ActorID string `json:"actor_id"`
	Approve bool   `json:"approve"`
}

// Offer handles POST /api/v1/loans
func (h *LoanHandler) Offer(w http.ResponseWriter, r *http.Request) {
	var req OfferLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("borrower_id", req.BorrowerID); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("lender_id", req.LenderID); err != nil {
		response.Error(w, err)
		return
	}

	pending, err := h.economy.OfferLoan(r.Context(), req.BorrowerID, req.LenderID, req.Amount)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, pending)
}

// Resolve handles POST /api/v1/loans/{key}/resolve
func (h *LoanHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	key, err := pathParam(r, "key")
	if err != nil {
		response.Error(w, err)
		return
	}
	if !uid.IsValid(key) {
		response.Error(w, model.ErrRequestNotFound)
		return
	}
	var req ResolveLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("actor_id", req.ActorID); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.ResolveLoan(r.Context(), key, req.ActorID, req.Approve)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}
