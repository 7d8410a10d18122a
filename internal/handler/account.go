package handler

import (
	"net/http"

	"chatbot-economy-api/internal/service"
	"chatbot-economy-api/pkg/response"
)

// AccountHandler serves the per-user money commands.
type AccountHandler struct {
	economy *service.EconomyService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(economy *service.EconomyService) *AccountHandler {
	return &AccountHandler{economy: economy}
}

// AmountRequest is the body of deposit and withdraw.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// TransferRequest is the body of transfer and gift.
type TransferRequest struct {
	ToID   string `json:"to_id"`
	Amount int64  `json:"amount"`
}

// GambleRequest is the body of gamble. Seed replays a previous outcome.
type GambleRequest struct {
	Bet  int64  `json:"bet"`
	Seed *int64 `json:"seed,omitempty"`
}

// RobRequest is the body of rob.
type RobRequest struct {
	VictimID string `json:"victim_id"`
	Seed     *int64 `json:"seed,omitempty"`
}

// RepayRequest is the body of repay.
type RepayRequest struct {
	LenderID string `json:"lender_id"`
	Amount   int64  `json:"amount"`
}

// GetAccount handles GET /api/v1/accounts/{user_id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}

	view, err := h.economy.GetAccount(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, view)
}

// RecordActivity handles POST /api/v1/accounts/{user_id}/activity
func (h *AccountHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.RecordActivity(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// ClaimDaily handles POST /api/v1/accounts/{user_id}/daily
func (h *AccountHandler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.ClaimDaily(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// Deposit handles POST /api/v1/accounts/{user_id}/deposit
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// Withdraw handles POST /api/v1/accounts/{user_id}/withdraw
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// Transfer handles POST /api/v1/accounts/{user_id}/transfer
func (h *AccountHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, h.economy.Transfer)
}

// Gift handles POST /api/v1/accounts/{user_id}/gift
func (h *AccountHandler) Gift(w http.ResponseWriter, r *http.Request) {
	h.transfer(w, r, h.economy.Gift)
}

func (h *AccountHandler) transfer(w http.ResponseWriter, r *http.Request, send transferFunc) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("to_id", req.ToID); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := send(r.Context(), userID, req.ToID, req.Amount)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// Gamble handles POST /api/v1/accounts/{user_id}/gamble
func (h *AccountHandler) Gamble(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req GambleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.Gamble(r.Context(), userID, req.Bet, req.Seed)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// Rob handles POST /api/v1/accounts/{user_id}/rob
func (h *AccountHandler) Rob(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req RobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("victim_id", req.VictimID); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.Rob(r.Context(), userID, req.VictimID, req.Seed)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// Repay handles POST /api/v1/accounts/{user_id}/repay
func (h *AccountHandler) Repay(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req RepayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("lender_id", req.LenderID); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.Repay(r.Context(), userID, req.LenderID, req.Amount)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// Journal handles GET /api/v1/accounts/{user_id}/journal
func (h *AccountHandler) Journal(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	limit, err := queryLimit(r, 20, 100)
	if err != nil {
		response.Error(w, err)
		return
	}

	entries, err := h.economy.Journal(r.Context(), userID, limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSONWithMeta(w, http.StatusOK, entries, limit, len(entries))
}
