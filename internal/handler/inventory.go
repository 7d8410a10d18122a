package handler

import (
	"net/http"

	"chatbot-economy-api/internal/service"
	"chatbot-economy-api/pkg/apierror"
	"chatbot-economy-api/pkg/response"
)

// InventoryHandler handles item-related HTTP requests.
type InventoryHandler struct {
	economy *service.EconomyService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(economy *service.EconomyService) *InventoryHandler {
	return &InventoryHandler{economy: economy}
}

// ItemRequest names an item kind.
type ItemRequest struct {
	ItemID string `json:"item_id"`
}

// UseItemRequest is the body of use. Count defaults to 1.
type UseItemRequest struct {
	ItemID string `json:"item_id"`
	Count  int    `json:"count"`
}

// GiftItemRequest is the body of an item gift.
type GiftItemRequest struct {
	ToID   string `json:"to_id"`
	ItemID string `json:"item_id"`
}

// ListItems handles GET /api/v1/items
func (h *InventoryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.economy.Items())
}

// GetInventory handles GET /api/v1/accounts/{user_id}/inventory
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}

	items, err := h.economy.Inventory(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"user_id": userID,
		"items":   items,
	})
}

// BuyItem handles POST /api/v1/accounts/{user_id}/inventory/buy
func (h *InventoryHandler) BuyItem(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req ItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("item_id", req.ItemID); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.BuyItem(r.Context(), userID, req.ItemID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, receipt)
}

// UseItem handles POST /api/v1/accounts/{user_id}/inventory/use
func (h *InventoryHandler) UseItem(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req UseItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("item_id", req.ItemID); err != nil {
		response.Error(w, err)
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count < 0 {
		response.Error(w, apierror.BadRequest("count must be positive"))
		return
	}

	receipt, err := h.economy.UseOrDiscardItem(r.Context(), userID, req.ItemID, req.Count)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// GiftItem handles POST /api/v1/accounts/{user_id}/inventory/gift
func (h *InventoryHandler) GiftItem(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req GiftItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("to_id", req.ToID); err != nil {
		response.Error(w, err)
		return
	}
	if err := required("item_id", req.ItemID); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.economy.GiftItem(r.Context(), userID, req.ToID, req.ItemID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}
