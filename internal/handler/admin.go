package handler

import (
	"net/http"
	"runtime"
	"time"

	"chatbot-economy-api/internal/cache"
	"chatbot-economy-api/internal/middleware"
	"chatbot-economy-api/internal/service"
	"chatbot-economy-api/pkg/apierror"
	"chatbot-economy-api/pkg/response"
)

// AdminHandler handles privileged HTTP requests.
type AdminHandler struct {
	economy       *service.EconomyService
	sweeper       *service.Sweeper
	journalBuffer *cache.RedisJournalBuffer
	storeType     string
	startTime     time.Time
}

// NewAdminHandler creates a new admin handler. journalBuffer may be nil.
func NewAdminHandler(
	economy *service.EconomyService,
	sweeper *service.Sweeper,
	journalBuffer *cache.RedisJournalBuffer,
	storeType string,
) *AdminHandler {
	return &AdminHandler{
		economy:       economy,
		sweeper:       sweeper,
		journalBuffer: journalBuffer,
		storeType:     storeType,
		startTime:     time.Now(),
	}
}

// SetExpRequest is the body of PUT .../exp.
type SetExpRequest struct {
	Exp *int64 `json:"exp"`
}

// SetMoneyRequest is the body of PUT .../money.
type SetMoneyRequest struct {
	Money *int64 `json:"money"`
}

func actorFrom(r *http.Request) service.Actor {
	id := middleware.GetAdminID(r.Context())
	return service.Actor{ID: id, Admin: id != ""}
}

// SetExp handles PUT /api/v1/admin/accounts/{user_id}/exp
func (h *AdminHandler) SetExp(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req SetExpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Exp == nil {
		response.Error(w, apierror.BadRequest("exp is required"))
		return
	}

	receipt, err := h.economy.SetExp(r.Context(), actorFrom(r), userID, *req.Exp)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, receipt)
}

// SetMoney handles PUT /api/v1/admin/accounts/{user_id}/money
func (h *AdminHandler) SetMoney(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "user_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req SetMoneyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.Money == nil {
		response.Error(w, apierror.BadRequest("money is required"))
		return
	}

	view, err := h.economy.SetMoney(r.Context(), actorFrom(r), userID, *req.Money)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, view)
}

// GrantItem handles POST /api/v1/admin/accounts/{user_id}/items
func (h *AdminHandler) GrantItem(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.economy.GrantItem(r.Context(), actorFrom(r), userID, req.ItemID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, item)
}

// Sweep handles POST /api/v1/admin/sweep
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		response.Error(w, apierror.ServiceUnavailable("sweeper not configured"))
		return
	}
	result, err := h.sweeper.RunNow(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if h.journalBuffer != nil {
		count, err := h.journalBuffer.Count(ctx)
		if err == nil {
			stats["journal_buffer"] = map[string]interface{}{
				"pending_entries": count,
				"status":          "connected",
			}
		} else {
			stats["journal_buffer"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["journal_buffer"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	storeStats, err := h.economy.Stats(ctx)
	if err == nil {
		storeStats["status"] = "connected"
		stats["store"] = storeStats
	} else {
		stats["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
