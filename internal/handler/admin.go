package handler

import (
	"net/http"

	"github.com/efreitasn/perpengine/internal/oracle"
	"github.com/efreitasn/perpengine/internal/service"
)

// AdminHandler mutates the static oracle and block clock. In the
// reference deployment these inputs come from the chain; here they are
// the harness surface for operators and tests.
type AdminHandler struct {
	provider *oracle.Static
	orderSvc *service.OrderService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(provider *oracle.Static, orderSvc *service.OrderService) *AdminHandler {
	return &AdminHandler{provider: provider, orderSvc: orderSvc}
}

// AdvanceBlock handles POST /admin/blocks/advance.
func (h *AdminHandler) AdvanceBlock(w http.ResponseWriter, r *http.Request) {
	block := h.orderSvc.AdvanceBlock()
	WriteJSON(w, http.StatusOK, map[string]uint64{"block": block})
}

type setPriceRequest struct {
	Market int64 `json:"market"`
	Price  int64 `json:"price"`
}

// SetOraclePrice handles POST /admin/oracle/price.
func (h *AdminHandler) SetOraclePrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Price <= 0 {
		WriteError(w, http.StatusBadRequest, "invalid_request", "price must be positive")
		return
	}

	h.provider.SetOraclePrice(req.Market, req.Price)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type setMarginRequest struct {
	Trader string `json:"trader"`
	Amount int64  `json:"amount"`
}

// SetMargin handles POST /admin/margin.
func (h *AdminHandler) SetMargin(w http.ResponseWriter, r *http.Request) {
	var req setMarginRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Trader == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "trader is required")
		return
	}

	h.provider.SetMargin(req.Trader, req.Amount)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type setPositionRequest struct {
	Trader string `json:"trader"`
	Market int64  `json:"market"`
	Size   int64  `json:"size"`
}

// SetPosition handles POST /admin/positions.
func (h *AdminHandler) SetPosition(w http.ResponseWriter, r *http.Request) {
	var req setPositionRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Trader == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "trader is required")
		return
	}

	h.provider.SetPosition(req.Trader, req.Market, req.Size)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authorizeRequest struct {
	Trader string `json:"trader"`
	Sender string `json:"sender"`
}

// Authorize handles POST /admin/authorities.
func (h *AdminHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Trader == "" || req.Sender == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "trader and sender are required")
		return
	}

	h.provider.Authorize(req.Trader, req.Sender)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
