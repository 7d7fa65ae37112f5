package handler

import (
	"net/http"

	"github.com/efreitasn/perpengine/internal/engine"
	"github.com/efreitasn/perpengine/internal/service"
)

// MatchHandler handles HTTP requests for matching and liquidation.
type MatchHandler struct {
	orderSvc *service.OrderService
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(orderSvc *service.OrderService) *MatchHandler {
	return &MatchHandler{orderSvc: orderSvc}
}

// matchRequest is the JSON request body for POST /matches.
type matchRequest struct {
	LongOrder  orderPayload `json:"long_order"`
	ShortOrder orderPayload `json:"short_order"`
	FillAmount int64        `json:"fill_amount"`
}

// instructionPayload mirrors engine.Instruction in JSON.
type instructionPayload struct {
	AMMIndex  int64  `json:"amm_index"`
	Trader    string `json:"trader"`
	Mode      uint8  `json:"mode"`
	OrderHash string `json:"order_hash"`
}

// matchResponse is the JSON response for a successful match.
type matchResponse struct {
	FillPrice    int64                 `json:"fill_price"`
	Instructions [2]instructionPayload `json:"instructions"`
	Orders       [2]orderPayload       `json:"orders"`
}

// liquidationRequest is the JSON request body for POST /liquidations.
type liquidationRequest struct {
	Order             orderPayload `json:"order"`
	LiquidationAmount int64        `json:"liquidation_amount"`
}

// liquidationErrorResponse is the error body for a rejected
// liquidation. Element identifies the validation stage that rejected,
// alongside the usual error fields.
type liquidationErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Element uint8  `json:"element"`
}

// liquidationResponse is the JSON response for a liquidation attempt.
// Element identifies the validation stage that produced the outcome.
type liquidationResponse struct {
	Element     uint8              `json:"element"`
	FillPrice   int64              `json:"fill_price"`
	FillAmount  int64              `json:"fill_amount"`
	Instruction instructionPayload `json:"instruction"`
	Order       orderPayload       `json:"order"`
}

func toInstructionPayload(in engine.Instruction) instructionPayload {
	return instructionPayload{
		AMMIndex:  in.AMMIndex,
		Trader:    in.Trader,
		Mode:      uint8(in.Mode),
		OrderHash: in.OrderHash,
	}
}

// Match handles POST /matches.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.orderSvc.Match(req.LongOrder.toDomain(), req.ShortOrder.toDomain(), req.FillAmount)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	var resp matchResponse
	resp.FillPrice = res.FillPrice
	resp.Instructions[0] = toInstructionPayload(res.Instructions[0])
	resp.Instructions[1] = toInstructionPayload(res.Instructions[1])
	resp.Orders[0] = req.LongOrder
	resp.Orders[1] = req.ShortOrder
	WriteJSON(w, http.StatusOK, resp)
}

// Liquidate handles POST /liquidations.
func (h *MatchHandler) Liquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidationRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.orderSvc.Liquidate(req.Order.toDomain(), req.LiquidationAmount)
	if err != nil {
		status, code := orderErrorStatus(err)
		WriteJSON(w, status, liquidationErrorResponse{
			Error:   code,
			Message: err.Error(),
			Element: uint8(res.Stage),
		})
		return
	}

	WriteJSON(w, http.StatusOK, liquidationResponse{
		Element:     uint8(res.Stage),
		FillPrice:   res.FillPrice,
		FillAmount:  res.FillAmount,
		Instruction: toInstructionPayload(res.Instruction),
		Order:       req.Order,
	})
}
