package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/perpengine/internal/domain"
	"github.com/efreitasn/perpengine/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// orderPayload is the JSON form of an order. All monetary fields are
// int64 micro-units (6 decimals).
type orderPayload struct {
	Market            int64  `json:"market"`
	Trader            string `json:"trader"`
	BaseAssetQuantity int64  `json:"base_asset_quantity"`
	Price             int64  `json:"price"`
	Salt              int64  `json:"salt"`
	ReduceOnly        bool   `json:"reduce_only"`
	PostOnly          bool   `json:"post_only"`
}

func (p orderPayload) toDomain() domain.Order {
	return domain.Order{
		Market:            p.Market,
		Trader:            p.Trader,
		BaseAssetQuantity: p.BaseAssetQuantity,
		Price:             p.Price,
		Salt:              p.Salt,
		ReduceOnly:        p.ReduceOnly,
		PostOnly:          p.PostOnly,
	}
}

// placeOrderRequest is the JSON request body for POST /orders.
type placeOrderRequest struct {
	Order  orderPayload `json:"order"`
	Sender string       `json:"sender"`
}

// placeOrderResponse is the JSON response for an accepted order.
type placeOrderResponse struct {
	OrderHash     string `json:"order_hash"`
	ReserveAmount int64  `json:"reserve_amount"`
	AMM           string `json:"amm"`
}

// cancelOrderRequest is the JSON request body for POST /orders/cancel.
// Cancelling needs the full order so the hash can be recomputed.
type cancelOrderRequest struct {
	Order           orderPayload `json:"order"`
	Sender          string       `json:"sender"`
	AssertLowMargin bool         `json:"assert_low_margin"`
}

// cancelOrderResponse is the JSON response for a successful cancel.
type cancelOrderResponse struct {
	OrderHash      string `json:"order_hash"`
	UnfilledAmount int64  `json:"unfilled_amount"`
	AMM            string `json:"amm"`
}

// PlaceOrder handles POST /orders.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Sender == "" {
		req.Sender = req.Order.Trader
	}

	res, err := h.orderSvc.Place(req.Order.toDomain(), req.Sender)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, placeOrderResponse{
		OrderHash:     res.OrderHash,
		ReserveAmount: res.ReserveAmount,
		AMM:           res.AMM,
	})
}

// CancelOrder handles POST /orders/cancel.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Sender == "" {
		req.Sender = req.Order.Trader
	}

	res, err := h.orderSvc.Cancel(req.Order.toDomain(), req.Sender, req.AssertLowMargin)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, cancelOrderResponse{
		OrderHash:      res.OrderHash,
		UnfilledAmount: res.UnfilledAmount,
		AMM:            res.AMM,
	})
}

// GetOrder handles GET /orders/{order_hash}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "order_hash")

	rec, err := h.orderSvc.Get(hash)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if rec.Status == domain.StatusInvalid {
		WriteError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}

// ListTraderOrders handles GET /traders/{trader}/orders.
func (h *OrderHandler) ListTraderOrders(w http.ResponseWriter, r *http.Request) {
	trader := chi.URLParam(r, "trader")

	recs, err := h.orderSvc.ListByTrader(trader)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"orders": recs})
}

// orderErrorStatus maps an engine error to its HTTP status and error
// code.
func orderErrorStatus(err error) (int, string) {
	var decodeErr *domain.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, "decode_error"
	case errors.Is(err, domain.ErrNoTradingAuthority):
		return http.StatusForbidden, "order_rejected"
	case domain.IsRejection(err):
		return http.StatusUnprocessableEntity, "order_rejected"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// mapOrderError maps engine errors to HTTP responses. Rejections keep
// their verbatim error string in the message field.
func mapOrderError(w http.ResponseWriter, err error) {
	status, code := orderErrorStatus(err)
	WriteError(w, status, code, err.Error())
}
