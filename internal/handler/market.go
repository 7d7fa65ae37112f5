package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/perpengine/internal/service"
)

// MarketHandler handles HTTP requests for market inspection endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

func parseMarketID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "market"), 10, 64)
}

// GetMarket handles GET /markets/{market}.
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	market, err := parseMarketID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "market must be an integer")
		return
	}

	info, err := h.marketSvc.Info(market)
	if errors.Is(err, service.ErrMarketNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "Market not found")
		return
	}

	WriteJSON(w, http.StatusOK, info)
}

// GetBook handles GET /markets/{market}/book?depth=n.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	market, err := parseMarketID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "market must be an integer")
		return
	}

	depth := 20
	if d := r.URL.Query().Get("depth"); d != "" {
		depth, err = strconv.Atoi(d)
		if err != nil || depth <= 0 {
			WriteError(w, http.StatusBadRequest, "invalid_request", "depth must be a positive integer")
			return
		}
	}

	book, err := h.marketSvc.Book(market, depth)
	if errors.Is(err, service.ErrMarketNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", "Market not found")
		return
	}

	WriteJSON(w, http.StatusOK, book)
}
