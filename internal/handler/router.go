package handler

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/efreitasn/perpengine/internal/events"
	"github.com/efreitasn/perpengine/internal/oracle"
	"github.com/efreitasn/perpengine/internal/service"
)

// NewRouter creates a chi router with all routes registered, request
// logging, and Content-Type validation middleware.
func NewRouter(
	orderSvc *service.OrderService,
	marketSvc *service.MarketService,
	provider *oracle.Static,
	hub *events.Hub,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	orderH := NewOrderHandler(orderSvc)
	matchH := NewMatchHandler(orderSvc)
	marketH := NewMarketHandler(marketSvc)
	adminH := NewAdminHandler(provider, orderSvc)
	wsH := NewWSHandler(hub, logger)

	// Health check and metrics.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Order routes.
	r.Post("/orders", orderH.PlaceOrder)
	r.Post("/orders/cancel", orderH.CancelOrder)
	r.Get("/orders/{order_hash}", orderH.GetOrder)
	r.Get("/traders/{trader}/orders", orderH.ListTraderOrders)

	// Matching routes.
	r.Post("/matches", matchH.Match)
	r.Post("/liquidations", matchH.Liquidate)

	// Market routes.
	r.Get("/markets/{market}", marketH.GetMarket)
	r.Get("/markets/{market}/book", marketH.GetBook)

	// Admin routes.
	r.Post("/admin/blocks/advance", adminH.AdvanceBlock)
	r.Post("/admin/oracle/price", adminH.SetOraclePrice)
	r.Post("/admin/margin", adminH.SetMargin)
	r.Post("/admin/positions", adminH.SetPosition)
	r.Post("/admin/authorities", adminH.Authorize)

	// Event stream.
	r.Get("/ws", wsH.Stream)

	return r
}

// requestLogging returns middleware that logs each request's method,
// path, status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// Hijack delegates to the underlying writer so the websocket upgrade
// works through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON is middleware that validates Content-Type for POST,
// PUT, and PATCH requests. If the Content-Type header doesn't start
// with "application/json", it returns 400 Bad Request before the
// handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
