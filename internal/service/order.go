package service

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/efreitasn/perpengine/internal/domain"
	"github.com/efreitasn/perpengine/internal/engine"
	"github.com/efreitasn/perpengine/internal/events"
	"github.com/efreitasn/perpengine/internal/metrics"
	"github.com/efreitasn/perpengine/internal/store"
)

// MarginEscrow holds and releases order margin. The amounts mirror the
// reserved margin recorded on order records.
type MarginEscrow interface {
	Reserve(trader string, amount int64) error
	Release(trader string, amount int64)
}

// OrderService runs each validate+apply sequence as a single critical
// section per market: cross-order invariants (tick heads, reduce-only
// aggregates) are market-scoped, so operations on different markets
// proceed concurrently. Either an operation fully succeeds and the
// record, ledger, and escrow update together, or it fails and nothing
// changes.
type OrderService struct {
	validator *engine.Validator
	orders    *store.OrderStore
	ticks     *engine.TickLedger
	escrow    MarginEscrow
	hub       *events.Hub

	block atomic.Uint64

	mu      sync.Mutex
	markets map[int64]*sync.Mutex
}

// NewOrderService creates an OrderService over the given collaborators.
func NewOrderService(
	validator *engine.Validator,
	orders *store.OrderStore,
	ticks *engine.TickLedger,
	escrow MarginEscrow,
	hub *events.Hub,
) *OrderService {
	return &OrderService{
		validator: validator,
		orders:    orders,
		ticks:     ticks,
		escrow:    escrow,
		hub:       hub,
		markets:   make(map[int64]*sync.Mutex),
	}
}

// marketLock returns the mutex guarding one market's state.
func (s *OrderService) marketLock(market int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[market]
	if !ok {
		m = &sync.Mutex{}
		s.markets[market] = m
	}
	return m
}

// AdvanceBlock advances the block clock and returns the new height.
// The engine never generates block heights, only compares them; this
// clock stands in for the externally supplied sequence.
func (s *OrderService) AdvanceBlock() uint64 {
	return s.block.Add(1)
}

// CurrentBlock returns the current block height.
func (s *OrderService) CurrentBlock() uint64 {
	return s.block.Load()
}

// orderEvent is the payload broadcast for place/cancel outcomes.
type orderEvent struct {
	OrderHash string `json:"order_hash"`
	Trader    string `json:"trader"`
	Market    int64  `json:"market"`
	Reason    string `json:"reason,omitempty"`
}

// Place validates and, on success, applies a place request: the record
// transitions Invalid → Placed with the reserve amount escrowed, and a
// post-only order's quantity is inserted into the tick ledger.
func (s *OrderService) Place(order domain.Order, sender string) (engine.PlaceResult, error) {
	lock := s.marketLock(order.Market)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.validator.ValidatePlace(order, sender)
	if err != nil {
		s.rejected(order, err)
		return engine.PlaceResult{}, err
	}

	if err := s.escrow.Reserve(order.Trader, res.ReserveAmount); err != nil {
		// Margin moved between the read and the reserve; surface the
		// same rejection the validator would have produced.
		s.rejected(order, domain.ErrInsufficientMargin)
		return engine.PlaceResult{}, domain.ErrInsufficientMargin
	}

	rec := &domain.OrderRecord{
		OrderHash:         res.OrderHash,
		Trader:            order.Trader,
		Market:            order.Market,
		BaseAssetQuantity: order.BaseAssetQuantity,
		Price:             order.Price,
		ReduceOnly:        order.ReduceOnly,
		PostOnly:          order.PostOnly,
		ReservedMargin:    res.ReserveAmount,
		BlockPlaced:       s.block.Load(),
	}
	if err := s.orders.Create(rec); err != nil {
		s.escrow.Release(order.Trader, res.ReserveAmount)
		return engine.PlaceResult{}, err
	}

	if order.PostOnly {
		s.ticks.Insert(order.Market, order.Side(), order.Price, order.Size())
	}

	metrics.OrdersAccepted.Inc()
	s.hub.Broadcast(events.TypeOrderAccepted, orderEvent{
		OrderHash: res.OrderHash,
		Trader:    order.Trader,
		Market:    order.Market,
	})
	return res, nil
}

func (s *OrderService) rejected(order domain.Order, err error) {
	if domain.IsRejection(err) {
		metrics.OrdersRejected.WithLabelValues(err.Error()).Inc()
	}
	s.hub.Broadcast(events.TypeOrderRejected, orderEvent{
		OrderHash: order.Hash(),
		Trader:    order.Trader,
		Market:    order.Market,
		Reason:    err.Error(),
	})
}

// Cancel validates and, on success, applies a cancel: the record
// transitions Placed → Cancelled with margin released and block reset,
// and any resting tick amount is removed. Cancels race fill attempts on
// the same order; the record's status is the sole arbitration point.
func (s *OrderService) Cancel(order domain.Order, sender string, assertLowMargin bool) (engine.CancelResult, error) {
	lock := s.marketLock(order.Market)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.validator.ValidateCancel(order, sender, assertLowMargin)
	if err != nil {
		return engine.CancelResult{}, err
	}

	prev, err := s.orders.SetCancelled(res.OrderHash)
	if err != nil {
		return engine.CancelResult{}, err
	}

	s.escrow.Release(order.Trader, prev.ReservedMargin)
	if order.PostOnly {
		s.ticks.Remove(order.Market, order.Side(), order.Price, prev.UnfilledSize())
	}

	metrics.OrdersCancelled.Inc()
	s.hub.Broadcast(events.TypeOrderCancelled, orderEvent{
		OrderHash: res.OrderHash,
		Trader:    order.Trader,
		Market:    order.Market,
	})
	return res, nil
}

// matchEvent is the payload broadcast for a pair or liquidation fill.
type matchEvent struct {
	MatchID    string `json:"match_id"`
	Market     int64  `json:"market"`
	FillPrice  int64  `json:"fill_price"`
	FillAmount int64  `json:"fill_amount"`
	LongHash   string `json:"long_hash,omitempty"`
	ShortHash  string `json:"short_hash,omitempty"`
	OrderHash  string `json:"order_hash,omitempty"`
}

// Match validates a long/short pair and applies the fill to both
// records, releasing escrowed margin in proportion to the fill.
func (s *OrderService) Match(longOrder, shortOrder domain.Order, fillAmount int64) (engine.MatchResult, error) {
	lock := s.marketLock(longOrder.Market)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.validator.MatchOrders(longOrder, shortOrder, fillAmount)
	if err != nil {
		return engine.MatchResult{}, err
	}

	// Both legs commit in one transaction; escrow and tick state follow
	// only once the records are durable.
	fills := make([]appliedFill, 0, 2)
	err = s.orders.Transaction(func(tx *store.OrderStore) error {
		for _, order := range res.Orders {
			fill, err := fillRecord(tx, order, fillAmount)
			if err != nil {
				return err
			}
			fills = append(fills, fill)
		}
		return nil
	})
	if err != nil {
		return engine.MatchResult{}, err
	}
	for _, fill := range fills {
		s.settleFill(fill, fillAmount)
	}

	metrics.Matches.Inc()
	s.hub.Broadcast(events.TypeOrdersMatched, matchEvent{
		MatchID:    uuid.New().String(),
		Market:     longOrder.Market,
		FillPrice:  res.FillPrice,
		FillAmount: fillAmount,
		LongHash:   res.Instructions[0].OrderHash,
		ShortHash:  res.Instructions[1].OrderHash,
	})
	return res, nil
}

// Liquidate validates a liquidation against one order and applies the
// fill to its record.
func (s *OrderService) Liquidate(order domain.Order, liquidationAmount int64) (engine.LiquidationResult, error) {
	lock := s.marketLock(order.Market)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.validator.MatchLiquidation(order, liquidationAmount)
	if err != nil {
		return res, err
	}

	fill, err := fillRecord(s.orders, order, liquidationAmount)
	if err != nil {
		return engine.LiquidationResult{}, err
	}
	s.settleFill(fill, liquidationAmount)

	metrics.Liquidations.Inc()
	s.hub.Broadcast(events.TypeLiquidation, matchEvent{
		MatchID:    uuid.New().String(),
		Market:     order.Market,
		FillPrice:  res.FillPrice,
		FillAmount: res.FillAmount,
		OrderHash:  res.Instruction.OrderHash,
	})
	return res, nil
}

// appliedFill carries one committed record fill to the settle phase.
type appliedFill struct {
	order    domain.Order
	released int64
}

// fillRecord accumulates fillAmount on the order's record through the
// given store handle, releasing the proportional share of its reserved
// margin from the record. Escrow and tick state are not touched here:
// record writes may still roll back with the enclosing transaction.
func fillRecord(orders *store.OrderStore, order domain.Order, fillAmount int64) (appliedFill, error) {
	hash := order.Hash()
	prev, err := orders.Get(hash)
	if err != nil {
		return appliedFill{}, err
	}

	release := int64(0)
	if unfilled := prev.UnfilledSize(); unfilled > 0 {
		release = prev.ReservedMargin * fillAmount / unfilled
	}

	next, err := orders.ApplyFill(hash, fillAmount, release)
	if err != nil {
		return appliedFill{}, err
	}

	// The store's actual delta, so a full fill also frees any residual
	// left by the integer division above.
	return appliedFill{order: order, released: prev.ReservedMargin - next.ReservedMargin}, nil
}

// settleFill releases the committed fill's escrowed margin and trims
// the resting tick amount for post-only orders.
func (s *OrderService) settleFill(fill appliedFill, fillAmount int64) {
	s.escrow.Release(fill.order.Trader, fill.released)
	if fill.order.PostOnly {
		s.ticks.Remove(fill.order.Market, fill.order.Side(), fill.order.Price, fillAmount)
	}
}

// Get returns the persisted record for an order hash.
func (s *OrderService) Get(orderHash string) (domain.OrderRecord, error) {
	return s.orders.Get(orderHash)
}

// ListByTrader returns a trader's records, newest first.
func (s *OrderService) ListByTrader(trader string) ([]domain.OrderRecord, error) {
	return s.orders.ListByTrader(trader)
}
