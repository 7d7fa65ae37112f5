package engine

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/perpengine/internal/domain"
)

// MarketData supplies per-market parameters and per-trader balances and
// positions. Values are already-fetched snapshots: no method blocks on
// I/O, so validation can run inside a critical section. Unknown markets
// resolve to an empty address; unknown traders to zero balances.
type MarketData interface {
	MarketAddress(market int64) string
	UnderlyingPrice(market int64) int64
	MinSizeRequirement(market int64) int64
	MaxOracleSpreadRatio(market int64) decimal.Decimal
	MaxLiquidationPriceSpread(market int64) decimal.Decimal
	MinMarginRatio() decimal.Decimal
	MakerFee() decimal.Decimal
	TakerFee() decimal.Decimal
	AvailableMargin(trader string) int64
	Position(trader string, market int64) int64
	IsTradingAuthority(trader, sender string) bool
}

// Records reads persisted order state. Get returns a record with
// StatusInvalid for a hash that has never been seen. OpenAmount sums
// the unfilled magnitude of Placed orders for a trader on one side of
// one market, split by the reduce-only flag.
type Records interface {
	Get(orderHash string) (domain.OrderRecord, error)
	OpenAmount(trader string, market int64, side domain.Side, reduceOnly bool) (int64, error)
}

// Mode tags an order's role in a match.
type Mode uint8

const (
	ModeTaker Mode = 0
	ModeMaker Mode = 1
)

// PlaceResult is the successful outcome of place validation. The caller
// is responsible for transitioning the record to Placed, escrowing
// ReserveAmount, and inserting post-only orders into the tick ledger.
type PlaceResult struct {
	OrderHash     string
	ReserveAmount int64
	AMM           string
}

// CancelResult is the successful outcome of cancel validation. The
// caller transitions the record to Cancelled, releases the reserved
// margin, and removes any resting tick amount.
type CancelResult struct {
	OrderHash      string
	UnfilledAmount int64 // signed, keeps the order's sign
	AMM            string
}

// Validator applies the admissibility rules. All methods are pure
// decision functions: they read collaborators and mutate nothing, so a
// failure leaves every store untouched by construction.
type Validator struct {
	records Records
	market  MarketData
	ticks   *TickLedger
}

// NewValidator creates a Validator over the given collaborators.
func NewValidator(records Records, market MarketData, ticks *TickLedger) *Validator {
	return &Validator{records: records, market: market, ticks: ticks}
}

// ValidatePlace decides whether order may be placed by sender,
// short-circuiting on the first failing rule: authority, structure,
// lifecycle, reduce-only constraints, margin, post-only crossing.
func (v *Validator) ValidatePlace(order domain.Order, sender string) (PlaceResult, error) {
	amm := v.market.MarketAddress(order.Market)
	if amm == "" {
		return PlaceResult{}, &domain.DecodeError{Reason: "unknown market"}
	}

	if sender != order.Trader && !v.market.IsTradingAuthority(order.Trader, sender) {
		return PlaceResult{}, domain.ErrNoTradingAuthority
	}

	if order.BaseAssetQuantity == 0 {
		return PlaceResult{}, domain.ErrBaseAssetQuantityZero
	}

	minSize := v.market.MinSizeRequirement(order.Market)
	if minSize <= 0 || order.Size()%minSize != 0 {
		return PlaceResult{}, domain.ErrNotMultiple
	}

	hash := order.Hash()
	rec, err := v.records.Get(hash)
	if err != nil {
		return PlaceResult{}, err
	}
	if rec.Status != domain.StatusInvalid {
		return PlaceResult{}, domain.ErrOrderAlreadyExists
	}

	side := order.Side()
	if order.ReduceOnly {
		if err := v.checkReduceOnly(order, side); err != nil {
			return PlaceResult{}, err
		}
	} else {
		// Regular orders wait until outstanding reduce-only amount is
		// gone. Reduce-only orders live only opposite the position, but
		// the trader's position may flip between placements, so both
		// sides are checked.
		for _, roSide := range []domain.Side{side, side.Opposite()} {
			roAmount, err := v.records.OpenAmount(order.Trader, order.Market, roSide, true)
			if err != nil {
				return PlaceResult{}, err
			}
			if roAmount > 0 {
				return PlaceResult{}, domain.ErrOpenReduceOnlyOrders
			}
		}
	}

	required := domain.ReserveAmount(order.BaseAssetQuantity, order.Price,
		v.market.MinMarginRatio(), v.market.TakerFee())
	if v.market.AvailableMargin(order.Trader) < required {
		return PlaceResult{}, domain.ErrInsufficientMargin
	}

	if order.PostOnly {
		if err := v.checkCrossing(order, side); err != nil {
			return PlaceResult{}, err
		}
	}

	return PlaceResult{OrderHash: hash, ReserveAmount: required, AMM: amm}, nil
}

// checkReduceOnly enforces that a reduce-only order opposes a non-zero
// position, shares no direction with open regular orders, and keeps the
// net reduce-only amount within the position magnitude.
func (v *Validator) checkReduceOnly(order domain.Order, side domain.Side) error {
	position := v.market.Position(order.Trader, order.Market)
	if position == 0 || domain.SideOf(position) == side {
		return domain.ErrReduceOnlyMustReduce
	}

	openRegular, err := v.records.OpenAmount(order.Trader, order.Market, side, false)
	if err != nil {
		return err
	}
	if openRegular > 0 {
		return domain.ErrOpenOrders
	}

	openReduceOnly, err := v.records.OpenAmount(order.Trader, order.Market, side, true)
	if err != nil {
		return err
	}
	positionSize := position
	if positionSize < 0 {
		positionSize = -positionSize
	}
	if order.Size()+openReduceOnly > positionSize {
		return domain.ErrNetReduceOnlyExceeded
	}
	return nil
}

// checkCrossing rejects a post-only order whose price would cross the
// opposite side's best resting price.
func (v *Validator) checkCrossing(order domain.Order, side domain.Side) error {
	if side == domain.SideLong {
		if ask := v.ticks.Head(order.Market, domain.SideShort); ask != 0 && order.Price >= ask {
			return domain.ErrCrossingMarket
		}
		return nil
	}
	if bid := v.ticks.Head(order.Market, domain.SideLong); bid != 0 && order.Price <= bid {
		return domain.ErrCrossingMarket
	}
	return nil
}

// ValidateCancel decides whether order may be cancelled by sender. The
// assertLowMargin flag marks cancels driven by liquidation-adjacent
// flows; it is part of the interface but does not alter the outcome.
func (v *Validator) ValidateCancel(order domain.Order, sender string, assertLowMargin bool) (CancelResult, error) {
	_ = assertLowMargin

	amm := v.market.MarketAddress(order.Market)
	if amm == "" {
		return CancelResult{}, &domain.DecodeError{Reason: "unknown market"}
	}

	if sender != order.Trader && !v.market.IsTradingAuthority(order.Trader, sender) {
		return CancelResult{}, domain.ErrNoTradingAuthority
	}

	hash := order.Hash()
	rec, err := v.records.Get(hash)
	if err != nil {
		return CancelResult{}, err
	}

	switch rec.Status {
	case domain.StatusInvalid:
		return CancelResult{}, domain.ErrOrderInvalid
	case domain.StatusCancelled:
		return CancelResult{}, domain.ErrOrderCancelled
	case domain.StatusFilled:
		return CancelResult{}, domain.ErrOrderFilled
	}

	return CancelResult{
		OrderHash:      hash,
		UnfilledAmount: rec.Unfilled(),
		AMM:            amm,
	}, nil
}
