package engine

import "github.com/efreitasn/perpengine/internal/domain"

// Stage identifies which validation stage produced a liquidation
// outcome. The numeric values are part of the observable contract.
type Stage uint8

const (
	StageOrder  Stage = 0 // order-level checks (status, overfill, hard bounds)
	StageAmount Stage = 2 // liquidation-amount checks
	StageDone   Stage = 3 // success
)

// LiquidationResult is the tagged outcome of liquidation matching. On
// failure Stage still identifies the stage that rejected, so callers
// can assert both that and where a decision was made.
type LiquidationResult struct {
	Stage       Stage
	FillPrice   int64
	FillAmount  int64 // signed: positive when liquidating against a long order
	Instruction Instruction
	Order       domain.Order
}

// MatchLiquidation validates a single order against a liquidation of
// liquidationAmount and determines the fill price. The liquidation
// spread band is the hard reject threshold; the oracle spread band is
// the clamp threshold. The order always takes.
func (v *Validator) MatchLiquidation(order domain.Order, liquidationAmount int64) (LiquidationResult, error) {
	if liquidationAmount <= 0 {
		return LiquidationResult{Stage: StageAmount}, domain.ErrInvalidFillAmount
	}

	amm := v.market.MarketAddress(order.Market)
	if amm == "" {
		return LiquidationResult{Stage: StageOrder}, &domain.DecodeError{Reason: "unknown market"}
	}

	hash := order.Hash()
	rec, err := v.records.Get(hash)
	if err != nil {
		return LiquidationResult{Stage: StageOrder}, err
	}
	if rec.Status != domain.StatusPlaced {
		return LiquidationResult{Stage: StageOrder}, domain.ErrInvalidOrder
	}
	if rec.UnfilledSize() < liquidationAmount {
		return LiquidationResult{Stage: StageOrder}, domain.ErrOverfill
	}

	minSize := v.market.MinSizeRequirement(order.Market)
	if minSize <= 0 || liquidationAmount%minSize != 0 {
		return LiquidationResult{Stage: StageAmount}, domain.ErrNotMultiple
	}

	oracle := v.market.UnderlyingPrice(order.Market)
	lower, upper := spreadBounds(oracle, v.market.MaxOracleSpreadRatio(order.Market))
	liqLower, liqUpper := spreadBounds(oracle, v.market.MaxLiquidationPriceSpread(order.Market))

	fillAmount := liquidationAmount
	if order.BaseAssetQuantity > 0 {
		if order.Price < liqLower {
			return LiquidationResult{Stage: StageOrder}, domain.ErrLongBelowLiquidationBound
		}
	} else {
		if order.Price > liqUpper {
			return LiquidationResult{Stage: StageOrder}, domain.ErrShortAboveLiquidationBound
		}
		fillAmount = -liquidationAmount
	}

	return LiquidationResult{
		Stage:      StageDone,
		FillPrice:  domain.Clamp(order.Price, lower, upper),
		FillAmount: fillAmount,
		Instruction: Instruction{
			AMMIndex:  order.Market,
			Trader:    order.Trader,
			Mode:      ModeTaker,
			OrderHash: hash,
		},
		Order: order,
	}, nil
}
