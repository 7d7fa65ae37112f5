package engine

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/perpengine/internal/domain"
)

// Instruction tells the caller how to execute one side of a fill.
type Instruction struct {
	AMMIndex  int64  `json:"amm_index"`
	Trader    string `json:"trader"`
	Mode      Mode   `json:"mode"`
	OrderHash string `json:"order_hash"`
}

// MatchResult is the successful outcome of pair matching. Orders echoes
// the inputs in their original positions: long first, short second.
type MatchResult struct {
	FillPrice    int64
	Instructions [2]Instruction
	Orders       [2]domain.Order
}

// MatchOrders validates a long/short order pair for a fill of
// fillAmount and determines the fill price. The maker is the order
// placed in the earlier block; its price, clamped into the oracle
// spread bounds, becomes the fill price. A same-block tie makes the
// short order the maker.
func (v *Validator) MatchOrders(longOrder, shortOrder domain.Order, fillAmount int64) (MatchResult, error) {
	if fillAmount <= 0 {
		return MatchResult{}, domain.ErrInvalidFillAmount
	}

	longHash := longOrder.Hash()
	longRec, err := v.records.Get(longHash)
	if err != nil {
		return MatchResult{}, err
	}
	if longRec.Status != domain.StatusPlaced {
		return MatchResult{}, domain.ErrInvalidOrder
	}

	shortHash := shortOrder.Hash()
	shortRec, err := v.records.Get(shortHash)
	if err != nil {
		return MatchResult{}, err
	}
	if shortRec.Status != domain.StatusPlaced {
		return MatchResult{}, domain.ErrInvalidOrder
	}

	if longOrder.BaseAssetQuantity <= 0 {
		return MatchResult{}, domain.ErrNotLong
	}
	if longRec.UnfilledSize() < fillAmount {
		return MatchResult{}, domain.ErrOverfill
	}

	if shortOrder.BaseAssetQuantity >= 0 {
		return MatchResult{}, domain.ErrNotShort
	}
	if shortRec.UnfilledSize() < fillAmount {
		return MatchResult{}, domain.ErrOverfill
	}

	if longOrder.Market != shortOrder.Market {
		return MatchResult{}, domain.ErrAMMMismatch
	}

	if longOrder.Price < shortOrder.Price {
		return MatchResult{}, domain.ErrNoMatch
	}

	minSize := v.market.MinSizeRequirement(longOrder.Market)
	if minSize <= 0 || fillAmount%minSize != 0 {
		return MatchResult{}, domain.ErrNotMultiple
	}

	oracle := v.market.UnderlyingPrice(longOrder.Market)
	spread := v.market.MaxOracleSpreadRatio(longOrder.Market)
	lower, upper := spreadBounds(oracle, spread)

	if longOrder.Price < lower {
		return MatchResult{}, domain.ErrLongPriceTooLow
	}
	if shortOrder.Price > upper {
		return MatchResult{}, domain.ErrShortPriceTooHigh
	}

	longMode, shortMode := ModeTaker, ModeMaker
	makerPrice := shortOrder.Price
	if longRec.BlockPlaced < shortRec.BlockPlaced {
		longMode, shortMode = ModeMaker, ModeTaker
		makerPrice = longOrder.Price
	}

	return MatchResult{
		FillPrice: domain.Clamp(makerPrice, lower, upper),
		Instructions: [2]Instruction{
			{AMMIndex: longOrder.Market, Trader: longOrder.Trader, Mode: longMode, OrderHash: longHash},
			{AMMIndex: shortOrder.Market, Trader: shortOrder.Trader, Mode: shortMode, OrderHash: shortHash},
		},
		Orders: [2]domain.Order{longOrder, shortOrder},
	}, nil
}

// spreadBounds derives the acceptable price band around the oracle
// price for the given spread ratio: oracle × (1 ∓ spread).
func spreadBounds(oraclePrice int64, spread decimal.Decimal) (lower, upper int64) {
	one := decimal.NewFromInt(1)
	lower = domain.MulRatio(oraclePrice, one.Sub(spread))
	upper = domain.MulRatio(oraclePrice, one.Add(spread))
	return lower, upper
}
