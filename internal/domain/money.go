package domain

import "github.com/shopspring/decimal"

// Prices and quantities are stored as int64 micro-units (6 decimals).
// Ratio arithmetic (fees, spreads, margin ratios) goes through
// shopspring/decimal so notional products cannot overflow int64.

// Scale is the number of micro-units per whole unit.
const Scale = 1_000_000

// FromMicros converts a micro-unit amount to its decimal value.
func FromMicros(v int64) decimal.Decimal {
	return decimal.New(v, -6)
}

// Notional returns |baseAssetQuantity| × price in whole units.
func Notional(baseAssetQuantity, price int64) decimal.Decimal {
	size := baseAssetQuantity
	if size < 0 {
		size = -size
	}
	return FromMicros(size).Mul(FromMicros(price))
}

// MulRatio scales a micro-unit amount by a ratio, truncating toward
// zero. Used for price bounds: lower = oracle × (1 − spread).
func MulRatio(v int64, r decimal.Decimal) int64 {
	return decimal.NewFromInt(v).Mul(r).IntPart()
}

// ReserveAmount computes the margin to escrow for an order in
// micro-units: notional × (minMarginRatio + takerFee), rounded up.
// The fee is always assessed at taker rate at placement time and
// reconciled against the actual maker/taker role at fill time.
func ReserveAmount(baseAssetQuantity, price int64, minMarginRatio, takerFee decimal.Decimal) int64 {
	n := Notional(baseAssetQuantity, price)
	return n.Mul(minMarginRatio.Add(takerFee)).Shift(6).Ceil().IntPart()
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
