package domain

import "errors"

// Rejection errors form a closed set; the strings are part of the
// observable contract and must match verbatim. The handler layer maps
// them to HTTP status codes. A rejection is never fatal: it only means
// the proposed state transition does not happen.
var (
	ErrNoTradingAuthority    = errors.New("no trading authority")
	ErrBaseAssetQuantityZero = errors.New("baseAssetQuantity is zero")
	ErrNotMultiple           = errors.New("not multiple")
	ErrOrderAlreadyExists    = errors.New("order already exists")
	ErrReduceOnlyMustReduce  = errors.New("reduce only order must reduce position")
	ErrOpenOrders            = errors.New("open orders")
	ErrNetReduceOnlyExceeded = errors.New("net reduce only amount exceeded")
	ErrOpenReduceOnlyOrders  = errors.New("open reduce only orders")
	ErrInsufficientMargin    = errors.New("insufficient margin")
	ErrCrossingMarket        = errors.New("crossing market")

	// Cancel-time lifecycle errors, named after the status observed.
	ErrOrderInvalid   = errors.New("Invalid")
	ErrOrderCancelled = errors.New("Cancelled")
	ErrOrderFilled    = errors.New("Filled")

	// Matching errors.
	ErrInvalidFillAmount = errors.New("invalid fillAmount")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrNotLong           = errors.New("not long")
	ErrNotShort          = errors.New("not short")
	ErrOverfill          = errors.New("overfill")
	ErrNoMatch           = errors.New("OB_orders_do_not_match")
	ErrLongPriceTooLow   = errors.New("OB_long_order_price_too_low")
	ErrShortPriceTooHigh = errors.New("OB_short_order_price_too_high")
	ErrAMMMismatch       = errors.New("amm mismatch")

	// Liquidation hard-bound errors.
	ErrLongBelowLiquidationBound  = errors.New("long price below lower bound")
	ErrShortAboveLiquidationBound = errors.New("short price above upper bound")
)

// DecodeError reports malformed input (an undecodable or unresolvable
// order), surfaced before any business-rule error.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Reason
}

// IsRejection reports whether err is one of the closed-set rejection
// errors rather than an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrNoTradingAuthority, ErrBaseAssetQuantityZero, ErrNotMultiple,
		ErrOrderAlreadyExists, ErrReduceOnlyMustReduce, ErrOpenOrders,
		ErrNetReduceOnlyExceeded, ErrOpenReduceOnlyOrders,
		ErrInsufficientMargin, ErrCrossingMarket, ErrOrderInvalid,
		ErrOrderCancelled, ErrOrderFilled, ErrInvalidFillAmount,
		ErrInvalidOrder, ErrNotLong, ErrNotShort, ErrOverfill,
		ErrNoMatch, ErrLongPriceTooLow, ErrShortPriceTooHigh,
		ErrAMMMismatch, ErrLongBelowLiquidationBound,
		ErrShortAboveLiquidationBound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
