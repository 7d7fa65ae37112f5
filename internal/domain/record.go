package domain

import "gorm.io/gorm"

// OrderStatus is the lifecycle state of an order record.
// Invalid means the hash has never been seen. Filled and Cancelled are
// terminal: no transition leaves them.
type OrderStatus string

const (
	StatusInvalid   OrderStatus = "Invalid"
	StatusPlaced    OrderStatus = "Placed"
	StatusFilled    OrderStatus = "Filled"
	StatusCancelled OrderStatus = "Cancelled"
)

// OrderRecord is the persisted per-order state, keyed by order hash.
// The order's own fields are denormalized alongside the lifecycle
// fields so open-order aggregates (reduce-only sums, open amounts per
// side) can be answered by the store.
//
// Invariants: FilledAmount never exceeds the order size, and
// ReservedMargin is non-zero only while Status is Placed.
type OrderRecord struct {
	gorm.Model        `json:"-"`
	OrderHash         string      `gorm:"uniqueIndex" json:"order_hash"`
	Trader            string      `gorm:"index" json:"trader"`
	Market            int64       `gorm:"index" json:"market"`
	BaseAssetQuantity int64       `json:"base_asset_quantity"`
	Price             int64       `json:"price"`
	ReduceOnly        bool        `json:"reduce_only"`
	PostOnly          bool        `json:"post_only"`
	Status            OrderStatus `json:"status"`
	FilledAmount      int64       `json:"filled_amount"`
	ReservedMargin    int64       `json:"reserved_margin"`
	BlockPlaced       uint64      `json:"block_placed"`
}

// Size returns the magnitude of the recorded base asset quantity.
func (r *OrderRecord) Size() int64 {
	if r.BaseAssetQuantity < 0 {
		return -r.BaseAssetQuantity
	}
	return r.BaseAssetQuantity
}

// Unfilled returns the signed quantity still open: the full base asset
// quantity reduced by the filled amount, keeping the order's sign.
func (r *OrderRecord) Unfilled() int64 {
	if r.BaseAssetQuantity < 0 {
		return r.BaseAssetQuantity + r.FilledAmount
	}
	return r.BaseAssetQuantity - r.FilledAmount
}

// UnfilledSize returns the magnitude still open.
func (r *OrderRecord) UnfilledSize() int64 {
	return r.Size() - r.FilledAmount
}
