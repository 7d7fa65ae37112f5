package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/efreitasn/perpengine/internal/domain"
)

// OrderStore persists order records keyed by order hash. It is the
// single authority over record state: records are mutated only through
// the place/cancel/fill methods below, always from inside the caller's
// per-market critical section.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore creates an OrderStore over the given database.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

// Transaction runs fn against a store bound to one database
// transaction. An error from fn rolls every write inside it back, so
// multi-record updates (both legs of a pair fill) land together or not
// at all.
func (s *OrderStore) Transaction(fn func(tx *OrderStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&OrderStore{db: tx})
	})
}

// Get returns the record for the hash. A hash that has never been seen
// yields a zero record with StatusInvalid rather than an error.
func (s *OrderStore) Get(orderHash string) (domain.OrderRecord, error) {
	var rec domain.OrderRecord
	err := s.db.Where("order_hash = ?", orderHash).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.OrderRecord{OrderHash: orderHash, Status: domain.StatusInvalid}, nil
	}
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return rec, nil
}

// Create inserts a freshly placed record (Invalid → Placed).
func (s *OrderStore) Create(rec *domain.OrderRecord) error {
	rec.Status = domain.StatusPlaced
	return s.db.Create(rec).Error
}

// SetCancelled transitions Placed → Cancelled: reserved margin released
// to zero, block placed reset to zero. The prior record is returned so
// the caller can release margin and resting tick amounts.
func (s *OrderStore) SetCancelled(orderHash string) (domain.OrderRecord, error) {
	rec, err := s.Get(orderHash)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if rec.Status != domain.StatusPlaced {
		return domain.OrderRecord{}, fmt.Errorf("cancel %s: status %s", orderHash, rec.Status)
	}

	err = s.db.Model(&domain.OrderRecord{}).
		Where("order_hash = ?", orderHash).
		Updates(map[string]any{
			"status":          domain.StatusCancelled,
			"reserved_margin": 0,
			"block_placed":    0,
		}).Error
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return rec, nil
}

// ApplyFill accumulates a partial fill and releases marginRelease from
// the reserved margin. When the filled amount reaches the order size
// the record transitions to Filled, and any residual reserved margin is
// zeroed. The updated record is returned.
func (s *OrderStore) ApplyFill(orderHash string, fillAmount, marginRelease int64) (domain.OrderRecord, error) {
	rec, err := s.Get(orderHash)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if rec.Status != domain.StatusPlaced {
		return domain.OrderRecord{}, fmt.Errorf("fill %s: status %s", orderHash, rec.Status)
	}
	if rec.FilledAmount+fillAmount > rec.Size() {
		return domain.OrderRecord{}, fmt.Errorf("fill %s: %d exceeds unfilled %d",
			orderHash, fillAmount, rec.UnfilledSize())
	}

	rec.FilledAmount += fillAmount
	rec.ReservedMargin -= marginRelease
	if rec.ReservedMargin < 0 {
		rec.ReservedMargin = 0
	}
	if rec.FilledAmount == rec.Size() {
		rec.Status = domain.StatusFilled
		rec.ReservedMargin = 0
	}

	err = s.db.Model(&domain.OrderRecord{}).
		Where("order_hash = ?", orderHash).
		Updates(map[string]any{
			"status":          rec.Status,
			"filled_amount":   rec.FilledAmount,
			"reserved_margin": rec.ReservedMargin,
		}).Error
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return rec, nil
}

// OpenAmount sums the unfilled magnitude of the trader's Placed orders
// on one side of a market, split by the reduce-only flag.
func (s *OrderStore) OpenAmount(trader string, market int64, side domain.Side, reduceOnly bool) (int64, error) {
	q := s.db.Model(&domain.OrderRecord{}).
		Where("trader = ? AND market = ? AND status = ? AND reduce_only = ?",
			trader, market, domain.StatusPlaced, reduceOnly)
	if side == domain.SideLong {
		q = q.Where("base_asset_quantity > 0")
	} else {
		q = q.Where("base_asset_quantity < 0")
	}

	var total int64
	err := q.Select("COALESCE(SUM(ABS(base_asset_quantity) - filled_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListByTrader returns the trader's records, newest first.
func (s *OrderStore) ListByTrader(trader string) ([]domain.OrderRecord, error) {
	var recs []domain.OrderRecord
	err := s.db.Where("trader = ?", trader).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}
