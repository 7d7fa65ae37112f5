package engine

import (
	"errors"
	"testing"

	"github.com/efreitasn/perpengine/internal/domain"
)

func TestMatchLiquidation_AgainstLong(t *testing.T) {
	v, records, _, _ := newTestValidator()

	order := newLongOrder("alice", 5_000_000, 1810_000_000)
	records.put(order, domain.StatusPlaced, 0, 1)

	res, err := v.MatchLiquidation(order, 2_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stage != StageDone {
		t.Errorf("Stage = %d, want %d", res.Stage, StageDone)
	}
	if res.FillPrice != 1810_000_000 {
		t.Errorf("FillPrice = %d, want order price 1810000000", res.FillPrice)
	}
	if res.FillAmount != 2_000_000 {
		t.Errorf("FillAmount = %d, want +2000000 against a long", res.FillAmount)
	}
	if res.Instruction.Mode != ModeTaker {
		t.Errorf("Mode = %d, want taker", res.Instruction.Mode)
	}
	if res.Instruction.OrderHash != order.Hash() {
		t.Errorf("OrderHash = %s, want %s", res.Instruction.OrderHash, order.Hash())
	}
}

func TestMatchLiquidation_AgainstShortNegatesAmount(t *testing.T) {
	v, records, _, _ := newTestValidator()

	order := newShortOrder("bob", 5_000_000, 1790_000_000)
	records.put(order, domain.StatusPlaced, 0, 1)

	res, err := v.MatchLiquidation(order, 2_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FillAmount != -2_000_000 {
		t.Errorf("FillAmount = %d, want -2000000 against a short", res.FillAmount)
	}
}

func TestMatchLiquidation_InvalidAmount(t *testing.T) {
	v, records, _, _ := newTestValidator()

	order := newLongOrder("alice", 5_000_000, 1810_000_000)
	records.put(order, domain.StatusPlaced, 0, 1)

	for _, amount := range []int64{0, -1_000_000} {
		res, err := v.MatchLiquidation(order, amount)
		if !errors.Is(err, domain.ErrInvalidFillAmount) {
			t.Errorf("amount %d: expected invalid fillAmount, got %v", amount, err)
		}
		if res.Stage != StageAmount {
			t.Errorf("amount %d: Stage = %d, want %d", amount, res.Stage, StageAmount)
		}
	}
}

func TestMatchLiquidation_OrderChecks(t *testing.T) {
	v, records, _, _ := newTestValidator()

	order := newLongOrder("alice", 5_000_000, 1810_000_000)

	// Never placed.
	res, err := v.MatchLiquidation(order, 1_000_000)
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("unplaced: expected invalid order, got %v", err)
	}
	if res.Stage != StageOrder {
		t.Errorf("unplaced: Stage = %d, want %d", res.Stage, StageOrder)
	}

	// Overfill past the unfilled remainder.
	records.put(order, domain.StatusPlaced, 4_000_000, 1)
	res, err = v.MatchLiquidation(order, 2_000_000)
	if !errors.Is(err, domain.ErrOverfill) {
		t.Fatalf("overfill: expected overfill, got %v", err)
	}
	if res.Stage != StageOrder {
		t.Errorf("overfill: Stage = %d, want %d", res.Stage, StageOrder)
	}
}

func TestMatchLiquidation_AmountNotMultiple(t *testing.T) {
	v, records, _, _ := newTestValidator()

	order := newLongOrder("alice", 5_000_000, 1810_000_000)
	records.put(order, domain.StatusPlaced, 0, 1)

	res, err := v.MatchLiquidation(order, 1_500_000)
	if !errors.Is(err, domain.ErrNotMultiple) {
		t.Fatalf("expected not multiple, got %v", err)
	}
	if res.Stage != StageAmount {
		t.Errorf("Stage = %d, want %d", res.Stage, StageAmount)
	}
}

func TestMatchLiquidation_HardBounds(t *testing.T) {
	v, records, _, _ := newTestValidator()
	// Liquidation band at 5% around 1800: [1710, 1890].

	// Long order one tick below the liquidation lower bound.
	long := newLongOrder("alice", 1_000_000, 1709_000_000)
	records.put(long, domain.StatusPlaced, 0, 1)
	res, err := v.MatchLiquidation(long, 1_000_000)
	if !errors.Is(err, domain.ErrLongBelowLiquidationBound) {
		t.Fatalf("expected long price below lower bound, got %v", err)
	}
	if res.Stage != StageOrder {
		t.Errorf("Stage = %d, want %d", res.Stage, StageOrder)
	}

	// Short order one tick above the liquidation upper bound.
	short := newShortOrder("bob", 1_000_000, 1891_000_000)
	records.put(short, domain.StatusPlaced, 0, 1)
	res, err = v.MatchLiquidation(short, 1_000_000)
	if !errors.Is(err, domain.ErrShortAboveLiquidationBound) {
		t.Fatalf("expected short price above upper bound, got %v", err)
	}
	if res.Stage != StageOrder {
		t.Errorf("Stage = %d, want %d", res.Stage, StageOrder)
	}
}

func TestMatchLiquidation_ClampsToOracleBand(t *testing.T) {
	v, records, _, _ := newTestValidator()
	// Inside the liquidation band but outside the oracle band
	// ([1782, 1818]): the price clamps instead of rejecting.

	long := newLongOrder("alice", 1_000_000, 1750_000_000)
	records.put(long, domain.StatusPlaced, 0, 1)
	res, err := v.MatchLiquidation(long, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FillPrice != 1782_000_000 {
		t.Errorf("FillPrice = %d, want clamped 1782000000", res.FillPrice)
	}

	short := newShortOrder("bob", 1_000_000, 1850_000_000)
	records.put(short, domain.StatusPlaced, 0, 1)
	res, err = v.MatchLiquidation(short, 1_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FillPrice != 1818_000_000 {
		t.Errorf("FillPrice = %d, want clamped 1818000000", res.FillPrice)
	}
}
