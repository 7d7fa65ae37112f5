package engine

import (
	"errors"
	"testing"

	"github.com/efreitasn/perpengine/internal/domain"
)

// placePair records a long and a short order as Placed at the given
// blocks and returns the pair.
func placePair(records *fakeRecords, longPrice, shortPrice, size int64, longBlock, shortBlock uint64) (domain.Order, domain.Order) {
	long := newLongOrder("alice", size, longPrice)
	short := newShortOrder("bob", size, shortPrice)
	records.put(long, domain.StatusPlaced, 0, longBlock)
	records.put(short, domain.StatusPlaced, 0, shortBlock)
	return long, short
}

func TestMatchOrders_Success(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1801_000_000, 1799_000_000, 2_000_000, 1, 2)

	res, err := v.MatchOrders(long, short, 2_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Long placed first: long is maker, its price sets the fill.
	if res.FillPrice != 1801_000_000 {
		t.Errorf("FillPrice = %d, want 1801000000", res.FillPrice)
	}
	if res.Instructions[0].Mode != ModeMaker {
		t.Errorf("long mode = %d, want maker", res.Instructions[0].Mode)
	}
	if res.Instructions[1].Mode != ModeTaker {
		t.Errorf("short mode = %d, want taker", res.Instructions[1].Mode)
	}
	if res.Instructions[0].Trader != "alice" || res.Instructions[1].Trader != "bob" {
		t.Errorf("traders = %s/%s, want alice/bob", res.Instructions[0].Trader, res.Instructions[1].Trader)
	}
	if res.Orders[0] != long || res.Orders[1] != short {
		t.Error("Orders does not echo inputs in long/short positions")
	}
}

func TestMatchOrders_ShortMakerWhenPlacedEarlier(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1801_000_000, 1799_000_000, 2_000_000, 5, 3)

	res, err := v.MatchOrders(long, short, 2_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FillPrice != 1799_000_000 {
		t.Errorf("FillPrice = %d, want short maker price 1799000000", res.FillPrice)
	}
	if res.Instructions[1].Mode != ModeMaker {
		t.Errorf("short mode = %d, want maker", res.Instructions[1].Mode)
	}
}

func TestMatchOrders_SameBlockTieShortIsMaker(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1801_000_000, 1799_000_000, 2_000_000, 4, 4)

	res, err := v.MatchOrders(long, short, 2_000_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Instructions[1].Mode != ModeMaker {
		t.Errorf("short mode = %d, want maker on tie", res.Instructions[1].Mode)
	}
	if res.FillPrice != 1799_000_000 {
		t.Errorf("FillPrice = %d, want 1799000000", res.FillPrice)
	}
}

func TestMatchOrders_FillPriceClampedToBounds(t *testing.T) {
	v, records, _, _ := newTestValidator()
	// Bounds around 1800 at 1% spread: [1782, 1818].

	t.Run("long maker above upper clamps down", func(t *testing.T) {
		long, short := placePair(records, 1819_000_000, 1700_000_000, 1_000_000, 1, 2)
		res, err := v.MatchOrders(long, short, 1_000_000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.FillPrice != 1818_000_000 {
			t.Errorf("FillPrice = %d, want clamped 1818000000", res.FillPrice)
		}
	})

	t.Run("short maker below lower clamps up", func(t *testing.T) {
		long, short := placePair(records, 1810_000_000, 1700_000_000, 1_000_000, 3, 1)
		res, err := v.MatchOrders(long, short, 1_000_000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.FillPrice != 1782_000_000 {
			t.Errorf("FillPrice = %d, want clamped 1782000000", res.FillPrice)
		}
	})
}

func TestMatchOrders_InvalidFillAmount(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1801_000_000, 1799_000_000, 2_000_000, 1, 2)

	for _, amount := range []int64{0, -1_000_000} {
		_, err := v.MatchOrders(long, short, amount)
		if !errors.Is(err, domain.ErrInvalidFillAmount) {
			t.Errorf("amount %d: expected invalid fillAmount, got %v", amount, err)
		}
	}
}

func TestMatchOrders_RequiresPlacedStatus(t *testing.T) {
	v, records, _, _ := newTestValidator()

	long := newLongOrder("alice", 2_000_000, 1801_000_000)
	short := newShortOrder("bob", 2_000_000, 1799_000_000)

	// Long never placed.
	records.put(short, domain.StatusPlaced, 0, 2)
	_, err := v.MatchOrders(long, short, 2_000_000)
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("unplaced long: expected invalid order, got %v", err)
	}

	// Short cancelled.
	records.put(long, domain.StatusPlaced, 0, 1)
	records.put(short, domain.StatusCancelled, 0, 2)
	_, err = v.MatchOrders(long, short, 2_000_000)
	if !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("cancelled short: expected invalid order, got %v", err)
	}
}

func TestMatchOrders_SideChecks(t *testing.T) {
	v, records, _, _ := newTestValidator()

	// Two shorts passed as (long, short).
	a := newShortOrder("alice", 2_000_000, 1801_000_000)
	b := newShortOrder("bob", 2_000_000, 1799_000_000)
	records.put(a, domain.StatusPlaced, 0, 1)
	records.put(b, domain.StatusPlaced, 0, 2)
	_, err := v.MatchOrders(a, b, 2_000_000)
	if !errors.Is(err, domain.ErrNotLong) {
		t.Fatalf("expected not long, got %v", err)
	}

	// Two longs passed as (long, short).
	c := newLongOrder("carol", 2_000_000, 1801_000_000)
	d := newLongOrder("dave", 2_000_000, 1799_000_000)
	records.put(c, domain.StatusPlaced, 0, 1)
	records.put(d, domain.StatusPlaced, 0, 2)
	_, err = v.MatchOrders(c, d, 2_000_000)
	if !errors.Is(err, domain.ErrNotShort) {
		t.Fatalf("expected not short, got %v", err)
	}
}

func TestMatchOrders_Overfill(t *testing.T) {
	v, records, _, _ := newTestValidator()

	long := newLongOrder("alice", 2_000_000, 1801_000_000)
	short := newShortOrder("bob", 5_000_000, 1799_000_000)
	records.put(long, domain.StatusPlaced, 1_000_000, 1)
	records.put(short, domain.StatusPlaced, 0, 2)

	// Long has 1.0 unfilled; asking for 2.0 overfills it.
	_, err := v.MatchOrders(long, short, 2_000_000)
	if !errors.Is(err, domain.ErrOverfill) {
		t.Fatalf("expected overfill, got %v", err)
	}

	// The remaining 1.0 still matches.
	if _, err := v.MatchOrders(long, short, 1_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMatchOrders_MarketMismatch(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1801_000_000, 1799_000_000, 2_000_000, 1, 2)

	short.Market = 1
	records.put(short, domain.StatusPlaced, 0, 2)

	_, err := v.MatchOrders(long, short, 2_000_000)
	if !errors.Is(err, domain.ErrAMMMismatch) {
		t.Fatalf("expected amm mismatch, got %v", err)
	}
}

func TestMatchOrders_PricesDoNotCross(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1798_000_000, 1799_000_000, 2_000_000, 1, 2)

	_, err := v.MatchOrders(long, short, 2_000_000)
	if !errors.Is(err, domain.ErrNoMatch) {
		t.Fatalf("expected OB_orders_do_not_match, got %v", err)
	}
}

func TestMatchOrders_EqualPricesCross(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1800_000_000, 1800_000_000, 2_000_000, 1, 2)

	if _, err := v.MatchOrders(long, short, 2_000_000); err != nil {
		t.Fatalf("equal prices should match: %v", err)
	}
}

func TestMatchOrders_FillAmountMultiple(t *testing.T) {
	v, records, _, _ := newTestValidator()
	long, short := placePair(records, 1801_000_000, 1799_000_000, 2_000_000, 1, 2)

	_, err := v.MatchOrders(long, short, 1_500_000)
	if !errors.Is(err, domain.ErrNotMultiple) {
		t.Fatalf("expected not multiple, got %v", err)
	}
}

func TestMatchOrders_OracleSpreadRejects(t *testing.T) {
	v, records, _, _ := newTestValidator()

	// Long price below the lower bound (1782).
	long, short := placePair(records, 1781_000_000, 1700_000_000, 1_000_000, 1, 2)
	_, err := v.MatchOrders(long, short, 1_000_000)
	if !errors.Is(err, domain.ErrLongPriceTooLow) {
		t.Fatalf("expected OB_long_order_price_too_low, got %v", err)
	}

	// Short price above the upper bound (1818).
	long2 := newLongOrder("carol", 1_000_000, 1900_000_000)
	short2 := newShortOrder("dave", 1_000_000, 1819_000_000)
	records.put(long2, domain.StatusPlaced, 0, 1)
	records.put(short2, domain.StatusPlaced, 0, 2)
	_, err = v.MatchOrders(long2, short2, 1_000_000)
	if !errors.Is(err, domain.ErrShortPriceTooHigh) {
		t.Fatalf("expected OB_short_order_price_too_high, got %v", err)
	}
}
