package store

import (
	"fmt"
	"testing"

	"github.com/efreitasn/perpengine/internal/domain"
)

func newTestStore(t *testing.T) *OrderStore {
	t.Helper()
	db, err := NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return NewOrderStore(db)
}

func testRecord(hash string, qty int64) *domain.OrderRecord {
	return &domain.OrderRecord{
		OrderHash:         hash,
		Trader:            "alice",
		Market:            0,
		BaseAssetQuantity: qty,
		Price:             1800_000_000,
		ReservedMargin:    900_000_000,
		BlockPlaced:       7,
	}
}

func TestGet_UnseenHashIsInvalid(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Get("deadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Status != domain.StatusInvalid {
		t.Errorf("Status = %s, want Invalid", rec.Status)
	}
	if rec.OrderHash != "deadbeef" {
		t.Errorf("OrderHash = %s, want deadbeef", rec.OrderHash)
	}
}

func TestCreate_TransitionsToPlaced(t *testing.T) {
	s := newTestStore(t)

	rec := testRecord("h1", 5_000_000)
	if err := s.Create(rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get("h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusPlaced {
		t.Errorf("Status = %s, want Placed", got.Status)
	}
	if got.ReservedMargin != 900_000_000 {
		t.Errorf("ReservedMargin = %d, want 900000000", got.ReservedMargin)
	}
	if got.BlockPlaced != 7 {
		t.Errorf("BlockPlaced = %d, want 7", got.BlockPlaced)
	}
}

func TestCreate_DuplicateHashFails(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create(testRecord("h1", 5_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(testRecord("h1", 2_000_000)); err == nil {
		t.Fatal("duplicate hash accepted")
	}
}

func TestSetCancelled(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create(testRecord("h1", -5_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}

	prev, err := s.SetCancelled("h1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// The prior record carries the margin for the caller to release.
	if prev.ReservedMargin != 900_000_000 {
		t.Errorf("prior ReservedMargin = %d, want 900000000", prev.ReservedMargin)
	}

	got, err := s.Get("h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Errorf("Status = %s, want Cancelled", got.Status)
	}
	if got.ReservedMargin != 0 {
		t.Errorf("ReservedMargin = %d, want 0", got.ReservedMargin)
	}
	if got.BlockPlaced != 0 {
		t.Errorf("BlockPlaced = %d, want 0", got.BlockPlaced)
	}

	// Cancelling again is a state error.
	if _, err := s.SetCancelled("h1"); err == nil {
		t.Fatal("second cancel accepted")
	}
}

func TestSetCancelled_RequiresPlaced(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.SetCancelled("missing"); err == nil {
		t.Fatal("cancel of unseen hash accepted")
	}
}

func TestApplyFill_PartialThenFull(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create(testRecord("h1", 5_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, err := s.ApplyFill("h1", 2_000_000, 360_000_000)
	if err != nil {
		t.Fatalf("partial fill: %v", err)
	}
	if rec.Status != domain.StatusPlaced {
		t.Errorf("Status = %s, want Placed after partial fill", rec.Status)
	}
	if rec.FilledAmount != 2_000_000 {
		t.Errorf("FilledAmount = %d, want 2000000", rec.FilledAmount)
	}
	if rec.ReservedMargin != 540_000_000 {
		t.Errorf("ReservedMargin = %d, want 540000000", rec.ReservedMargin)
	}

	rec, err = s.ApplyFill("h1", 3_000_000, 539_999_999)
	if err != nil {
		t.Fatalf("full fill: %v", err)
	}
	if rec.Status != domain.StatusFilled {
		t.Errorf("Status = %s, want Filled", rec.Status)
	}
	// Residual margin from rounding is zeroed on the final fill.
	if rec.ReservedMargin != 0 {
		t.Errorf("ReservedMargin = %d, want 0", rec.ReservedMargin)
	}

	// A filled order accepts no more fills.
	if _, err := s.ApplyFill("h1", 1_000_000, 0); err == nil {
		t.Fatal("fill on Filled order accepted")
	}
}

func TestApplyFill_RejectsOverfill(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create(testRecord("h1", 5_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.ApplyFill("h1", 6_000_000, 0); err == nil {
		t.Fatal("overfill accepted")
	}

	// State untouched after the rejection.
	rec, err := s.Get("h1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.FilledAmount != 0 {
		t.Errorf("FilledAmount = %d, want 0", rec.FilledAmount)
	}
}

func TestTransaction_ErrorRollsBackAllLegs(t *testing.T) {
	s := newTestStore(t)

	long := testRecord("h1", 5_000_000)
	if err := s.Create(long); err != nil {
		t.Fatalf("create long: %v", err)
	}
	short := testRecord("h2", -5_000_000)
	if err := s.Create(short); err != nil {
		t.Fatalf("create short: %v", err)
	}

	// The long leg fills inside the transaction, then the short leg
	// fails: the long leg's write must not survive.
	err := s.Transaction(func(tx *OrderStore) error {
		if _, err := tx.ApplyFill("h1", 2_000_000, 300_000_000); err != nil {
			return err
		}
		_, err := tx.ApplyFill("h2", 6_000_000, 0) // overfills
		return err
	})
	if err == nil {
		t.Fatal("transaction with failing leg succeeded")
	}

	for _, hash := range []string{"h1", "h2"} {
		rec, err := s.Get(hash)
		if err != nil {
			t.Fatalf("get %s: %v", hash, err)
		}
		if rec.FilledAmount != 0 {
			t.Errorf("%s FilledAmount = %d, want 0 after rollback", hash, rec.FilledAmount)
		}
		if rec.ReservedMargin != 900_000_000 {
			t.Errorf("%s ReservedMargin = %d, want 900000000 after rollback", hash, rec.ReservedMargin)
		}
	}
}

func TestTransaction_CommitsBothLegs(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create(testRecord("h1", 5_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(testRecord("h2", -5_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.Transaction(func(tx *OrderStore) error {
		if _, err := tx.ApplyFill("h1", 2_000_000, 0); err != nil {
			return err
		}
		_, err := tx.ApplyFill("h2", 2_000_000, 0)
		return err
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	for _, hash := range []string{"h1", "h2"} {
		rec, err := s.Get(hash)
		if err != nil {
			t.Fatalf("get %s: %v", hash, err)
		}
		if rec.FilledAmount != 2_000_000 {
			t.Errorf("%s FilledAmount = %d, want 2000000", hash, rec.FilledAmount)
		}
	}
}

func TestOpenAmount(t *testing.T) {
	s := newTestStore(t)

	longs := testRecord("h1", 5_000_000)
	if err := s.Create(longs); err != nil {
		t.Fatalf("create: %v", err)
	}
	shorts := testRecord("h2", -3_000_000)
	if err := s.Create(shorts); err != nil {
		t.Fatalf("create: %v", err)
	}
	shortRO := testRecord("h3", -2_000_000)
	shortRO.ReduceOnly = true
	if err := s.Create(shortRO); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		side       domain.Side
		reduceOnly bool
		want       int64
	}{
		{domain.SideLong, false, 5_000_000},
		{domain.SideShort, false, 3_000_000},
		{domain.SideShort, true, 2_000_000},
		{domain.SideLong, true, 0},
	}
	for _, tc := range cases {
		got, err := s.OpenAmount("alice", 0, tc.side, tc.reduceOnly)
		if err != nil {
			t.Fatalf("open amount: %v", err)
		}
		if got != tc.want {
			t.Errorf("OpenAmount(side=%d, ro=%v) = %d, want %d", tc.side, tc.reduceOnly, got, tc.want)
		}
	}

	// Fills shrink the open amount; cancels remove it.
	if _, err := s.ApplyFill("h2", 1_000_000, 0); err != nil {
		t.Fatalf("fill: %v", err)
	}
	got, err := s.OpenAmount("alice", 0, domain.SideShort, false)
	if err != nil {
		t.Fatalf("open amount: %v", err)
	}
	if got != 2_000_000 {
		t.Errorf("OpenAmount after fill = %d, want 2000000", got)
	}

	if _, err := s.SetCancelled("h2"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err = s.OpenAmount("alice", 0, domain.SideShort, false)
	if err != nil {
		t.Fatalf("open amount: %v", err)
	}
	if got != 0 {
		t.Errorf("OpenAmount after cancel = %d, want 0", got)
	}

	// Other traders are unaffected.
	got, err = s.OpenAmount("bob", 0, domain.SideLong, false)
	if err != nil {
		t.Fatalf("open amount: %v", err)
	}
	if got != 0 {
		t.Errorf("OpenAmount for bob = %d, want 0", got)
	}
}

func TestListByTrader(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create(testRecord("h1", 5_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(testRecord("h2", -3_000_000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := testRecord("h3", 1_000_000)
	other.Trader = "bob"
	if err := s.Create(other); err != nil {
		t.Fatalf("create: %v", err)
	}

	recs, err := s.ListByTrader("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.Trader != "alice" {
			t.Errorf("trader = %s, want alice", rec.Trader)
		}
	}
}
