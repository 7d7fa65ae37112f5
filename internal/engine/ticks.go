package engine

import (
	"sync"

	"github.com/efreitasn/perpengine/internal/domain"
)

// tick is one price level in the ladder: the aggregate resting size at
// that price and a link toward the next-worse price. A level whose
// amount reaches zero is unlinked, never stored as a zero node.
type tick struct {
	price  int64
	amount int64
	next   *tick
}

// tickBook holds the two ladders for one market. Heads always reference
// the best resting price: highest bid, lowest ask.
type tickBook struct {
	bids *tick // descending by price
	asks *tick // ascending by price
}

// Level is a read-only view of one price level.
type Level struct {
	Price  int64 `json:"price"`
	Amount int64 `json:"amount"`
}

// TickLedger records resting post-only order quantity per price level,
// per market and side. It answers best-bid/best-ask in O(1); insertion
// is a linear scan, acceptable because resting depth is bounded by
// exchange policy.
type TickLedger struct {
	mu    sync.RWMutex
	books map[int64]*tickBook
}

// NewTickLedger creates an empty ledger.
func NewTickLedger() *TickLedger {
	return &TickLedger{books: make(map[int64]*tickBook)}
}

func (l *TickLedger) book(market int64) *tickBook {
	b, ok := l.books[market]
	if !ok {
		b = &tickBook{}
		l.books[market] = b
	}
	return b
}

// better reports whether price a ranks before price b on the given side.
func better(side domain.Side, a, b int64) bool {
	if side == domain.SideLong {
		return a > b
	}
	return a < b
}

// Insert merges amount into the level at price, creating a sorted node
// if the level does not exist. Amount must be positive.
func (l *TickLedger) Insert(market int64, side domain.Side, price, amount int64) {
	if amount <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.book(market)
	head := &b.bids
	if side == domain.SideShort {
		head = &b.asks
	}

	cur := head
	for *cur != nil && better(side, (*cur).price, price) {
		cur = &(*cur).next
	}
	if *cur != nil && (*cur).price == price {
		(*cur).amount += amount
		return
	}
	*cur = &tick{price: price, amount: amount, next: *cur}
}

// Remove decrements the level at price by amount, unlinking the node
// when it reaches zero. Removing from a missing level is a no-op.
func (l *TickLedger) Remove(market int64, side domain.Side, price, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.book(market)
	head := &b.bids
	if side == domain.SideShort {
		head = &b.asks
	}

	cur := head
	for *cur != nil && (*cur).price != price {
		cur = &(*cur).next
	}
	if *cur == nil {
		return
	}
	(*cur).amount -= amount
	if (*cur).amount <= 0 {
		*cur = (*cur).next
	}
}

// Head returns the best resting price for the side, or 0 when the side
// is empty.
func (l *TickLedger) Head(market int64, side domain.Side) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.books[market]
	if !ok {
		return 0
	}
	t := b.bids
	if side == domain.SideShort {
		t = b.asks
	}
	if t == nil {
		return 0
	}
	return t.price
}

// Levels returns up to n levels for the side in book-priority order.
func (l *TickLedger) Levels(market int64, side domain.Side, n int) []Level {
	l.mu.RLock()
	defer l.mu.RUnlock()

	levels := make([]Level, 0, n)
	b, ok := l.books[market]
	if !ok {
		return levels
	}
	t := b.bids
	if side == domain.SideShort {
		t = b.asks
	}
	for t != nil && len(levels) < n {
		levels = append(levels, Level{Price: t.price, Amount: t.amount})
		t = t.next
	}
	return levels
}
