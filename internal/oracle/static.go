// Package oracle provides a configurable in-memory implementation of
// the market data and margin provider the engine validates against. In
// the reference deployment these values come from the clearing house;
// here they are held locally and mutated through admin calls.
package oracle

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Market holds per-market parameters.
type Market struct {
	Address                   string
	UnderlyingPrice           int64 // micro-units
	MinSizeRequirement        int64 // micro-units
	MaxOracleSpreadRatio      decimal.Decimal
	MaxLiquidationPriceSpread decimal.Decimal
}

// account tracks one trader's margin and positions. Margin is split
// into a total and a reserved part so escrowed order margin stays
// unavailable for further placements.
type account struct {
	margin      int64
	reserved    int64
	positions   map[int64]int64 // market → signed size
	authorities map[string]bool
}

// Static implements engine.MarketData with explicitly set values.
type Static struct {
	mu             sync.RWMutex
	markets        map[int64]*Market
	accounts       map[string]*account
	minMarginRatio decimal.Decimal
	makerFee       decimal.Decimal
	takerFee       decimal.Decimal
}

// New creates a Static provider with the given global ratios.
func New(minMarginRatio, makerFee, takerFee decimal.Decimal) *Static {
	return &Static{
		markets:        make(map[int64]*Market),
		accounts:       make(map[string]*account),
		minMarginRatio: minMarginRatio,
		makerFee:       makerFee,
		takerFee:       takerFee,
	}
}

func (s *Static) account(trader string) *account {
	a, ok := s.accounts[trader]
	if !ok {
		a = &account{
			positions:   make(map[int64]int64),
			authorities: make(map[string]bool),
		}
		s.accounts[trader] = a
	}
	return a
}

// AddMarket registers or replaces a market.
func (s *Static) AddMarket(id int64, m Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := m
	s.markets[id] = &cp
}

// MarketAddress returns the market's AMM address, or "" when unknown.
func (s *Static) MarketAddress(market int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[market]
	if !ok {
		return ""
	}
	return m.Address
}

func (s *Static) UnderlyingPrice(market int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[market]
	if !ok {
		return 0
	}
	return m.UnderlyingPrice
}

func (s *Static) MinSizeRequirement(market int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[market]
	if !ok {
		return 0
	}
	return m.MinSizeRequirement
}

func (s *Static) MaxOracleSpreadRatio(market int64) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[market]
	if !ok {
		return decimal.Zero
	}
	return m.MaxOracleSpreadRatio
}

func (s *Static) MaxLiquidationPriceSpread(market int64) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[market]
	if !ok {
		return decimal.Zero
	}
	return m.MaxLiquidationPriceSpread
}

func (s *Static) MinMarginRatio() decimal.Decimal { return s.minMarginRatio }

func (s *Static) MakerFee() decimal.Decimal { return s.makerFee }

func (s *Static) TakerFee() decimal.Decimal { return s.takerFee }

// SetOraclePrice updates the market's underlying price.
func (s *Static) SetOraclePrice(market, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.markets[market]; ok {
		m.UnderlyingPrice = price
	}
}

// SetMargin sets the trader's total margin balance.
func (s *Static) SetMargin(trader string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account(trader).margin = amount
}

// AvailableMargin returns the trader's unreserved margin.
func (s *Static) AvailableMargin(trader string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[trader]
	if !ok {
		return 0
	}
	return a.margin - a.reserved
}

// Reserve escrows amount of the trader's margin for a placed order.
// It fails if the trader's available margin is below amount.
func (s *Static) Reserve(trader string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(trader)
	if a.margin-a.reserved < amount {
		return fmt.Errorf("reserve %d for %s: available %d", amount, trader, a.margin-a.reserved)
	}
	a.reserved += amount
	return nil
}

// Release returns previously escrowed margin to the trader.
func (s *Static) Release(trader string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.account(trader)
	a.reserved -= amount
	if a.reserved < 0 {
		a.reserved = 0
	}
}

// SetPosition sets the trader's signed position size in a market.
func (s *Static) SetPosition(trader string, market, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account(trader).positions[market] = size
}

// Position returns the trader's signed position size in a market.
func (s *Static) Position(trader string, market int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[trader]
	if !ok {
		return 0
	}
	return a.positions[market]
}

// Authorize grants sender trading authority for trader's orders.
func (s *Static) Authorize(trader, sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account(trader).authorities[sender] = true
}

// IsTradingAuthority reports whether sender may act for trader.
func (s *Static) IsTradingAuthority(trader, sender string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[trader]
	if !ok {
		return false
	}
	return a.authorities[sender]
}
