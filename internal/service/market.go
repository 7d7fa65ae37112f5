package service

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/perpengine/internal/domain"
	"github.com/efreitasn/perpengine/internal/engine"
	"github.com/efreitasn/perpengine/internal/oracle"
)

// ErrMarketNotFound is returned for inspection requests against an
// unknown market.
var ErrMarketNotFound = errors.New("market_not_found")

// MarketInfo is the inspection view of one market's parameters.
type MarketInfo struct {
	Market                    int64           `json:"market"`
	Address                   string          `json:"address"`
	UnderlyingPrice           int64           `json:"underlying_price"`
	MinSizeRequirement        int64           `json:"min_size_requirement"`
	MaxOracleSpreadRatio      decimal.Decimal `json:"max_oracle_spread_ratio"`
	MaxLiquidationPriceSpread decimal.Decimal `json:"max_liquidation_price_spread"`
}

// BookView is the ladder snapshot for one market.
type BookView struct {
	Market  int64          `json:"market"`
	BestBid int64          `json:"best_bid"`
	BestAsk int64          `json:"best_ask"`
	Bids    []engine.Level `json:"bids"`
	Asks    []engine.Level `json:"asks"`
}

// MarketService answers read-only market inspection requests.
type MarketService struct {
	provider *oracle.Static
	ticks    *engine.TickLedger
}

// NewMarketService creates a MarketService.
func NewMarketService(provider *oracle.Static, ticks *engine.TickLedger) *MarketService {
	return &MarketService{provider: provider, ticks: ticks}
}

// Info returns the market's parameters and current oracle price.
func (s *MarketService) Info(market int64) (MarketInfo, error) {
	addr := s.provider.MarketAddress(market)
	if addr == "" {
		return MarketInfo{}, ErrMarketNotFound
	}
	return MarketInfo{
		Market:                    market,
		Address:                   addr,
		UnderlyingPrice:           s.provider.UnderlyingPrice(market),
		MinSizeRequirement:        s.provider.MinSizeRequirement(market),
		MaxOracleSpreadRatio:      s.provider.MaxOracleSpreadRatio(market),
		MaxLiquidationPriceSpread: s.provider.MaxLiquidationPriceSpread(market),
	}, nil
}

// Book returns up to depth resting levels per side plus the heads.
func (s *MarketService) Book(market int64, depth int) (BookView, error) {
	if s.provider.MarketAddress(market) == "" {
		return BookView{}, ErrMarketNotFound
	}
	return BookView{
		Market:  market,
		BestBid: s.ticks.Head(market, domain.SideLong),
		BestAsk: s.ticks.Head(market, domain.SideShort),
		Bids:    s.ticks.Levels(market, domain.SideLong, depth),
		Asks:    s.ticks.Levels(market, domain.SideShort, depth),
	}, nil
}
