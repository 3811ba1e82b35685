package models

import "time"

// Lot is the replayed state of a single asset holding: quantity held and the
// total cost basis in the portfolio base currency. Cost is reduced
// proportionally on sells (weighted-average method, not lot-by-lot).
type Lot struct {
	Quantity float64 `json:"quantity"`
	Cost     float64 `json:"cost"`
}

// AvgCost returns the blended per-unit cost basis, or 0 for an empty lot.
func (l Lot) AvgCost() float64 {
	if l.Quantity <= 0 {
		return 0
	}
	return l.Cost / l.Quantity
}

// Position is a single holding valued at "now".
type Position struct {
	AssetID         string     `json:"asset_id"`
	Symbol          string     `json:"symbol"`
	Name            string     `json:"name,omitempty"`
	Quantity        float64    `json:"quantity"`
	AvgCost         float64    `json:"avg_cost"`
	MarketPrice     float64    `json:"market_price"` // in base currency
	MarketValue     float64    `json:"market_value"`
	UnrealizedPL    float64    `json:"unrealized_pl"`
	UnrealizedPLPct float64    `json:"unrealized_pl_pct"`
	Weight          float64    `json:"weight"`
	FirstTradeAt    *time.Time `json:"first_trade_at,omitempty"`
}

// PortfolioSummary aggregates position totals for a portfolio.
type PortfolioSummary struct {
	PortfolioID     string  `json:"portfolio_id"`
	BaseCurrency    string  `json:"base_currency"`
	MarketValue     float64 `json:"market_value"`
	CostBasis       float64 `json:"cost_basis"`
	UnrealizedPL    float64 `json:"unrealized_pl"`
	UnrealizedPLPct float64 `json:"unrealized_pl_pct"`
	CashBalance     float64 `json:"cash_balance"`
}

// AllocationItem is the current weight of one asset within the portfolio.
type AllocationItem struct {
	AssetID     string  `json:"asset_id"`
	Symbol      string  `json:"symbol"`
	MarketValue float64 `json:"market_value"`
	WeightPct   float64 `json:"weight_pct"`
}

// ValuationPoint is one day in the portfolio value time series.
type ValuationPoint struct {
	Date        time.Time `json:"date"`
	MarketValue float64   `json:"market_value"`
}

// ValuationSeries is the daily mark-to-market series for a portfolio, one
// point per calendar day inclusive of both endpoints. MissingDataDays counts
// days on which at least one held asset was excluded from the total because
// its price or FX rate was not yet known; the sum itself stays silently
// incomplete on those days.
type ValuationSeries struct {
	PortfolioID     string           `json:"portfolio_id"`
	BaseCurrency    string           `json:"base_currency"`
	Points          []ValuationPoint `json:"points"`
	MissingDataDays int              `json:"missing_data_days,omitempty"`
}

// ValueOn returns the series value for a given day, or 0 when the day is
// outside the series range.
func (s ValuationSeries) ValueOn(day time.Time) float64 {
	if len(s.Points) == 0 {
		return 0
	}
	d := Day(day)
	offset := int(d.Sub(Day(s.Points[0].Date)).Hours() / 24)
	if offset < 0 || offset >= len(s.Points) {
		return 0
	}
	return s.Points[offset].MarketValue
}
