package models

import "time"

// Portfolio holds the per-portfolio attributes the engines need. Positions,
// valuations and returns are derived on demand, never persisted here.
type Portfolio struct {
	ID            string    `json:"id" badgerhold:"key"`
	Name          string    `json:"name"`
	BaseCurrency  string    `json:"base_currency"`
	CashBalance   float64   `json:"cash_balance"`
	InceptionDate time.Time `json:"inception_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Inception returns the portfolio inception day, falling back to the
// creation timestamp when no explicit inception date is set.
func (p Portfolio) Inception() time.Time {
	if !p.InceptionDate.IsZero() {
		return Day(p.InceptionDate)
	}
	return Day(p.CreatedAt)
}

// Asset describes an instrument referenced by the ledger.
type Asset struct {
	ID            string `json:"id" badgerhold:"key"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name,omitempty"`
	QuoteCurrency string `json:"quote_currency"`
}

// PricePoint is one daily close for an asset. Series are sparse (weekends and
// holidays absent) and always ascending by date.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// FXRatePoint is one daily rate for a currency pair: 1 unit of the from
// currency equals Rate units of the to currency. Series are sparse and
// ascending by date.
type FXRatePoint struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// Quote is the latest known price for an asset, used for live valuation and
// rebalance previews.
type Quote struct {
	AssetID  string    `json:"asset_id"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"as_of"`
}

// TargetAllocation assigns a target weight to an asset, independent of the
// ledger. Weights are percentages and are not required to sum to 100.
type TargetAllocation struct {
	PortfolioID string  `json:"portfolio_id"`
	AssetID     string  `json:"asset_id"`
	Symbol      string  `json:"symbol,omitempty"`
	WeightPct   float64 `json:"weight_pct"`
}
