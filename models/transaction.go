// Package models defines the value objects shared by the Valora engines.
package models

import (
	"sort"
	"time"
)

// Side categorizes a transaction. Trade sides (buy/sell) move inventory;
// cash sides (deposit/withdrawal/dividend/fee/interest) carry a monetary
// amount in Price with zero Quantity.
type Side string

const (
	SideBuy        Side = "buy"
	SideSell       Side = "sell"
	SideDeposit    Side = "deposit"
	SideWithdrawal Side = "withdrawal"
	SideDividend   Side = "dividend"
	SideFee        Side = "fee"
	SideInterest   Side = "interest"
)

// validSides lists all accepted transaction sides.
var validSides = map[Side]bool{
	SideBuy:        true,
	SideSell:       true,
	SideDeposit:    true,
	SideWithdrawal: true,
	SideDividend:   true,
	SideFee:        true,
	SideInterest:   true,
}

// ValidSide returns true if s is a recognized transaction side.
func ValidSide(s Side) bool {
	return validSides[s]
}

// IsTrade returns true for sides that change inventory (buy/sell).
func (s Side) IsTrade() bool {
	return s == SideBuy || s == SideSell
}

// IsExternalCashflow returns true for sides counted as external flows in
// performance calculations. Dividends, fees and interest are internal to the
// portfolio and do not partition TWR sub-periods.
func (s Side) IsExternalCashflow() bool {
	return s == SideDeposit || s == SideWithdrawal
}

// Transaction is a single ledger entry. Replay order is (TradeAt, ID)
// ascending; a transaction with ID 0 (not yet assigned) sorts after all
// assigned transactions at the same instant.
type Transaction struct {
	ID            int64     `json:"id" badgerhold:"key"`
	PortfolioID   string    `json:"portfolio_id" badgerhold:"index"`
	AssetID       string    `json:"asset_id"`
	Side          Side      `json:"side"`
	TradeAt       time.Time `json:"trade_at"`
	Quantity      float64   `json:"quantity"` // > 0 for trades, 0 for cash sides
	Price         float64   `json:"price"`    // unit price for trades, amount for cash sides
	Fees          float64   `json:"fees"`
	Taxes         float64   `json:"taxes"`
	TradeCurrency string    `json:"trade_currency"`
	Notes         string    `json:"notes,omitempty"`
}

// TradeDate returns the UTC calendar day of the transaction.
func (t Transaction) TradeDate() time.Time {
	return Day(t.TradeAt)
}

// CashAmount returns the monetary amount of a cash-side transaction.
// For trade sides it returns 0.
func (t Transaction) CashAmount() float64 {
	if t.Side.IsTrade() {
		return 0
	}
	return t.Price
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortTransactions orders transactions by (TradeAt, ID) ascending.
// Transactions with ID 0 sort after assigned IDs at the same instant, so a
// candidate mutation that has not been persisted yet takes terminal priority.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].TradeAt.Equal(txs[j].TradeAt) {
			return txs[i].TradeAt.Before(txs[j].TradeAt)
		}
		return timelineID(txs[i].ID) < timelineID(txs[j].ID)
	})
}

// timelineID maps an unassigned ID (0) to a terminal sort priority.
func timelineID(id int64) int64 {
	if id == 0 {
		return 1<<62 - 1
	}
	return id
}
