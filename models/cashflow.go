package models

import "time"

// ExternalCashflow is a dated flow between the investor and the portfolio,
// signed from the portfolio's perspective: a deposit is a positive inflow.
type ExternalCashflow struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// ExternalCashflows derives the external flow list from a transaction slice.
// Only deposit and withdrawal sides participate; dividends, fees and interest
// are internal to the portfolio.
func ExternalCashflows(txs []Transaction) []ExternalCashflow {
	var flows []ExternalCashflow
	for _, t := range txs {
		if !t.Side.IsExternalCashflow() {
			continue
		}
		amount := t.CashAmount()
		if t.Side == SideWithdrawal {
			amount = -amount
		}
		flows = append(flows, ExternalCashflow{Date: t.TradeDate(), Amount: amount})
	}
	return flows
}

// CashflowsByDay sums flows per calendar day for the given inclusive range.
func CashflowsByDay(flows []ExternalCashflow, start, end time.Time) map[time.Time]float64 {
	byDay := make(map[time.Time]float64)
	startDay, endDay := Day(start), Day(end)
	for _, cf := range flows {
		d := Day(cf.Date)
		if d.Before(startDay) || d.After(endDay) {
			continue
		}
		byDay[d] += cf.Amount
	}
	return byDay
}
