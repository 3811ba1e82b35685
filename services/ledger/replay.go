// Package ledger replays transaction timelines into positions and guards the
// non-negative inventory invariant on every mutation.
package ledger

import (
	"fmt"
	"time"

	"github.com/valorafin/valora/models"
)

// inventoryEpsilon absorbs float accumulation noise when checking that a sell
// never drives the running quantity negative.
const inventoryEpsilon = 1e-9

// FXLookup converts one unit of a trade currency into the portfolio base
// currency on a given day. ok is false when no rate is known on or before the
// day, in which case the caller treats the rate as 1.
type FXLookup func(currency string, day time.Time) (rate float64, ok bool)

// identityFX is the lookup for single-currency portfolios.
func identityFX(string, time.Time) (float64, bool) { return 1, true }

// Replay folds a sorted timeline into per-asset lots using the
// weighted-average cost method. Buys add quantity and full cost (price,
// fees and taxes, converted to base currency at the trade date); sells
// remove quantity at the blended average cost. Cash sides do not touch lots.
//
// Sell quantity is clamped to the held quantity so that a replay over an
// already-validated timeline can never produce a negative lot.
func Replay(txs []models.Transaction, fx FXLookup, baseCurrency string) map[string]models.Lot {
	if fx == nil {
		fx = identityFX
	}
	lots := make(map[string]models.Lot)
	for _, t := range txs {
		if !t.Side.IsTrade() {
			continue
		}
		rate := 1.0
		if t.TradeCurrency != "" && t.TradeCurrency != baseCurrency {
			if r, ok := fx(t.TradeCurrency, t.TradeDate()); ok {
				rate = r
			}
		}
		lot := lots[t.AssetID]
		switch t.Side {
		case models.SideBuy:
			lot.Quantity += t.Quantity
			lot.Cost += (t.Quantity*t.Price + t.Fees + t.Taxes) * rate
		case models.SideSell:
			sellQty := t.Quantity
			if sellQty > lot.Quantity {
				sellQty = lot.Quantity
			}
			lot.Cost -= sellQty * lot.AvgCost()
			lot.Quantity -= sellQty
			if lot.Quantity < inventoryEpsilon {
				lot.Quantity = 0
			}
			if lot.Cost < 0 {
				lot.Cost = 0
			}
		}
		lots[t.AssetID] = lot
	}
	return lots
}

// timelineOp enumerates candidate mutations against an existing timeline.
type timelineOp int

const (
	opCreate timelineOp = iota
	opUpdate
	opDelete
)

// validateTimeline checks the non-negative inventory invariant over the
// whole timeline that would result from applying the candidate mutation.
// The candidate is appended (create), substituted by ID (update) or omitted
// (delete); an unassigned candidate ID sorts after persisted transactions at
// the same instant, which matches where SaveTransaction will place it.
//
// Only quantities matter here: cost basis cannot go negative once
// quantities are valid, so the replay below skips the cost arithmetic.
func validateTimeline(existing []models.Transaction, candidate *models.Transaction, op timelineOp) error {
	timeline := make([]models.Transaction, 0, len(existing)+1)
	for _, t := range existing {
		if op != opCreate && candidate != nil && t.ID == candidate.ID {
			continue
		}
		timeline = append(timeline, t)
	}
	if op != opDelete && candidate != nil {
		timeline = append(timeline, *candidate)
	}
	models.SortTransactions(timeline)

	held := make(map[string]float64)
	for _, t := range timeline {
		switch t.Side {
		case models.SideBuy:
			held[t.AssetID] += t.Quantity
		case models.SideSell:
			held[t.AssetID] -= t.Quantity
			if held[t.AssetID] < -inventoryEpsilon {
				return fmt.Errorf("asset %s would hold %.4f units on %s: %w",
					t.AssetID, held[t.AssetID], t.TradeDate().Format("2006-01-02"), models.ErrInventory)
			}
		}
	}
	return nil
}
