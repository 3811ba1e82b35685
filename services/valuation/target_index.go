package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/valorafin/valora/models"
)

// TargetIndex builds the target-allocation weighted performance index: each
// allocated asset's price series is normalized to 100 at its baseline, then
// blended by target weight. The baseline is the last price on or before the
// range start; an asset with no price until later in the range joins the
// blend from its first price, and the blend renormalizes over the weights of
// the assets active that day.
func (s *Service) TargetIndex(ctx context.Context, portfolioID string, start, end time.Time) (*models.TargetIndexResult, error) {
	portfolio, err := s.storage.LedgerStore().GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}

	if start.IsZero() {
		start = portfolio.Inception()
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	startDay, endDay := models.Day(start), models.Day(end)
	if endDay.Before(startDay) {
		return nil, fmt.Errorf("end %s before start %s: %w",
			endDay.Format("2006-01-02"), startDay.Format("2006-01-02"), models.ErrInvalidRange)
	}

	targets, err := s.storage.AllocationStore().GetTargets(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets for portfolio %s: %w", portfolioID, err)
	}

	type indexedAsset struct {
		target   models.TargetAllocation
		baseline float64
		cursor   *seriesCursor
		series   models.TargetAssetSeries
	}

	var assets []*indexedAsset
	for _, target := range targets {
		if target.WeightPct <= 0 {
			continue
		}
		prices, err := s.storage.MarketStore().GetPrices(ctx, target.AssetID, endDay)
		if err != nil {
			return nil, fmt.Errorf("failed to load prices for asset %s: %w", target.AssetID, err)
		}
		if len(prices) == 0 {
			continue
		}

		// Baseline: last price on or before start, else the first price after.
		baseline := 0.0
		for _, p := range prices {
			if models.Day(p.Date).After(startDay) {
				break
			}
			baseline = p.Close
		}
		if baseline == 0 {
			baseline = prices[0].Close
		}
		if baseline <= 0 {
			continue
		}

		symbol := target.Symbol
		if symbol == "" {
			if asset, err := s.storage.MarketStore().GetAsset(ctx, target.AssetID); err == nil {
				symbol = asset.Symbol
			}
		}

		assets = append(assets, &indexedAsset{
			target:   *target,
			baseline: baseline,
			cursor:   newPriceCursor(prices),
			series: models.TargetAssetSeries{
				AssetID:   target.AssetID,
				Symbol:    symbol,
				WeightPct: target.WeightPct,
			},
		})
	}

	result := &models.TargetIndexResult{PortfolioID: portfolioID}
	if len(assets) == 0 {
		return result, nil
	}

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		var weighted, activeWeight float64
		for _, a := range assets {
			price, ok := a.cursor.advanceTo(day)
			if !ok {
				continue
			}
			indexed := price / a.baseline * 100
			a.series.Points = append(a.series.Points, models.TargetIndexPoint{Date: day, Value: indexed})
			weighted += indexed * a.target.WeightPct
			activeWeight += a.target.WeightPct
		}
		// Days before any allocated asset has a price still emit a point, so
		// the series stays one per calendar day like the valuation walk.
		value := 0.0
		if activeWeight > 0 {
			value = weighted / activeWeight
		}
		result.Points = append(result.Points, models.TargetIndexPoint{Date: day, Value: value})
	}

	for _, a := range assets {
		if n := len(a.series.Points); n > 0 {
			a.series.ReturnPct = a.series.Points[n-1].Value - 100
		}
		result.Assets = append(result.Assets, a.series)

		performer := models.TargetPerformer{
			AssetID:   a.series.AssetID,
			Symbol:    a.series.Symbol,
			ReturnPct: a.series.ReturnPct,
		}
		if result.Best == nil || performer.ReturnPct > result.Best.ReturnPct {
			p := performer
			result.Best = &p
		}
		if result.Worst == nil || performer.ReturnPct < result.Worst.ReturnPct {
			p := performer
			result.Worst = &p
		}
	}

	return result, nil
}
