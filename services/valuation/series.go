// Package valuation computes daily mark-to-market time series and
// target-allocation performance indexes.
package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/interfaces"
	"github.com/valorafin/valora/models"
)

// Service implements the valuation time-series engine
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new valuation service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// seriesCursor walks a sparse ascending series against a calendar walk,
// carrying the last seen value forward across gaps.
type seriesCursor struct {
	dates  []time.Time
	values []float64
	idx    int
	value  float64
	seen   bool
}

// advanceTo consumes all points with date <= day and returns the
// carried-forward value. seen is false until the first point is reached.
func (c *seriesCursor) advanceTo(day time.Time) (float64, bool) {
	for c.idx < len(c.dates) && !models.Day(c.dates[c.idx]).After(day) {
		c.value = c.values[c.idx]
		c.seen = true
		c.idx++
	}
	return c.value, c.seen
}

func newPriceCursor(points []models.PricePoint) *seriesCursor {
	c := &seriesCursor{
		dates:  make([]time.Time, len(points)),
		values: make([]float64, len(points)),
	}
	for i, p := range points {
		c.dates[i] = p.Date
		c.values[i] = p.Close
	}
	return c
}

func newRateCursor(points []models.FXRatePoint) *seriesCursor {
	c := &seriesCursor{
		dates:  make([]time.Time, len(points)),
		values: make([]float64, len(points)),
	}
	for i, p := range points {
		c.dates[i] = p.Date
		c.values[i] = p.Rate
	}
	return c
}

// holdingState replays one asset's trades incrementally as the calendar walk
// advances; the trade cursor never rewinds.
type holdingState struct {
	assetID string
	trades  []models.Transaction // sorted by (TradeAt, ID) ascending
	cursor  int
	units   float64

	price *seriesCursor
	fx    *seriesCursor // nil when the asset quotes in base currency
}

// advanceTo processes all trades with trade date <= day.
func (h *holdingState) advanceTo(day time.Time) {
	for h.cursor < len(h.trades) {
		t := h.trades[h.cursor]
		if t.TradeDate().After(day) {
			break
		}
		switch t.Side {
		case models.SideBuy:
			h.units += t.Quantity
		case models.SideSell:
			h.units -= t.Quantity
			if h.units < 0 {
				h.units = 0
			}
		}
		h.cursor++
	}
}

// BuildSeries computes the daily portfolio value from start to end inclusive,
// one point per calendar day. Prices and FX rates carry forward across
// weekends and holidays. A held asset with no usable price or rate yet is
// excluded from that day's sum; the day is counted in MissingDataDays and the
// total stays silently incomplete.
//
// A zero start defaults to the portfolio inception; a zero end defaults to
// today.
func (s *Service) BuildSeries(ctx context.Context, portfolioID string, start, end time.Time) (*models.ValuationSeries, error) {
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

	txs, err := s.storage.LedgerStore().ListTransactions(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for portfolio %s: %w", portfolioID, err)
	}
	models.SortTransactions(txs)

	holdings, err := s.buildHoldingStates(ctx, txs, portfolio.BaseCurrency, endDay)
	if err != nil {
		return nil, err
	}

	days := int(endDay.Sub(startDay).Hours()/24) + 1
	series := &models.ValuationSeries{
		PortfolioID:  portfolioID,
		BaseCurrency: portfolio.BaseCurrency,
		Points:       make([]models.ValuationPoint, 0, days),
	}

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		var total float64
		missing := false

		for _, h := range holdings {
			h.advanceTo(day)
			if h.units <= 0 {
				continue
			}
			price, ok := h.price.advanceTo(day)
			if !ok {
				missing = true
				continue
			}
			rate := 1.0
			if h.fx != nil {
				r, ok := h.fx.advanceTo(day)
				if !ok {
					missing = true
					continue
				}
				rate = r
			}
			total += h.units * price * rate
		}

		if missing {
			series.MissingDataDays++
		}
		series.Points = append(series.Points, models.ValuationPoint{Date: day, MarketValue: total})
	}

	s.logger.Debug().
		Str("portfolio", portfolioID).
		Int("points", len(series.Points)).
		Int("missing_days", series.MissingDataDays).
		Msg("Valuation series built")
	return series, nil
}

// ValueAt returns the portfolio value on a single day.
func (s *Service) ValueAt(ctx context.Context, portfolioID string, date time.Time) (float64, error) {
	series, err := s.BuildSeries(ctx, portfolioID, date, date)
	if err != nil {
		return 0, err
	}
	if len(series.Points) == 0 {
		return 0, nil
	}
	return series.Points[0].MarketValue, nil
}

// buildHoldingStates groups trades per asset and attaches price/FX cursors.
// Price and rate series are loaded once for the whole walk.
func (s *Service) buildHoldingStates(ctx context.Context, txs []models.Transaction, baseCurrency string, endDay time.Time) ([]*holdingState, error) {
	byAsset := make(map[string][]models.Transaction)
	for _, t := range txs {
		if t.Side.IsTrade() {
			byAsset[t.AssetID] = append(byAsset[t.AssetID], t)
		}
	}

	rateCursors := make(map[string]*seriesCursor)
	holdings := make([]*holdingState, 0, len(byAsset))
	for assetID, trades := range byAsset {
		prices, err := s.storage.MarketStore().GetPrices(ctx, assetID, endDay)
		if err != nil {
			return nil, fmt.Errorf("failed to load prices for asset %s: %w", assetID, err)
		}

		h := &holdingState{
			assetID: assetID,
			trades:  trades,
			price:   newPriceCursor(prices),
		}

		quoteCurrency := baseCurrency
		if asset, err := s.storage.MarketStore().GetAsset(ctx, assetID); err == nil && asset.QuoteCurrency != "" {
			quoteCurrency = asset.QuoteCurrency
		}
		if quoteCurrency != baseCurrency {
			cursor, ok := rateCursors[quoteCurrency]
			if !ok {
				rates, err := s.storage.MarketStore().GetFXRates(ctx, quoteCurrency, baseCurrency, endDay)
				if err != nil {
					return nil, fmt.Errorf("failed to load %s/%s rates: %w", quoteCurrency, baseCurrency, err)
				}
				cursor = newRateCursor(rates)
				rateCursors[quoteCurrency] = cursor
			}
			h.fx = cursor
		}

		holdings = append(holdings, h)
	}
	return holdings, nil
}
