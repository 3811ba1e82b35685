package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/interfaces"
	"github.com/valorafin/valora/models"
)

// Service implements the position ledger engine
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// CreateTransaction validates and persists a new transaction. The whole
// timeline is re-validated with the candidate in place: an insert in the
// middle of history must not make any later sell oversell.
func (s *Service) CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if err := s.checkFields(tx); err != nil {
		return nil, err
	}

	existing, err := s.storage.LedgerStore().ListTransactions(ctx, tx.PortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for portfolio %s: %w", tx.PortfolioID, err)
	}

	tx.ID = 0
	if err := validateTimeline(existing, tx, opCreate); err != nil {
		return nil, err
	}

	if err := s.storage.LedgerStore().SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	s.logger.Info().
		Str("portfolio", tx.PortfolioID).
		Str("side", string(tx.Side)).
		Int64("id", tx.ID).
		Time("trade_at", tx.TradeAt).
		Msg("Transaction created")
	return tx, nil
}

// UpdateTransaction replaces an existing transaction after re-validating the
// substituted timeline.
func (s *Service) UpdateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if tx.ID == 0 {
		return nil, fmt.Errorf("transaction id required for update: %w", models.ErrNotFound)
	}
	if err := s.checkFields(tx); err != nil {
		return nil, err
	}

	current, err := s.storage.LedgerStore().GetTransaction(ctx, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", tx.ID, models.ErrNotFound)
	}
	if current.PortfolioID != tx.PortfolioID {
		return nil, fmt.Errorf("transaction %d does not belong to portfolio %s: %w", tx.ID, tx.PortfolioID, models.ErrNotFound)
	}

	existing, err := s.storage.LedgerStore().ListTransactions(ctx, tx.PortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for portfolio %s: %w", tx.PortfolioID, err)
	}

	if err := validateTimeline(existing, tx, opUpdate); err != nil {
		return nil, err
	}

	if err := s.storage.LedgerStore().SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction %d: %w", tx.ID, err)
	}

	s.logger.Info().
		Str("portfolio", tx.PortfolioID).
		Int64("id", tx.ID).
		Msg("Transaction updated")
	return tx, nil
}

// DeleteTransaction removes a transaction after checking that the remaining
// timeline still satisfies the inventory invariant (deleting an old buy can
// orphan a later sell).
func (s *Service) DeleteTransaction(ctx context.Context, portfolioID string, id int64) error {
	tx, err := s.storage.LedgerStore().GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	if tx.PortfolioID != portfolioID {
		return fmt.Errorf("transaction %d does not belong to portfolio %s: %w", id, portfolioID, models.ErrNotFound)
	}

	existing, err := s.storage.LedgerStore().ListTransactions(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to load timeline for portfolio %s: %w", portfolioID, err)
	}

	if err := validateTimeline(existing, tx, opDelete); err != nil {
		return err
	}

	if err := s.storage.LedgerStore().DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}

	s.logger.Info().
		Str("portfolio", portfolioID).
		Int64("id", id).
		Msg("Transaction deleted")
	return nil
}

// ListTransactions returns the portfolio timeline in replay order.
func (s *Service) ListTransactions(ctx context.Context, portfolioID string) ([]models.Transaction, error) {
	txs, err := s.storage.LedgerStore().ListTransactions(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for portfolio %s: %w", portfolioID, err)
	}
	models.SortTransactions(txs)
	return txs, nil
}

// Lots replays the full timeline into per-asset lots in base currency.
func (s *Service) Lots(ctx context.Context, portfolioID string) (map[string]models.Lot, error) {
	portfolio, err := s.storage.LedgerStore().GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}
	txs, err := s.ListTransactions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return Replay(txs, s.fxLookup(ctx, portfolio.BaseCurrency), portfolio.BaseCurrency), nil
}

// Positions values the replayed lots at the latest known prices, converted to
// the portfolio base currency. An asset with no latest price falls back to
// its average cost, so totals do not dip while a quote is missing.
func (s *Service) Positions(ctx context.Context, portfolioID string) ([]models.Position, error) {
	portfolio, err := s.storage.LedgerStore().GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}

	txs, err := s.ListTransactions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	lots := Replay(txs, s.fxLookup(ctx, portfolio.BaseCurrency), portfolio.BaseCurrency)
	firstTrade := firstTradeDates(txs)

	var positions []models.Position
	var totalValue float64
	for assetID, lot := range lots {
		if lot.Quantity <= inventoryEpsilon {
			continue
		}

		pos := models.Position{
			AssetID:  assetID,
			Quantity: lot.Quantity,
			AvgCost:  lot.AvgCost(),
		}
		if ft, ok := firstTrade[assetID]; ok {
			t := ft
			pos.FirstTradeAt = &t
		}

		asset, err := s.storage.MarketStore().GetAsset(ctx, assetID)
		if err == nil {
			pos.Symbol = asset.Symbol
			pos.Name = asset.Name
		}

		if price, ok := s.latestBasePrice(ctx, assetID, asset, portfolio.BaseCurrency); ok {
			pos.MarketPrice = price
			pos.MarketValue = lot.Quantity * price
		} else {
			pos.MarketPrice = pos.AvgCost
			pos.MarketValue = lot.Cost
		}
		pos.UnrealizedPL = pos.MarketValue - lot.Cost
		if lot.Cost > 0 {
			pos.UnrealizedPLPct = pos.UnrealizedPL / lot.Cost * 100
		}
		totalValue += pos.MarketValue
		positions = append(positions, pos)
	}

	for i := range positions {
		if totalValue > 0 {
			positions[i].Weight = positions[i].MarketValue / totalValue * 100
		}
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].MarketValue > positions[j].MarketValue
	})
	return positions, nil
}

// Summary aggregates position totals with the stored cash balance.
func (s *Service) Summary(ctx context.Context, portfolioID string) (*models.PortfolioSummary, error) {
	portfolio, err := s.storage.LedgerStore().GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}

	positions, err := s.Positions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	summary := &models.PortfolioSummary{
		PortfolioID:  portfolioID,
		BaseCurrency: portfolio.BaseCurrency,
		CashBalance:  portfolio.CashBalance,
	}
	for _, pos := range positions {
		summary.MarketValue += pos.MarketValue
		summary.CostBasis += pos.Quantity * pos.AvgCost
	}
	summary.UnrealizedPL = summary.MarketValue - summary.CostBasis
	if summary.CostBasis > 0 {
		summary.UnrealizedPLPct = summary.UnrealizedPL / summary.CostBasis * 100
	}
	return summary, nil
}

// Allocation returns current per-asset weights by market value.
func (s *Service) Allocation(ctx context.Context, portfolioID string) ([]models.AllocationItem, error) {
	positions, err := s.Positions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	items := make([]models.AllocationItem, 0, len(positions))
	for _, pos := range positions {
		items = append(items, models.AllocationItem{
			AssetID:     pos.AssetID,
			Symbol:      pos.Symbol,
			MarketValue: pos.MarketValue,
			WeightPct:   pos.Weight,
		})
	}
	return items, nil
}

// checkFields rejects malformed transactions before any timeline work.
func (s *Service) checkFields(tx *models.Transaction) error {
	if tx.PortfolioID == "" {
		return fmt.Errorf("portfolio id required: %w", models.ErrInvalidRange)
	}
	if !models.ValidSide(tx.Side) {
		return fmt.Errorf("unknown side %q: %w", tx.Side, models.ErrInvalidRange)
	}
	if tx.TradeAt.IsZero() {
		return fmt.Errorf("trade timestamp required: %w", models.ErrInvalidRange)
	}
	if tx.TradeCurrency != "" && !validCurrencyCode(tx.TradeCurrency) {
		return fmt.Errorf("trade currency %q: %w", tx.TradeCurrency, models.ErrUnsupportedCurrency)
	}
	if tx.Side.IsTrade() {
		if tx.AssetID == "" {
			return fmt.Errorf("asset id required for %s: %w", tx.Side, models.ErrInvalidRange)
		}
		if tx.Quantity <= 0 {
			return fmt.Errorf("quantity must be positive for %s: %w", tx.Side, models.ErrInvalidRange)
		}
		if tx.Price < 0 {
			return fmt.Errorf("price must not be negative: %w", models.ErrInvalidRange)
		}
	} else {
		if tx.Quantity != 0 {
			return fmt.Errorf("quantity must be zero for %s: %w", tx.Side, models.ErrInvalidRange)
		}
		if tx.Price <= 0 {
			return fmt.Errorf("amount must be positive for %s: %w", tx.Side, models.ErrInvalidRange)
		}
	}
	return nil
}

// validCurrencyCode accepts 3-letter uppercase codes.
func validCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// fxLookup builds a carry-forward FX lookup against the market store. Rate
// series are fetched once per currency and cached for the replay.
func (s *Service) fxLookup(ctx context.Context, baseCurrency string) FXLookup {
	cache := make(map[string][]models.FXRatePoint)
	return func(currency string, day time.Time) (float64, bool) {
		points, ok := cache[currency]
		if !ok {
			var err error
			points, err = s.storage.MarketStore().GetFXRates(ctx, currency, baseCurrency, day.AddDate(10, 0, 0))
			if err != nil {
				points = nil
			}
			cache[currency] = points
		}
		return rateOnOrBefore(points, day)
	}
}

// rateOnOrBefore returns the last rate with date <= day from an ascending
// series.
func rateOnOrBefore(points []models.FXRatePoint, day time.Time) (float64, bool) {
	d := models.Day(day)
	idx := sort.Search(len(points), func(i int) bool {
		return models.Day(points[i].Date).After(d)
	})
	if idx == 0 {
		return 0, false
	}
	return points[idx-1].Rate, true
}

// latestBasePrice converts the latest close of an asset into the portfolio
// base currency using the latest known FX rate.
func (s *Service) latestBasePrice(ctx context.Context, assetID string, asset *models.Asset, baseCurrency string) (float64, bool) {
	point, err := s.storage.MarketStore().LatestPrice(ctx, assetID)
	if err != nil || point == nil {
		return 0, false
	}
	price := point.Close

	quoteCurrency := baseCurrency
	if asset != nil && asset.QuoteCurrency != "" {
		quoteCurrency = asset.QuoteCurrency
	}
	if quoteCurrency == baseCurrency {
		return price, true
	}

	rate, err := s.storage.MarketStore().LatestFXRate(ctx, quoteCurrency, baseCurrency)
	if err != nil || rate == nil {
		return 0, false
	}
	return price * rate.Rate, true
}

// firstTradeDates maps each asset to its earliest trade timestamp.
func firstTradeDates(txs []models.Transaction) map[string]time.Time {
	firsts := make(map[string]time.Time)
	for _, t := range txs {
		if !t.Side.IsTrade() {
			continue
		}
		if ft, ok := firsts[t.AssetID]; !ok || t.TradeAt.Before(ft) {
			firsts[t.AssetID] = t.TradeAt
		}
	}
	return firsts
}
