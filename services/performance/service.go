// Package performance computes time-weighted and money-weighted returns over
// the daily valuation series.
package performance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/interfaces"
	"github.com/valorafin/valora/models"
)

// Valuer supplies the daily portfolio value series. The valuation service
// satisfies this; tests substitute a fixture.
type Valuer interface {
	BuildSeries(ctx context.Context, portfolioID string, start, end time.Time) (*models.ValuationSeries, error)
}

// Service implements the performance engine
type Service struct {
	storage interfaces.StorageManager
	valuer  Valuer
	logger  *common.Logger
}

// NewService creates a new performance service
func NewService(storage interfaces.StorageManager, valuer Valuer, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		valuer:  valuer,
		logger:  logger,
	}
}

// resolveRange clamps the requested range to the portfolio inception and
// defaults a zero end to today.
func (s *Service) resolveRange(ctx context.Context, portfolioID string, start, end time.Time) (time.Time, time.Time, error) {
	portfolio, err := s.storage.LedgerStore().GetPortfolio(ctx, portfolioID)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}

	inception := portfolio.Inception()
	if start.IsZero() || models.Day(start).Before(inception) {
		start = inception
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}
	startDay, endDay := models.Day(start), models.Day(end)
	if endDay.Before(startDay) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s before start %s: %w",
			endDay.Format("2006-01-02"), startDay.Format("2006-01-02"), models.ErrInvalidRange)
	}
	return startDay, endDay, nil
}

// loadFlows returns day-summed external cashflows within [start, end].
func (s *Service) loadFlows(ctx context.Context, portfolioID string, start, end time.Time) (map[time.Time]float64, error) {
	txs, err := s.storage.LedgerStore().ListTransactions(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for portfolio %s: %w", portfolioID, err)
	}
	return models.CashflowsByDay(models.ExternalCashflows(txs), start, end), nil
}

// round4 rounds a percentage to 4 decimal places for stable output.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// daysBetween counts whole days from start to end.
func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
