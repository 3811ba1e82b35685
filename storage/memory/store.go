// Package memory provides an in-process storage backend, used for tests and
// embedded callers that do not need persistence.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/valorafin/valora/interfaces"
	"github.com/valorafin/valora/models"
)

// Manager implements interfaces.StorageManager over in-memory maps.
type Manager struct {
	ledger     *ledgerStore
	market     *marketStore
	allocation *allocationStore
}

// NewManager creates an empty in-memory storage manager.
func NewManager() *Manager {
	return &Manager{
		ledger: &ledgerStore{
			portfolios:   make(map[string]models.Portfolio),
			transactions: make(map[int64]models.Transaction),
		},
		market: &marketStore{
			assets: make(map[string]models.Asset),
			prices: make(map[string][]models.PricePoint),
			fx:     make(map[string][]models.FXRatePoint),
		},
		allocation: &allocationStore{
			targets: make(map[string][]models.TargetAllocation),
		},
	}
}

func (m *Manager) LedgerStore() interfaces.LedgerStore         { return m.ledger }
func (m *Manager) MarketStore() interfaces.MarketStore         { return m.market }
func (m *Manager) AllocationStore() interfaces.AllocationStore { return m.allocation }

func (m *Manager) Close() error { return nil }

// ledgerStore holds portfolios and transactions behind a single mutex.
type ledgerStore struct {
	mu           sync.RWMutex
	portfolios   map[string]models.Portfolio
	transactions map[int64]models.Transaction
	nextTxID     int64
}

func (s *ledgerStore) GetPortfolio(_ context.Context, id string) (*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (s *ledgerStore) SavePortfolio(_ context.Context, p *models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		return fmt.Errorf("portfolio id required")
	}
	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	s.portfolios[p.ID] = *p
	return nil
}

func (s *ledgerStore) DeletePortfolio(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[id]; !ok {
		return fmt.Errorf("portfolio %s: %w", id, models.ErrNotFound)
	}
	delete(s.portfolios, id)
	for txID, tx := range s.transactions {
		if tx.PortfolioID == id {
			delete(s.transactions, txID)
		}
	}
	return nil
}

func (s *ledgerStore) ListPortfolios(_ context.Context) ([]*models.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ledgerStore) GetTransaction(_ context.Context, id int64) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	return &tx, nil
}

func (s *ledgerStore) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == 0 {
		s.nextTxID++
		tx.ID = s.nextTxID
	} else if tx.ID > s.nextTxID {
		s.nextTxID = tx.ID
	}
	s.transactions[tx.ID] = *tx
	return nil
}

func (s *ledgerStore) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *ledgerStore) ListTransactions(_ context.Context, portfolioID string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.PortfolioID == portfolioID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ledgerStore) Close() error { return nil }

// marketStore holds assets, price series and FX series.
type marketStore struct {
	mu     sync.RWMutex
	assets map[string]models.Asset
	prices map[string][]models.PricePoint  // assetID -> ascending by date
	fx     map[string][]models.FXRatePoint // "FROM/TO" -> ascending by date
}

func fxKey(from, to string) string {
	return strings.ToUpper(from) + "/" + strings.ToUpper(to)
}

func (s *marketStore) GetAsset(_ context.Context, id string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, models.ErrNotFound)
	}
	return &a, nil
}

func (s *marketStore) GetAssetBySymbol(_ context.Context, symbol string) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assets {
		if strings.EqualFold(a.Symbol, symbol) {
			cp := a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("asset %s: %w", symbol, models.ErrNotFound)
}

func (s *marketStore) SaveAsset(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		return fmt.Errorf("asset id required")
	}
	s.assets[a.ID] = *a
	return nil
}

func (s *marketStore) ListAssets(_ context.Context) ([]*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *marketStore) GetPrices(_ context.Context, assetID string, end time.Time) ([]models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	endDay := models.Day(end)
	var out []models.PricePoint
	for _, p := range s.prices[assetID] {
		if models.Day(p.Date).After(endDay) {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *marketStore) SavePrices(_ context.Context, assetID string, points []models.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := mergeByDay(s.prices[assetID], points,
		func(p models.PricePoint) time.Time { return p.Date })
	s.prices[assetID] = merged
	return nil
}

func (s *marketStore) LatestPrice(_ context.Context, assetID string) (*models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.prices[assetID]
	if len(series) == 0 {
		return nil, fmt.Errorf("no prices for asset %s: %w", assetID, models.ErrNotFound)
	}
	p := series[len(series)-1]
	return &p, nil
}

func (s *marketStore) GetFXRates(_ context.Context, from, to string, end time.Time) ([]models.FXRatePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	endDay := models.Day(end)
	var out []models.FXRatePoint
	for _, p := range s.fx[fxKey(from, to)] {
		if models.Day(p.Date).After(endDay) {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *marketStore) SaveFXRates(_ context.Context, from, to string, points []models.FXRatePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fxKey(from, to)
	merged := mergeByDay(s.fx[key], points,
		func(p models.FXRatePoint) time.Time { return p.Date })
	s.fx[key] = merged
	return nil
}

func (s *marketStore) LatestFXRate(_ context.Context, from, to string) (*models.FXRatePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.fx[fxKey(from, to)]
	if len(series) == 0 {
		return nil, fmt.Errorf("no rates for %s: %w", fxKey(from, to), models.ErrNotFound)
	}
	p := series[len(series)-1]
	return &p, nil
}

// mergeByDay merges new points into an existing ascending series, replacing
// same-day points.
func mergeByDay[T any](existing, incoming []T, dateOf func(T) time.Time) []T {
	byDay := make(map[time.Time]T, len(existing)+len(incoming))
	for _, p := range existing {
		byDay[models.Day(dateOf(p))] = p
	}
	for _, p := range incoming {
		byDay[models.Day(dateOf(p))] = p
	}
	out := make([]T, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return dateOf(out[i]).Before(dateOf(out[j])) })
	return out
}

// allocationStore holds target allocations keyed by portfolio.
type allocationStore struct {
	mu      sync.RWMutex
	targets map[string][]models.TargetAllocation
}

func (s *allocationStore) GetTargets(_ context.Context, portfolioID string) ([]*models.TargetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TargetAllocation, 0, len(s.targets[portfolioID]))
	for _, t := range s.targets[portfolioID] {
		cp := t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *allocationStore) SaveTarget(_ context.Context, target *models.TargetAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.targets[target.PortfolioID]
	for i, t := range list {
		if t.AssetID == target.AssetID {
			list[i] = *target
			s.targets[target.PortfolioID] = list
			return nil
		}
	}
	s.targets[target.PortfolioID] = append(list, *target)
	return nil
}

func (s *allocationStore) DeleteTarget(_ context.Context, portfolioID, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.targets[portfolioID]
	for i, t := range list {
		if t.AssetID == assetID {
			s.targets[portfolioID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("target %s/%s: %w", portfolioID, assetID, models.ErrNotFound)
}
