package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/models"
)

// priceSeries is the stored form of an asset's full daily close history.
// Series stay small (one point per trading day) so whole-series upserts are
// cheaper than per-point records.
type priceSeries struct {
	AssetID string `badgerhold:"key"`
	Points  []models.PricePoint
}

// fxSeries is the stored form of a currency pair's rate history, keyed
// "FROM/TO".
type fxSeries struct {
	Pair   string `badgerhold:"key"`
	Points []models.FXRatePoint
}

type marketStorage struct {
	store  *Store
	logger *common.Logger
}

// NewMarketStorage creates a MarketStore backed by BadgerHold.
func NewMarketStorage(store *Store, logger *common.Logger) *marketStorage {
	return &marketStorage{store: store, logger: logger}
}

func fxKey(from, to string) string {
	return strings.ToUpper(from) + "/" + strings.ToUpper(to)
}

func (s *marketStorage) GetAsset(_ context.Context, id string) (*models.Asset, error) {
	var asset models.Asset
	err := s.store.db.Get(id, &asset)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("asset %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return &asset, nil
}

func (s *marketStorage) GetAssetBySymbol(_ context.Context, symbol string) (*models.Asset, error) {
	var assets []models.Asset
	if err := s.store.db.Find(&assets, badgerhold.Where("Symbol").Eq(symbol)); err != nil {
		return nil, fmt.Errorf("failed to find asset %s: %w", symbol, err)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("asset %s: %w", symbol, models.ErrNotFound)
	}
	return &assets[0], nil
}

func (s *marketStorage) SaveAsset(_ context.Context, asset *models.Asset) error {
	if asset.ID == "" {
		return fmt.Errorf("asset id required")
	}
	if err := s.store.db.Upsert(asset.ID, asset); err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	s.logger.Debug().Str("id", asset.ID).Str("symbol", asset.Symbol).Msg("Asset saved")
	return nil
}

func (s *marketStorage) ListAssets(_ context.Context) ([]*models.Asset, error) {
	var assets []models.Asset
	if err := s.store.db.Find(&assets, nil); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	out := make([]*models.Asset, len(assets))
	for i := range assets {
		out[i] = &assets[i]
	}
	return out, nil
}

func (s *marketStorage) GetPrices(_ context.Context, assetID string, end time.Time) ([]models.PricePoint, error) {
	var series priceSeries
	err := s.store.db.Get(assetID, &series)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prices for asset %s: %w", assetID, err)
	}

	endDay := models.Day(end)
	var out []models.PricePoint
	for _, p := range series.Points {
		if models.Day(p.Date).After(endDay) {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *marketStorage) SavePrices(_ context.Context, assetID string, points []models.PricePoint) error {
	var series priceSeries
	err := s.store.db.Get(assetID, &series)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to load prices for asset %s: %w", assetID, err)
	}

	byDay := make(map[time.Time]models.PricePoint, len(series.Points)+len(points))
	for _, p := range series.Points {
		byDay[models.Day(p.Date)] = p
	}
	for _, p := range points {
		byDay[models.Day(p.Date)] = p
	}
	merged := make([]models.PricePoint, 0, len(byDay))
	for _, p := range byDay {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	series.AssetID = assetID
	series.Points = merged
	if err := s.store.db.Upsert(assetID, &series); err != nil {
		return fmt.Errorf("failed to save prices for asset %s: %w", assetID, err)
	}
	return nil
}

func (s *marketStorage) LatestPrice(_ context.Context, assetID string) (*models.PricePoint, error) {
	var series priceSeries
	err := s.store.db.Get(assetID, &series)
	if err == badgerhold.ErrNotFound || (err == nil && len(series.Points) == 0) {
		return nil, fmt.Errorf("no prices for asset %s: %w", assetID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prices for asset %s: %w", assetID, err)
	}
	p := series.Points[len(series.Points)-1]
	return &p, nil
}

func (s *marketStorage) GetFXRates(_ context.Context, from, to string, end time.Time) ([]models.FXRatePoint, error) {
	var series fxSeries
	err := s.store.db.Get(fxKey(from, to), &series)
	if err == badgerhold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s rates: %w", fxKey(from, to), err)
	}

	endDay := models.Day(end)
	var out []models.FXRatePoint
	for _, p := range series.Points {
		if models.Day(p.Date).After(endDay) {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *marketStorage) SaveFXRates(_ context.Context, from, to string, points []models.FXRatePoint) error {
	key := fxKey(from, to)
	var series fxSeries
	err := s.store.db.Get(key, &series)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to load %s rates: %w", key, err)
	}

	byDay := make(map[time.Time]models.FXRatePoint, len(series.Points)+len(points))
	for _, p := range series.Points {
		byDay[models.Day(p.Date)] = p
	}
	for _, p := range points {
		byDay[models.Day(p.Date)] = p
	}
	merged := make([]models.FXRatePoint, 0, len(byDay))
	for _, p := range byDay {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	series.Pair = key
	series.Points = merged
	if err := s.store.db.Upsert(key, &series); err != nil {
		return fmt.Errorf("failed to save %s rates: %w", key, err)
	}
	return nil
}

func (s *marketStorage) LatestFXRate(_ context.Context, from, to string) (*models.FXRatePoint, error) {
	var series fxSeries
	key := fxKey(from, to)
	err := s.store.db.Get(key, &series)
	if err == badgerhold.ErrNotFound || (err == nil && len(series.Points) == 0) {
		return nil, fmt.Errorf("no rates for %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s rates: %w", key, err)
	}
	p := series.Points[len(series.Points)-1]
	return &p, nil
}
