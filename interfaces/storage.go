// Package interfaces defines service contracts for Valora
package interfaces

import (
	"context"
	"time"

	"github.com/valorafin/valora/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	// Storage accessors
	LedgerStore() LedgerStore
	MarketStore() MarketStore
	AllocationStore() AllocationStore

	// Lifecycle
	Close() error
}

// LedgerStore manages portfolios and their transaction timelines.
type LedgerStore interface {
	// Portfolios
	GetPortfolio(ctx context.Context, id string) (*models.Portfolio, error)
	SavePortfolio(ctx context.Context, p *models.Portfolio) error
	DeletePortfolio(ctx context.Context, id string) error
	ListPortfolios(ctx context.Context) ([]*models.Portfolio, error)

	// Transactions. SaveTransaction assigns a new ID when tx.ID is zero.
	// ListTransactions returns the full timeline for a portfolio in storage
	// order; callers sort with models.SortTransactions.
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, portfolioID string) ([]models.Transaction, error)

	Close() error
}

// MarketStore handles asset, price and FX rate persistence.
type MarketStore interface {
	// Assets
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	GetAssetBySymbol(ctx context.Context, symbol string) (*models.Asset, error)
	SaveAsset(ctx context.Context, a *models.Asset) error
	ListAssets(ctx context.Context) ([]*models.Asset, error)

	// Price history, ascending by date. GetPrices returns all points with
	// date <= end (the carry-forward walk needs the last point on or before
	// the range start, so no lower bound is applied).
	GetPrices(ctx context.Context, assetID string, end time.Time) ([]models.PricePoint, error)
	SavePrices(ctx context.Context, assetID string, points []models.PricePoint) error
	LatestPrice(ctx context.Context, assetID string) (*models.PricePoint, error)

	// FX rate history for a currency pair (e.g. "USD" -> "EUR"), same
	// ordering contract as GetPrices.
	GetFXRates(ctx context.Context, from, to string, end time.Time) ([]models.FXRatePoint, error)
	SaveFXRates(ctx context.Context, from, to string, points []models.FXRatePoint) error
	LatestFXRate(ctx context.Context, from, to string) (*models.FXRatePoint, error)
}

// AllocationStore manages per-portfolio target allocations.
type AllocationStore interface {
	GetTargets(ctx context.Context, portfolioID string) ([]*models.TargetAllocation, error)
	SaveTarget(ctx context.Context, target *models.TargetAllocation) error
	DeleteTarget(ctx context.Context, portfolioID, assetID string) error
}
