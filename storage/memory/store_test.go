package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/valorafin/valora/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLedgerStore_TransactionIDsAreSequential(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	first := &models.Transaction{PortfolioID: "p1", Side: models.SideDeposit, TradeAt: day(2024, 1, 1), Price: 100}
	second := &models.Transaction{PortfolioID: "p1", Side: models.SideDeposit, TradeAt: day(2024, 1, 2), Price: 50}
	require.NoError(t, mgr.LedgerStore().SaveTransaction(ctx, first))
	require.NoError(t, mgr.LedgerStore().SaveTransaction(ctx, second))

	require.Equal(t, int64(1), first.ID)
	require.Equal(t, int64(2), second.ID)
}

func TestLedgerStore_ListFiltersByPortfolio(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	require.NoError(t, mgr.LedgerStore().SaveTransaction(ctx, &models.Transaction{
		PortfolioID: "p1", Side: models.SideDeposit, TradeAt: day(2024, 1, 1), Price: 100,
	}))
	require.NoError(t, mgr.LedgerStore().SaveTransaction(ctx, &models.Transaction{
		PortfolioID: "p2", Side: models.SideDeposit, TradeAt: day(2024, 1, 1), Price: 200,
	}))

	txs, err := mgr.LedgerStore().ListTransactions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "p1", txs[0].PortfolioID)
}

func TestLedgerStore_DeletePortfolioRemovesTransactions(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	require.NoError(t, mgr.LedgerStore().SavePortfolio(ctx, &models.Portfolio{ID: "p1", BaseCurrency: "USD"}))
	require.NoError(t, mgr.LedgerStore().SaveTransaction(ctx, &models.Transaction{
		PortfolioID: "p1", Side: models.SideDeposit, TradeAt: day(2024, 1, 1), Price: 100,
	}))

	require.NoError(t, mgr.LedgerStore().DeletePortfolio(ctx, "p1"))

	_, err := mgr.LedgerStore().GetPortfolio(ctx, "p1")
	require.True(t, errors.Is(err, models.ErrNotFound))
	txs, err := mgr.LedgerStore().ListTransactions(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestMarketStore_SavePricesMergesAndReplacesSameDay(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	require.NoError(t, mgr.MarketStore().SavePrices(ctx, "a", []models.PricePoint{
		{Date: day(2024, 1, 1), Close: 10},
		{Date: day(2024, 1, 3), Close: 12},
	}))
	// correction for Jan 1 plus a new Jan 2 point, delivered out of order
	require.NoError(t, mgr.MarketStore().SavePrices(ctx, "a", []models.PricePoint{
		{Date: day(2024, 1, 2), Close: 11},
		{Date: day(2024, 1, 1), Close: 10.5},
	}))

	prices, err := mgr.MarketStore().GetPrices(ctx, "a", day(2024, 12, 31))
	require.NoError(t, err)
	require.Len(t, prices, 3)
	require.Equal(t, 10.5, prices[0].Close)
	require.Equal(t, 11.0, prices[1].Close)
	require.Equal(t, 12.0, prices[2].Close)
}

func TestMarketStore_GetPricesHonorsEndBound(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	require.NoError(t, mgr.MarketStore().SavePrices(ctx, "a", []models.PricePoint{
		{Date: day(2024, 1, 1), Close: 10},
		{Date: day(2024, 1, 5), Close: 12},
	}))

	prices, err := mgr.MarketStore().GetPrices(ctx, "a", day(2024, 1, 3))
	require.NoError(t, err)
	require.Len(t, prices, 1)
}

func TestMarketStore_LatestFXRateIsCaseInsensitiveOnPair(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	require.NoError(t, mgr.MarketStore().SaveFXRates(ctx, "usd", "eur", []models.FXRatePoint{
		{Date: day(2024, 1, 1), Rate: 0.9},
	}))

	rate, err := mgr.MarketStore().LatestFXRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	require.Equal(t, 0.9, rate.Rate)
}

func TestAllocationStore_SaveTargetUpserts(t *testing.T) {
	mgr := NewManager()
	ctx := context.Background()

	require.NoError(t, mgr.AllocationStore().SaveTarget(ctx, &models.TargetAllocation{
		PortfolioID: "p1", AssetID: "a", WeightPct: 60,
	}))
	require.NoError(t, mgr.AllocationStore().SaveTarget(ctx, &models.TargetAllocation{
		PortfolioID: "p1", AssetID: "a", WeightPct: 40,
	}))

	targets, err := mgr.AllocationStore().GetTargets(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, 40.0, targets[0].WeightPct)
}

func TestAllocationStore_DeleteMissingTargetNotFound(t *testing.T) {
	mgr := NewManager()
	err := mgr.AllocationStore().DeleteTarget(context.Background(), "p1", "ghost")
	require.True(t, errors.Is(err, models.ErrNotFound))
}
