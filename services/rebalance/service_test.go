package rebalance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/models"
	"github.com/valorafin/valora/services/ledger"
	"github.com/valorafin/valora/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *memory.Manager) {
	t.Helper()
	store := memory.NewManager()
	logger := common.NewSilentLogger()
	svc := NewService(store, ledger.NewService(store, logger), logger)

	err := store.LedgerStore().SavePortfolio(context.Background(), &models.Portfolio{
		ID: "p1", Name: "Growth", BaseCurrency: "USD",
	})
	require.NoError(t, err)
	return svc, store
}

func seedAsset(t *testing.T, store *memory.Manager, id, symbol string, price float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.MarketStore().SaveAsset(ctx, &models.Asset{
		ID: id, Symbol: symbol, QuoteCurrency: "USD",
	}))
	if price > 0 {
		require.NoError(t, store.MarketStore().SavePrices(ctx, id, []models.PricePoint{
			{Date: day(2024, 6, 1), Close: price},
		}))
	}
}

func seedTarget(t *testing.T, store *memory.Manager, assetID string, weight float64) {
	t.Helper()
	require.NoError(t, store.AllocationStore().SaveTarget(context.Background(), &models.TargetAllocation{
		PortfolioID: "p1", AssetID: assetID, WeightPct: weight,
	}))
}

func seedBuy(t *testing.T, store *memory.Manager, assetID string, qty, price float64) {
	t.Helper()
	require.NoError(t, store.LedgerStore().SaveTransaction(context.Background(), &models.Transaction{
		PortfolioID: "p1", AssetID: assetID, Side: models.SideBuy,
		TradeAt: day(2024, 1, 2), Quantity: qty, Price: price, TradeCurrency: "USD",
	}))
}

func TestPreview_BuyOnlySplitsCashByDriftScore(t *testing.T) {
	// Empty portfolio, targets 60/30: drifts are -60 and -30, so 300 of
	// cash splits 2:1 -> 200 for AAA and 100 for BBB.
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 10)
	seedAsset(t, store, "b", "BBB", 20)
	seedTarget(t, store, "a", 60)
	seedTarget(t, store, "b", 30)

	preview, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeBuyOnly,
		CashToAllocate: 300, MaxTransactions: 10,
	})
	require.NoError(t, err)
	require.Len(t, preview.Proposals, 2)

	byAsset := map[string]models.RebalanceProposal{}
	for _, p := range preview.Proposals {
		byAsset[p.AssetID] = p
	}
	require.InDelta(t, 200, byAsset["a"].Notional, 1e-6)
	require.InDelta(t, 20, byAsset["a"].Quantity, 1e-9) // 200 / 10
	require.InDelta(t, 100, byAsset["b"].Notional, 1e-6)
	require.InDelta(t, 5, byAsset["b"].Quantity, 1e-9) // 100 / 20
	require.Equal(t, models.SideBuy, byAsset["a"].Side)

	require.InDelta(t, 300, preview.Summary.TotalBuys, 1e-6)
	require.InDelta(t, 0, preview.Summary.ResidualCash, 1e-6)
	require.Equal(t, 2, preview.Summary.ProposalCount)
}

func TestPreview_FullRebalanceClosesDriftGap(t *testing.T) {
	// Holdings: 100 AAA @ 10 = 1000, 10 BBB @ 50 = 500; total 1500.
	// Current: AAA 66.67%, BBB 33.33%. Targets: AAA 50, BBB 50.
	// AAA overweight by 16.67% -> sell 250 worth (25 units).
	// BBB underweight by 16.67% -> buy 250 worth (5 units).
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 10)
	seedAsset(t, store, "b", "BBB", 50)
	seedBuy(t, store, "a", 100, 10)
	seedBuy(t, store, "b", 10, 50)
	seedTarget(t, store, "a", 50)
	seedTarget(t, store, "b", 50)

	preview, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeFull, MaxTransactions: 10,
	})
	require.NoError(t, err)
	require.Len(t, preview.Proposals, 2)

	byAsset := map[string]models.RebalanceProposal{}
	for _, p := range preview.Proposals {
		byAsset[p.AssetID] = p
	}
	require.Equal(t, models.SideSell, byAsset["a"].Side)
	require.InDelta(t, 25, byAsset["a"].Quantity, 0.01)
	require.Equal(t, models.SideBuy, byAsset["b"].Side)
	require.InDelta(t, 5, byAsset["b"].Quantity, 0.01)
}

func TestPreview_SellNeverExceedsHeld(t *testing.T) {
	// AAA held 2 units worth 20, target 0%: the drift gap says sell all of
	// the 100% drift (the full portfolio value), but only 2 units exist.
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 10)
	seedBuy(t, store, "a", 2, 10)
	seedTarget(t, store, "a", 0)

	preview, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeSellOnly, MaxTransactions: 10,
	})
	require.NoError(t, err)
	require.Len(t, preview.Proposals, 1)
	require.LessOrEqual(t, preview.Proposals[0].Quantity, 2.0+1e-9)
}

func TestPreview_MissingPriceSkippedWithWarning(t *testing.T) {
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 10)
	seedAsset(t, store, "b", "BBB", 0) // no price saved
	seedTarget(t, store, "a", 50)
	seedTarget(t, store, "b", 50)

	preview, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeBuyOnly,
		CashToAllocate: 100, MaxTransactions: 10,
	})
	require.NoError(t, err)
	require.Len(t, preview.Proposals, 1)
	require.Equal(t, "a", preview.Proposals[0].AssetID)
	require.NotEmpty(t, preview.Warnings)
}

func TestPreview_UnconvertibleCurrencySkippedWithWarning(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.MarketStore().SaveAsset(ctx, &models.Asset{
		ID: "x", Symbol: "XXX", QuoteCurrency: "JPY",
	}))
	require.NoError(t, store.MarketStore().SavePrices(ctx, "x", []models.PricePoint{
		{Date: day(2024, 6, 1), Close: 5000},
	}))
	// no JPY/USD rate stored
	seedTarget(t, store, "x", 100)

	preview, err := svc.Preview(ctx, models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeBuyOnly,
		CashToAllocate: 100, MaxTransactions: 10,
	})
	require.NoError(t, err)
	require.Empty(t, preview.Proposals)
	require.NotEmpty(t, preview.Warnings)
}

func TestPreview_IntegerRoundingFloorsQuantity(t *testing.T) {
	// 100 of cash at price 30 buys 3 whole units, not 3.3333.
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 30)
	seedTarget(t, store, "a", 100)

	preview, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeBuyOnly,
		CashToAllocate: 100, MaxTransactions: 10,
		Rounding: models.RoundingInteger,
	})
	require.NoError(t, err)
	require.Len(t, preview.Proposals, 1)
	require.Equal(t, 3.0, preview.Proposals[0].Quantity)
	require.InDelta(t, 90, preview.Proposals[0].Notional, 1e-9)
	require.InDelta(t, 10, preview.Summary.ResidualCash, 1e-9)
}

func TestPreview_MinOrderValueFilters(t *testing.T) {
	// Drift split gives BBB only 25, below the 50 minimum.
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 10)
	seedAsset(t, store, "b", "BBB", 10)
	seedTarget(t, store, "a", 75)
	seedTarget(t, store, "b", 25)

	preview, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeBuyOnly,
		CashToAllocate: 100, MaxTransactions: 10, MinOrderValue: 50,
	})
	require.NoError(t, err)
	require.Len(t, preview.Proposals, 1)
	require.Equal(t, "a", preview.Proposals[0].AssetID)
	require.NotEmpty(t, preview.Warnings)
}

func TestPreview_MaxTransactionsKeepsWidestDrifts(t *testing.T) {
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 10)
	seedAsset(t, store, "b", "BBB", 10)
	seedAsset(t, store, "c", "CCC", 10)
	seedTarget(t, store, "a", 60)
	seedTarget(t, store, "b", 30)
	seedTarget(t, store, "c", 10)

	preview, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: models.RebalanceModeBuyOnly,
		CashToAllocate: 1000, MaxTransactions: 2,
	})
	require.NoError(t, err)
	require.Len(t, preview.Proposals, 2)
	// the 10% drift candidate is the one cut
	for _, p := range preview.Proposals {
		require.NotEqual(t, "c", p.AssetID)
	}
}

func TestPreview_UnknownModeRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Preview(context.Background(), models.RebalanceRequest{
		PortfolioID: "p1", Mode: "short_everything",
	})
	require.Error(t, err)
}

func TestCommit_WritesTransactionsWithBatchID(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedAsset(t, store, "a", "AAA", 10)

	result, err := svc.Commit(ctx, "p1", []models.RebalanceProposal{
		{AssetID: "a", Symbol: "AAA", Side: models.SideBuy, Quantity: 5, Price: 10, TradeCurrency: "USD"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.BatchID)
	require.Equal(t, 1, result.Created)
	require.Zero(t, result.Failed)
	require.NotZero(t, result.Items[0].TransactionID)

	saved, err := store.LedgerStore().GetTransaction(ctx, result.Items[0].TransactionID)
	require.NoError(t, err)
	require.Contains(t, saved.Notes, result.BatchID)
}

func TestCommit_FailedItemDoesNotRollBackOthers(t *testing.T) {
	// First proposal is a valid buy; second oversells an asset that is not
	// held. The buy lands, the sell reports its error.
	svc, store := newTestService(t)
	seedAsset(t, store, "a", "AAA", 10)
	seedAsset(t, store, "b", "BBB", 10)

	result, err := svc.Commit(context.Background(), "p1", []models.RebalanceProposal{
		{AssetID: "a", Symbol: "AAA", Side: models.SideBuy, Quantity: 5, Price: 10, TradeCurrency: "USD"},
		{AssetID: "b", Symbol: "BBB", Side: models.SideSell, Quantity: 5, Price: 10, TradeCurrency: "USD"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Equal(t, 1, result.Failed)
	require.Empty(t, result.Items[0].Error)
	require.NotEmpty(t, result.Items[1].Error)
}
