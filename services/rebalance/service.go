// Package rebalance turns target-allocation drift into advisory trade
// proposals and commits accepted proposals back into the ledger.
package rebalance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/interfaces"
	"github.com/valorafin/valora/models"
	"github.com/valorafin/valora/services/ledger"
)

// Service implements the rebalance proposal engine
type Service struct {
	storage interfaces.StorageManager
	ledger  *ledger.Service
	logger  *common.Logger
}

// NewService creates a new rebalance service
func NewService(storage interfaces.StorageManager, ledgerSvc *ledger.Service, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		ledger:  ledgerSvc,
		logger:  logger,
	}
}

// candidate is a drift-scored trade under consideration.
type candidate struct {
	proposal models.RebalanceProposal
	score    float64 // |drift|, the selection and allocation weight
	held     float64
}

// Preview computes drift against the target allocation and proposes trades
// without touching the ledger. A candidate that cannot be priced or
// currency-converted is skipped with a warning; the preview itself only fails
// on a bad request or missing portfolio.
func (s *Service) Preview(ctx context.Context, req models.RebalanceRequest) (*models.RebalancePreview, error) {
	if !models.ValidRebalanceMode(req.Mode) {
		return nil, fmt.Errorf("unknown rebalance mode %q: %w", req.Mode, models.ErrInvalidRange)
	}
	if req.MaxTransactions <= 0 {
		req.MaxTransactions = 10
	}
	switch req.Rounding {
	case models.RoundingFractional, models.RoundingInteger:
	case "":
		req.Rounding = models.RoundingFractional
	default:
		return nil, fmt.Errorf("unknown rounding mode %q: %w", req.Rounding, models.ErrInvalidRange)
	}

	portfolio, err := s.storage.LedgerStore().GetPortfolio(ctx, req.PortfolioID)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", req.PortfolioID, models.ErrNotFound)
	}

	positions, err := s.ledger.Positions(ctx, req.PortfolioID)
	if err != nil {
		return nil, err
	}
	targets, err := s.storage.AllocationStore().GetTargets(ctx, req.PortfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets for portfolio %s: %w", req.PortfolioID, err)
	}

	preview := &models.RebalancePreview{
		PortfolioID: req.PortfolioID,
		Mode:        req.Mode,
	}

	posByAsset := make(map[string]models.Position, len(positions))
	var totalValue float64
	for _, pos := range positions {
		posByAsset[pos.AssetID] = pos
		totalValue += pos.MarketValue
	}
	if req.Mode == models.RebalanceModeBuyOnly {
		totalValue += req.CashToAllocate
	}
	if totalValue <= 0 {
		preview.Warnings = append(preview.Warnings, "portfolio has no market value to rebalance against")
		return preview, nil
	}

	candidates := s.collectCandidates(ctx, req, portfolio, targets, posByAsset, totalValue, preview)

	// widest drifts first; keep a working set larger than the cap so that
	// rounding and minimum-order filters can drop entries without starving
	// the final list
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit := req.MaxTransactions * 3; len(candidates) > limit {
		candidates = candidates[:limit]
	}

	proposals := s.allocate(req, candidates, totalValue, preview)

	sort.Slice(proposals, func(i, j int) bool {
		return math.Abs(proposals[i].DriftPct) > math.Abs(proposals[j].DriftPct)
	})
	if len(proposals) > req.MaxTransactions {
		proposals = proposals[:req.MaxTransactions]
	}
	preview.Proposals = proposals

	for _, p := range proposals {
		if p.Side == models.SideBuy {
			preview.Summary.TotalBuys += p.Notional
		} else {
			preview.Summary.TotalSells += p.Notional
		}
	}
	preview.Summary.ResidualCash = req.CashToAllocate + preview.Summary.TotalSells - preview.Summary.TotalBuys
	preview.Summary.ProposalCount = len(proposals)

	s.logger.Info().
		Str("portfolio", req.PortfolioID).
		Str("mode", string(req.Mode)).
		Int("proposals", len(proposals)).
		Int("warnings", len(preview.Warnings)).
		Msg("Rebalance preview computed")
	return preview, nil
}

// collectCandidates scores every targeted asset's drift and prices the
// feasible ones in base currency.
func (s *Service) collectCandidates(
	ctx context.Context,
	req models.RebalanceRequest,
	portfolio *models.Portfolio,
	targets []*models.TargetAllocation,
	posByAsset map[string]models.Position,
	totalValue float64,
	preview *models.RebalancePreview,
) []candidate {
	var candidates []candidate
	for _, target := range targets {
		pos := posByAsset[target.AssetID]
		currentPct := pos.MarketValue / totalValue * 100
		driftPct := currentPct - target.WeightPct

		var side models.Side
		switch {
		case driftPct < 0 && req.Mode != models.RebalanceModeSellOnly:
			side = models.SideBuy
		case driftPct > 0 && req.Mode != models.RebalanceModeBuyOnly:
			side = models.SideSell
		default:
			continue
		}
		if side == models.SideSell && pos.Quantity <= 0 {
			continue
		}

		symbol := target.Symbol
		if symbol == "" {
			symbol = pos.Symbol
		}

		asset, err := s.storage.MarketStore().GetAsset(ctx, target.AssetID)
		if err != nil {
			preview.Warnings = append(preview.Warnings,
				fmt.Sprintf("skipped %s: asset not found", symbolOrID(symbol, target.AssetID)))
			continue
		}
		if symbol == "" {
			symbol = asset.Symbol
		}

		price, currency, ok := s.basePrice(ctx, asset, portfolio.BaseCurrency)
		if !ok {
			preview.Warnings = append(preview.Warnings,
				fmt.Sprintf("skipped %s: no usable price in %s", symbolOrID(symbol, target.AssetID), portfolio.BaseCurrency))
			continue
		}

		candidates = append(candidates, candidate{
			proposal: models.RebalanceProposal{
				AssetID:       target.AssetID,
				Symbol:        symbol,
				Side:          side,
				Price:         price,
				CurrentPct:    currentPct,
				TargetPct:     target.WeightPct,
				DriftPct:      driftPct,
				TradeCurrency: currency,
			},
			score: math.Abs(driftPct),
			held:  pos.Quantity,
		})
	}
	return candidates
}

// allocate sizes each candidate. In buy_only mode the cash budget is split
// pro rata by drift score; otherwise each trade closes its own drift gap
// against the portfolio total.
func (s *Service) allocate(req models.RebalanceRequest, candidates []candidate, totalValue float64, preview *models.RebalancePreview) []models.RebalanceProposal {
	var scoreSum float64
	for _, c := range candidates {
		scoreSum += c.score
	}

	var proposals []models.RebalanceProposal
	for _, c := range candidates {
		p := c.proposal

		var notional float64
		if req.Mode == models.RebalanceModeBuyOnly {
			if scoreSum <= 0 || req.CashToAllocate <= 0 {
				break
			}
			notional = req.CashToAllocate * c.score / scoreSum
		} else {
			notional = c.score / 100 * totalValue
		}

		quantity := roundQuantity(notional/p.Price, req.Rounding)
		if p.Side == models.SideSell && quantity > c.held {
			quantity = roundDownToHeld(c.held, req.Rounding)
		}
		if quantity <= 0 {
			continue
		}

		p.Quantity = quantity
		p.Notional = quantity * p.Price
		if req.MinOrderValue > 0 && p.Notional < req.MinOrderValue {
			preview.Warnings = append(preview.Warnings,
				fmt.Sprintf("skipped %s: order value %.2f below minimum %.2f", p.Symbol, p.Notional, req.MinOrderValue))
			continue
		}
		proposals = append(proposals, p)
	}
	return proposals
}

// basePrice converts the latest close into the base currency. ok is false
// with no latest price or no latest rate for the quote currency.
func (s *Service) basePrice(ctx context.Context, asset *models.Asset, baseCurrency string) (price float64, currency string, ok bool) {
	point, err := s.storage.MarketStore().LatestPrice(ctx, asset.ID)
	if err != nil || point == nil || point.Close <= 0 {
		return 0, "", false
	}

	currency = asset.QuoteCurrency
	if currency == "" {
		currency = baseCurrency
	}
	if currency == baseCurrency {
		return point.Close, currency, true
	}

	rate, err := s.storage.MarketStore().LatestFXRate(ctx, currency, baseCurrency)
	if err != nil || rate == nil || rate.Rate <= 0 {
		return 0, "", false
	}
	return point.Close * rate.Rate, currency, true
}

// roundQuantity applies the requested rounding to a raw quantity.
func roundQuantity(raw float64, mode models.RoundingMode) float64 {
	if mode == models.RoundingInteger {
		return math.Floor(raw)
	}
	q, _ := decimal.NewFromFloat(raw).Round(4).Float64()
	return q
}

// roundDownToHeld caps a sell at the held quantity without rounding past it.
func roundDownToHeld(held float64, mode models.RoundingMode) float64 {
	if mode == models.RoundingInteger {
		return math.Floor(held)
	}
	q, _ := decimal.NewFromFloat(held).RoundFloor(4).Float64()
	return q
}

func symbolOrID(symbol, assetID string) string {
	if symbol != "" {
		return symbol
	}
	return assetID
}

// Commit writes accepted proposals into the ledger one by one. Each item
// carries its own outcome; a failed item never rolls back the others. The
// batch id ties the created transactions' notes together.
func (s *Service) Commit(ctx context.Context, portfolioID string, proposals []models.RebalanceProposal) (*models.RebalanceCommitResult, error) {
	if _, err := s.storage.LedgerStore().GetPortfolio(ctx, portfolioID); err != nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}

	result := &models.RebalanceCommitResult{
		BatchID:     uuid.NewString(),
		PortfolioID: portfolioID,
	}

	now := time.Now().UTC()
	for _, p := range proposals {
		item := models.RebalanceCommitItem{Proposal: p}

		tx, err := s.ledger.CreateTransaction(ctx, &models.Transaction{
			PortfolioID:   portfolioID,
			AssetID:       p.AssetID,
			Side:          p.Side,
			TradeAt:       now,
			Quantity:      p.Quantity,
			Price:         p.Price,
			TradeCurrency: p.TradeCurrency,
			Notes:         "rebalance batch " + result.BatchID,
		})
		if err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			item.TransactionID = tx.ID
			result.Created++
		}
		result.Items = append(result.Items, item)
	}

	s.logger.Info().
		Str("portfolio", portfolioID).
		Str("batch", result.BatchID).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("Rebalance committed")
	return result, nil
}
