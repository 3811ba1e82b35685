package models

// RebalanceMode constrains which trade directions a preview may propose.
type RebalanceMode string

const (
	RebalanceModeBuyOnly  RebalanceMode = "buy_only"
	RebalanceModeFull     RebalanceMode = "rebalance"
	RebalanceModeSellOnly RebalanceMode = "sell_only"
)

// ValidRebalanceMode returns true if m is a recognized mode.
func ValidRebalanceMode(m RebalanceMode) bool {
	return m == RebalanceModeBuyOnly || m == RebalanceModeFull || m == RebalanceModeSellOnly
}

// RoundingMode selects how proposal notionals convert to quantities.
type RoundingMode string

const (
	RoundingFractional RoundingMode = "fractional" // round to 4 decimal places
	RoundingInteger    RoundingMode = "integer"    // floor to whole shares
)

// RebalanceRequest parameterizes a preview.
type RebalanceRequest struct {
	PortfolioID     string        `json:"portfolio_id"`
	Mode            RebalanceMode `json:"mode"`
	CashToAllocate  float64       `json:"cash_to_allocate,omitempty"` // buy_only budget
	MaxTransactions int           `json:"max_transactions"`
	MinOrderValue   float64       `json:"min_order_value"`
	Rounding        RoundingMode  `json:"rounding"`
}

// RebalanceProposal is one suggested trade. Price and Notional are in the
// portfolio base currency; Quantity is already rounded per the request.
type RebalanceProposal struct {
	AssetID       string  `json:"asset_id"`
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	Notional      float64 `json:"notional"`
	CurrentPct    float64 `json:"current_pct"`
	TargetPct     float64 `json:"target_pct"`
	DriftPct      float64 `json:"drift_pct"`
	TradeCurrency string  `json:"trade_currency"`
}

// RebalanceSummary aggregates the proposal list.
type RebalanceSummary struct {
	TotalBuys     float64 `json:"total_buys"`
	TotalSells    float64 `json:"total_sells"`
	ResidualCash  float64 `json:"residual_cash"` // cash input + sells - buys
	ProposalCount int     `json:"proposal_count"`
}

// RebalancePreview is the advisory output of the proposal engine. Warnings
// carry human-readable skip reasons; a bad candidate never fails the preview.
type RebalancePreview struct {
	PortfolioID string              `json:"portfolio_id"`
	Mode        RebalanceMode       `json:"mode"`
	Proposals   []RebalanceProposal `json:"proposals"`
	Summary     RebalanceSummary    `json:"summary"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// RebalanceCommitItem records the outcome of one committed proposal.
type RebalanceCommitItem struct {
	Proposal      RebalanceProposal `json:"proposal"`
	TransactionID int64             `json:"transaction_id,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// RebalanceCommitResult is the per-item outcome of committing a preview.
// Failed items do not roll back succeeded ones.
type RebalanceCommitResult struct {
	BatchID     string                `json:"batch_id"`
	PortfolioID string                `json:"portfolio_id"`
	Items       []RebalanceCommitItem `json:"items"`
	Created     int                   `json:"created"`
	Failed      int                   `json:"failed"`
}
