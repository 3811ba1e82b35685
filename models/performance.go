package models

import "time"

// TWRResult is the time-weighted return over a resolved date range.
// TWRAnnualizedPct is nil for periods shorter than a year.
type TWRResult struct {
	TWRPct           float64    `json:"twr_pct"`
	TWRAnnualizedPct *float64   `json:"twr_annualized_pct,omitempty"`
	PeriodDays       int        `json:"period_days"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
}

// MWRResult is the money-weighted (IRR) return over a resolved date range.
// MWRPct is nil when the solver cannot bracket a root (Converged false).
type MWRResult struct {
	MWRPct     *float64  `json:"mwr_pct"`
	Converged  bool      `json:"converged"`
	PeriodDays int       `json:"period_days"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// TWRSeriesPoint is one day of the cumulative TWR chart series.
type TWRSeriesPoint struct {
	Date             time.Time `json:"date"`
	CumulativeTWRPct float64   `json:"cumulative_twr_pct"`
	PortfolioValue   float64   `json:"portfolio_value"`
}

// PerformanceSummary bundles both return measures with flow aggregates for a
// named period (1m, 3m, 6m, ytd, 1y, 3y, all).
type PerformanceSummary struct {
	Period           string    `json:"period"`
	PeriodDays       int       `json:"period_days"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TWR              TWRResult `json:"twr"`
	MWR              MWRResult `json:"mwr"`
	TotalDeposits    float64   `json:"total_deposits"`
	TotalWithdrawals float64   `json:"total_withdrawals"`
	NetInvested      float64   `json:"net_invested"`
	CurrentValue     float64   `json:"current_value"`
	AbsoluteGain     float64   `json:"absolute_gain"`
}

// TargetIndexPoint is one day of a normalized performance index (100 = the
// baseline price level at the reference start date).
type TargetIndexPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TargetPerformer summarizes one allocated asset's return since baseline.
type TargetPerformer struct {
	AssetID   string  `json:"asset_id"`
	Symbol    string  `json:"symbol"`
	ReturnPct float64 `json:"return_pct"`
}

// TargetAssetSeries is the per-asset indexed price series alongside the
// blended target index.
type TargetAssetSeries struct {
	AssetID   string             `json:"asset_id"`
	Symbol    string             `json:"symbol"`
	WeightPct float64            `json:"weight_pct"`
	ReturnPct float64            `json:"return_pct"`
	Points    []TargetIndexPoint `json:"points"`
}

// TargetIndexResult is the target-allocation weighted performance index: the
// blended series plus per-asset breakdowns and best/worst performers.
type TargetIndexResult struct {
	PortfolioID string              `json:"portfolio_id"`
	Points      []TargetIndexPoint  `json:"points"`
	Assets      []TargetAssetSeries `json:"assets"`
	Best        *TargetPerformer    `json:"best,omitempty"`
	Worst       *TargetPerformer    `json:"worst,omitempty"`
}
