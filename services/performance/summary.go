package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/valorafin/valora/models"
)

// summaryPeriods are the named lookback windows, in display order.
var summaryPeriods = []string{"1m", "3m", "6m", "ytd", "1y", "3y", "all"}

// periodStart resolves a named period to its start date relative to now.
// "all" returns the zero time, which resolveRange clamps to inception.
func periodStart(period string, now time.Time) (time.Time, error) {
	now = models.Day(now)
	switch period {
	case "1m":
		return now.AddDate(0, -1, 0), nil
	case "3m":
		return now.AddDate(0, -3, 0), nil
	case "6m":
		return now.AddDate(0, -6, 0), nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "1y":
		return now.AddDate(-1, 0, 0), nil
	case "3y":
		return now.AddDate(-3, 0, 0), nil
	case "all":
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unknown period %q: %w", period, models.ErrInvalidRange)
	}
}

// Summary bundles both return measures with flow aggregates for one named
// period ending today.
func (s *Service) Summary(ctx context.Context, portfolioID, period string) (*models.PerformanceSummary, error) {
	now := time.Now().UTC()
	start, err := periodStart(period, now)
	if err != nil {
		return nil, err
	}

	startDay, endDay, err := s.resolveRange(ctx, portfolioID, start, now)
	if err != nil {
		return nil, err
	}

	twr, err := s.TWR(ctx, portfolioID, startDay, endDay)
	if err != nil {
		return nil, err
	}
	mwr, err := s.MWR(ctx, portfolioID, startDay, endDay)
	if err != nil {
		return nil, err
	}

	series, err := s.valuer.BuildSeries(ctx, portfolioID, startDay, endDay)
	if err != nil {
		return nil, err
	}
	flows, err := s.loadFlows(ctx, portfolioID, startDay, endDay)
	if err != nil {
		return nil, err
	}

	summary := &models.PerformanceSummary{
		Period:       period,
		PeriodDays:   daysBetween(startDay, endDay),
		StartDate:    startDay,
		EndDate:      endDay,
		TWR:          *twr,
		MWR:          *mwr,
		CurrentValue: series.ValueOn(endDay),
	}
	for _, amount := range flows {
		if amount > 0 {
			summary.TotalDeposits += amount
		} else {
			summary.TotalWithdrawals += -amount
		}
	}
	summary.NetInvested = summary.TotalDeposits - summary.TotalWithdrawals

	// gain over the window: closing value less opening value and net flows
	summary.AbsoluteGain = summary.CurrentValue - series.ValueOn(startDay) - summary.NetInvested

	return summary, nil
}

// AllSummaries computes every named period in one call.
func (s *Service) AllSummaries(ctx context.Context, portfolioID string) ([]models.PerformanceSummary, error) {
	out := make([]models.PerformanceSummary, 0, len(summaryPeriods))
	for _, period := range summaryPeriods {
		summary, err := s.Summary(ctx, portfolioID, period)
		if err != nil {
			return nil, err
		}
		out = append(out, *summary)
	}
	return out, nil
}
