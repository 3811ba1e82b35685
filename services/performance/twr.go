package performance

import (
	"context"
	"math"
	"time"

	"github.com/valorafin/valora/models"
)

// TWR computes the time-weighted return over the range by chain-linking
// sub-periods delimited by external cashflow days. Flows are treated as
// end-of-day: the value on a flow day has the flow stripped out before the
// sub-period return is taken, so deposit and withdrawal timing never moves
// the result.
//
// When the portfolio has no value at the range start (inception-era ranges
// begin before the first deposit), the start auto-advances to the first day
// with a positive net inflow.
func (s *Service) TWR(ctx context.Context, portfolioID string, start, end time.Time) (*models.TWRResult, error) {
	startDay, endDay, err := s.resolveRange(ctx, portfolioID, start, end)
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

	result := &models.TWRResult{StartDate: startDay, EndDate: endDay}

	if series.ValueOn(startDay) == 0 {
		advanced, ok := firstInflowDay(flows, startDay, endDay)
		if !ok {
			result.PeriodDays = daysBetween(startDay, endDay)
			return result, nil
		}
		startDay = advanced
		result.StartDate = startDay
	}
	result.PeriodDays = daysBetween(startDay, endDay)

	// The advanced start's value already contains any opening deposit; it is
	// the basis, not a flow to strip.
	growth := 1.0
	prevValue := series.ValueOn(startDay)

	for day := startDay.AddDate(0, 0, 1); !day.After(endDay); day = day.AddDate(0, 0, 1) {
		flow, isFlowDay := flows[day]
		if !isFlowDay && !day.Equal(endDay) {
			continue
		}

		value := series.ValueOn(day)
		if prevValue > 0 {
			growth *= (value - flow) / prevValue
		}
		prevValue = value
	}

	result.TWRPct = round4((growth - 1) * 100)
	if result.PeriodDays >= 365 {
		if ann, ok := annualize(growth, result.PeriodDays); ok {
			annPct := round4(ann * 100)
			result.TWRAnnualizedPct = &annPct
		}
	}
	return result, nil
}

// TWRSeries returns the daily cumulative TWR alongside the portfolio value,
// suitable for charting.
func (s *Service) TWRSeries(ctx context.Context, portfolioID string, start, end time.Time) ([]models.TWRSeriesPoint, error) {
	startDay, endDay, err := s.resolveRange(ctx, portfolioID, start, end)
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

	if series.ValueOn(startDay) == 0 {
		advanced, ok := firstInflowDay(flows, startDay, endDay)
		if !ok {
			return nil, nil
		}
		startDay = advanced
	}

	points := make([]models.TWRSeriesPoint, 0, daysBetween(startDay, endDay)+1)
	growth := 1.0
	prevValue := series.ValueOn(startDay)
	points = append(points, models.TWRSeriesPoint{
		Date:           startDay,
		PortfolioValue: prevValue,
	})

	for day := startDay.AddDate(0, 0, 1); !day.After(endDay); day = day.AddDate(0, 0, 1) {
		value := series.ValueOn(day)
		flow := flows[day]
		if prevValue > 0 {
			growth *= (value - flow) / prevValue
		}
		prevValue = value
		points = append(points, models.TWRSeriesPoint{
			Date:             day,
			CumulativeTWRPct: round4((growth - 1) * 100),
			PortfolioValue:   value,
		})
	}
	return points, nil
}

// firstInflowDay finds the earliest day in [start, end] with a positive net
// external flow.
func firstInflowDay(flows map[time.Time]float64, start, end time.Time) (time.Time, bool) {
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if flows[day] > 0 {
			return day, true
		}
	}
	return time.Time{}, false
}

// annualize converts a cumulative growth factor over days into an annual
// rate. ok is false when the factor is non-positive, where a fractional
// exponent is undefined.
func annualize(growth float64, days int) (float64, bool) {
	if growth <= 0 || days <= 0 {
		return 0, false
	}
	return math.Pow(growth, 365/float64(days)) - 1, true
}
