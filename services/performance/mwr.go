package performance

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/valorafin/valora/models"
)

// irrProbes are starting points for the bracket ladder when neither the wide
// bracket nor Newton iteration finds a root.
var irrProbes = []float64{-0.9, -0.5, -0.2, 0, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// MWR computes the money-weighted (IRR) return from the investor's
// perspective: the opening value and every deposit are money out, every
// withdrawal and the closing value are money in. The opening value covers
// holdings only, so a deposit dated on the start day still counts as money
// out. The solved rate is annual, with time in 365-day year fractions.
//
// A non-convergent solve is not an error: the result comes back with
// Converged false and a nil rate.
func (s *Service) MWR(ctx context.Context, portfolioID string, start, end time.Time) (*models.MWRResult, error) {
	startDay, endDay, err := s.resolveRange(ctx, portfolioID, start, end)
	if err != nil {
		return nil, err
	}

	series, err := s.valuer.BuildSeries(ctx, portfolioID, startDay, endDay)
	if err != nil {
		return nil, err
	}
	flowsByDay, err := s.loadFlows(ctx, portfolioID, startDay, endDay)
	if err != nil {
		return nil, err
	}

	result := &models.MWRResult{
		StartDate:  startDay,
		EndDate:    endDay,
		PeriodDays: daysBetween(startDay, endDay),
	}

	var flows []models.ExternalCashflow
	if v := series.ValueOn(startDay); v > 0 {
		flows = append(flows, models.ExternalCashflow{Date: startDay, Amount: -v})
	}
	for day, amount := range flowsByDay {
		if amount != 0 {
			flows = append(flows, models.ExternalCashflow{Date: day, Amount: -amount})
		}
	}
	if v := series.ValueOn(endDay); v > 0 {
		flows = append(flows, models.ExternalCashflow{Date: endDay, Amount: v})
	}
	sort.Slice(flows, func(i, j int) bool { return flows[i].Date.Before(flows[j].Date) })

	hasNeg, hasPos := false, false
	for _, f := range flows {
		if f.Amount < 0 {
			hasNeg = true
		}
		if f.Amount > 0 {
			hasPos = true
		}
	}
	if !hasNeg || !hasPos {
		return result, nil
	}

	rate, err := solveIRR(flows)
	if errors.Is(err, models.ErrNonConvergentIRR) || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return result, nil
	}

	pct := round4(rate * 100)
	result.MWRPct = &pct
	result.Converged = true
	return result, nil
}

// npv discounts the flows at an annual rate, with time measured in 365-day
// year fractions from the first flow.
func npv(flows []models.ExternalCashflow, rate float64) float64 {
	base := flows[0].Date
	sum := 0.0
	for _, f := range flows {
		years := f.Date.Sub(base).Hours() / 24 / 365
		d := 1 + rate
		if d <= 0 {
			return math.NaN()
		}
		sum += f.Amount / math.Pow(d, years)
	}
	return sum
}

// solveIRR finds the annual rate with NPV zero. It tries, in order: bisection
// on the wide bracket [-0.9999, 10]; Newton-Raphson from 0.1; bisection on
// the first sign-changing interval of the probe ladder. When every leg fails
// it returns models.ErrNonConvergentIRR.
func solveIRR(flows []models.ExternalCashflow) (float64, error) {
	if rate, ok := bisectIRR(flows, -0.9999, 10); ok {
		return rate, nil
	}
	if rate, ok := newtonIRR(flows, 0.1); ok {
		return rate, nil
	}
	for i := 0; i+1 < len(irrProbes); i++ {
		lo, hi := irrProbes[i], irrProbes[i+1]
		if rate, ok := bisectIRR(flows, lo, hi); ok {
			return rate, nil
		}
	}
	return 0, models.ErrNonConvergentIRR
}

// bisectIRR runs bisection on [lo, hi]; ok is false when the NPV does not
// change sign over the bracket.
func bisectIRR(flows []models.ExternalCashflow, lo, hi float64) (float64, bool) {
	const (
		maxIter = 200
		tol     = 1e-7
	)

	npvLo, npvHi := npv(flows, lo), npv(flows, hi)
	if math.IsNaN(npvLo) || math.IsNaN(npvHi) || npvLo*npvHi > 0 {
		return 0, false
	}

	for iter := 0; iter < maxIter; iter++ {
		mid := (lo + hi) / 2
		npvMid := npv(flows, mid)
		if math.IsNaN(npvMid) {
			return 0, false
		}
		if math.Abs(npvMid) < tol {
			return mid, true
		}
		if npvMid*npvLo < 0 {
			hi = mid
		} else {
			lo = mid
			npvLo = npvMid
		}
	}
	return (lo + hi) / 2, true
}

// newtonIRR runs Newton-Raphson from an initial guess.
func newtonIRR(flows []models.ExternalCashflow, guess float64) (float64, bool) {
	const (
		maxIter = 100
		tol     = 1e-7
		minRate = -0.9999
		maxRate = 100.0
	)

	base := flows[0].Date
	rate := guess
	for iter := 0; iter < maxIter; iter++ {
		value, derivative := 0.0, 0.0
		for _, f := range flows {
			years := f.Date.Sub(base).Hours() / 24 / 365
			d := 1 + rate
			if d <= 0 {
				rate = minRate
				d = 1 + rate
			}
			discount := math.Pow(d, years)
			if discount == 0 {
				continue
			}
			value += f.Amount / discount
			if years != 0 {
				derivative -= years * f.Amount / (discount * d)
			}
		}

		if math.Abs(value) < tol {
			return rate, true
		}
		if derivative == 0 {
			return 0, false
		}

		next := rate - value/derivative
		if next < minRate {
			next = minRate
		}
		if next > maxRate {
			next = maxRate
		}
		if math.Abs(next-rate) < tol {
			return next, math.Abs(npv(flows, next)) < 1e-4
		}
		rate = next
	}
	return 0, false
}
