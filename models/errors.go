package models

import "errors"

// Sentinel errors for the engine taxonomy. Services wrap these with context
// via fmt.Errorf("...: %w", ...); callers test with errors.Is.
//
// Per-asset data gaps (missing price, missing FX rate, a non-convergent IRR
// at the MWR surface) are soft conditions and never surface as errors; they
// degrade the result instead.
var (
	// ErrNotFound indicates a missing portfolio, asset or transaction.
	ErrNotFound = errors.New("not found")

	// ErrInventory indicates a sell that would drive the running quantity
	// negative at some point in the replayed timeline.
	ErrInventory = errors.New("insufficient inventory at transaction date")

	// ErrInvalidRange indicates an end date before the start date or an
	// unsupported range/interval request.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrNonConvergentIRR indicates the IRR solver could not bracket a root.
	// The MWR surface reports this as Converged false rather than an error.
	ErrNonConvergentIRR = errors.New("irr did not converge")

	// ErrUnsupportedCurrency indicates a trade currency code that is
	// malformed or cannot be reconciled to the portfolio base currency.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)
