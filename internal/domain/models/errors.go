package models

import "errors"

// Domain error taxonomy. Configuration errors are fatal before a run starts;
// the others are recoverable at single-rebalance granularity and become fatal
// only when they empty the whole schedule or equity curve.
var (
	ErrConfiguration          = errors.New("configuration error")
	ErrDataInsufficiency      = errors.New("insufficient data")
	ErrModelFit               = errors.New("model fit failed")
	ErrOptimizationInfeasible = errors.New("optimization infeasible")
)
