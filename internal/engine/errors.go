package engine

import "errors"

// Error kinds surfaced by the core. All are returned as values; a
// matcher-internal invariant violation is raised as a panic instead,
// since it signals a defect rather than a market condition.
var (
	ErrInvalidOrder          = errors.New("engine: invalid order")
	ErrInsufficientLiquidity = errors.New("engine: insufficient liquidity")
	ErrFokUnfillable         = errors.New("engine: fill-or-kill order could not be fully filled")
	ErrUnknownSymbol         = errors.New("engine: unknown symbol")
)
