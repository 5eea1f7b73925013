package book

import "errors"

var (
	ErrInvalidSize  = errors.New("invalid size")
	ErrInvalidPrice = errors.New("invalid price")
	// ErrNoLiquidity rejects a market order the opposite side cannot fully
	// fill (excluding the owner's own resting orders).
	ErrNoLiquidity = errors.New("insufficient liquidity")
	ErrNotFound    = errors.New("order not found")
)
