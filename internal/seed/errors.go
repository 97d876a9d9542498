package seed

import "errors"

// Sentinel kinds for seed errors.
var (
	ErrSeedFile        = errors.New("seed: cannot read seed file")
	ErrInvalidInvestor = errors.New("seed: invalid investor")
)
