package curve

import (
	"errors"

	"FinCurve/pkg/rates"
)

// Construction errors. A curve that fails with one of these is never built.
var (
	ErrMissingTimeFormat    = errors.New("curve: none of labels, days, dates or times supplied")
	ErrMissingValueFormat   = errors.New("curve: neither zcs nor dfs supplied")
	ErrUnknownMethod        = errors.New("curve: unknown interpolation method")
	ErrLengthMismatch       = errors.New("curve: pillar lengths disagree or fewer than two pillars")
	ErrMissingValuationDate = errors.New("curve: dates supplied without valuationDate")
	ErrUnsortedTimes        = errors.New("curve: times must be strictly ascending")
	ErrInvalidPillar        = errors.New("curve: invalid pillar")
)

// ErrInvalidDiscountFactor is the only query-time failure; it also surfaces at
// construction when supplied dfs have no real zero rate.
var ErrInvalidDiscountFactor = rates.ErrInvalidDiscountFactor
