package usecase

import (
	"errors"

	"FinCurve/internal/domain/models"
	domrepo "FinCurve/internal/domain/repository"
	"FinCurve/pkg/curve"
)

var ErrInvalidCurveName = errors.New("invalid curve name")

// Error codes shared by the HTTP API and the error metrics.
const (
	CodeMissingTimeFormat     = "ERR_MISSING_TIME_FORMAT"
	CodeMissingValueFormat    = "ERR_MISSING_VALUE_FORMAT"
	CodeUnknownMethod         = "ERR_UNKNOWN_METHOD"
	CodeLengthMismatch        = "ERR_LENGTH_MISMATCH"
	CodeMissingValuationDate  = "ERR_MISSING_VALUATION_DATE"
	CodeUnsortedTimes         = "ERR_UNSORTED_TIMES"
	CodeInvalidPillar         = "ERR_INVALID_PILLAR"
	CodeInvalidDiscountFactor = "ERR_INVALID_DISCOUNT_FACTOR"
	CodeInvalidGrid           = "ERR_INVALID_GRID"
	CodeInvalidCurveName      = "ERR_INVALID_CURVE_NAME"
	CodeNotFound              = "ERR_NOT_FOUND"
	CodeInternal              = "ERR_INTERNAL"
)

var codes = []struct {
	err  error
	code string
}{
	{curve.ErrMissingTimeFormat, CodeMissingTimeFormat},
	{curve.ErrMissingValueFormat, CodeMissingValueFormat},
	{curve.ErrUnknownMethod, CodeUnknownMethod},
	{curve.ErrLengthMismatch, CodeLengthMismatch},
	{curve.ErrMissingValuationDate, CodeMissingValuationDate},
	{curve.ErrUnsortedTimes, CodeUnsortedTimes},
	{curve.ErrInvalidPillar, CodeInvalidPillar},
	{curve.ErrInvalidDiscountFactor, CodeInvalidDiscountFactor},
	{models.ErrInvalidGrid, CodeInvalidGrid},
	{ErrInvalidCurveName, CodeInvalidCurveName},
	{domrepo.ErrCurveNotFound, CodeNotFound},
	{domrepo.ErrSweepJobNotFound, CodeNotFound},
}

// ErrorCode classifies err. Anything unrecognised is CodeInternal.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// IsInputError reports whether err comes from the request content rather
// than from infrastructure, so retrying cannot help.
func IsInputError(err error) bool {
	code := ErrorCode(err)
	return code != CodeInternal && code != CodeNotFound
}
