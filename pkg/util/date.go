package util

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the only calendar date format accepted for pillars and valuation dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
var ErrInvalidDate = errors.New("util: invalid date")

// ParseDate parses a YYYY-MM-DD date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
	}
	return t, nil
}

// DaysBetween counts whole calendar days from one UTC date to another.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// YearFractionAct365 returns the actual/365 year fraction between two dates.
func YearFractionAct365(from, to time.Time) float64 {
	return float64(DaysBetween(from, to)) / 365
}

// DatesToTimes converts pillar dates into act/365 times from the valuation date.
func DatesToTimes(dates []string, valuationDate string) ([]float64, error) {
	vd, err := ParseDate(valuationDate)
	if err != nil {
		return nil, fmt.Errorf("valuation date: %w", err)
	}
	times := make([]float64, len(dates))
	for i, s := range dates {
		d, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		times[i] = YearFractionAct365(vd, d)
	}
	return times, nil
}
