package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTenor is returned for labels that are not <int><D|W|M|Y>.
var ErrInvalidTenor = errors.New("util: invalid tenor label")

// TenorToYears converts tenor labels like "1W", "3M", "10Y" to act/365 year fractions.
func TenorToYears(label string) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w %q", ErrInvalidTenor, label)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidTenor, label)
	}
	switch s[len(s)-1] {
	case 'D':
		return float64(n) / 365, nil
	case 'W':
		return float64(n*7) / 365, nil
	case 'M':
		return float64(n) / 12, nil
	case 'Y':
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w %q", ErrInvalidTenor, label)
}

// LabelsToTimes converts every label with TenorToYears.
func LabelsToTimes(labels []string) ([]float64, error) {
	times := make([]float64, len(labels))
	for i, l := range labels {
		t, err := TenorToYears(l)
		if err != nil {
			return nil, err
		}
		times[i] = t
	}
	return times, nil
}

// DaysToTimes converts day offsets into act/365 times.
func DaysToTimes(days []int) []float64 {
	times := make([]float64, len(days))
	for i, d := range days {
		times[i] = float64(d) / 365
	}
	return times
}
