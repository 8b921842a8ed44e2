package http

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseFloat parses a query value as a finite float.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

// ParseFloatDefault parses s or returns def when s is empty.
func ParseFloatDefault(s string, def float64) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return ParseFloat(s)
}
