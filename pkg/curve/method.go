package curve

import (
	"fmt"
	"strings"
)

// Method names an interpolation scheme.
type Method string

const (
	MethodLinear   Method = "linear"
	MethodLinearZC Method = "linear_zc"
	MethodLinearRT Method = "linear_rt"
	MethodLinearDF Method = "linear_df"
)

// Representation is the value space a method interpolates in.
type Representation int

const (
	RepresentationRate Representation = iota
	RepresentationDiscountFactor
)

func (r Representation) String() string {
	if r == RepresentationDiscountFactor {
		return "discount_factor"
	}
	return "rate"
}

// ParseMethod maps an intp name to a Method. The empty name means linear.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.TrimSpace(name)); m {
	case "":
		return MethodLinear, nil
	case MethodLinear, MethodLinearZC, MethodLinearRT, MethodLinearDF:
		return m, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMethod, name)
}

// Native returns the representation the method interpolates directly.
func (m Method) Native() Representation {
	if m == MethodLinearDF {
		return RepresentationDiscountFactor
	}
	return RepresentationRate
}

// scheme is the interpolation variant a Method dispatches to.
type scheme int

const (
	schemeLinear scheme = iota
	schemeLinearDF
	schemeLinearRT
)

func schemeOf(m Method) (scheme, error) {
	switch m {
	case MethodLinear, MethodLinearZC:
		return schemeLinear, nil
	case MethodLinearDF:
		return schemeLinearDF, nil
	case MethodLinearRT:
		return schemeLinearRT, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownMethod, m)
}
