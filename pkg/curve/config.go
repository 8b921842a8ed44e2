package curve

import (
	"fmt"

	"github.com/spf13/cast"
)

// Config is the per-curve input. A pillar source counts as supplied when its
// slice is non-nil; when several time sources are supplied the first of
// labels, days, dates, times wins.
type Config struct {
	Labels        []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Days          []int     `json:"days,omitempty" yaml:"days,omitempty"`
	Dates         []string  `json:"dates,omitempty" yaml:"dates,omitempty"`
	Times         []float64 `json:"times,omitempty" yaml:"times,omitempty"`
	Zcs           []float64 `json:"zcs,omitempty" yaml:"zcs,omitempty"`
	Dfs           []float64 `json:"dfs,omitempty" yaml:"dfs,omitempty"`
	Intp          string    `json:"intp,omitempty" yaml:"intp,omitempty"`
	ShortEndFlat  bool      `json:"shortEndFlat,omitempty" yaml:"shortEndFlat,omitempty"`
	LongEndFlat   bool      `json:"longEndFlat,omitempty" yaml:"longEndFlat,omitempty"`
	ValuationDate string    `json:"valuationDate,omitempty" yaml:"valuationDate,omitempty"`
}

func (c Config) clone() Config {
	out := c
	out.Labels = cloneSlice(c.Labels)
	out.Days = cloneSlice(c.Days)
	out.Dates = cloneSlice(c.Dates)
	out.Times = cloneSlice(c.Times)
	out.Zcs = cloneSlice(c.Zcs)
	out.Dfs = cloneSlice(c.Dfs)
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// ParseConfig coerces a loosely typed curve definition, as decoded from
// arbitrary JSON, into a Config. Snake case aliases of the flag and valuation
// date keys are accepted. Unknown keys are ignored.
func ParseConfig(raw map[string]any) (Config, error) {
	var (
		cfg Config
		err error
	)
	if v, ok := raw["labels"]; ok && v != nil {
		if cfg.Labels, err = cast.ToStringSliceE(v); err != nil {
			return Config{}, fmt.Errorf("%w: labels: %v", ErrInvalidPillar, err)
		}
	}
	if v, ok := raw["days"]; ok && v != nil {
		if cfg.Days, err = cast.ToIntSliceE(v); err != nil {
			return Config{}, fmt.Errorf("%w: days: %v", ErrInvalidPillar, err)
		}
	}
	if v, ok := raw["dates"]; ok && v != nil {
		if cfg.Dates, err = cast.ToStringSliceE(v); err != nil {
			return Config{}, fmt.Errorf("%w: dates: %v", ErrInvalidPillar, err)
		}
	}
	for key, dst := range map[string]*[]float64{"times": &cfg.Times, "zcs": &cfg.Zcs, "dfs": &cfg.Dfs} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if *dst, err = toFloat64Slice(v); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidPillar, key, err)
		}
	}
	if v, ok := raw["intp"]; ok && v != nil {
		if cfg.Intp, err = cast.ToStringE(v); err != nil {
			return Config{}, fmt.Errorf("%w: intp: %v", ErrUnknownMethod, err)
		}
	}
	if cfg.ShortEndFlat, err = lookupBool(raw, "shortEndFlat", "short_end_flat"); err != nil {
		return Config{}, err
	}
	if cfg.LongEndFlat, err = lookupBool(raw, "longEndFlat", "long_end_flat"); err != nil {
		return Config{}, err
	}
	for _, key := range []string{"valuationDate", "valuation_date"} {
		if v, ok := raw[key]; ok && v != nil {
			if cfg.ValuationDate, err = cast.ToStringE(v); err != nil {
				return Config{}, fmt.Errorf("%w: %s: %v", ErrMissingValuationDate, key, err)
			}
			break
		}
	}
	return cfg, nil
}

func lookupBool(raw map[string]any, keys ...string) (bool, error) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		b, err := cast.ToBoolE(v)
		if err != nil {
			return false, fmt.Errorf("curve: %s: %w", key, err)
		}
		return b, nil
	}
	return false, nil
}

func toFloat64Slice(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return cloneSlice(s), nil
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out, nil
	}
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = cast.ToFloat64E(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}
