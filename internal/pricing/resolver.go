package pricing

import (
	"math"
	"strconv"
)

// ListResolutions returns the resolutions of the matrix in insertion order.
func ListResolutions(m *Matrix) []string {
	return m.Resolutions()
}

// ListOptionsForResolution returns the duration/mode options priced under a
// resolution. An unknown resolution yields an empty list.
func ListOptionsForResolution(m *Matrix, resolution string) []string {
	opts := m.Options(resolution)
	if opts == nil {
		return []string{}
	}
	keys := make([]string, 0, opts.Len())
	for pair := opts.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// ResolveCost returns the unit cost of (resolution, option).
//
// An absent resolution costs 0. An empty or unknown option falls back to the
// first option of the resolution, so a half-configured selection still
// renders a price. A resolution without options costs 0.
func ResolveCost(m *Matrix, resolution, option string) float64 {
	if !m.Has(resolution) {
		return 0
	}
	opts := m.Options(resolution)
	if opts == nil {
		return 0
	}

	if option != "" {
		if v, ok := opts.Get(option); ok {
			return float64(v)
		}
	}

	first := opts.Oldest()
	if first == nil {
		return 0
	}
	return float64(first.Value)
}

// OptionFor returns the option key to price. Image models key their cells
// by mode label, so an unset option falls back to the label when the
// resolution prices it.
func OptionFor(m *Matrix, resolution, option, modeLabel string) string {
	if option != "" || modeLabel == "" {
		return option
	}
	if _, ok := m.Get(resolution, modeLabel); ok {
		return modeLabel
	}
	return ""
}

// PriceRange flattens every cell and returns its minimum and maximum.
// An empty matrix returns (NaN, NaN).
func PriceRange(m *Matrix) (min, max float64) {
	min, max = math.NaN(), math.NaN()
	m.Each(func(_, _ string, credits float64) {
		if math.IsNaN(min) || credits < min {
			min = credits
		}
		if math.IsNaN(max) || credits > max {
			max = credits
		}
	})
	return min, max
}

// RangeLabel formats the price range for a model picker badge. ok is false
// when the matrix has no cells and the badge should be hidden.
func RangeLabel(m *Matrix) (label string, ok bool) {
	min, max := PriceRange(m)
	if math.IsNaN(min) || math.IsNaN(max) {
		return "", false
	}
	if min == max {
		return FormatCredits(min), true
	}
	return FormatCredits(min) + "–" + FormatCredits(max), true
}

// FormatCredits renders credits without trailing zeros.
func FormatCredits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
