package pricing

import (
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Multipliers maps a resolution to its price multiplier in the order the
// admin typed them. It encodes as a JSON object.
type Multipliers = orderedmap.OrderedMap[string, float64]

// NewMultipliers returns an empty multiplier list.
func NewMultipliers() *Multipliers {
	return orderedmap.New[string, float64]()
}

// ParseMultiplierList parses "720p:1, 1080p:1.5". Entries without a value
// or with a non-numeric multiplier are skipped.
func ParseMultiplierList(text string) *Multipliers {
	out := NewMultipliers()
	for _, entry := range strings.Split(text, ",") {
		resolution, raw, found := strings.Cut(entry, ":")
		if !found {
			continue
		}
		resolution = strings.TrimSpace(resolution)
		raw = strings.TrimSpace(raw)
		if resolution == "" || raw == "" {
			continue
		}
		multiplier, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
			continue
		}
		out.Set(resolution, multiplier)
	}
	return out
}

// ParseDurationList parses a comma separated list of integers, discarding
// tokens that are not integers.
func ParseDurationList(text string) []int {
	out := []int{}
	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// BuildMatrix expands a base price per second, a resolution multiplier list
// and a duration list into a full matrix:
// credits = base × multiplier × duration, rounded to two decimals.
// Non-positive durations are ignored.
func BuildMatrix(baseCredits float64, multipliers *Multipliers, durations []int) *Matrix {
	m := NewMatrix()
	if multipliers == nil {
		return m
	}
	for pair := multipliers.Oldest(); pair != nil; pair = pair.Next() {
		for _, d := range durations {
			if d <= 0 {
				continue
			}
			credits := math.Round(baseCredits*pair.Value*float64(d)*100) / 100
			if credits < 0 {
				credits = 0
			}
			m.Set(pair.Key, strconv.Itoa(d), credits)
		}
	}
	return m
}
