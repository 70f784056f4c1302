package pricing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMatrix(t *testing.T, raw string) *Matrix {
	t.Helper()
	m := NewMatrix()
	require.NoError(t, json.Unmarshal([]byte(raw), m))
	return m
}

func TestResolveCost(t *testing.T) {
	m := mustMatrix(t, `{"720p":{"5":10,"8":15},"1080p":{"5":15}}`)

	tests := []struct {
		name       string
		resolution string
		option     string
		expected   float64
	}{
		{name: "explicit option", resolution: "720p", option: "8", expected: 15},
		{name: "no option falls back to first", resolution: "720p", option: "", expected: 10},
		{name: "single available option", resolution: "1080p", option: "", expected: 15},
		{name: "unknown option falls back to first", resolution: "1080p", option: "10", expected: 15},
		{name: "absent resolution", resolution: "4k", option: "", expected: 0},
		{name: "absent resolution with option", resolution: "4k", option: "5", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveCost(m, tt.resolution, tt.option))
		})
	}
}

func TestResolveCost_FirstKeyIsOrderStable(t *testing.T) {
	// Keys are deliberately not in sorted order.
	m := mustMatrix(t, `{"1080p":{"10":30,"5":15},"720p":{"8":12,"3":6}}`)

	for i := 0; i < 50; i++ {
		assert.Equal(t, 30.0, ResolveCost(m, "1080p", ""))
		assert.Equal(t, 12.0, ResolveCost(m, "720p", ""))
	}
}

func TestResolveCost_DegradesToZero(t *testing.T) {
	assert.Equal(t, 0.0, ResolveCost(nil, "720p", "5"))
	assert.Equal(t, 0.0, ResolveCost(NewMatrix(), "720p", ""))

	m := mustMatrix(t, `{"720p":{}}`)
	assert.Equal(t, 0.0, ResolveCost(m, "720p", ""))

	m = mustMatrix(t, `{"720p":"broken","1080p":{"5":"20","8":"abc"}}`)
	assert.Equal(t, 0.0, ResolveCost(m, "720p", ""))
	assert.Equal(t, 20.0, ResolveCost(m, "1080p", "5"))
	assert.Equal(t, 0.0, ResolveCost(m, "1080p", "8"))
}

func TestListResolutions(t *testing.T) {
	assert.Equal(t, []string{}, ListResolutions(NewMatrix()))
	assert.Equal(t, []string{}, ListResolutions(nil))

	m := mustMatrix(t, `{"1080p":{"5":15},"720p":{"5":10},"4k":{"5":40}}`)
	assert.Equal(t, []string{"1080p", "720p", "4k"}, ListResolutions(m))
}

func TestListOptionsForResolution(t *testing.T) {
	m := mustMatrix(t, `{"720p":{"8":15,"5":10}}`)

	assert.Equal(t, []string{"8", "5"}, ListOptionsForResolution(m, "720p"))
	assert.Equal(t, []string{}, ListOptionsForResolution(m, "missing"))
	assert.Equal(t, []string{}, ListOptionsForResolution(nil, "720p"))
}

func TestPriceRange(t *testing.T) {
	m := mustMatrix(t, `{"720p":{"5":10,"8":15},"1080p":{"5":15,"8":22.5}}`)
	min, max := PriceRange(m)
	assert.Equal(t, 10.0, min)
	assert.Equal(t, 22.5, max)

	min, max = PriceRange(NewMatrix())
	assert.True(t, math.IsNaN(min))
	assert.True(t, math.IsNaN(max))
}

func TestRangeLabel(t *testing.T) {
	label, ok := RangeLabel(mustMatrix(t, `{"720p":{"5":10,"8":15}}`))
	assert.True(t, ok)
	assert.Equal(t, "10–15", label)

	label, ok = RangeLabel(mustMatrix(t, `{"720p":{"5":10}}`))
	assert.True(t, ok)
	assert.Equal(t, "10", label)

	label, ok = RangeLabel(mustMatrix(t, `{"720p":{}}`))
	assert.False(t, ok)
	assert.Empty(t, label)
}

func TestOptionFor(t *testing.T) {
	m := mustMatrix(t, `{"1024":{"fast":2,"relaxed":1}}`)

	assert.Equal(t, "relaxed", OptionFor(m, "1024", "relaxed", "fast"))
	assert.Equal(t, "fast", OptionFor(m, "1024", "", "fast"))
	assert.Equal(t, "", OptionFor(m, "1024", "", "turbo"))
	assert.Equal(t, "", OptionFor(m, "2048", "", "fast"))
	assert.Equal(t, "", OptionFor(nil, "1024", "", "fast"))
}
