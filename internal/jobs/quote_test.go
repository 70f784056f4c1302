package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/models"
	"genstudio/internal/pricing"
)

func pricedModel() *models.PricingModel {
	m := pricing.NewMatrix()
	m.Set("720p", "5", 10)
	m.Set("720p", "8", 15)
	m.Set("1080p", "5", 25)
	return &models.PricingModel{ID: "m1", ModelKey: "kling-v2", Status: models.StatusActive, Pricing: m}
}

func frames(n int) []MediaInput {
	out := make([]MediaInput, n)
	for i := range out {
		out[i] = MediaInput{Slot: SlotFrame, Index: i, MediaID: "f"}
	}
	return out
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		desc     Descriptor
		expected float64
	}{
		{name: "single times quantity", desc: Descriptor{Mode: ModeSingle, Resolution: "1080p", Quantity: 4}, expected: 100},
		{name: "explicit option", desc: Descriptor{Mode: ModeSingle, Resolution: "720p", Option: "8", Quantity: 1}, expected: 15},
		{name: "auto one unit", desc: Descriptor{Mode: ModeAuto, Resolution: "720p", Quantity: 1}, expected: 10},
		{name: "multi per transition", desc: Descriptor{Mode: ModeMulti, Resolution: "720p", Quantity: 1, Media: frames(3)}, expected: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.desc
			d.Cost = 0
			require.NoError(t, Quote(pricedModel(), &d))
			assert.Equal(t, tt.expected, d.Cost)
			assert.Equal(t, "kling-v2", d.ModelKey)
		})
	}
}

func TestQuote_OverridesClientCost(t *testing.T) {
	d := Descriptor{Mode: ModeSingle, Resolution: "720p", Quantity: 2, Cost: 0.01}
	require.NoError(t, Quote(pricedModel(), &d))
	assert.Equal(t, 20.0, d.Cost)
}

func TestQuote_Rejects(t *testing.T) {
	inactive := pricedModel()
	inactive.Status = models.StatusInactive

	tests := []struct {
		name  string
		model *models.PricingModel
		desc  Descriptor
	}{
		{name: "inactive model", model: inactive, desc: Descriptor{Mode: ModeSingle, Resolution: "720p", Quantity: 1}},
		{name: "unpriced resolution", model: pricedModel(), desc: Descriptor{Mode: ModeSingle, Resolution: "4k", Quantity: 1}},
		{name: "quantity too large", model: pricedModel(), desc: Descriptor{Mode: ModeSingle, Resolution: "720p", Quantity: 5}},
		{name: "zero quantity", model: pricedModel(), desc: Descriptor{Mode: ModeSingle, Resolution: "720p"}},
		{name: "auto quantity", model: pricedModel(), desc: Descriptor{Mode: ModeAuto, Resolution: "720p", Quantity: 3}},
		{name: "one frame sequence", model: pricedModel(), desc: Descriptor{Mode: ModeMulti, Resolution: "720p", Quantity: 1, Media: frames(1)}},
		{name: "unknown mode", model: pricedModel(), desc: Descriptor{Mode: "batch", Resolution: "720p", Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.desc
			assert.ErrorIs(t, Quote(tt.model, &d), ErrInvalidJob)
		})
	}
}
