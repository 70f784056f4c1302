package jobs

import (
	"errors"
	"fmt"

	"genstudio/internal/models"
	"genstudio/internal/pricing"
)

// Descriptor modes.
const (
	ModeSingle = "single"
	ModeMulti  = "multi"
	ModeAuto   = "auto"
)

// MaxQuantity is the most generations one single-mode job may ask for.
const MaxQuantity = 4

// ErrInvalidJob is returned when a descriptor cannot be priced.
var ErrInvalidJob = errors.New("invalid job")

// Quote prices d against its model and overwrites d.Cost. A sequence pays
// one unit per transition between frames, every other job one unit per
// generation. Client supplied costs are never trusted.
func Quote(m *models.PricingModel, d *Descriptor) error {
	if !m.IsActive() {
		return fmt.Errorf("%w: model %s is not active", ErrInvalidJob, m.ID)
	}
	option := pricing.OptionFor(m.Pricing, d.Resolution, d.Option, d.ModeLabel)
	if len(pricing.ListOptionsForResolution(m.Pricing, d.Resolution)) == 0 {
		return fmt.Errorf("%w: resolution %q is not priced for %s", ErrInvalidJob, d.Resolution, m.ModelKey)
	}
	unit := pricing.ResolveCost(m.Pricing, d.Resolution, option)

	var units int
	switch d.Mode {
	case ModeSingle:
		if d.Quantity < 1 || d.Quantity > MaxQuantity {
			return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidJob, MaxQuantity)
		}
		units = d.Quantity
	case ModeAuto:
		if d.Quantity != 1 {
			return fmt.Errorf("%w: auto jobs generate once", ErrInvalidJob)
		}
		units = 1
	case ModeMulti:
		frames := 0
		for _, media := range d.Media {
			if media.Slot == SlotFrame {
				frames++
			}
		}
		if frames < 2 {
			return fmt.Errorf("%w: a sequence needs at least 2 frames", ErrInvalidJob)
		}
		units = frames - 1
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidJob, d.Mode)
	}

	d.Option = option
	d.ModelKey = m.ModelKey
	d.Cost = unit * float64(units)
	return nil
}
