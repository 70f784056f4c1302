package models

import (
	"time"

	"github.com/lib/pq"

	"genstudio/internal/pricing"
)

//
// Pricing enums (stored as TEXT in Postgres)
//

type Tool string
type Status string

const (
	ToolImage Tool = "image"
	ToolVideo Tool = "video"
	ToolMusic Tool = "music"

	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// DefaultAspectRatios applies when a model has no allow-list of its own.
var DefaultAspectRatios = []string{"16:9", "9:16", "1:1", "4:3", "3:4"}

//
// PricingModel (pricing_models table)
//

type PricingModel struct {
	ID string `db:"id" json:"id"` // uuid

	// 1. Identity
	Tool     Tool   `db:"tool" json:"tool"`
	Engine   string `db:"engine" json:"engine"`
	ModelKey string `db:"model_key" json:"modelKey"`
	Version  string `db:"version" json:"version"`

	// 2. Presentation
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
	Status      Status  `db:"status" json:"status"`

	// 3. Pricing & operating profiles
	Pricing      *pricing.Matrix `db:"pricing" json:"pricing"`
	Modes        pq.StringArray  `db:"modes" json:"modes,omitempty"`
	AspectRatios pq.StringArray  `db:"aspect_ratios" json:"aspectRatios,omitempty"`

	// 4. Input capabilities
	RequiresImage    bool `db:"requires_image" json:"requiresImage,omitempty"`
	SupportsEndImage bool `db:"supports_end_image" json:"supportsEndImage,omitempty"`
	PromptOptional   bool `db:"prompt_optional" json:"promptOptional,omitempty"`

	// 5. Timestamps
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the model is offered to studios.
func (m *PricingModel) IsActive() bool {
	return m.Status == "" || m.Status == StatusActive
}

// DefaultMode returns the first operating mode label, or "".
func (m *PricingModel) DefaultMode() string {
	if len(m.Modes) == 0 {
		return ""
	}
	return m.Modes[0]
}

// AllowedAspectRatios returns the model's allow-list or the system default.
func (m *PricingModel) AllowedAspectRatios() []string {
	if len(m.AspectRatios) > 0 {
		return m.AspectRatios
	}
	return DefaultAspectRatios
}

// DescriptionText returns the description or "".
func (m *PricingModel) DescriptionText() string {
	if m.Description == nil {
		return ""
	}
	return *m.Description
}

// Clone returns a deep copy so snapshots can be handed out safely.
func (m *PricingModel) Clone() *PricingModel {
	c := *m
	c.Pricing = m.Pricing.Clone()
	if m.Modes != nil {
		c.Modes = append(pq.StringArray(nil), m.Modes...)
	}
	if m.AspectRatios != nil {
		c.AspectRatios = append(pq.StringArray(nil), m.AspectRatios...)
	}
	if m.Description != nil {
		d := *m.Description
		c.Description = &d
	}
	return &c
}
