package models

import (
	"github.com/lib/pq"

	"genstudio/internal/pricing"
)

// PricingModelInput is the body of POST /pricing and PUT /pricing/:id.
//
// The matrix is either sent explicitly in Pricing or expanded from the
// admin form fields BaseCredits × Resolutions × Durations.
type PricingModelInput struct {
	Tool        Tool    `json:"tool"`
	Engine      string  `json:"engine"`
	ModelKey    string  `json:"modelKey"`
	Version     string  `json:"version"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status,omitempty"`

	Pricing     *pricing.Matrix      `json:"pricing,omitempty"`
	BaseCredits float64              `json:"baseCredits,omitempty"`
	Resolutions *pricing.Multipliers `json:"resolutions,omitempty"`
	Durations   []int                `json:"durations,omitempty"`

	Modes        []string `json:"modes,omitempty"`
	AspectRatios []string `json:"aspectRatios,omitempty"`

	RequiresImage    bool `json:"requiresImage,omitempty"`
	SupportsEndImage bool `json:"supportsEndImage,omitempty"`
	PromptOptional   bool `json:"promptOptional,omitempty"`
}

// Matrix returns the explicit matrix, or the one expanded from the form
// fields.
func (in *PricingModelInput) Matrix() *pricing.Matrix {
	if in.Pricing != nil && in.Pricing.Len() > 0 {
		return in.Pricing.Clone()
	}
	return pricing.BuildMatrix(in.BaseCredits, in.Resolutions, in.Durations)
}

// Apply copies the input onto a model record. ID and timestamps are left
// untouched.
func (in *PricingModelInput) Apply(m *PricingModel) {
	m.Tool = in.Tool
	m.Engine = in.Engine
	m.ModelKey = in.ModelKey
	m.Version = in.Version
	m.Name = in.Name
	m.Description = in.Description
	m.Status = in.Status
	if m.Status == "" {
		m.Status = StatusActive
	}
	m.Pricing = in.Matrix()
	m.Modes = pq.StringArray(in.Modes)
	m.AspectRatios = pq.StringArray(in.AspectRatios)
	m.RequiresImage = in.RequiresImage
	m.SupportsEndImage = in.SupportsEndImage
	m.PromptOptional = in.PromptOptional
}

// CellUpdate is the body of PATCH /pricing/:id/cell.
type CellUpdate struct {
	Resolution string  `json:"resolution"`
	Duration   int     `json:"duration"`
	Credits    float64 `json:"credits"`
}

// ListResponse is the envelope of GET /pricing.
type ListResponse struct {
	Success bool            `json:"success"`
	Data    []*PricingModel `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Response is the envelope of every write endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}
