package storage

import (
	"context"
	"strings"

	"genstudio/internal/models"
)

// ListFilter narrows GET /pricing. Empty fields match everything.
type ListFilter struct {
	Tool     string
	Engine   string
	ModelKey string
	Version  string
}

// Matches reports whether m passes the filter.
func (f ListFilter) Matches(m *models.PricingModel) bool {
	if f.Tool != "" && !strings.EqualFold(f.Tool, string(m.Tool)) {
		return false
	}
	if f.Engine != "" && !strings.EqualFold(f.Engine, m.Engine) {
		return false
	}
	if f.ModelKey != "" && f.ModelKey != m.ModelKey {
		return false
	}
	if f.Version != "" && f.Version != m.Version {
		return false
	}
	return true
}

// PricingStore persists pricing models. Writes are last-write-wins.
type PricingStore interface {
	List(ctx context.Context, filter ListFilter) ([]*models.PricingModel, error)
	Get(ctx context.Context, id string) (*models.PricingModel, error)
	Create(ctx context.Context, m *models.PricingModel) error
	Update(ctx context.Context, m *models.PricingModel) error
	// UpdateCell sets one matrix cell, adding it when absent, and returns
	// the updated model.
	UpdateCell(ctx context.Context, id, resolution, option string, credits float64) (*models.PricingModel, error)
	Delete(ctx context.Context, id string) error
}
