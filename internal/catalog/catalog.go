package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"genstudio/internal/logging"
	"genstudio/internal/models"
	"genstudio/internal/pricingapi"
)

// ErrLoadFailed is returned when the pricing service reports failure.
var ErrLoadFailed = errors.New("failed to load pricing catalog")

// Lister fetches pricing models. *pricingapi.Client satisfies it.
type Lister interface {
	List(ctx context.Context, q pricingapi.Query) pricingapi.ListResult
}

// Filter narrows the snapshot. Zero fields match everything.
type Filter struct {
	Tool       models.Tool
	Engine     string
	Search     string
	ActiveOnly bool
}

// Catalog holds the session's snapshot of pricing models. Admin edits made
// elsewhere are not visible until Load or Refresh runs again.
type Catalog struct {
	source Lister
	logger *logging.Logger

	mu     sync.RWMutex
	query  pricingapi.Query
	models []*models.PricingModel
	byID   map[string]*models.PricingModel
	loaded bool
}

// New creates an empty catalog backed by source.
func New(source Lister) *Catalog {
	return &Catalog{
		source: source,
		logger: logging.NewLogger("catalog"),
		byID:   map[string]*models.PricingModel{},
	}
}

// Load fetches the models matching q and replaces the snapshot. On failure
// the previous snapshot is kept.
func (c *Catalog) Load(ctx context.Context, q pricingapi.Query) error {
	res := c.source.List(ctx, q)
	if !res.Success {
		c.logger.Warn("catalog load failed, keeping previous snapshot", "message", res.Message)
		if res.Message != "" {
			return errors.Join(ErrLoadFailed, errors.New(res.Message))
		}
		return ErrLoadFailed
	}

	snapshot := make([]*models.PricingModel, 0, len(res.Data))
	byID := make(map[string]*models.PricingModel, len(res.Data))
	for _, m := range res.Data {
		if m == nil {
			continue
		}
		snapshot = append(snapshot, m)
		if m.ID != "" {
			byID[m.ID] = m
		}
	}

	c.mu.Lock()
	c.query = q
	c.models = snapshot
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()

	c.logger.Debug("catalog loaded", "models", len(snapshot))
	return nil
}

// Refresh re-runs the last query.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.RLock()
	q := c.query
	c.mu.RUnlock()
	return c.Load(ctx, q)
}

// Loaded reports whether a snapshot has been stored.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Models returns a copy of the snapshot in service order.
func (c *Catalog) Models() []*models.PricingModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.PricingModel, len(c.models))
	for i, m := range c.models {
		out[i] = m.Clone()
	}
	return out
}

// Get returns a copy of the model with the given id.
func (c *Catalog) Get(id string) (*models.PricingModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Filter returns copies of the models matching f in service order.
func (c *Catalog) Filter(f Filter) []*models.PricingModel {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []*models.PricingModel{}
	for _, m := range c.models {
		if f.Tool != "" && m.Tool != f.Tool {
			continue
		}
		if f.Engine != "" && !strings.EqualFold(InferEngine(m), f.Engine) {
			continue
		}
		if f.ActiveOnly && !m.IsActive() {
			continue
		}
		if search != "" && !matchesSearch(m, search) {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

func matchesSearch(m *models.PricingModel, search string) bool {
	for _, field := range []string{m.Name, m.ModelKey, m.Engine, m.DescriptionText()} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
