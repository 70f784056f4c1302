// Package editor implements the admin pricing matrix editor: local
// validation, single-cell writes and catalog reconciliation after every
// successful write.
package editor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"genstudio/internal/logging"
	"genstudio/internal/models"
	"genstudio/internal/pricing"
	"genstudio/internal/pricingapi"
)

// ErrLocked is returned for writes before the admin session is unlocked.
var ErrLocked = errors.New("admin session is locked")

// Client is the write side of the pricing service.
type Client interface {
	Create(ctx context.Context, input *models.PricingModelInput) pricingapi.Result
	Update(ctx context.Context, id string, input *models.PricingModelInput) pricingapi.Result
	UpdateCell(ctx context.Context, id string, cell models.CellUpdate) pricingapi.Result
	Delete(ctx context.Context, id string) pricingapi.Result
	SetToken(token string)
	HasToken() bool
}

// Snapshot is the catalog the editor reconciles against.
type Snapshot interface {
	Get(id string) (*models.PricingModel, bool)
	Refresh(ctx context.Context) error
}

// Cell identifies one matrix cell of one model.
type Cell struct {
	ModelID    string
	Resolution string
	Duration   string
}

// Editor edits pricing models through the service and keeps the catalog
// snapshot in sync.
type Editor struct {
	client  Client
	catalog Snapshot
	logger  *logging.Logger

	mu       sync.Mutex
	unlocked bool
	saving   map[Cell]int
}

// New creates an editor. With autoLogin the session starts unlocked when
// the client already carries a token.
func New(client Client, catalog Snapshot, autoLogin bool) *Editor {
	return &Editor{
		client:   client,
		catalog:  catalog,
		logger:   logging.NewLogger("editor"),
		unlocked: autoLogin && client.HasToken(),
		saving:   map[Cell]int{},
	}
}

// Unlock installs an admin token and enables writes.
func (e *Editor) Unlock(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("admin token must not be empty")
	}
	e.client.SetToken(token)
	e.mu.Lock()
	e.unlocked = true
	e.mu.Unlock()
	return nil
}

// Unlocked reports whether writes are enabled.
func (e *Editor) Unlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlocked
}

// Saving reports whether a write of the cell is in flight.
func (e *Editor) Saving(modelID, resolution, duration string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving[Cell{ModelID: modelID, Resolution: resolution, Duration: duration}] > 0
}

func (e *Editor) markSaving(c Cell, delta int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving[c] += delta
	if e.saving[c] <= 0 {
		delete(e.saving, c)
	}
}

// LastKnownGood returns the value of a cell in the catalog snapshot. After a
// rejected write the caller reverts its display to this value.
func (e *Editor) LastKnownGood(modelID, resolution, duration string) (float64, bool) {
	m, ok := e.catalog.Get(modelID)
	if !ok {
		return 0, false
	}
	return m.Pricing.Get(resolution, duration)
}

// SetCell validates and writes one cell. Invalid input is rejected before
// any request is made. On success the catalog is re-fetched and the
// persisted value returned.
func (e *Editor) SetCell(ctx context.Context, modelID, resolution, duration string, credits float64) (float64, error) {
	seconds, err := pricing.ValidateCell(resolution, duration, credits)
	if err != nil {
		return 0, err
	}
	if !e.Unlocked() {
		return 0, ErrLocked
	}

	resolution = strings.TrimSpace(resolution)
	key := strconv.Itoa(seconds)
	cell := Cell{ModelID: modelID, Resolution: resolution, Duration: key}

	e.markSaving(cell, 1)
	res := e.client.UpdateCell(ctx, modelID, models.CellUpdate{
		Resolution: resolution,
		Duration:   seconds,
		Credits:    credits,
	})
	e.markSaving(cell, -1)

	if err := pricingapi.Check("update cell", res); err != nil {
		e.logger.Warn("cell write rejected", "model", modelID, "resolution", resolution, "duration", key, "error", err)
		return 0, err
	}
	e.logger.Info("cell saved", "model", modelID, "resolution", resolution, "duration", key, "credits", credits)

	if e.reconcile(ctx) {
		if v, ok := e.LastKnownGood(modelID, resolution, key); ok {
			return v, nil
		}
	}
	return credits, nil
}

// Create validates and adds a model.
func (e *Editor) Create(ctx context.Context, input *models.PricingModelInput) (string, error) {
	if err := ValidateInput(input); err != nil {
		return "", err
	}
	if !e.Unlocked() {
		return "", ErrLocked
	}
	res := e.client.Create(ctx, input)
	if err := pricingapi.Check("create pricing", res); err != nil {
		e.logger.Warn("create rejected", "modelKey", input.ModelKey, "error", err)
		return "", err
	}
	e.reconcile(ctx)
	return res.ID, nil
}

// Update validates and replaces a model.
func (e *Editor) Update(ctx context.Context, id string, input *models.PricingModelInput) error {
	if err := ValidateInput(input); err != nil {
		return err
	}
	if !e.Unlocked() {
		return ErrLocked
	}
	if err := pricingapi.Check("update pricing", e.client.Update(ctx, id, input)); err != nil {
		e.logger.Warn("update rejected", "model", id, "error", err)
		return err
	}
	e.reconcile(ctx)
	return nil
}

// Delete removes a model.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if !e.Unlocked() {
		return ErrLocked
	}
	if err := pricingapi.Check("delete pricing", e.client.Delete(ctx, id)); err != nil {
		e.logger.Warn("delete rejected", "model", id, "error", err)
		return err
	}
	e.reconcile(ctx)
	return nil
}

// reconcile re-fetches the catalog. A failed refresh leaves the previous
// snapshot in place; the write itself already succeeded.
func (e *Editor) reconcile(ctx context.Context) bool {
	if err := e.catalog.Refresh(ctx); err != nil {
		e.logger.Warn("catalog refresh after write failed", "error", err)
		return false
	}
	return true
}

// ValidateInput checks identity fields and the credits of every cell the
// input expands to. Option keys are not checked here since image models
// price by mode labels as well as durations.
func ValidateInput(input *models.PricingModelInput) error {
	if input == nil {
		return &pricing.ValidationError{Field: "body", Reason: "must not be empty"}
	}
	required := []struct{ field, value string }{
		{"engine", input.Engine},
		{"modelKey", input.ModelKey},
		{"name", input.Name},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &pricing.ValidationError{Field: r.field, Reason: "must not be empty"}
		}
	}
	switch input.Tool {
	case models.ToolImage, models.ToolVideo, models.ToolMusic:
	default:
		return &pricing.ValidationError{Field: "tool", Reason: fmt.Sprintf("unknown tool %q", input.Tool)}
	}

	var cellErr error
	input.Matrix().Each(func(resolution, option string, credits float64) {
		if cellErr != nil {
			return
		}
		if strings.TrimSpace(resolution) == "" {
			cellErr = &pricing.ValidationError{Field: "resolution", Reason: "must not be empty"}
			return
		}
		if math.IsNaN(credits) || math.IsInf(credits, 0) || credits < 0 {
			cellErr = &pricing.ValidationError{Field: "credits", Reason: fmt.Sprintf("%s/%s must be a finite non-negative number", resolution, option)}
		}
	})
	return cellErr
}
