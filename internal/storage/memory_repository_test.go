package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/models"
	"genstudio/internal/pricing"
)

func newTestModel(tool models.Tool, engine, key, name string) *models.PricingModel {
	m := pricing.NewMatrix()
	m.Set("720p", "5", 10)
	m.Set("720p", "8", 15)
	return &models.PricingModel{Tool: tool, Engine: engine, ModelKey: key, Name: name, Pricing: m}
}

func TestMemoryPricingStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPricingStore()

	m := newTestModel(models.ToolVideo, "kling", "kling-v2", "Kling 2")
	require.NoError(t, s.Create(ctx, m))
	require.NotEmpty(t, m.ID)
	assert.Equal(t, models.StatusActive, m.Status)
	assert.False(t, m.CreatedAt.IsZero())

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kling 2", got.Name)
	assert.True(t, m.Pricing.Equal(got.Pricing))

	// Returned models are copies.
	got.Pricing.Set("720p", "5", 99)
	again, _ := s.Get(ctx, m.ID)
	v, _ := again.Pricing.Get("720p", "5")
	assert.Equal(t, 10.0, v)

	got.Name = "Kling 2.1"
	require.NoError(t, s.Update(ctx, got))
	again, _ = s.Get(ctx, m.ID)
	assert.Equal(t, "Kling 2.1", again.Name)
	assert.Equal(t, m.CreatedAt, again.CreatedAt)

	require.NoError(t, s.Delete(ctx, m.ID))
	_, err = s.Get(ctx, m.ID)
	assert.ErrorIs(t, err, ErrPricingModelNotFound)
	assert.ErrorIs(t, s.Delete(ctx, m.ID), ErrPricingModelNotFound)
	assert.ErrorIs(t, s.Update(ctx, got), ErrPricingModelNotFound)
}

func TestMemoryPricingStore_DuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPricingStore()

	require.NoError(t, s.Create(ctx, newTestModel(models.ToolVideo, "kling", "kling-v2", "A")))
	assert.ErrorIs(t, s.Create(ctx, newTestModel(models.ToolVideo, "kling", "kling-v2", "B")), ErrDuplicateModelKey)

	other := newTestModel(models.ToolVideo, "kling", "kling-v2", "C")
	other.Version = "2"
	require.NoError(t, s.Create(ctx, other))

	other.Version = ""
	assert.ErrorIs(t, s.Update(ctx, other), ErrDuplicateModelKey)
}

func TestMemoryPricingStore_UpdateCell(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPricingStore()
	m := newTestModel(models.ToolVideo, "kling", "kling-v2", "Kling")
	require.NoError(t, s.Create(ctx, m))

	updated, err := s.UpdateCell(ctx, m.ID, "720p", "5", 12)
	require.NoError(t, err)
	v, _ := updated.Pricing.Get("720p", "5")
	assert.Equal(t, 12.0, v)
	assert.Equal(t, []string{"5", "8"}, pricing.ListOptionsForResolution(updated.Pricing, "720p"))

	updated, err = s.UpdateCell(ctx, m.ID, "1080p", "5", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"720p", "1080p"}, updated.Pricing.Resolutions())

	_, err = s.UpdateCell(ctx, "missing", "720p", "5", 1)
	assert.ErrorIs(t, err, ErrPricingModelNotFound)
}

func TestMemoryPricingStore_ListFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryPricingStore()
	require.NoError(t, s.Create(ctx, newTestModel(models.ToolVideo, "kling", "kling-v2", "Kling")))
	require.NoError(t, s.Create(ctx, newTestModel(models.ToolVideo, "google", "veo-3", "Veo 3")))
	require.NoError(t, s.Create(ctx, newTestModel(models.ToolImage, "bfl", "flux-pro", "Flux Pro")))

	all, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Flux Pro", all[0].Name)

	videos, _ := s.List(ctx, ListFilter{Tool: "video"})
	assert.Len(t, videos, 2)

	byEngine, _ := s.List(ctx, ListFilter{Engine: "Google"})
	require.Len(t, byEngine, 1)
	assert.Equal(t, "veo-3", byEngine[0].ModelKey)

	none, err := s.List(ctx, ListFilter{ModelKey: "nope"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
