package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/auth"
	"genstudio/internal/catalog"
	"genstudio/internal/editor"
	"genstudio/internal/models"
	"genstudio/internal/pricing"
	"genstudio/internal/pricingapi"
)

// The admin editor, the catalog and the REST client against a live router.
func TestEditorRoundTrip(t *testing.T) {
	router, _, _ := setupRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx := context.Background()
	client := pricingapi.NewClient(srv.URL, pricingapi.WithToken(generateJWT(t, "root", auth.RoleAdmin)))
	cat := catalog.New(client)
	ed := editor.New(client, cat, true)
	require.True(t, ed.Unlocked())

	id, err := ed.Create(ctx, &models.PricingModelInput{
		Tool:        models.ToolVideo,
		Engine:      "kling",
		ModelKey:    "kling-v2",
		Name:        "Kling 2",
		BaseCredits: 2,
		Resolutions: pricing.ParseMultiplierList("720p:1, 1080p:1.5"),
		Durations:   []int{5, 10},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, cat.Load(ctx, pricingapi.Query{Tool: models.ToolVideo}))
	m, ok := cat.Get(id)
	require.True(t, ok)
	assert.Equal(t, []string{"720p", "1080p"}, pricing.ListResolutions(m.Pricing))
	assert.Equal(t, 10.0, pricing.ResolveCost(m.Pricing, "720p", ""))

	got, err := ed.SetCell(ctx, id, "720p", "5", 12)
	require.NoError(t, err)
	assert.Equal(t, 12.0, got)

	m, _ = cat.Get(id)
	v, _ := m.Pricing.Get("720p", "5")
	assert.Equal(t, 12.0, v)
	assert.Equal(t, []string{"5", "10"}, pricing.ListOptionsForResolution(m.Pricing, "720p"))

	// Rejected locally; the stored matrix is untouched.
	_, err = ed.SetCell(ctx, id, "720p", "5", -1)
	require.Error(t, err)
	require.NoError(t, cat.Refresh(ctx))
	m, _ = cat.Get(id)
	v, _ = m.Pricing.Get("720p", "5")
	assert.Equal(t, 12.0, v)

	require.NoError(t, ed.Delete(ctx, id))
	_, ok = cat.Get(id)
	assert.False(t, ok)
}

func TestClient_ViewerCannotWrite(t *testing.T) {
	router, _, _ := setupRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := pricingapi.NewClient(srv.URL, pricingapi.WithToken(generateJWT(t, "studio", auth.RoleViewer)))
	res := client.Create(context.Background(), &models.PricingModelInput{
		Tool: models.ToolImage, Engine: "bfl", ModelKey: "flux", Name: "Flux",
	})
	assert.False(t, res.Success)
	assert.Equal(t, "Insufficient permissions", res.Message)

	list := client.List(context.Background(), pricingapi.Query{})
	assert.True(t, list.Success)
	assert.NotNil(t, list.Data)

	anon := pricingapi.NewClient(srv.URL)
	list = anon.List(context.Background(), pricingapi.Query{})
	assert.False(t, list.Success)
	assert.Equal(t, "Missing authentication token", list.Message)
}
