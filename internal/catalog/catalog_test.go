package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/models"
	"genstudio/internal/pricingapi"
)

type fakeLister struct {
	results []pricingapi.ListResult
	queries []pricingapi.Query
}

func (f *fakeLister) List(_ context.Context, q pricingapi.Query) pricingapi.ListResult {
	f.queries = append(f.queries, q)
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res
}

func decodeModels(t *testing.T, raw string) []*models.PricingModel {
	t.Helper()
	var out []*models.PricingModel
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

const sampleModels = `[
	{"id":"a","tool":"video","engine":"kling","modelKey":"kling-2.1","name":"Kling 2.1","status":"active",
	 "pricing":{"720p":{"5":10}}},
	{"id":"b","tool":"image","engine":"","modelKey":"flux-pro","name":"FLUX Pro","status":"active",
	 "description":"Photoreal stills","pricing":{"1024":{"1":4}}},
	{"id":"c","tool":"video","engine":"google","modelKey":"veo-3","name":"Veo 3","status":"inactive",
	 "pricing":{}}
]`

func TestCatalog_LoadAndQuery(t *testing.T) {
	src := &fakeLister{results: []pricingapi.ListResult{{Success: true, Data: decodeModels(t, sampleModels)}}}
	c := New(src)

	require.NoError(t, c.Load(context.Background(), pricingapi.Query{Tool: models.ToolVideo}))
	assert.True(t, c.Loaded())
	assert.Len(t, c.Models(), 3)

	m, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, "FLUX Pro", m.Name)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCatalog_SnapshotIsCopied(t *testing.T) {
	src := &fakeLister{results: []pricingapi.ListResult{{Success: true, Data: decodeModels(t, sampleModels)}}}
	c := New(src)
	require.NoError(t, c.Load(context.Background(), pricingapi.Query{}))

	m, _ := c.Get("a")
	m.Name = "changed"
	m.Pricing.Set("720p", "5", 999)

	again, _ := c.Get("a")
	assert.Equal(t, "Kling 2.1", again.Name)
	v, _ := again.Pricing.Get("720p", "5")
	assert.Equal(t, 10.0, v)
}

func TestCatalog_FailedLoadKeepsSnapshot(t *testing.T) {
	src := &fakeLister{results: []pricingapi.ListResult{
		{Success: true, Data: decodeModels(t, sampleModels)},
		{Success: false, Data: []*models.PricingModel{}, Message: "Network request failed: refused"},
	}}
	c := New(src)
	require.NoError(t, c.Load(context.Background(), pricingapi.Query{}))

	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, ErrLoadFailed)
	assert.Contains(t, err.Error(), "refused")
	assert.Len(t, c.Models(), 3)
}

func TestCatalog_RefreshReusesLastQuery(t *testing.T) {
	src := &fakeLister{results: []pricingapi.ListResult{{Success: true, Data: decodeModels(t, sampleModels)}}}
	c := New(src)

	q := pricingapi.Query{Engine: "kling", Version: "2.1"}
	require.NoError(t, c.Load(context.Background(), q))
	require.NoError(t, c.Refresh(context.Background()))

	require.Len(t, src.queries, 2)
	assert.Equal(t, q, src.queries[1])
}

func TestCatalog_Filter(t *testing.T) {
	src := &fakeLister{results: []pricingapi.ListResult{{Success: true, Data: decodeModels(t, sampleModels)}}}
	c := New(src)
	require.NoError(t, c.Load(context.Background(), pricingapi.Query{}))

	ids := func(list []*models.PricingModel) []string {
		out := []string{}
		for _, m := range list {
			out = append(out, m.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "c"}, ids(c.Filter(Filter{Tool: models.ToolVideo})))
	assert.Equal(t, []string{"a"}, ids(c.Filter(Filter{Tool: models.ToolVideo, ActiveOnly: true})))
	assert.Equal(t, []string{"b"}, ids(c.Filter(Filter{Engine: "bfl"})))
	assert.Equal(t, []string{"b"}, ids(c.Filter(Filter{Search: "PHOTOREAL"})))
	assert.Equal(t, []string{"c"}, ids(c.Filter(Filter{Search: "veo-3"})))
	assert.Equal(t, []string{}, ids(c.Filter(Filter{Search: "nothing"})))
}
