package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genstudio/internal/auth"
	"genstudio/internal/logging"
	"genstudio/internal/models"
	"genstudio/internal/storage"
)

var testSecret = []byte("test-secret-key-for-jwt-signing")

type recordingAudit struct {
	mu      sync.Mutex
	entries []logging.AuditEntry
}

func (a *recordingAudit) Record(e logging.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAudit) Shutdown() {}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []string{}
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// generateJWT generates a JWT token for testing
func generateJWT(t *testing.T, subject string, roles ...auth.Role) string {
	t.Helper()
	token, _, err := auth.GenerateJWT(testSecret, subject, roles, time.Hour)
	require.NoError(t, err)
	return token
}

func setupRouter(t *testing.T) (http.Handler, *storage.MemoryPricingStore, *recordingAudit) {
	t.Helper()
	store := storage.NewMemoryPricingStore()
	audit := &recordingAudit{}
	return NewRouter(&Dependencies{Store: store, JWTSecret: testSecret, Audit: audit}), store, audit
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func klingInput() models.PricingModelInput {
	return models.PricingModelInput{
		Tool:     models.ToolVideo,
		Engine:   "kling",
		ModelKey: "kling-v2",
		Name:     "Kling 2",
		Modes:    []string{"standard", "pro"},
	}
}

func TestPricingHandler_CRUD(t *testing.T) {
	router, store, audit := setupRouter(t)
	admin := generateJWT(t, "root", auth.RoleAdmin)
	viewer := generateJWT(t, "studio", auth.RoleViewer)

	input := klingInput()
	require.NoError(t, json.Unmarshal([]byte(`{"720p":{"5":10,"8":15}}`), &input.Pricing))

	rr := doRequest(t, router, http.MethodPost, "/pricing", admin, input)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created models.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.True(t, created.Success)
	require.NotEmpty(t, created.ID)

	rr = doRequest(t, router, http.MethodGet, "/pricing?tool=video", viewer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pricing":{"720p":{"5":10,"8":15}}`)
	var list models.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "kling-v2", list.Data[0].ModelKey)

	rr = doRequest(t, router, http.MethodPatch, "/pricing/"+created.ID+"/cell", admin,
		models.CellUpdate{Resolution: "1080p", Duration: 5, Credits: 20})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	m, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	v, ok := m.Pricing.Get("1080p", "5")
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	input.Name = "Kling 2 Master"
	rr = doRequest(t, router, http.MethodPut, "/pricing/"+created.ID, admin, input)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	m, _ = store.Get(context.Background(), created.ID)
	assert.Equal(t, "Kling 2 Master", m.Name)

	rr = doRequest(t, router, http.MethodDelete, "/pricing/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doRequest(t, router, http.MethodDelete, "/pricing/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	assert.Equal(t, []string{"create", "update_cell", "update", "delete"}, audit.actions())
	assert.Equal(t, "root", audit.entries[0].Subject)
}

func TestPricingHandler_EmptyListIsArray(t *testing.T) {
	router, _, _ := setupRouter(t)
	rr := doRequest(t, router, http.MethodGet, "/pricing", generateJWT(t, "studio", auth.RoleViewer), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rr.Body.String())
}

func TestPricingHandler_Auth(t *testing.T) {
	router, _, _ := setupRouter(t)
	viewer := generateJWT(t, "studio", auth.RoleViewer)

	rr := doRequest(t, router, http.MethodGet, "/pricing", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/pricing", viewer, klingInput())
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)

	rr = doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPricingHandler_BadRequests(t *testing.T) {
	router, _, _ := setupRouter(t)
	admin := generateJWT(t, "root", auth.RoleAdmin)

	rr := doRequest(t, router, http.MethodPost, "/pricing", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	noName := klingInput()
	noName.Name = " "
	rr = doRequest(t, router, http.MethodPost, "/pricing", admin, noName)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Name is required")

	badTool := klingInput()
	badTool.Tool = "audio"
	rr = doRequest(t, router, http.MethodPost, "/pricing", admin, badTool)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/pricing", admin, klingInput())
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = doRequest(t, router, http.MethodPost, "/pricing", admin, klingInput())
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, router, http.MethodPatch, "/pricing/missing/cell", admin, models.CellUpdate{Resolution: "720p", Duration: 5, Credits: 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, router, http.MethodPatch, "/pricing/missing/cell", admin, models.CellUpdate{Resolution: "", Duration: 5})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodPatch, "/pricing/missing/cell", admin, models.CellUpdate{Resolution: "720p", Duration: 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodPut, "/pricing/missing", admin, klingInput())
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, router, http.MethodPatch, "/pricing", admin, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealth_ReportsStoreFailure(t *testing.T) {
	router := NewRouter(&Dependencies{
		Store:     storage.NewMemoryPricingStore(),
		JWTSecret: testSecret,
		Health:    func(context.Context) error { return assert.AnError },
	})
	rr := doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
