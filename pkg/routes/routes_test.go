package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomMcIver/Stock-Port/internal/app"
	"github.com/TomMcIver/Stock-Port/internal/repositories/memory"
	"github.com/TomMcIver/Stock-Port/pkg/middleware"
	"github.com/TomMcIver/Stock-Port/pkg/models"
	"github.com/TomMcIver/Stock-Port/pkg/persistence"
	"github.com/TomMcIver/Stock-Port/pkg/routes/health"
	"github.com/TomMcIver/Stock-Port/pkg/routes/tag"
	"github.com/TomMcIver/Stock-Port/pkg/tagging"
)

type testAPI struct {
	t       *testing.T
	e       *echo.Echo
	store   *memory.Store
	engine  *tagging.Engine
	checker *health.Checker
	changes int
}

func newTestAPI(t *testing.T, withPersister bool) *testAPI {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	store := memory.NewStore()
	_, err := store.Create(context.Background(), models.CreateSecurityRequest{Symbol: "AAPL", CanonicalName: "Apple Inc.", Aliases: []string{"Apple"}})
	require.NoError(t, err)

	engine := tagging.NewEngine(logger, store, nil, tagging.DefaultConfig())
	engine.Refresh(context.Background())

	api := &testAPI{t: t, store: store, engine: engine, checker: health.NewChecker("test")}
	services := app.Services{
		Logger:  logger,
		Engine:  engine,
		Store:   store.AsStore(),
		Workers: 4,
		OnChange: func(ctx context.Context) {
			api.changes++
			engine.Refresh(ctx)
		},
	}
	if withPersister {
		services.Adapter = persistence.NewAdapter(logger, store, store.Associations())
	}
	_, err = app.RegisterServices(services)
	require.NoError(t, err)

	api.e = New(Dependencies{Logger: logger, Health: api.checker})
	return api
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestTag(t *testing.T) {
	api := newTestAPI(t, true)

	rec := api.do(http.MethodPost, "/api/v1/tag", map[string]any{
		"document_id": "doc-1",
		"body":        "Apple (AAPL) shares rose; trades as ZYXQ on NASDAQ",
		"persist":     true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[tag.Response](t, rec)
	assert.Equal(t, "doc-1", resp.DocumentID)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "AAPL", resp.Results[0].Symbol)
	require.NotNil(t, resp.Persist)
	assert.Equal(t, 2, resp.Persist.Associated)
	assert.Equal(t, 1, resp.Persist.SecuritiesCreated)

	rec = api.do(http.MethodGet, "/api/v1/documents/doc-1/associations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Association](t, rec), 2)

	rec = api.do(http.MethodGet, "/api/v1/securities/zyxq/associations?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Association](t, rec), 1)
}

func TestTag_Validation(t *testing.T) {
	api := newTestAPI(t, false)

	tests := []struct {
		name string
		body any
		code int
	}{
		{name: "no text", body: map[string]any{"document_id": "d"}, code: http.StatusBadRequest},
		{name: "persist without id", body: map[string]any{"body": "AAPL", "persist": true}, code: http.StatusBadRequest},
		{name: "persist not configured", body: map[string]any{"document_id": "d", "body": "AAPL", "persist": true}, code: http.StatusServiceUnavailable},
		{name: "title only", body: map[string]any{"title": "AAPL rallies"}, code: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/tag", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				assert.NotEmpty(t, decode[middleware.ErrorResponse](t, rec).Message)
			}
		})
	}

	rec := api.do(http.MethodPost, "/api/v1/tag", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTagBatch(t *testing.T) {
	api := newTestAPI(t, false)

	docs := make([]map[string]any, 0, 20)
	for i := 0; i < 20; i++ {
		body := "nothing to see"
		if i%2 == 0 {
			body = "AAPL stock climbed"
		}
		docs = append(docs, map[string]any{"document_id": fmt.Sprintf("doc-%d", i), "body": body})
	}

	rec := api.do(http.MethodPost, "/api/v1/tag/batch", map[string]any{"documents": docs})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[tag.BatchResponse](t, rec)
	require.Len(t, resp.Documents, 20)
	for i, doc := range resp.Documents {
		assert.Equal(t, fmt.Sprintf("doc-%d", i), doc.DocumentID)
		if i%2 == 0 {
			require.Len(t, doc.Results, 1)
			assert.Equal(t, "AAPL", doc.Results[0].Symbol)
		} else {
			assert.Empty(t, doc.Results)
		}
	}

	tooMany := make([]map[string]any, tag.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = map[string]any{"body": "AAPL"}
	}
	rec = api.do(http.MethodPost, "/api/v1/tag/batch", map[string]any{"documents": tooMany})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/tag/batch", map[string]any{"documents": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReference(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodGet, "/api/v1/reference/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[tagging.Stats](t, rec).Symbols)

	_, err := api.store.Create(context.Background(), models.CreateSecurityRequest{Symbol: "MSFT", CanonicalName: "Microsoft"})
	require.NoError(t, err)

	rec = api.do(http.MethodPost, "/api/v1/reference/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[tagging.Stats](t, rec).Symbols)
}

type deniedGuard struct{}

func (deniedGuard) Guard(_ context.Context, _ func(ctx context.Context) error) error {
	return errors.New("lock not acquired")
}

func TestReference_ReloadConflict(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	store := memory.NewStore()
	engine := tagging.NewEngine(logger, store, nil, tagging.DefaultConfig(), tagging.WithReloadGuard(deniedGuard{}))
	_, err := app.RegisterServices(app.Services{Logger: logger, Engine: engine, Store: store.AsStore()})
	require.NoError(t, err)
	e := New(Dependencies{Logger: logger})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reference/reload", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRoutes_UnregisteredServices(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	_, err := ectoinject.NewDIDefaultContainer()
	require.NoError(t, err)
	api := &testAPI{t: t, e: New(Dependencies{Logger: logger})}

	rec := api.do(http.MethodPost, "/api/v1/tag", map[string]any{"body": "AAPL"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode[middleware.ErrorResponse](t, rec).Message, "service unavailable")

	rec = api.do(http.MethodGet, "/api/v1/reference/stats", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/securities", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/documents/doc-1/associations", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecurities(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodPost, "/api/v1/securities", map[string]any{
		"symbol":          "NVDA",
		"canonical_name":  "NVIDIA Corporation",
		"market_cap_tier": "large",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, api.changes)

	rec = api.do(http.MethodPost, "/api/v1/securities", map[string]any{"symbol": "NVDA"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/securities", map[string]any{"symbol": "TOOLONG"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/securities", map[string]any{"symbol": "AMD", "market_cap_tier": "huge"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/api/v1/securities/NVDA/aliases", map[string]any{"aliases": []string{"Nvidia"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Nvidia"}, decode[models.SecurityRecord](t, rec).Aliases)

	// The alias is live once the change hook refreshed the engine
	results := api.engine.TagDocument(context.Background(), "", "Nvidia beat estimates", "")
	require.Len(t, results, 1)
	assert.Equal(t, "NVDA", results[0].Symbol)

	rec = api.do(http.MethodPost, "/api/v1/securities/NVDA/aliases", map[string]any{"aliases": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, "/api/v1/securities/NVDA/active", map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.SecurityRecord](t, rec).Active)

	rec = api.do(http.MethodPut, "/api/v1/securities/NVDA/active", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/securities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.SecurityRecord](t, rec), 2)

	rec = api.do(http.MethodGet, "/api/v1/securities?active=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.SecurityRecord](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/v1/securities/nvda", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NVIDIA Corporation", decode[models.SecurityRecord](t, rec).CanonicalName)

	rec = api.do(http.MethodGet, "/api/v1/securities/ZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/securities/AAPL/associations?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, false)

	rec := api.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	api.checker.SetReady(true)
	rec = api.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.checker.AddCheck("database", func(_ context.Context) error { return errors.New("connection refused") })
	rec = api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decode[health.HealthStatus](t, rec)
	assert.Equal(t, "unhealthy", status.Checks["database"].Status)

	// Tagging populates the counters exposed on /metrics
	api.do(http.MethodPost, "/api/v1/tag", map[string]any{"body": "AAPL"})
	rec = api.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "symtag_"), "metrics should expose symtag series")
}
