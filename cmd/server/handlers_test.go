package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Simplici0/calcengine/internal/catalog"
	"github.com/Simplici0/calcengine/internal/db"
	"github.com/Simplici0/calcengine/internal/migrations"
	"github.com/Simplici0/calcengine/internal/observability"
	"github.com/Simplici0/calcengine/internal/pricing"
	"github.com/Simplici0/calcengine/internal/quoting"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database))

	store := catalog.NewStore(database)
	_, err = store.Upsert(context.Background(), pricing.Item{
		ID:             "bolt",
		Name:           "Bolt",
		UnitPrice:      decimal.NewFromInt(100),
		Classification: pricing.Standard,
		Active:         true,
	})
	require.NoError(t, err)

	registry := pricing.NewRegistry(pricing.Options{
		Now:   func() time.Time { return time.Date(2024, time.October, 10, 10, 0, 0, 0, time.UTC) },
		NewID: func() string { return "calc-test" },
	})
	metrics := observability.NewMetrics()
	srv := &server{
		quotes: quoting.NewService(quoting.Options{
			Registry:          registry,
			Products:          store,
			Metrics:           metrics,
			DefaultCalculator: "primary",
			Workers:           2,
		}),
		products: store,
		metrics:  metrics,
		logger:   zap.NewNop(),
	}
	return srv.routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndCalculators(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/calculators", "")
	require.Equal(t, http.StatusOK, rec.Code)
	infos := decode[[]quoting.CalculatorInfo](t, rec)
	assert.Len(t, infos, 6)
}

func TestProductsEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/products", `{"id":"lamp","name":"Desk lamp","unitPrice":"35.50","classification":"premium","stockQuantity":4,"reorderLevel":2,"active":true}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[catalog.Product](t, rec)
	assert.Equal(t, pricing.Premium, created.Classification)

	rec = do(t, h, http.MethodPost, "/products", `{"id":"lamp","unitPrice":"36","classification":"premium","active":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/products/lamp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[catalog.Product](t, rec)
	assert.True(t, got.UnitPrice.Equal(decimal.NewFromInt(36)))

	rec = do(t, h, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]catalog.Product](t, rec), 2)

	rec = do(t, h, http.MethodGet, "/products/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/products", `{"id":"bad","unitPrice":"-1","classification":"standard"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/products", `{"id":"bad","classification":"gold"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/calculations", `{"productId":"bolt","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[pricing.Result](t, rec)
	assert.Equal(t, "calc-test", res.ID)
	assert.Equal(t, pricing.StatusCompleted, res.Status)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(100)), "total %s", res.Total)

	rec = do(t, h, http.MethodPost, "/calculations", `{"item":{"id":"x","unitPrice":"10","classification":"standard","active":true},"quantity":2,"calculator":"discount","parameters":{"discountPercentage":10}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res = decode[pricing.Result](t, rec)
	assert.True(t, res.Total.Equal(decimal.NewFromInt(18)), "total %s", res.Total)

	cases := map[string]struct {
		body string
		code int
	}{
		"zero quantity":      {`{"productId":"bolt","quantity":0}`, http.StatusBadRequest},
		"unknown calculator": {`{"productId":"bolt","quantity":1,"calculator":"magic"}`, http.StatusBadRequest},
		"missing product":    {`{"productId":"ghost","quantity":1}`, http.StatusNotFound},
		"malformed body":     {`{"productId":`, http.StatusBadRequest},
		"unknown field":      {`{"productId":"bolt","quantity":1,"colour":"red"}`, http.StatusBadRequest},
		"array parameter":    {`{"productId":"bolt","quantity":1,"parameters":{"a":[1]}}`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/calculations", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestCalculateBatchEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/calculations/batch", `{"requests":[
		{"productId":"bolt","quantity":1},
		{"productId":"ghost","quantity":1},
		{"productId":"bolt","quantity":1,"calculator":"secondary"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[batchResponse](t, rec)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "primary", resp.Results[0].Result.Calculator)
	assert.Equal(t, http.StatusNotFound, resp.Results[1].Status)
	assert.Nil(t, resp.Results[1].Result)
	assert.Equal(t, "secondary", resp.Results[2].Result.Calculator)

	rec = do(t, h, http.MethodPost, "/calculations/batch", `{"requests":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)

	do(t, h, http.MethodPost, "/calculations", `{"productId":"bolt","quantity":1}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `calcengine_calculations_total{calculator="primary",status="completed"} 1`)
}
