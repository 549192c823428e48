package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/service"
	"github.com/noah-isme/sma-finance-api/pkg/jobs"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type queueStatsStub struct{}

func (queueStatsStub) Stats() jobs.Stats { return jobs.Stats{Name: "reports", Processed: 4} }

func TestMetricsHandlerHealth(t *testing.T) {
	handler := NewMetricsHandler(service.NewMetricsService(), queueStatsStub{}, nil)
	c, w := newGinContext(http.MethodGet, "/health", nil)

	handler.Health(c)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "metrics")
	assert.Contains(t, body, "reportQueue")
}

func TestMetricsHandlerReady(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, nil, map[string]Pinger{"store": ok}).Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, nil, map[string]Pinger{"store": ok, "cache": down}).Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Checks["cache"])
	assert.Equal(t, "ok", body.Checks["store"])
}
