package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/middleware"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type financeServiceMock struct {
	start, end *string
	hit        bool
	err        error
}

func (m *financeServiceMock) SummaryWithHit(ctx context.Context, start, end *string) (*dto.FinancialSummary, bool, error) {
	m.start, m.end = start, end
	if m.err != nil {
		return nil, false, m.err
	}
	return &dto.FinancialSummary{NetProfit: 129200, Period: dto.Period{Start: start, End: end}}, m.hit, nil
}

func (m *financeServiceMock) Monthly(ctx context.Context) ([]dto.DailyFinancial, error) {
	return []dto.DailyFinancial{{Day: "01", Date: "2024-05-01"}, {Day: "02", Date: "2024-05-02"}}, nil
}

func (m *financeServiceMock) Session(ctx context.Context) ([]dto.MonthlyFinancial, error) {
	return []dto.MonthlyFinancial{{Month: "May", Period: "2024-05"}}, nil
}

func (m *financeServiceMock) Dashboard(ctx context.Context) (*dto.FinanceDashboard, error) {
	return &dto.FinanceDashboard{Date: "2024-05-15"}, nil
}

func TestFinanceHandlerSummaryReportsCacheHit(t *testing.T) {
	mock := &financeServiceMock{hit: true}
	handler := NewFinanceHandler(mock)
	c, w := newGinContext(http.MethodGet, "/finance/summary?startDate=2024-01-01&endDate=", nil)
	middleware.WithResponseMeta()(c)

	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.start)
	assert.Equal(t, "2024-01-01", *mock.start)
	assert.Nil(t, mock.end)

	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cacheHit"])
	var summary dto.FinancialSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 129200.0, summary.NetProfit)
}

func TestFinanceHandlerSummaryInvalidDate(t *testing.T) {
	handler := NewFinanceHandler(&financeServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "startDate must be formatted as YYYY-MM-DD")})
	c, w := newGinContext(http.MethodGet, "/finance/summary?startDate=yesterday", nil)

	handler.Summary(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFinanceHandlerSeries(t *testing.T) {
	handler := NewFinanceHandler(&financeServiceMock{})

	c, w := newGinContext(http.MethodGet, "/finance/monthly", nil)
	handler.Monthly(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeEnvelope(t, w).Meta["count"])

	c, w = newGinContext(http.MethodGet, "/finance/session", nil)
	handler.Session(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeEnvelope(t, w).Meta["count"])

	c, w = newGinContext(http.MethodGet, "/finance/dashboard", nil)
	handler.Dashboard(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
