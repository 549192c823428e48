package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/internal/service"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type cashbookServiceMock struct {
	kind      models.CashbookKind
	filter    models.CashEntryFilter
	created   service.CashEntryRequest
	month     *string
	deleteErr error
}

func (m *cashbookServiceMock) Kind() models.CashbookKind { return m.kind }

func (m *cashbookServiceMock) ListHeads(ctx context.Context) ([]models.Head, error) {
	return []models.Head{{ID: "h1", Name: "Donations"}}, nil
}

func (m *cashbookServiceMock) CreateHead(ctx context.Context, req service.HeadRequest) (*models.Head, error) {
	return &models.Head{ID: "h2", Name: req.Name}, nil
}

func (m *cashbookServiceMock) UpdateHead(ctx context.Context, id string, req service.HeadRequest) (*models.Head, error) {
	return &models.Head{ID: id, Name: req.Name}, nil
}

func (m *cashbookServiceMock) DeleteHead(ctx context.Context, id string) error {
	return m.deleteErr
}

func (m *cashbookServiceMock) ListEntries(ctx context.Context, filter models.CashEntryFilter) ([]dto.CashEntryView, error) {
	m.filter = filter
	return []dto.CashEntryView{}, nil
}

func (m *cashbookServiceMock) GetEntry(ctx context.Context, id string) (*dto.CashEntryView, error) {
	return &dto.CashEntryView{HeadName: "Donations"}, nil
}

func (m *cashbookServiceMock) CreateEntry(ctx context.Context, req service.CashEntryRequest) (*dto.CashEntryView, error) {
	m.created = req
	return &dto.CashEntryView{HeadName: "Donations"}, nil
}

func (m *cashbookServiceMock) UpdateEntry(ctx context.Context, id string, req service.CashEntryRequest) (*dto.CashEntryView, error) {
	return &dto.CashEntryView{}, nil
}

func (m *cashbookServiceMock) DeleteEntry(ctx context.Context, id string) error {
	return nil
}

func (m *cashbookServiceMock) IncomeStats(ctx context.Context) (*dto.IncomeStats, error) {
	return &dto.IncomeStats{RecordCount: 3}, nil
}

func (m *cashbookServiceMock) ExpenseStats(ctx context.Context, month *string) (*dto.ExpenseStats, error) {
	m.month = month
	return &dto.ExpenseStats{Month: month}, nil
}

func TestCashbookHandlerCreateEntryStampsCreator(t *testing.T) {
	mock := &cashbookServiceMock{kind: models.CashbookIncome}
	handler := NewCashbookHandler(mock)
	c, w := newGinContext(http.MethodPost, "/income",
		[]byte(`{"headId":"h1","name":"Alumni gift","date":"2024-05-02","amount":500}`))
	withUser(c, "acct-1", models.RoleAccountant)

	handler.CreateEntry(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.created.CreatedBy)
	assert.Equal(t, "acct-1", *mock.created.CreatedBy)
	assert.Equal(t, 500.0, mock.created.Amount)
}

func TestCashbookHandlerListEntriesFilters(t *testing.T) {
	mock := &cashbookServiceMock{kind: models.CashbookExpense}
	handler := NewCashbookHandler(mock)
	c, w := newGinContext(http.MethodGet, "/expenses?headId=h1&startDate=2024-05-01&endDate=2024-05-31", nil)

	handler.ListEntries(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CashEntryFilter{HeadID: "h1", StartDate: "2024-05-01", EndDate: "2024-05-31"}, mock.filter)
}

func TestCashbookHandlerStatsByKind(t *testing.T) {
	income := &cashbookServiceMock{kind: models.CashbookIncome}
	c, w := newGinContext(http.MethodGet, "/income/stats?month=2024-05", nil)
	NewCashbookHandler(income).Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, income.month)

	expense := &cashbookServiceMock{kind: models.CashbookExpense}
	c, w = newGinContext(http.MethodGet, "/expenses/stats?month=2024-05", nil)
	NewCashbookHandler(expense).Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, expense.month)
	assert.Equal(t, "2024-05", *expense.month)
}

func TestCashbookHandlerDeleteHeadInUse(t *testing.T) {
	handler := NewCashbookHandler(&cashbookServiceMock{
		kind:      models.CashbookIncome,
		deleteErr: appErrors.Clone(appErrors.ErrConflict, "income head is referenced by income records"),
	})
	c, w := newGinContext(http.MethodDelete, "/income/heads/h1", nil)
	c.Params = append(c.Params, ginParam("id", "h1"))

	handler.DeleteHead(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCashbookHandlerListHeadsPastLastPage(t *testing.T) {
	handler := NewCashbookHandler(&cashbookServiceMock{kind: models.CashbookIncome})
	c, w := newGinContext(http.MethodGet, "/income/heads?page=2&pageSize=1", nil)

	handler.ListHeads(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"data":[],"pagination":{"page":2,"pageSize":1,"totalCount":1},"meta":{"count":0}}`,
		w.Body.String())
}
