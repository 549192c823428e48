package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	failGet bool
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failGet {
		return errors.New("redis down")
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func newTestFinanceService(f *financeFixture, cache *CacheService, clock Clock) *FinanceService {
	return NewFinanceService(f.income, f.expenses, f.obligations, f.fees, f.ledger, cache, zap.NewNop(), clock, FinanceServiceConfig{CacheTTL: time.Minute})
}

// seedPaidObligation stores a settled obligation paid on date.
func seedPaidObligation(t *testing.T, f *financeFixture, studentID string, master *models.FeeMaster, paid float64, date string) {
	t.Helper()
	fee := &models.StudentFee{
		ID:          ObligationID(studentID, master.ID),
		StudentID:   studentID,
		FeeMasterID: master.ID,
		AmountPaid:  paid,
		Status:      models.FeeStatusPaid,
		IsPaid:      true,
		PaymentDate: strPtr(date),
		CreatedAt:   fixedClock(),
	}
	require.NoError(t, f.obligations.Create(context.Background(), fee))
}

func TestFinanceSummaryJanuaryScenario(t *testing.T) {
	f := newFinanceFixture(t)
	svc := newTestFinanceService(f, nil, fixedClock)
	incomeHead := f.addHead(t, f.income, "Grants")
	expenseHead := f.addHead(t, f.expenses, "Stationery")

	f.addEntry(t, f.income, incomeHead, "2026-01-05", 125000)
	f.addEntry(t, f.expenses, expenseHead, "2026-01-08", 800)
	seedPaidObligation(t, f, "s1", f.master, 5000, "2026-01-05")

	start, end := "2026-01-01", "2026-01-31"
	summary, err := svc.Summary(context.Background(), &start, &end)
	require.NoError(t, err)

	assert.Equal(t, 125000.0, summary.TotalIncome)
	assert.Equal(t, 5000.0, summary.TotalFees)
	assert.Equal(t, 130000.0, summary.GrandTotalIncome)
	assert.Equal(t, 800.0, summary.TotalExpenses)
	assert.Equal(t, 129200.0, summary.NetProfit)
	assert.Equal(t, 3, summary.TransactionCount)
	assert.Equal(t, &start, summary.Period.Start)

	require.Len(t, summary.IncomeByHead, 1)
	assert.Equal(t, "Grants", summary.IncomeByHead[0].Name)
	require.Len(t, summary.FeesByType, 1)
	assert.Equal(t, "Tuition", summary.FeesByType[0].Name)
	assert.Equal(t, 5000.0, summary.FeesByType[0].Amount)
}

func TestFinanceSummaryRangeIsInclusive(t *testing.T) {
	f := newFinanceFixture(t)
	svc := newTestFinanceService(f, nil, fixedClock)
	head := f.addHead(t, f.income, "Misc")

	f.addEntry(t, f.income, head, "2025-12-31", 1)
	f.addEntry(t, f.income, head, "2026-01-01", 10)
	f.addEntry(t, f.income, head, "2026-01-31", 100)
	f.addEntry(t, f.income, head, "2026-02-01", 1000)

	start, end := "2026-01-01", "2026-01-31"
	summary, err := svc.Summary(context.Background(), &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 110.0, summary.TotalIncome)
	assert.Equal(t, 4, summary.TransactionCount)

	open, err := svc.Summary(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1111.0, open.TotalIncome)
	assert.Nil(t, open.Period.Start)

	from := "2026-01-31"
	tail, err := svc.Summary(context.Background(), &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 1100.0, tail.TotalIncome)
}

func TestFinanceSummaryCountsOnlySettledFees(t *testing.T) {
	f := newFinanceFixture(t)
	svc := newTestFinanceService(f, nil, fixedClock)

	f.collect(t, "s1", f.master, 2000)
	f.collect(t, "s2", f.master, 5000)

	today := "2024-05-15"
	summary, err := svc.Summary(context.Background(), &today, &today)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, summary.TotalFees)
	assert.Equal(t, 2, summary.TransactionCount)
}

func TestFinanceSummaryRejectsBadRange(t *testing.T) {
	f := newFinanceFixture(t)
	svc := newTestFinanceService(f, nil, fixedClock)

	bad := "2026/01/01"
	_, err := svc.Summary(context.Background(), &bad, nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	start, end := "2026-02-01", "2026-01-01"
	_, err = svc.Summary(context.Background(), &start, &end)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	empty := ""
	_, err = svc.Summary(context.Background(), &empty, &empty)
	assert.NoError(t, err)
}

func TestFinanceSummaryIsStableAcrossCacheAndInvalidation(t *testing.T) {
	f := newFinanceFixture(t)
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	f.ledger = NewLedgerService(f.obligations, f.fees, f.students, cache, nil, nil, zap.NewNop(), fixedClock)
	svc := newTestFinanceService(f, cache, fixedClock)
	ctx := context.Background()
	head := f.addHead(t, f.income, "Misc")
	f.addEntry(t, f.income, head, "2024-05-01", 300)

	first, err := svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.size())

	second, err := svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	f.collect(t, "s1", f.master, 5000)
	assert.Zero(t, repo.size())

	third, err := svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, third.TotalFees)

	repo.failGet = true
	fourth, err := svc.Summary(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, third, fourth)
}

func TestFinanceMonthlySeries(t *testing.T) {
	f := newFinanceFixture(t)
	svc := newTestFinanceService(f, nil, fixedClock)
	income := f.addHead(t, f.income, "Misc")
	expense := f.addHead(t, f.expenses, "Misc")
	f.addEntry(t, f.income, income, "2024-05-01", 100)
	f.addEntry(t, f.income, income, "2024-05-15", 50)
	f.addEntry(t, f.income, income, "2024-05-16", 999)
	f.addEntry(t, f.expenses, expense, "2024-05-15", 20)

	days, err := svc.Monthly(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 15)
	assert.Equal(t, "01", days[0].Day)
	assert.Equal(t, "2024-05-01", days[0].Date)
	assert.Equal(t, 100.0, days[0].Income)
	assert.Equal(t, 50.0, days[14].Income)
	assert.Equal(t, 20.0, days[14].Expenses)
}

func TestFinanceSessionSeriesCrossesYearBoundary(t *testing.T) {
	f := newFinanceFixture(t)
	svc := newTestFinanceService(f, nil, fixedClock)
	head := f.addHead(t, f.income, "Misc")
	f.addEntry(t, f.income, head, "2023-08-03", 70)
	f.addEntry(t, f.income, head, "2023-08-30", 30)
	f.addEntry(t, f.income, head, "2023-07-31", 5)
	f.addEntry(t, f.income, head, "2024-05-02", 1)

	months, err := svc.Session(context.Background())
	require.NoError(t, err)
	require.Len(t, months, 10)
	assert.Equal(t, "2023-08", months[0].Period)
	assert.Equal(t, "Aug", months[0].Month)
	assert.Equal(t, 100.0, months[0].Income)
	assert.Equal(t, "2024-01", months[5].Period)
	assert.Equal(t, "2024-05", months[9].Period)
	assert.Equal(t, 1.0, months[9].Income)
}

func TestFinanceDashboard(t *testing.T) {
	f := newFinanceFixture(t)
	svc := newTestFinanceService(f, nil, fixedClock)
	income := f.addHead(t, f.income, "Misc")
	expense := f.addHead(t, f.expenses, "Misc")
	f.addEntry(t, f.income, income, "2024-05-15", 40)
	f.addEntry(t, f.income, income, "2024-05-03", 60)
	f.addEntry(t, f.expenses, expense, "2024-05-10", 25)
	f.collect(t, "s1", f.master, 5000)

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-05-15", dash.Date)
	assert.Equal(t, 40.0, dash.TodayIncome)
	assert.Equal(t, 5000.0, dash.TodayFees)
	assert.Equal(t, 100.0, dash.MonthIncome)
	assert.Equal(t, 25.0, dash.MonthExpenses)
	assert.Equal(t, 5075.0, dash.MonthNet)
	assert.Equal(t, 1, dash.Fees.PaidCount)
}
