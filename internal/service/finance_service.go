package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
)

const defaultSessionMonths = 10

type cashEntryReader interface {
	FindHeadByID(ctx context.Context, id string) (*models.Head, error)
	ListEntries(ctx context.Context, headID string) ([]models.CashEntry, error)
}

type obligationLister interface {
	List(ctx context.Context) ([]models.StudentFee, error)
}

type feeStatsProvider interface {
	Stats(ctx context.Context) (*dto.FeeStats, error)
}

// FinanceServiceConfig tunes the aggregator.
type FinanceServiceConfig struct {
	CacheTTL      time.Duration
	SessionMonths int
}

// FinanceService aggregates income, expenses and fee collections into
// period summaries and time series.
type FinanceService struct {
	income   cashEntryReader
	expenses cashEntryReader
	fees     obligationLister
	catalog  feeCatalogReader
	stats    feeStatsProvider
	cache    *CacheService
	logger   *zap.Logger
	now      Clock
	cfg      FinanceServiceConfig
}

// NewFinanceService constructs a FinanceService.
func NewFinanceService(income, expenses cashEntryReader, fees obligationLister, catalog feeCatalogReader, stats feeStatsProvider, cache *CacheService, logger *zap.Logger, clock Clock, cfg FinanceServiceConfig) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	if cfg.SessionMonths <= 0 {
		cfg.SessionMonths = defaultSessionMonths
	}
	return &FinanceService{
		income:   income,
		expenses: expenses,
		fees:     fees,
		catalog:  catalog,
		stats:    stats,
		cache:    cache,
		logger:   logger,
		now:      clock,
		cfg:      cfg,
	}
}

// Summary totals income, fee collections and expenses whose date falls in
// [start, end]. Either bound may be nil.
func (s *FinanceService) Summary(ctx context.Context, start, end *string) (*dto.FinancialSummary, error) {
	summary, _, err := s.SummaryWithHit(ctx, start, end)
	return summary, err
}

// SummaryWithHit is Summary that also reports whether the cache served it.
func (s *FinanceService) SummaryWithHit(ctx context.Context, start, end *string) (*dto.FinancialSummary, bool, error) {
	start, end, err := normalizeRange(start, end)
	if err != nil {
		return nil, false, err
	}
	key := financeKey("summary", derefString(start), derefString(end))
	return remember(ctx, s.cache, key, s.cfg.CacheTTL, func(ctx context.Context) (*dto.FinancialSummary, error) {
		return s.summarize(ctx, start, end)
	})
}

func (s *FinanceService) summarize(ctx context.Context, start, end *string) (*dto.FinancialSummary, error) {
	income, err := s.income.ListEntries(ctx, "")
	if err != nil {
		return nil, errInternal(err, "failed to load income")
	}
	expenses, err := s.expenses.ListEntries(ctx, "")
	if err != nil {
		return nil, errInternal(err, "failed to load expenses")
	}
	fees, err := s.fees.List(ctx)
	if err != nil {
		return nil, errInternal(err, "failed to load student fees")
	}

	totalIncome, incomeByHead := s.sumEntries(ctx, income, s.income, "income head", start, end)
	totalExpenses, expenseByHead := s.sumEntries(ctx, expenses, s.expenses, "expense head", start, end)
	totalFees, feesByType := s.sumFees(ctx, fees, start, end)

	grand := totalIncome.Add(totalFees)
	return &dto.FinancialSummary{
		TotalIncome:      toFloat(totalIncome),
		TotalFees:        toFloat(totalFees),
		GrandTotalIncome: toFloat(grand),
		TotalExpenses:    toFloat(totalExpenses),
		NetProfit:        toFloat(grand.Sub(totalExpenses)),
		TransactionCount: len(income) + len(expenses) + len(fees),
		Period:           dto.Period{Start: start, End: end},
		IncomeByHead:     incomeByHead,
		ExpenseByHead:    expenseByHead,
		FeesByType:       feesByType,
	}, nil
}

func (s *FinanceService) sumEntries(ctx context.Context, entries []models.CashEntry, heads cashEntryReader, entity string, start, end *string) (decimal.Decimal, []dto.CategoryTotal) {
	total := decimal.Zero
	totals := newCategoryTotals()
	for _, entry := range entries {
		if !isInRange(entry.Date, start, end) {
			continue
		}
		value := amount(entry.Amount)
		total = total.Add(value)
		totals.add(entry.HeadID, value)
	}
	lookup := newSoftLookup(entity, heads.FindHeadByID, s.logger)
	return total, totals.rows(func(id string) string {
		if head := lookup.get(ctx, id); head != nil {
			return head.Name
		}
		return unknownName
	})
}

// sumFees counts only settled obligations, each contributing its full
// accumulated amountPaid on its last payment date.
func (s *FinanceService) sumFees(ctx context.Context, fees []models.StudentFee, start, end *string) (decimal.Decimal, []dto.CategoryTotal) {
	masters := newSoftLookup("fee master", s.catalog.FindMasterByID, s.logger)
	types := newSoftLookup("fee type", s.catalog.FindTypeByID, s.logger)

	total := decimal.Zero
	totals := newCategoryTotals()
	for _, fee := range fees {
		if !fee.IsPaid || fee.PaymentDate == nil || !isInRange(*fee.PaymentDate, start, end) {
			continue
		}
		value := amount(fee.AmountPaid)
		total = total.Add(value)
		typeID := ""
		if master := masters.get(ctx, fee.FeeMasterID); master != nil {
			typeID = master.FeeTypeID
		}
		totals.add(typeID, value)
	}
	return total, totals.rows(func(id string) string {
		if feeType := types.get(ctx, id); feeType != nil {
			return feeType.Name
		}
		return unknownName
	})
}

// Monthly returns one bucket per day from the first of the current month
// through today.
func (s *FinanceService) Monthly(ctx context.Context) ([]dto.DailyFinancial, error) {
	income, expenses, err := s.loadCashbooks(ctx)
	if err != nil {
		return nil, err
	}
	incomeByDate := sumBy(income, func(date string) string { return date })
	expensesByDate := sumBy(expenses, func(date string) string { return date })

	now := s.now()
	days := make([]dto.DailyFinancial, 0, now.Day())
	for day := 1; day <= now.Day(); day++ {
		date := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location()).Format(dateLayout)
		days = append(days, dto.DailyFinancial{
			Day:      fmt.Sprintf("%02d", day),
			Date:     date,
			Income:   toFloat(incomeByDate[date]),
			Expenses: toFloat(expensesByDate[date]),
		})
	}
	return days, nil
}

// Session returns one bucket per month for the trailing session window,
// oldest first, ending with the current month.
func (s *FinanceService) Session(ctx context.Context) ([]dto.MonthlyFinancial, error) {
	income, expenses, err := s.loadCashbooks(ctx)
	if err != nil {
		return nil, err
	}
	monthOf := func(date string) string {
		if len(date) < len(monthLayout) {
			return ""
		}
		return date[:len(monthLayout)]
	}
	incomeByMonth := sumBy(income, monthOf)
	expensesByMonth := sumBy(expenses, monthOf)

	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	months := make([]dto.MonthlyFinancial, 0, s.cfg.SessionMonths)
	for i := s.cfg.SessionMonths - 1; i >= 0; i-- {
		month := first.AddDate(0, -i, 0)
		period := month.Format(monthLayout)
		months = append(months, dto.MonthlyFinancial{
			Month:    month.Format("Jan"),
			Period:   period,
			Income:   toFloat(incomeByMonth[period]),
			Expenses: toFloat(expensesByMonth[period]),
		})
	}
	return months, nil
}

// Dashboard reports today's and this month's headline numbers with ledger
// stats.
func (s *FinanceService) Dashboard(ctx context.Context) (*dto.FinanceDashboard, error) {
	now := s.now()
	today := now.Format(dateLayout)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).Format(dateLayout)

	daily, err := s.summarize(ctx, &today, &today)
	if err != nil {
		return nil, err
	}
	monthly, err := s.summarize(ctx, &monthStart, &today)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.FinanceDashboard{
		Date:          today,
		TodayIncome:   daily.TotalIncome,
		TodayExpenses: daily.TotalExpenses,
		TodayFees:     daily.TotalFees,
		MonthIncome:   monthly.TotalIncome,
		MonthExpenses: monthly.TotalExpenses,
		MonthFees:     monthly.TotalFees,
		MonthNet:      monthly.NetProfit,
		Fees:          *stats,
	}, nil
}

func (s *FinanceService) loadCashbooks(ctx context.Context) ([]models.CashEntry, []models.CashEntry, error) {
	income, err := s.income.ListEntries(ctx, "")
	if err != nil {
		return nil, nil, errInternal(err, "failed to load income")
	}
	expenses, err := s.expenses.ListEntries(ctx, "")
	if err != nil {
		return nil, nil, errInternal(err, "failed to load expenses")
	}
	return income, expenses, nil
}

func sumBy(entries []models.CashEntry, bucket func(date string) string) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, entry := range entries {
		key := bucket(entry.Date)
		sums[key] = sums[key].Add(amount(entry.Amount))
	}
	return sums
}
