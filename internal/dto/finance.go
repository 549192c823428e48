package dto

import "github.com/noah-isme/sma-finance-api/internal/models"

// Period echoes the requested summary bounds. Nil means unbounded.
type Period struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// CategoryTotal is one row of a per-head or per-type breakdown.
type CategoryTotal struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

// FinancialSummary is the period-bounded roll-up of income, expenses and fee
// collections.
type FinancialSummary struct {
	TotalIncome      float64         `json:"totalIncome"`
	TotalFees        float64         `json:"totalFees"`
	GrandTotalIncome float64         `json:"grandTotalIncome"`
	TotalExpenses    float64         `json:"totalExpenses"`
	NetProfit        float64         `json:"netProfit"`
	TransactionCount int             `json:"transactionCount"`
	Period           Period          `json:"period"`
	IncomeByHead     []CategoryTotal `json:"incomeByHead"`
	ExpenseByHead    []CategoryTotal `json:"expenseByHead"`
	FeesByType       []CategoryTotal `json:"feesByType"`
}

// DailyFinancial is one day bucket of the current-month series.
type DailyFinancial struct {
	Day      string  `json:"day"`
	Date     string  `json:"date"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// MonthlyFinancial is one month bucket of the trailing session series.
type MonthlyFinancial struct {
	Month    string  `json:"month"`
	Period   string  `json:"period"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// FinanceDashboard gives today's and this month's headline numbers.
type FinanceDashboard struct {
	Date          string   `json:"date"`
	TodayIncome   float64  `json:"todayIncome"`
	TodayExpenses float64  `json:"todayExpenses"`
	TodayFees     float64  `json:"todayFees"`
	MonthIncome   float64  `json:"monthIncome"`
	MonthExpenses float64  `json:"monthExpenses"`
	MonthFees     float64  `json:"monthFees"`
	MonthNet      float64  `json:"monthNet"`
	Fees          FeeStats `json:"fees"`
}

// FeeStats summarises the whole obligation ledger.
type FeeStats struct {
	TotalCollected    float64 `json:"totalCollected"`
	PaidCount         int     `json:"paidCount"`
	PendingCount      int     `json:"pendingCount"`
	TotalRecords      int     `json:"totalRecords"`
	OutstandingAmount float64 `json:"outstandingAmount"`
}

// ObligationView is a student fee enriched for listing. Joins that fail
// resolve to "Unknown" or zero.
type ObligationView struct {
	models.StudentFee
	StudentName  string  `json:"studentName"`
	AdmissionNo  string  `json:"admissionNo"`
	FeeGroupName string  `json:"feeGroupName"`
	FeeTypeName  string  `json:"feeTypeName"`
	DueDate      string  `json:"dueDate"`
	Amount       float64 `json:"amount"`
	TotalDue     float64 `json:"totalDue"`
	Balance      float64 `json:"balance"`
	Overdue      bool    `json:"overdue"`
	LateFine     float64 `json:"lateFine"`
}

// FeeMasterView adds catalogue names to a fee master.
type FeeMasterView struct {
	models.FeeMaster
	FeeGroupName string `json:"feeGroupName"`
	FeeTypeName  string `json:"feeTypeName"`
}

// CashEntryView adds the head name to an income or expense record.
type CashEntryView struct {
	models.CashEntry
	HeadName string `json:"headName"`
}

// IncomeStats summarises the income ledger.
type IncomeStats struct {
	TotalIncome     float64         `json:"totalIncome"`
	ThisMonthIncome float64         `json:"thisMonthIncome"`
	RecordCount     int             `json:"recordCount"`
	ByHead          []CategoryTotal `json:"byHead"`
}

// ExpenseStats summarises the expense ledger, optionally for one month.
type ExpenseStats struct {
	TotalExpenses float64         `json:"totalExpenses"`
	RecordCount   int             `json:"recordCount"`
	Month         *string         `json:"month,omitempty"`
	ByHead        []CategoryTotal `json:"byHead"`
}
