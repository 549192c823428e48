package repository

import (
	"context"

	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// Collection names shared by every store backend.
const (
	CollectionStudents       = "students"
	CollectionFeeGroups      = "feeGroups"
	CollectionFeeTypes       = "feeTypes"
	CollectionFeeMasters     = "feeMasters"
	CollectionStudentFees    = "studentFees"
	CollectionFeePayments    = "feePayments"
	CollectionIncomeHeads    = "incomeHeads"
	CollectionIncome         = "income"
	CollectionExpenseHeads   = "expenseHeads"
	CollectionExpenses       = "expenses"
	CollectionSessions       = "sessions"
	CollectionConfigurations = "configurations"
	CollectionReportJobs     = "reportJobs"
	CollectionAuditLogs      = "auditLogs"
)

// Indexes are the equality lookups the repositories issue.
var Indexes = []docstore.Index{
	{Collection: CollectionStudentFees, Field: "studentId"},
	{Collection: CollectionStudentFees, Field: "feeMasterId"},
	{Collection: CollectionFeePayments, Field: "obligationId"},
	{Collection: CollectionFeeTypes, Field: "feeGroupId"},
	{Collection: CollectionFeeMasters, Field: "feeGroupId"},
	{Collection: CollectionFeeMasters, Field: "feeTypeId"},
	{Collection: CollectionIncome, Field: "headId"},
	{Collection: CollectionIncome, Field: "date"},
	{Collection: CollectionExpenses, Field: "headId"},
	{Collection: CollectionExpenses, Field: "date"},
	{Collection: CollectionReportJobs, Field: "status"},
}

// collection is a typed view over one store collection.
type collection[T any] struct {
	store docstore.Store
	name  string
}

func newCollection[T any](store docstore.Store, name string) collection[T] {
	return collection[T]{store: store, name: name}
}

func (c collection[T]) get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := c.store.Get(ctx, c.name, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c collection[T]) all(ctx context.Context) ([]T, error) {
	var out []T
	if err := c.store.FindAll(ctx, c.name, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c collection[T]) by(ctx context.Context, field string, value interface{}) ([]T, error) {
	var out []T
	if err := c.store.FindBy(ctx, c.name, field, value, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c collection[T]) count(ctx context.Context, field string, value interface{}) (int, error) {
	rows, err := c.by(ctx, field, value)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
