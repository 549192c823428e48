package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/internal/repository"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// fixedClock pins "today" to 2024-05-15.
func fixedClock() time.Time {
	return time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)
}

type financeFixture struct {
	store       *docstore.MemoryStore
	fees        *repository.FeeRepository
	obligations *repository.StudentFeeRepository
	students    *repository.StudentRepository
	income      *repository.CashbookRepository
	expenses    *repository.CashbookRepository
	sessions    *repository.SessionRepository
	configs     *repository.ConfigurationRepository
	ledger      *LedgerService

	group   *models.FeeGroup
	tuition *models.FeeType
	master  *models.FeeMaster
}

func newFinanceFixture(t *testing.T) *financeFixture {
	t.Helper()
	store := docstore.NewMemoryStore()
	f := &financeFixture{
		store:       store,
		fees:        repository.NewFeeRepository(store),
		obligations: repository.NewStudentFeeRepository(store),
		students:    repository.NewStudentRepository(store),
		income:      repository.NewCashbookRepository(store, models.CashbookIncome),
		expenses:    repository.NewCashbookRepository(store, models.CashbookExpense),
		sessions:    repository.NewSessionRepository(store),
		configs:     repository.NewConfigurationRepository(store),
	}
	f.ledger = NewLedgerService(f.obligations, f.fees, f.students, nil, nil, nil, zap.NewNop(), fixedClock)

	ctx := context.Background()
	f.group = &models.FeeGroup{Name: "Class 10 Annual", IsActive: true}
	require.NoError(t, f.fees.CreateGroup(ctx, f.group))
	f.tuition = &models.FeeType{FeeGroupID: f.group.ID, Name: "Tuition", Code: "TUI", IsActive: true}
	require.NoError(t, f.fees.CreateType(ctx, f.tuition))
	f.master = f.addMaster(t, 5000, "2024-06-10")

	f.addStudent(t, "s1", "Asha", "Rao")
	f.addStudent(t, "s2", "Vikram", "Sen")
	return f
}

func (f *financeFixture) addStudent(t *testing.T, id, first, last string) {
	t.Helper()
	student := models.Student{ID: id, AdmissionNo: "ADM-" + id, FirstName: first, LastName: last, IsActive: true}
	require.NoError(t, f.store.InsertWithID(context.Background(), repository.CollectionStudents, id, student))
}

func (f *financeFixture) addMaster(t *testing.T, amount float64, dueDate string) *models.FeeMaster {
	t.Helper()
	master := &models.FeeMaster{
		FeeGroupID: f.group.ID,
		FeeTypeID:  f.tuition.ID,
		DueDate:    dueDate,
		Amount:     amount,
		FineType:   models.FineTypeNone,
		IsActive:   true,
	}
	require.NoError(t, f.fees.CreateMaster(context.Background(), master))
	return master
}

func (f *financeFixture) addEntry(t *testing.T, repo *repository.CashbookRepository, headID, date string, amount float64) {
	t.Helper()
	entry := &models.CashEntry{HeadID: headID, Name: "entry " + date, Date: date, Amount: amount}
	require.NoError(t, repo.CreateEntry(context.Background(), entry))
}

func (f *financeFixture) addHead(t *testing.T, repo *repository.CashbookRepository, name string) string {
	t.Helper()
	head := &models.Head{Name: name, IsActive: true}
	require.NoError(t, repo.CreateHead(context.Background(), head))
	return head.ID
}

func (f *financeFixture) collect(t *testing.T, studentID string, master *models.FeeMaster, amount float64) string {
	t.Helper()
	id, err := f.ledger.Collect(context.Background(), CollectFeeRequest{
		StudentID:   studentID,
		FeeMasterID: master.ID,
		AmountPaid:  amount,
		PaymentMode: string(models.PaymentModeCash),
	})
	require.NoError(t, err)
	return id
}

func floatPtr(v float64) *float64 {
	return &v
}
