package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/internal/repository"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

func TestLedgerAssignCreatesUnpaidObligation(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	id, err := f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1", FeeMasterID: f.master.ID})
	require.NoError(t, err)
	assert.Equal(t, ObligationID("s1", f.master.ID), id)

	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusUnpaid, fee.Status)
	assert.False(t, fee.IsPaid)
	assert.Zero(t, fee.AmountPaid)
	assert.Nil(t, fee.PaymentDate)
	assert.Equal(t, int64(1), fee.Version)
}

func TestLedgerAssignRejectsDuplicate(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()
	req := AssignObligationRequest{StudentID: "s1", FeeMasterID: f.master.ID}

	_, err := f.ledger.Assign(ctx, req)
	require.NoError(t, err)

	_, err = f.ledger.Assign(ctx, req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateObligation))
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)

	fees, err := f.obligations.List(ctx)
	require.NoError(t, err)
	assert.Len(t, fees, 1)
}

func TestLedgerAssignConcurrentDuplicatesYieldOneObligation(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1", FeeMasterID: f.master.ID})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateObligation))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	fees, err := f.obligations.ListByStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, fees, 1)
}

func TestLedgerAssignValidatesReferences(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1", FeeMasterID: "missing"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Contains(t, err.Error(), "fee master")

	_, err = f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "ghost", FeeMasterID: f.master.ID})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Contains(t, err.Error(), "student")
}

func TestLedgerCollectAccumulatesOnAssignedObligation(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	assigned, err := f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1", FeeMasterID: f.master.ID})
	require.NoError(t, err)

	id := f.collect(t, "s1", f.master, 2000)
	assert.Equal(t, assigned, id)

	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, fee.AmountPaid)
	assert.Equal(t, models.FeeStatusPartial, fee.Status)
	assert.False(t, fee.IsPaid)
	require.NotNil(t, fee.PaymentDate)
	assert.Equal(t, "2024-05-15", *fee.PaymentDate)

	txn := "TXN-42"
	id, err = f.ledger.Collect(ctx, CollectFeeRequest{
		StudentID:     "s1",
		FeeMasterID:   f.master.ID,
		AmountPaid:    3000,
		PaymentMode:   string(models.PaymentModeUPI),
		TransactionID: &txn,
	})
	require.NoError(t, err)
	assert.Equal(t, assigned, id)

	fee, err = f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, fee.AmountPaid)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
	assert.True(t, fee.IsPaid)
	assert.Equal(t, "UPI", *fee.PaymentMode)
	assert.Equal(t, "TXN-42", *fee.TransactionID)
	assert.Equal(t, int64(3), fee.Version)
}

func TestLedgerCollectCreatesObligationOnFirstPayment(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	id := f.collect(t, "s2", f.master, 5000)
	assert.Equal(t, ObligationID("s2", f.master.ID), id)

	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
	assert.True(t, fee.IsPaid)

	_, err = f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s2", FeeMasterID: f.master.ID})
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateObligation))
}

func TestLedgerCollectPaidIsTerminal(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	id := f.collect(t, "s1", f.master, 6000)
	f.collect(t, "s1", f.master, 0)

	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
	assert.Equal(t, 6000.0, fee.AmountPaid)

	// a new fine would raise the amount due above what was paid
	_, err = f.ledger.Collect(ctx, CollectFeeRequest{
		StudentID:   "s1",
		FeeMasterID: f.master.ID,
		PaymentMode: string(models.PaymentModeCash),
		Fine:        floatPtr(1500),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	// restating the stored values is allowed
	_, err = f.ledger.Collect(ctx, CollectFeeRequest{
		StudentID:   "s1",
		FeeMasterID: f.master.ID,
		PaymentMode: string(models.PaymentModeCash),
		Fine:        floatPtr(0),
		Discount:    floatPtr(0),
	})
	require.NoError(t, err)

	fee, err = f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
	assert.True(t, fee.IsPaid)
	assert.Equal(t, 6000.0, fee.AmountPaid)

	payments, err := f.obligations.ListPayments(ctx, id)
	require.NoError(t, err)
	assert.Len(t, payments, 3)
}

func TestLedgerCollectPaidSurvivesRaisedMaster(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	id := f.collect(t, "s1", f.master, f.master.Amount)
	require.NoError(t, f.fees.UpdateMaster(ctx, f.master.ID, docstore.Fields{"amount": f.master.Amount + 1000}))
	f.collect(t, "s1", f.master, 0)

	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
}

func TestLedgerCollectZeroOnFreshObligationStaysUnpaid(t *testing.T) {
	f := newFinanceFixture(t)

	id := f.collect(t, "s1", f.master, 0)

	fee, err := f.obligations.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusUnpaid, fee.Status)
	require.NotNil(t, fee.PaymentDate)
}

func TestLedgerCollectAppliesDiscountAndFine(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	id, err := f.ledger.Collect(ctx, CollectFeeRequest{
		StudentID:   "s1",
		FeeMasterID: f.master.ID,
		AmountPaid:  4000,
		PaymentMode: string(models.PaymentModeCheque),
		Discount:    floatPtr(500),
		Fine:        floatPtr(100),
	})
	require.NoError(t, err)

	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPartial, fee.Status)
	require.NotNil(t, fee.Discount)
	assert.Equal(t, 500.0, *fee.Discount)

	// stored discount and fine carry over when omitted: due is 4600
	f.collect(t, "s1", f.master, 600)
	fee, err = f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
	assert.Equal(t, 4600.0, fee.AmountPaid)
}

func TestLedgerCollectUsesExactDecimalArithmetic(t *testing.T) {
	f := newFinanceFixture(t)
	master := f.addMaster(t, 0.3, "2024-06-01")

	f.collect(t, "s1", master, 0.1)
	id := f.collect(t, "s1", master, 0.2)

	fee, err := f.obligations.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0.3, fee.AmountPaid)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
}

func TestLedgerCollectValidation(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CollectFeeRequest
		want *appErrors.Error
	}{
		{
			name: "negative amount",
			req:  CollectFeeRequest{StudentID: "s1", FeeMasterID: f.master.ID, AmountPaid: -1, PaymentMode: "Cash"},
			want: appErrors.ErrValidation,
		},
		{
			name: "unknown payment mode",
			req:  CollectFeeRequest{StudentID: "s1", FeeMasterID: f.master.ID, AmountPaid: 10, PaymentMode: "Barter"},
			want: appErrors.ErrValidation,
		},
		{
			name: "negative fine",
			req:  CollectFeeRequest{StudentID: "s1", FeeMasterID: f.master.ID, AmountPaid: 10, PaymentMode: "Cash", Fine: floatPtr(-5)},
			want: appErrors.ErrValidation,
		},
		{
			name: "discount above amount plus fine",
			req:  CollectFeeRequest{StudentID: "s1", FeeMasterID: f.master.ID, AmountPaid: 10, PaymentMode: "Cash", Discount: floatPtr(5200), Fine: floatPtr(100)},
			want: appErrors.ErrValidation,
		},
		{
			name: "missing student",
			req:  CollectFeeRequest{StudentID: "ghost", FeeMasterID: f.master.ID, AmountPaid: 10, PaymentMode: "Cash"},
			want: appErrors.ErrNotFound,
		},
		{
			name: "missing fee master",
			req:  CollectFeeRequest{StudentID: "s1", FeeMasterID: "nope", AmountPaid: 10, PaymentMode: "Cash"},
			want: appErrors.ErrNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Collect(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, tc.want), "got %v", err)
		})
	}

	fees, err := f.obligations.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, fees)
}

func TestLedgerCollectConcurrentPaymentsNeverLoseUpdates(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()
	id, err := f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1", FeeMasterID: f.master.ID})
	require.NoError(t, err)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Collect(ctx, CollectFeeRequest{StudentID: "s1", FeeMasterID: f.master.ID, AmountPaid: 100, PaymentMode: "Cash"})
			if err != nil {
				assert.True(t, appErrors.Is(err, appErrors.ErrVersionConflict), "unexpected error %v", err)
				return
			}
			mu.Lock()
			applied++
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Positive(t, applied)
	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, float64(applied)*100, fee.AmountPaid)

	payments, err := f.ledger.Payments(ctx, id)
	require.NoError(t, err)
	assert.Len(t, payments, applied)
	var sum float64
	for _, p := range payments {
		sum += p.Amount
	}
	assert.Equal(t, fee.AmountPaid, sum)
}

func TestLedgerCollectAppendsPaymentEvents(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	id := f.collect(t, "s1", f.master, 1500)
	f.collect(t, "s1", f.master, 3500)

	payments, err := f.ledger.Payments(ctx, id)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, 1500.0, payments[0].Amount)
	assert.Equal(t, models.FeeStatusPartial, payments[0].StatusAfter)
	assert.Equal(t, 5000.0, payments[1].AmountPaidAfter)
	assert.Equal(t, models.FeeStatusPaid, payments[1].StatusAfter)
	assert.Equal(t, "2024-05-15", payments[1].PaymentDate)

	_, err = f.ledger.Payments(ctx, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

type failingPaymentLog struct {
	*repository.StudentFeeRepository
}

func (failingPaymentLog) AppendPayment(context.Context, *models.FeePayment) error {
	return errors.New("payment log unavailable")
}

func TestLedgerCollectSurvivesPaymentLogFailure(t *testing.T) {
	f := newFinanceFixture(t)
	core, logs := observer.New(zap.ErrorLevel)
	ledger := NewLedgerService(failingPaymentLog{f.obligations}, f.fees, f.students, nil, nil, nil, zap.New(core), fixedClock)

	id, err := ledger.Collect(context.Background(), CollectFeeRequest{StudentID: "s1", FeeMasterID: f.master.ID, AmountPaid: 700, PaymentMode: "Card"})
	require.NoError(t, err)

	fee, err := f.obligations.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 700.0, fee.AmountPaid)
	assert.Equal(t, 1, logs.FilterMessage("payment event not recorded").Len())
}

func TestLedgerListEnrichesAndFilters(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()

	overdue := f.addMaster(t, 2000, "2024-05-01")
	require.NoError(t, f.fees.UpdateMaster(ctx, overdue.ID, map[string]interface{}{
		"fineType":   models.FineTypePercentage,
		"fineAmount": 10.0,
	}))

	_, err := f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1", FeeMasterID: f.master.ID})
	require.NoError(t, err)
	f.collect(t, "s1", overdue, 500)
	f.collect(t, "s2", f.master, 5000)

	orphan := &models.StudentFee{ID: "orphan", StudentID: "gone", FeeMasterID: "gone", Status: models.FeeStatusUnpaid, CreatedAt: fixedClock()}
	require.NoError(t, f.obligations.Create(ctx, orphan))

	all, err := f.ledger.List(ctx, ObligationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	mine, err := f.ledger.List(ctx, ObligationFilter{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, view := range mine {
		assert.Equal(t, "Asha Rao", view.StudentName)
		assert.Equal(t, "ADM-s1", view.AdmissionNo)
		assert.Equal(t, "Class 10 Annual", view.FeeGroupName)
		assert.Equal(t, "Tuition", view.FeeTypeName)
	}

	partial, err := f.ledger.List(ctx, ObligationFilter{Status: "partial"})
	require.NoError(t, err)
	require.Len(t, partial, 1)
	view := partial[0]
	assert.Equal(t, 2000.0, view.TotalDue)
	assert.Equal(t, 1500.0, view.Balance)
	assert.True(t, view.Overdue)
	assert.Equal(t, 200.0, view.LateFine)

	paid, err := f.ledger.List(ctx, ObligationFilter{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Zero(t, paid[0].Balance)
	assert.False(t, paid[0].Overdue)
	assert.Zero(t, paid[0].LateFine)

	unpaid, err := f.ledger.List(ctx, ObligationFilter{Status: "unpaid", StudentID: "gone"})
	require.NoError(t, err)
	require.Len(t, unpaid, 1)
	assert.Equal(t, unknownName, unpaid[0].StudentName)
	assert.Equal(t, unknownName, unpaid[0].FeeTypeName)
	assert.Zero(t, unpaid[0].Amount)

	_, err = f.ledger.List(ctx, ObligationFilter{Status: "settled"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestLedgerGetReturnsView(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()
	id := f.collect(t, "s1", f.master, 1000)

	view, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)
	assert.Equal(t, 4000.0, view.Balance)
	assert.False(t, view.Overdue)

	_, err = f.ledger.Get(ctx, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestLedgerStats(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()
	other := f.addMaster(t, 1200, "2024-07-01")

	f.collect(t, "s1", f.master, 5000)
	f.collect(t, "s2", f.master, 1000)
	_, err := f.ledger.Assign(ctx, AssignObligationRequest{StudentID: "s1", FeeMasterID: other.ID})
	require.NoError(t, err)

	stats, err := f.ledger.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6000.0, stats.TotalCollected)
	assert.Equal(t, 1, stats.PaidCount)
	assert.Equal(t, 2, stats.PendingCount)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 5200.0, stats.OutstandingAmount)
}

func TestLedgerCollectFixedFineScenario(t *testing.T) {
	f := newFinanceFixture(t)
	ctx := context.Background()
	master := f.addMaster(t, 5000, "2024-06-30")
	require.NoError(t, f.fees.UpdateMaster(ctx, master.ID, map[string]interface{}{
		"fineType":   models.FineTypeFixed,
		"fineAmount": 100.0,
	}))

	id, err := f.ledger.Collect(ctx, CollectFeeRequest{
		StudentID:   "s1",
		FeeMasterID: master.ID,
		AmountPaid:  3000,
		PaymentMode: "Cash",
		Discount:    floatPtr(0),
		Fine:        floatPtr(100),
	})
	require.NoError(t, err)

	fee, err := f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3000.0, fee.AmountPaid)
	assert.Equal(t, models.FeeStatusPartial, fee.Status)

	view, err := f.ledger.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5100.0, view.TotalDue)

	_, err = f.ledger.Collect(ctx, CollectFeeRequest{
		StudentID:   "s1",
		FeeMasterID: master.ID,
		AmountPaid:  2100,
		PaymentMode: "Cash",
		Discount:    floatPtr(0),
		Fine:        floatPtr(100),
	})
	require.NoError(t, err)

	fee, err = f.obligations.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5100.0, fee.AmountPaid)
	assert.Equal(t, models.FeeStatusPaid, fee.Status)
	assert.True(t, fee.IsPaid)
}
