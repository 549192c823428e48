package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// StudentFeeRepository persists obligations and their payment events.
type StudentFeeRepository struct {
	store    docstore.Store
	fees     collection[models.StudentFee]
	payments collection[models.FeePayment]
}

// NewStudentFeeRepository constructs a StudentFeeRepository.
func NewStudentFeeRepository(store docstore.Store) *StudentFeeRepository {
	return &StudentFeeRepository{
		store:    store,
		fees:     newCollection[models.StudentFee](store, CollectionStudentFees),
		payments: newCollection[models.FeePayment](store, CollectionFeePayments),
	}
}

// Create inserts fee under its preassigned id. A second insert for the same id
// fails with docstore.ErrDuplicateKey.
func (r *StudentFeeRepository) Create(ctx context.Context, fee *models.StudentFee) error {
	if err := r.store.InsertWithID(ctx, CollectionStudentFees, fee.ID, fee); err != nil {
		return err
	}
	fee.Version = 1
	return nil
}

// FindByID returns an obligation or docstore.ErrNotFound.
func (r *StudentFeeRepository) FindByID(ctx context.Context, id string) (*models.StudentFee, error) {
	return r.fees.get(ctx, id)
}

// List returns every obligation.
func (r *StudentFeeRepository) List(ctx context.Context) ([]models.StudentFee, error) {
	fees, err := r.fees.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list student fees: %w", err)
	}
	return fees, nil
}

// ListByStudent returns the obligations of one student.
func (r *StudentFeeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentFee, error) {
	fees, err := r.fees.by(ctx, "studentId", studentID)
	if err != nil {
		return nil, fmt.Errorf("list student fees for %s: %w", studentID, err)
	}
	return fees, nil
}

// CountByFeeMaster counts obligations issued under a fee master.
func (r *StudentFeeRepository) CountByFeeMaster(ctx context.Context, feeMasterID string) (int, error) {
	return r.fees.count(ctx, "feeMasterId", feeMasterID)
}

// ApplyPayment writes the payment fields of fee only if the stored version
// still equals fee.Version. On success fee.Version is advanced.
func (r *StudentFeeRepository) ApplyPayment(ctx context.Context, fee *models.StudentFee) error {
	fields := docstore.Fields{
		"amountPaid":    fee.AmountPaid,
		"status":        fee.Status,
		"isPaid":        fee.IsPaid,
		"paymentDate":   fee.PaymentDate,
		"paymentMode":   fee.PaymentMode,
		"transactionId": fee.TransactionID,
		"discount":      fee.Discount,
		"fine":          fee.Fine,
		"updatedAt":     fee.UpdatedAt,
	}
	if err := r.store.PatchIfVersion(ctx, CollectionStudentFees, fee.ID, fee.Version, fields); err != nil {
		return err
	}
	fee.Version++
	return nil
}

// AppendPayment records one payment event.
func (r *StudentFeeRepository) AppendPayment(ctx context.Context, payment *models.FeePayment) error {
	id, err := r.store.Insert(ctx, CollectionFeePayments, payment)
	if err != nil {
		return fmt.Errorf("append fee payment: %w", err)
	}
	payment.ID = id
	return nil
}

// ListPayments returns the payment events of an obligation, oldest first.
func (r *StudentFeeRepository) ListPayments(ctx context.Context, obligationID string) ([]models.FeePayment, error) {
	payments, err := r.payments.by(ctx, "obligationId", obligationID)
	if err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].RecordedAt.Before(payments[j].RecordedAt)
	})
	return payments, nil
}
