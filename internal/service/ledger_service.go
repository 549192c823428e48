package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

// obligationNamespace seeds the deterministic obligation ids. Changing it
// orphans every stored obligation.
var obligationNamespace = uuid.MustParse("6f1c1c3e-5d0e-4a53-9d43-0a8f6f0b9a11")

var paymentModes = map[string]struct{}{
	string(models.PaymentModeCash):         {},
	string(models.PaymentModeCheque):       {},
	string(models.PaymentModeDD):           {},
	string(models.PaymentModeBankTransfer): {},
	string(models.PaymentModeUPI):          {},
	string(models.PaymentModeCard):         {},
	string(models.PaymentModeOnline):       {},
}

// ObligationID derives the id of the single obligation a student can hold
// under a fee master.
func ObligationID(studentID, feeMasterID string) string {
	return uuid.NewSHA1(obligationNamespace, []byte(studentID+"|"+feeMasterID)).String()
}

type obligationRepository interface {
	Create(ctx context.Context, fee *models.StudentFee) error
	FindByID(ctx context.Context, id string) (*models.StudentFee, error)
	List(ctx context.Context) ([]models.StudentFee, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentFee, error)
	ApplyPayment(ctx context.Context, fee *models.StudentFee) error
	AppendPayment(ctx context.Context, payment *models.FeePayment) error
	ListPayments(ctx context.Context, obligationID string) ([]models.FeePayment, error)
}

type feeCatalogReader interface {
	FindGroupByID(ctx context.Context, id string) (*models.FeeGroup, error)
	FindTypeByID(ctx context.Context, id string) (*models.FeeType, error)
	FindMasterByID(ctx context.Context, id string) (*models.FeeMaster, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AssignObligationRequest links a student to a fee master.
type AssignObligationRequest struct {
	StudentID   string `json:"studentId" validate:"required"`
	FeeMasterID string `json:"feeMasterId" validate:"required"`
}

// CollectFeeRequest records money received against an obligation.
type CollectFeeRequest struct {
	StudentID     string   `json:"studentId" validate:"required"`
	FeeMasterID   string   `json:"feeMasterId" validate:"required"`
	AmountPaid    float64  `json:"amountPaid" validate:"gte=0"`
	PaymentMode   string   `json:"paymentMode" validate:"required"`
	TransactionID *string  `json:"transactionId,omitempty"`
	Discount      *float64 `json:"discount,omitempty" validate:"omitempty,gte=0"`
	Fine          *float64 `json:"fine,omitempty" validate:"omitempty,gte=0"`
	RecordedBy    *string  `json:"-"`
}

// ObligationFilter narrows ListObligations. Empty fields are ignored.
type ObligationFilter struct {
	StudentID string
	Status    string
}

// LedgerService owns student fee obligations and payment collection.
type LedgerService struct {
	obligations obligationRepository
	catalog     feeCatalogReader
	students    studentReader
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewLedgerService constructs a LedgerService. A nil clock uses time.Now.
func NewLedgerService(obligations obligationRepository, catalog feeCatalogReader, students studentReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, clock Clock) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	return &LedgerService{
		obligations: obligations,
		catalog:     catalog,
		students:    students,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         clock,
	}
}

// Assign creates the obligation of a student under a fee master. A second
// assignment of the same pair is rejected.
func (s *LedgerService) Assign(ctx context.Context, req AssignObligationRequest) (string, error) {
	if err := validateStruct(s.validator, req, "invalid obligation payload"); err != nil {
		return "", err
	}
	master, err := strictLookup(ctx, "fee master", req.FeeMasterID, s.catalog.FindMasterByID)
	if err != nil {
		return "", err
	}
	if _, err := strictLookup(ctx, "student", req.StudentID, s.students.FindByID); err != nil {
		return "", err
	}

	now := s.now().UTC()
	fee := &models.StudentFee{
		ID:          ObligationID(req.StudentID, req.FeeMasterID),
		StudentID:   req.StudentID,
		FeeMasterID: req.FeeMasterID,
		Status:      deriveStatus(decimal.Zero, amount(master.Amount)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fee.IsPaid = fee.Status == models.FeeStatusPaid

	if err := s.obligations.Create(ctx, fee); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			s.metrics.RecordLedgerRejection("duplicate")
			return "", appErrors.Clone(appErrors.ErrDuplicateObligation, "")
		}
		return "", errInternal(err, "failed to create obligation")
	}

	s.metrics.RecordObligationAssigned()
	s.cache.InvalidateFinance(ctx)
	s.logger.Info("obligation assigned",
		zap.String("obligation_id", fee.ID),
		zap.String("student_id", fee.StudentID),
		zap.String("fee_master_id", fee.FeeMasterID),
	)
	return fee.ID, nil
}

// Collect adds a payment to the obligation of a student under a fee master,
// creating the obligation on first payment. Concurrent writers lose with
// ErrVersionConflict rather than overwrite each other.
func (s *LedgerService) Collect(ctx context.Context, req CollectFeeRequest) (string, error) {
	if err := validateStruct(s.validator, req, "invalid payment payload"); err != nil {
		return "", err
	}
	if _, ok := paymentModes[req.PaymentMode]; !ok {
		return "", errValidation("paymentMode must be one of Cash, Cheque, DD, Bank Transfer, UPI, Card, Online")
	}
	master, err := strictLookup(ctx, "fee master", req.FeeMasterID, s.catalog.FindMasterByID)
	if err != nil {
		return "", err
	}
	if _, err := strictLookup(ctx, "student", req.StudentID, s.students.FindByID); err != nil {
		return "", err
	}

	id := ObligationID(req.StudentID, req.FeeMasterID)
	existing, err := s.obligations.FindByID(ctx, id)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return "", errInternal(err, "failed to load obligation")
	}

	if existing != nil && existing.Status == models.FeeStatusPaid {
		if adjusts(req.Discount, existing.Discount) || adjusts(req.Fine, existing.Fine) {
			return "", errValidation("discount and fine of a paid obligation cannot change")
		}
	}

	discount, fine := req.Discount, req.Fine
	if existing != nil {
		if discount == nil {
			discount = existing.Discount
		}
		if fine == nil {
			fine = existing.Fine
		}
	}
	discountAmt, fineAmt := optionalAmount(discount), optionalAmount(fine)
	if discountAmt.GreaterThan(amount(master.Amount).Add(fineAmt)) {
		return "", errValidation("discount must not exceed amount plus fine")
	}

	paid := amount(req.AmountPaid)
	if existing != nil {
		paid = amount(existing.AmountPaid).Add(paid)
	}
	status := deriveStatus(paid, totalDue(master, discountAmt, fineAmt))
	if existing != nil && existing.Status == models.FeeStatusPaid {
		// the master amount may have been raised since
		status = models.FeeStatusPaid
	}
	now := s.now()
	today := now.Format(dateLayout)

	fee := existing
	if fee == nil {
		fee = &models.StudentFee{
			ID:          id,
			StudentID:   req.StudentID,
			FeeMasterID: req.FeeMasterID,
			CreatedAt:   now.UTC(),
		}
	}
	fee.AmountPaid = toFloat(paid)
	fee.Status = status
	fee.IsPaid = status == models.FeeStatusPaid
	fee.PaymentDate = strPtr(today)
	fee.PaymentMode = strPtr(req.PaymentMode)
	fee.TransactionID = req.TransactionID
	fee.Discount = discount
	fee.Fine = fine
	fee.UpdatedAt = now.UTC()

	if existing != nil {
		err = s.obligations.ApplyPayment(ctx, fee)
	} else {
		err = s.obligations.Create(ctx, fee)
		if errors.Is(err, docstore.ErrDuplicateKey) {
			err = docstore.ErrVersionConflict
		}
	}
	if err != nil {
		if errors.Is(err, docstore.ErrVersionConflict) {
			s.metrics.RecordLedgerRejection("version_conflict")
			return "", appErrors.Clone(appErrors.ErrVersionConflict, "")
		}
		if errors.Is(err, docstore.ErrNotFound) {
			return "", appErrors.Clone(appErrors.ErrNotFound, "obligation not found")
		}
		return "", errInternal(err, "failed to record payment")
	}

	payment := &models.FeePayment{
		ObligationID:    fee.ID,
		StudentID:       fee.StudentID,
		FeeMasterID:     fee.FeeMasterID,
		Amount:          req.AmountPaid,
		PaymentMode:     req.PaymentMode,
		TransactionID:   req.TransactionID,
		Discount:        req.Discount,
		Fine:            req.Fine,
		PaymentDate:     today,
		AmountPaidAfter: fee.AmountPaid,
		StatusAfter:     fee.Status,
		RecordedBy:      req.RecordedBy,
		RecordedAt:      now.UTC(),
	}
	if err := s.obligations.AppendPayment(ctx, payment); err != nil {
		s.logger.Error("payment event not recorded",
			zap.String("obligation_id", fee.ID),
			zap.Float64("amount", req.AmountPaid),
			zap.Error(err),
		)
	}

	s.metrics.RecordPayment(req.PaymentMode, string(fee.Status), req.AmountPaid)
	s.cache.InvalidateFinance(ctx)
	s.logger.Info("payment recorded",
		zap.String("obligation_id", fee.ID),
		zap.String("payment_mode", req.PaymentMode),
		zap.Float64("amount", req.AmountPaid),
		zap.String("status", string(fee.Status)),
	)
	return fee.ID, nil
}

// List returns enriched obligations ordered by creation.
func (s *LedgerService) List(ctx context.Context, filter ObligationFilter) ([]dto.ObligationView, error) {
	status := models.FeeStatus(strings.ToLower(strings.TrimSpace(filter.Status)))
	if status != "" && !status.Valid() {
		return nil, errValidation("status must be one of unpaid, partial, paid")
	}

	var (
		fees []models.StudentFee
		err  error
	)
	if filter.StudentID != "" {
		fees, err = s.obligations.ListByStudent(ctx, filter.StudentID)
	} else {
		fees, err = s.obligations.List(ctx)
	}
	if err != nil {
		return nil, errInternal(err, "failed to list obligations")
	}

	enrich := s.newEnricher()
	views := make([]dto.ObligationView, 0, len(fees))
	for _, fee := range fees {
		if status != "" && fee.Status != status {
			continue
		}
		views = append(views, enrich.view(ctx, fee))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.Before(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})
	return views, nil
}

// Get returns one enriched obligation.
func (s *LedgerService) Get(ctx context.Context, id string) (*dto.ObligationView, error) {
	fee, err := strictLookup(ctx, "obligation", id, s.obligations.FindByID)
	if err != nil {
		return nil, err
	}
	view := s.newEnricher().view(ctx, *fee)
	return &view, nil
}

// Payments lists the payment events of an obligation, oldest first.
func (s *LedgerService) Payments(ctx context.Context, obligationID string) ([]models.FeePayment, error) {
	if _, err := strictLookup(ctx, "obligation", obligationID, s.obligations.FindByID); err != nil {
		return nil, err
	}
	payments, err := s.obligations.ListPayments(ctx, obligationID)
	if err != nil {
		return nil, errInternal(err, "failed to list payments")
	}
	return payments, nil
}

// Stats summarises the whole ledger.
func (s *LedgerService) Stats(ctx context.Context) (*dto.FeeStats, error) {
	fees, err := s.obligations.List(ctx)
	if err != nil {
		return nil, errInternal(err, "failed to load obligations")
	}
	masters := newSoftLookup("fee master", s.catalog.FindMasterByID, s.logger)

	collected := decimal.Zero
	outstanding := decimal.Zero
	stats := &dto.FeeStats{TotalRecords: len(fees)}
	for _, fee := range fees {
		collected = collected.Add(amount(fee.AmountPaid))
		switch fee.Status {
		case models.FeeStatusPaid:
			stats.PaidCount++
		case models.FeeStatusUnpaid, models.FeeStatusPartial:
			stats.PendingCount++
		}
		if fee.Status == models.FeeStatusPaid {
			continue
		}
		if master := masters.get(ctx, fee.FeeMasterID); master != nil {
			outstanding = outstanding.Add(balance(master, fee))
		}
	}
	stats.TotalCollected = toFloat(collected)
	stats.OutstandingAmount = toFloat(outstanding)
	return stats, nil
}

// balance is what remains owed on fee, never negative.
func balance(master *models.FeeMaster, fee models.StudentFee) decimal.Decimal {
	due := totalDue(master, optionalAmount(fee.Discount), optionalAmount(fee.Fine))
	rest := due.Sub(amount(fee.AmountPaid))
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// obligationEnricher joins obligations to their student and catalogue
// records for one call.
type obligationEnricher struct {
	today    string
	students *softLookup[models.Student]
	masters  *softLookup[models.FeeMaster]
	groups   *softLookup[models.FeeGroup]
	types    *softLookup[models.FeeType]
}

func (s *LedgerService) newEnricher() *obligationEnricher {
	return &obligationEnricher{
		today:    s.now().Format(dateLayout),
		students: newSoftLookup("student", s.students.FindByID, s.logger),
		masters:  newSoftLookup("fee master", s.catalog.FindMasterByID, s.logger),
		groups:   newSoftLookup("fee group", s.catalog.FindGroupByID, s.logger),
		types:    newSoftLookup("fee type", s.catalog.FindTypeByID, s.logger),
	}
}

func (e *obligationEnricher) view(ctx context.Context, fee models.StudentFee) dto.ObligationView {
	view := dto.ObligationView{
		StudentFee:   fee,
		StudentName:  unknownName,
		AdmissionNo:  unknownName,
		FeeGroupName: unknownName,
		FeeTypeName:  unknownName,
	}
	if student := e.students.get(ctx, fee.StudentID); student != nil {
		view.StudentName = student.FullName()
		view.AdmissionNo = student.AdmissionNo
	}
	master := e.masters.get(ctx, fee.FeeMasterID)
	if master == nil {
		return view
	}
	if group := e.groups.get(ctx, master.FeeGroupID); group != nil {
		view.FeeGroupName = group.Name
	}
	if feeType := e.types.get(ctx, master.FeeTypeID); feeType != nil {
		view.FeeTypeName = feeType.Name
	}
	view.DueDate = master.DueDate
	view.Amount = master.Amount
	view.TotalDue = toFloat(totalDue(master, optionalAmount(fee.Discount), optionalAmount(fee.Fine)))
	view.Balance = toFloat(balance(master, fee))
	view.Overdue = fee.Status != models.FeeStatusPaid && master.DueDate != "" && master.DueDate < e.today
	if view.Overdue {
		view.LateFine = toFloat(lateFine(master))
	}
	return view
}
