package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type cashbookRepository interface {
	Kind() models.CashbookKind
	CreateHead(ctx context.Context, head *models.Head) error
	FindHeadByID(ctx context.Context, id string) (*models.Head, error)
	ListHeads(ctx context.Context) ([]models.Head, error)
	UpdateHead(ctx context.Context, id string, fields docstore.Fields) error
	DeleteHead(ctx context.Context, id string) error
	CreateEntry(ctx context.Context, entry *models.CashEntry) error
	FindEntryByID(ctx context.Context, id string) (*models.CashEntry, error)
	ListEntries(ctx context.Context, headID string) ([]models.CashEntry, error)
	CountEntriesByHead(ctx context.Context, headID string) (int, error)
	UpdateEntry(ctx context.Context, id string, fields docstore.Fields) error
	DeleteEntry(ctx context.Context, id string) error
}

// HeadRequest creates or replaces an income or expense head.
type HeadRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// CashEntryRequest creates or replaces an income or expense record.
type CashEntryRequest struct {
	HeadID        string  `json:"headId" validate:"required"`
	Name          string  `json:"name" validate:"required,max=200"`
	InvoiceNumber *string `json:"invoiceNumber,omitempty"`
	Date          string  `json:"date" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Description   *string `json:"description,omitempty"`
	CreatedBy     *string `json:"-"`
}

// CashbookService manages one ledger of miscellaneous income or expenses.
type CashbookService struct {
	repo      cashbookRepository
	kind      models.CashbookKind
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
}

// NewCashbookService constructs a CashbookService for the repository's kind.
func NewCashbookService(repo cashbookRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, clock Clock) *CashbookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	kind := repo.Kind()
	return &CashbookService{
		repo:      repo,
		kind:      kind,
		cache:     cache,
		validator: validate,
		logger:    logger.With(zap.String("cashbook", string(kind))),
		now:       clock,
	}
}

// Kind reports which ledger the service manages.
func (s *CashbookService) Kind() models.CashbookKind {
	return s.kind
}

func (s *CashbookService) headEntity() string {
	return string(s.kind) + " head"
}

func (s *CashbookService) entryEntity() string {
	return string(s.kind) + " record"
}

// ListHeads returns heads ordered by name.
func (s *CashbookService) ListHeads(ctx context.Context) ([]models.Head, error) {
	heads, err := s.repo.ListHeads(ctx)
	if err != nil {
		return nil, errInternal(err, "failed to list "+s.headEntity()+"s")
	}
	sort.SliceStable(heads, func(i, j int) bool { return heads[i].Name < heads[j].Name })
	return heads, nil
}

// CreateHead registers a head.
func (s *CashbookService) CreateHead(ctx context.Context, req HeadRequest) (*models.Head, error) {
	if err := validateStruct(s.validator, req, "invalid "+s.headEntity()+" payload"); err != nil {
		return nil, err
	}
	head := &models.Head{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    boolOr(req.IsActive, true),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateHead(ctx, head); err != nil {
		return nil, errInternal(err, "failed to create "+s.headEntity())
	}
	return head, nil
}

// UpdateHead replaces the editable fields of a head.
func (s *CashbookService) UpdateHead(ctx context.Context, id string, req HeadRequest) (*models.Head, error) {
	if err := validateStruct(s.validator, req, "invalid "+s.headEntity()+" payload"); err != nil {
		return nil, err
	}
	if _, err := strictLookup(ctx, s.headEntity(), id, s.repo.FindHeadByID); err != nil {
		return nil, err
	}
	fields := docstore.Fields{"name": strings.TrimSpace(req.Name), "description": req.Description}
	if req.IsActive != nil {
		fields["isActive"] = *req.IsActive
	}
	if err := s.repo.UpdateHead(ctx, id, fields); err != nil {
		return nil, errInternal(err, "failed to update "+s.headEntity())
	}
	s.cache.InvalidateFinance(ctx)
	return strictLookup(ctx, s.headEntity(), id, s.repo.FindHeadByID)
}

// DeleteHead removes a head that no record references.
func (s *CashbookService) DeleteHead(ctx context.Context, id string) error {
	if _, err := strictLookup(ctx, s.headEntity(), id, s.repo.FindHeadByID); err != nil {
		return err
	}
	count, err := s.repo.CountEntriesByHead(ctx, id)
	if err != nil {
		return errInternal(err, "failed to check "+s.headEntity()+" usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, s.headEntity()+" has records")
	}
	if err := s.repo.DeleteHead(ctx, id); err != nil {
		return s.deleteError(err, s.headEntity())
	}
	return nil
}

// ListEntries returns records newest first, with head names resolved.
func (s *CashbookService) ListEntries(ctx context.Context, filter models.CashEntryFilter) ([]dto.CashEntryView, error) {
	start, end, err := normalizeRange(&filter.StartDate, &filter.EndDate)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, filter.HeadID)
	if err != nil {
		return nil, errInternal(err, "failed to list "+s.entryEntity()+"s")
	}
	heads := newSoftLookup(s.headEntity(), s.repo.FindHeadByID, s.logger)
	views := make([]dto.CashEntryView, 0, len(entries))
	for _, entry := range entries {
		if !isInRange(entry.Date, start, end) {
			continue
		}
		views = append(views, s.entryView(ctx, entry, heads))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Date != views[j].Date {
			return views[i].Date > views[j].Date
		}
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

// GetEntry returns one record.
func (s *CashbookService) GetEntry(ctx context.Context, id string) (*dto.CashEntryView, error) {
	entry, err := strictLookup(ctx, s.entryEntity(), id, s.repo.FindEntryByID)
	if err != nil {
		return nil, err
	}
	view := s.entryView(ctx, *entry, newSoftLookup(s.headEntity(), s.repo.FindHeadByID, s.logger))
	return &view, nil
}

// CreateEntry records income or an expense under an existing head.
func (s *CashbookService) CreateEntry(ctx context.Context, req CashEntryRequest) (*dto.CashEntryView, error) {
	if err := s.validateEntry(ctx, req); err != nil {
		return nil, err
	}
	entry := &models.CashEntry{
		HeadID:        req.HeadID,
		Name:          strings.TrimSpace(req.Name),
		InvoiceNumber: req.InvoiceNumber,
		Date:          req.Date,
		Amount:        req.Amount,
		Description:   req.Description,
		CreatedBy:     req.CreatedBy,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		return nil, errInternal(err, "failed to create "+s.entryEntity())
	}
	s.cache.InvalidateFinance(ctx)
	s.logger.Info(s.entryEntity()+" created", zap.String("id", entry.ID), zap.Float64("amount", entry.Amount), zap.String("date", entry.Date))
	return s.GetEntry(ctx, entry.ID)
}

// UpdateEntry replaces the editable fields of a record.
func (s *CashbookService) UpdateEntry(ctx context.Context, id string, req CashEntryRequest) (*dto.CashEntryView, error) {
	if _, err := strictLookup(ctx, s.entryEntity(), id, s.repo.FindEntryByID); err != nil {
		return nil, err
	}
	if err := s.validateEntry(ctx, req); err != nil {
		return nil, err
	}
	fields := docstore.Fields{
		"headId":        req.HeadID,
		"name":          strings.TrimSpace(req.Name),
		"invoiceNumber": req.InvoiceNumber,
		"date":          req.Date,
		"amount":        req.Amount,
		"description":   req.Description,
	}
	if err := s.repo.UpdateEntry(ctx, id, fields); err != nil {
		return nil, errInternal(err, "failed to update "+s.entryEntity())
	}
	s.cache.InvalidateFinance(ctx)
	return s.GetEntry(ctx, id)
}

// DeleteEntry removes a record.
func (s *CashbookService) DeleteEntry(ctx context.Context, id string) error {
	if err := s.repo.DeleteEntry(ctx, id); err != nil {
		return s.deleteError(err, s.entryEntity())
	}
	s.cache.InvalidateFinance(ctx)
	return nil
}

// IncomeStats totals the income ledger overall and for the current month.
func (s *CashbookService) IncomeStats(ctx context.Context) (*dto.IncomeStats, error) {
	entries, err := s.repo.ListEntries(ctx, "")
	if err != nil {
		return nil, errInternal(err, "failed to load "+s.entryEntity()+"s")
	}
	month := s.now().Format(monthLayout)
	total, thisMonth := decimal.Zero, decimal.Zero
	for _, entry := range entries {
		total = total.Add(amount(entry.Amount))
		if strings.HasPrefix(entry.Date, month) {
			thisMonth = thisMonth.Add(amount(entry.Amount))
		}
	}
	return &dto.IncomeStats{
		TotalIncome:     toFloat(total),
		ThisMonthIncome: toFloat(thisMonth),
		RecordCount:     len(entries),
		ByHead:          s.byHead(ctx, entries),
	}, nil
}

// ExpenseStats totals the expense ledger, restricted to month (YYYY-MM)
// when given.
func (s *CashbookService) ExpenseStats(ctx context.Context, month *string) (*dto.ExpenseStats, error) {
	if month != nil && *month == "" {
		month = nil
	}
	if month != nil {
		if !validMonth(*month) {
			return nil, errValidation("month must be formatted as YYYY-MM")
		}
	}
	entries, err := s.repo.ListEntries(ctx, "")
	if err != nil {
		return nil, errInternal(err, "failed to load "+s.entryEntity()+"s")
	}
	selected := entries[:0:0]
	total := decimal.Zero
	for _, entry := range entries {
		if month != nil && !strings.HasPrefix(entry.Date, *month) {
			continue
		}
		selected = append(selected, entry)
		total = total.Add(amount(entry.Amount))
	}
	return &dto.ExpenseStats{
		TotalExpenses: toFloat(total),
		RecordCount:   len(selected),
		Month:         month,
		ByHead:        s.byHead(ctx, selected),
	}, nil
}

func (s *CashbookService) byHead(ctx context.Context, entries []models.CashEntry) []dto.CategoryTotal {
	totals := newCategoryTotals()
	for _, entry := range entries {
		totals.add(entry.HeadID, amount(entry.Amount))
	}
	heads := newSoftLookup(s.headEntity(), s.repo.FindHeadByID, s.logger)
	return totals.rows(func(id string) string {
		if head := heads.get(ctx, id); head != nil {
			return head.Name
		}
		return unknownName
	})
}

func (s *CashbookService) validateEntry(ctx context.Context, req CashEntryRequest) error {
	if err := validateStruct(s.validator, req, "invalid "+s.entryEntity()+" payload"); err != nil {
		return err
	}
	if !validDate(req.Date) {
		return errInvalidDate("date")
	}
	_, err := strictLookup(ctx, s.headEntity(), req.HeadID, s.repo.FindHeadByID)
	return err
}

func (s *CashbookService) entryView(ctx context.Context, entry models.CashEntry, heads *softLookup[models.Head]) dto.CashEntryView {
	view := dto.CashEntryView{CashEntry: entry, HeadName: unknownName}
	if head := heads.get(ctx, entry.HeadID); head != nil {
		view.HeadName = head.Name
	}
	return view
}

func (s *CashbookService) deleteError(err error, entity string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return errInternal(err, "failed to delete "+entity)
}

// categoryTotals accumulates amounts per reference id.
type categoryTotals struct {
	order  []string
	amount map[string]decimal.Decimal
	count  map[string]int
}

func newCategoryTotals() *categoryTotals {
	return &categoryTotals{amount: make(map[string]decimal.Decimal), count: make(map[string]int)}
}

func (c *categoryTotals) add(id string, value decimal.Decimal) {
	if _, ok := c.amount[id]; !ok {
		c.order = append(c.order, id)
	}
	c.amount[id] = c.amount[id].Add(value)
	c.count[id]++
}

// rows resolves names and sorts by name, then id.
func (c *categoryTotals) rows(name func(id string) string) []dto.CategoryTotal {
	rows := make([]dto.CategoryTotal, 0, len(c.order))
	for _, id := range c.order {
		rows = append(rows, dto.CategoryTotal{ID: id, Name: name(id), Amount: toFloat(c.amount[id]), Count: c.count[id]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}
