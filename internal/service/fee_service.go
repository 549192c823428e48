package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type feeCatalogRepository interface {
	feeCatalogReader
	CreateGroup(ctx context.Context, group *models.FeeGroup) error
	ListGroups(ctx context.Context) ([]models.FeeGroup, error)
	UpdateGroup(ctx context.Context, id string, fields docstore.Fields) error
	DeleteGroup(ctx context.Context, id string) error
	CreateType(ctx context.Context, feeType *models.FeeType) error
	ListTypes(ctx context.Context, groupID string) ([]models.FeeType, error)
	UpdateType(ctx context.Context, id string, fields docstore.Fields) error
	DeleteType(ctx context.Context, id string) error
	CountTypesByGroup(ctx context.Context, groupID string) (int, error)
	CreateMaster(ctx context.Context, master *models.FeeMaster) error
	ListMasters(ctx context.Context) ([]models.FeeMaster, error)
	UpdateMaster(ctx context.Context, id string, fields docstore.Fields) error
	DeleteMaster(ctx context.Context, id string) error
	CountMastersBy(ctx context.Context, field, id string) (int, error)
}

type obligationCounter interface {
	CountByFeeMaster(ctx context.Context, feeMasterID string) (int, error)
}

// FeeGroupRequest creates or replaces a fee group.
type FeeGroupRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// FeeTypeRequest creates or replaces a fee type.
type FeeTypeRequest struct {
	FeeGroupID  string  `json:"feeGroupId" validate:"required"`
	Name        string  `json:"name" validate:"required,max=120"`
	Code        string  `json:"code" validate:"required,max=32"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// FeeMasterRequest creates or replaces a fee master.
type FeeMasterRequest struct {
	FeeGroupID string   `json:"feeGroupId" validate:"required"`
	FeeTypeID  string   `json:"feeTypeId" validate:"required"`
	SessionID  *string  `json:"sessionId,omitempty"`
	DueDate    string   `json:"dueDate" validate:"required"`
	Amount     float64  `json:"amount" validate:"gt=0"`
	FineType   string   `json:"fineType,omitempty"`
	FineAmount *float64 `json:"fineAmount,omitempty" validate:"omitempty,gte=0"`
	IsActive   *bool    `json:"isActive,omitempty"`
}

// FeeService manages the fee catalogue: groups, types and masters.
type FeeService struct {
	repo        feeCatalogRepository
	obligations obligationCounter
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         Clock
}

// NewFeeService constructs a FeeService.
func NewFeeService(repo feeCatalogRepository, obligations obligationCounter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, clock Clock) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = systemClock
	}
	return &FeeService{repo: repo, obligations: obligations, cache: cache, validator: validate, logger: logger, now: clock}
}

// ListGroups returns fee groups ordered by name.
func (s *FeeService) ListGroups(ctx context.Context) ([]models.FeeGroup, error) {
	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, errInternal(err, "failed to list fee groups")
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

// CreateGroup registers a fee group.
func (s *FeeService) CreateGroup(ctx context.Context, req FeeGroupRequest) (*models.FeeGroup, error) {
	if err := validateStruct(s.validator, req, "invalid fee group payload"); err != nil {
		return nil, err
	}
	group := &models.FeeGroup{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    boolOr(req.IsActive, true),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, errInternal(err, "failed to create fee group")
	}
	return group, nil
}

// UpdateGroup replaces the editable fields of a group.
func (s *FeeService) UpdateGroup(ctx context.Context, id string, req FeeGroupRequest) (*models.FeeGroup, error) {
	if err := validateStruct(s.validator, req, "invalid fee group payload"); err != nil {
		return nil, err
	}
	if _, err := strictLookup(ctx, "fee group", id, s.repo.FindGroupByID); err != nil {
		return nil, err
	}
	fields := docstore.Fields{
		"name":        strings.TrimSpace(req.Name),
		"description": req.Description,
	}
	if req.IsActive != nil {
		fields["isActive"] = *req.IsActive
	}
	if err := s.repo.UpdateGroup(ctx, id, fields); err != nil {
		return nil, errInternal(err, "failed to update fee group")
	}
	s.cache.InvalidateFinance(ctx)
	return strictLookup(ctx, "fee group", id, s.repo.FindGroupByID)
}

// DeleteGroup removes a group no type or master references.
func (s *FeeService) DeleteGroup(ctx context.Context, id string) error {
	if _, err := strictLookup(ctx, "fee group", id, s.repo.FindGroupByID); err != nil {
		return err
	}
	types, err := s.repo.CountTypesByGroup(ctx, id)
	if err != nil {
		return errInternal(err, "failed to check fee group usage")
	}
	masters, err := s.repo.CountMastersBy(ctx, "feeGroupId", id)
	if err != nil {
		return errInternal(err, "failed to check fee group usage")
	}
	if types > 0 || masters > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "fee group is referenced by fee types or fee masters")
	}
	return s.delete(ctx, "fee group", id, s.repo.DeleteGroup)
}

// ListTypes returns fee types, optionally of a single group, ordered by name.
func (s *FeeService) ListTypes(ctx context.Context, groupID string) ([]models.FeeType, error) {
	types, err := s.repo.ListTypes(ctx, groupID)
	if err != nil {
		return nil, errInternal(err, "failed to list fee types")
	}
	sort.SliceStable(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

// CreateType registers a fee type under an existing group.
func (s *FeeService) CreateType(ctx context.Context, req FeeTypeRequest) (*models.FeeType, error) {
	if err := validateStruct(s.validator, req, "invalid fee type payload"); err != nil {
		return nil, err
	}
	if _, err := strictLookup(ctx, "fee group", req.FeeGroupID, s.repo.FindGroupByID); err != nil {
		return nil, err
	}
	feeType := &models.FeeType{
		FeeGroupID:  req.FeeGroupID,
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Description: req.Description,
		IsActive:    boolOr(req.IsActive, true),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateType(ctx, feeType); err != nil {
		return nil, errInternal(err, "failed to create fee type")
	}
	return feeType, nil
}

// UpdateType replaces the editable fields of a fee type.
func (s *FeeService) UpdateType(ctx context.Context, id string, req FeeTypeRequest) (*models.FeeType, error) {
	if err := validateStruct(s.validator, req, "invalid fee type payload"); err != nil {
		return nil, err
	}
	if _, err := strictLookup(ctx, "fee type", id, s.repo.FindTypeByID); err != nil {
		return nil, err
	}
	if _, err := strictLookup(ctx, "fee group", req.FeeGroupID, s.repo.FindGroupByID); err != nil {
		return nil, err
	}
	fields := docstore.Fields{
		"feeGroupId":  req.FeeGroupID,
		"name":        strings.TrimSpace(req.Name),
		"code":        strings.ToUpper(strings.TrimSpace(req.Code)),
		"description": req.Description,
	}
	if req.IsActive != nil {
		fields["isActive"] = *req.IsActive
	}
	if err := s.repo.UpdateType(ctx, id, fields); err != nil {
		return nil, errInternal(err, "failed to update fee type")
	}
	s.cache.InvalidateFinance(ctx)
	return strictLookup(ctx, "fee type", id, s.repo.FindTypeByID)
}

// DeleteType removes a fee type no master references.
func (s *FeeService) DeleteType(ctx context.Context, id string) error {
	if _, err := strictLookup(ctx, "fee type", id, s.repo.FindTypeByID); err != nil {
		return err
	}
	masters, err := s.repo.CountMastersBy(ctx, "feeTypeId", id)
	if err != nil {
		return errInternal(err, "failed to check fee type usage")
	}
	if masters > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "fee type is referenced by fee masters")
	}
	return s.delete(ctx, "fee type", id, s.repo.DeleteType)
}

// ListMasters returns fee masters with their group and type names, ordered
// by due date.
func (s *FeeService) ListMasters(ctx context.Context) ([]dto.FeeMasterView, error) {
	masters, err := s.repo.ListMasters(ctx)
	if err != nil {
		return nil, errInternal(err, "failed to list fee masters")
	}
	groups := newSoftLookup("fee group", s.repo.FindGroupByID, s.logger)
	types := newSoftLookup("fee type", s.repo.FindTypeByID, s.logger)
	views := make([]dto.FeeMasterView, 0, len(masters))
	for _, master := range masters {
		views = append(views, s.masterView(ctx, master, groups, types))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].DueDate != views[j].DueDate {
			return views[i].DueDate < views[j].DueDate
		}
		return views[i].ID < views[j].ID
	})
	return views, nil
}

// GetMaster returns one fee master with names resolved.
func (s *FeeService) GetMaster(ctx context.Context, id string) (*dto.FeeMasterView, error) {
	master, err := strictLookup(ctx, "fee master", id, s.repo.FindMasterByID)
	if err != nil {
		return nil, err
	}
	view := s.masterView(ctx, *master,
		newSoftLookup("fee group", s.repo.FindGroupByID, s.logger),
		newSoftLookup("fee type", s.repo.FindTypeByID, s.logger))
	return &view, nil
}

// CreateMaster registers a billing rule. Existing obligations are never
// recomputed from masters.
func (s *FeeService) CreateMaster(ctx context.Context, req FeeMasterRequest) (*dto.FeeMasterView, error) {
	fineType, err := s.validateMaster(ctx, req)
	if err != nil {
		return nil, err
	}
	master := &models.FeeMaster{
		FeeGroupID: req.FeeGroupID,
		FeeTypeID:  req.FeeTypeID,
		SessionID:  req.SessionID,
		DueDate:    req.DueDate,
		Amount:     req.Amount,
		FineType:   fineType,
		FineAmount: req.FineAmount,
		IsActive:   boolOr(req.IsActive, true),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.CreateMaster(ctx, master); err != nil {
		return nil, errInternal(err, "failed to create fee master")
	}
	s.logger.Info("fee master created", zap.String("fee_master_id", master.ID), zap.Float64("amount", master.Amount))
	return s.GetMaster(ctx, master.ID)
}

// UpdateMaster replaces the editable fields of a fee master.
func (s *FeeService) UpdateMaster(ctx context.Context, id string, req FeeMasterRequest) (*dto.FeeMasterView, error) {
	if _, err := strictLookup(ctx, "fee master", id, s.repo.FindMasterByID); err != nil {
		return nil, err
	}
	fineType, err := s.validateMaster(ctx, req)
	if err != nil {
		return nil, err
	}
	fields := docstore.Fields{
		"feeGroupId": req.FeeGroupID,
		"feeTypeId":  req.FeeTypeID,
		"sessionId":  req.SessionID,
		"dueDate":    req.DueDate,
		"amount":     req.Amount,
		"fineType":   fineType,
		"fineAmount": req.FineAmount,
	}
	if req.IsActive != nil {
		fields["isActive"] = *req.IsActive
	}
	if err := s.repo.UpdateMaster(ctx, id, fields); err != nil {
		return nil, errInternal(err, "failed to update fee master")
	}
	s.cache.InvalidateFinance(ctx)
	return s.GetMaster(ctx, id)
}

// DeleteMaster removes a fee master that has no obligations.
func (s *FeeService) DeleteMaster(ctx context.Context, id string) error {
	if _, err := strictLookup(ctx, "fee master", id, s.repo.FindMasterByID); err != nil {
		return err
	}
	count, err := s.obligations.CountByFeeMaster(ctx, id)
	if err != nil {
		return errInternal(err, "failed to check fee master usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "fee master has student obligations")
	}
	if err := s.delete(ctx, "fee master", id, s.repo.DeleteMaster); err != nil {
		return err
	}
	s.cache.InvalidateFinance(ctx)
	return nil
}

func (s *FeeService) validateMaster(ctx context.Context, req FeeMasterRequest) (models.FineType, error) {
	if err := validateStruct(s.validator, req, "invalid fee master payload"); err != nil {
		return "", err
	}
	if !validDate(req.DueDate) {
		return "", errInvalidDate("dueDate")
	}
	fineType := models.FineType(req.FineType)
	if fineType == "" {
		fineType = models.FineTypeNone
	}
	switch fineType {
	case models.FineTypeNone, models.FineTypeFixed:
	case models.FineTypePercentage:
		if req.FineAmount != nil && *req.FineAmount > 100 {
			return "", errValidation("percentage fine must not exceed 100")
		}
	default:
		return "", errValidation("fineType must be one of None, Fixed, Percentage")
	}
	if _, err := strictLookup(ctx, "fee group", req.FeeGroupID, s.repo.FindGroupByID); err != nil {
		return "", err
	}
	feeType, err := strictLookup(ctx, "fee type", req.FeeTypeID, s.repo.FindTypeByID)
	if err != nil {
		return "", err
	}
	if feeType.FeeGroupID != req.FeeGroupID {
		return "", errValidation("fee type does not belong to fee group")
	}
	return fineType, nil
}

func (s *FeeService) masterView(ctx context.Context, master models.FeeMaster, groups *softLookup[models.FeeGroup], types *softLookup[models.FeeType]) dto.FeeMasterView {
	view := dto.FeeMasterView{FeeMaster: master, FeeGroupName: unknownName, FeeTypeName: unknownName}
	if group := groups.get(ctx, master.FeeGroupID); group != nil {
		view.FeeGroupName = group.Name
	}
	if feeType := types.get(ctx, master.FeeTypeID); feeType != nil {
		view.FeeTypeName = feeType.Name
	}
	return view
}

func (s *FeeService) delete(ctx context.Context, entity, id string, del func(context.Context, string) error) error {
	if err := del(ctx, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
		}
		return errInternal(err, "failed to delete "+entity)
	}
	s.logger.Info(entity+" deleted", zap.String("id", id))
	return nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
