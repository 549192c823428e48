package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// FeeRepository persists the fee catalogue: groups, types and masters.
type FeeRepository struct {
	store   docstore.Store
	groups  collection[models.FeeGroup]
	types   collection[models.FeeType]
	masters collection[models.FeeMaster]
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(store docstore.Store) *FeeRepository {
	return &FeeRepository{
		store:   store,
		groups:  newCollection[models.FeeGroup](store, CollectionFeeGroups),
		types:   newCollection[models.FeeType](store, CollectionFeeTypes),
		masters: newCollection[models.FeeMaster](store, CollectionFeeMasters),
	}
}

// CreateGroup inserts a group and assigns its id.
func (r *FeeRepository) CreateGroup(ctx context.Context, group *models.FeeGroup) error {
	id, err := r.store.Insert(ctx, CollectionFeeGroups, group)
	if err != nil {
		return fmt.Errorf("create fee group: %w", err)
	}
	group.ID = id
	group.Version = 1
	return nil
}

// FindGroupByID returns a group or docstore.ErrNotFound.
func (r *FeeRepository) FindGroupByID(ctx context.Context, id string) (*models.FeeGroup, error) {
	return r.groups.get(ctx, id)
}

// ListGroups returns all groups.
func (r *FeeRepository) ListGroups(ctx context.Context) ([]models.FeeGroup, error) {
	return r.groups.all(ctx)
}

// UpdateGroup merges fields into a group.
func (r *FeeRepository) UpdateGroup(ctx context.Context, id string, fields docstore.Fields) error {
	return r.store.Patch(ctx, CollectionFeeGroups, id, fields)
}

// DeleteGroup removes a group.
func (r *FeeRepository) DeleteGroup(ctx context.Context, id string) error {
	return r.store.Delete(ctx, CollectionFeeGroups, id)
}

// CreateType inserts a fee type.
func (r *FeeRepository) CreateType(ctx context.Context, feeType *models.FeeType) error {
	id, err := r.store.Insert(ctx, CollectionFeeTypes, feeType)
	if err != nil {
		return fmt.Errorf("create fee type: %w", err)
	}
	feeType.ID = id
	feeType.Version = 1
	return nil
}

// FindTypeByID returns a fee type or docstore.ErrNotFound.
func (r *FeeRepository) FindTypeByID(ctx context.Context, id string) (*models.FeeType, error) {
	return r.types.get(ctx, id)
}

// ListTypes returns every type, or only those of groupID when set.
func (r *FeeRepository) ListTypes(ctx context.Context, groupID string) ([]models.FeeType, error) {
	if groupID != "" {
		return r.types.by(ctx, "feeGroupId", groupID)
	}
	return r.types.all(ctx)
}

// UpdateType merges fields into a fee type.
func (r *FeeRepository) UpdateType(ctx context.Context, id string, fields docstore.Fields) error {
	return r.store.Patch(ctx, CollectionFeeTypes, id, fields)
}

// DeleteType removes a fee type.
func (r *FeeRepository) DeleteType(ctx context.Context, id string) error {
	return r.store.Delete(ctx, CollectionFeeTypes, id)
}

// CountTypesByGroup counts fee types referencing groupID.
func (r *FeeRepository) CountTypesByGroup(ctx context.Context, groupID string) (int, error) {
	return r.types.count(ctx, "feeGroupId", groupID)
}

// CreateMaster inserts a fee master.
func (r *FeeRepository) CreateMaster(ctx context.Context, master *models.FeeMaster) error {
	id, err := r.store.Insert(ctx, CollectionFeeMasters, master)
	if err != nil {
		return fmt.Errorf("create fee master: %w", err)
	}
	master.ID = id
	master.Version = 1
	return nil
}

// FindMasterByID returns a fee master or docstore.ErrNotFound.
func (r *FeeRepository) FindMasterByID(ctx context.Context, id string) (*models.FeeMaster, error) {
	return r.masters.get(ctx, id)
}

// ListMasters returns every fee master.
func (r *FeeRepository) ListMasters(ctx context.Context) ([]models.FeeMaster, error) {
	return r.masters.all(ctx)
}

// UpdateMaster merges fields into a fee master.
func (r *FeeRepository) UpdateMaster(ctx context.Context, id string, fields docstore.Fields) error {
	return r.store.Patch(ctx, CollectionFeeMasters, id, fields)
}

// DeleteMaster removes a fee master.
func (r *FeeRepository) DeleteMaster(ctx context.Context, id string) error {
	return r.store.Delete(ctx, CollectionFeeMasters, id)
}

// CountMastersBy counts masters whose field (feeGroupId or feeTypeId) equals id.
func (r *FeeRepository) CountMastersBy(ctx context.Context, field, id string) (int, error) {
	return r.masters.count(ctx, field, id)
}
