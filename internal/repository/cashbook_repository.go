package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// CashbookRepository persists heads and entries of one ledger, income or
// expense.
type CashbookRepository struct {
	kind           models.CashbookKind
	store          docstore.Store
	headCollection string
	entryColl      string
	heads          collection[models.Head]
	entries        collection[models.CashEntry]
}

// NewCashbookRepository constructs the repository for kind.
func NewCashbookRepository(store docstore.Store, kind models.CashbookKind) *CashbookRepository {
	headColl, entryColl := CollectionIncomeHeads, CollectionIncome
	if kind == models.CashbookExpense {
		headColl, entryColl = CollectionExpenseHeads, CollectionExpenses
	}
	return &CashbookRepository{
		kind:           kind,
		store:          store,
		headCollection: headColl,
		entryColl:      entryColl,
		heads:          newCollection[models.Head](store, headColl),
		entries:        newCollection[models.CashEntry](store, entryColl),
	}
}

// Kind reports which ledger the repository serves.
func (r *CashbookRepository) Kind() models.CashbookKind {
	return r.kind
}

// CreateHead inserts a head.
func (r *CashbookRepository) CreateHead(ctx context.Context, head *models.Head) error {
	id, err := r.store.Insert(ctx, r.headCollection, head)
	if err != nil {
		return fmt.Errorf("create %s head: %w", r.kind, err)
	}
	head.ID = id
	head.Version = 1
	return nil
}

// FindHeadByID returns a head or docstore.ErrNotFound.
func (r *CashbookRepository) FindHeadByID(ctx context.Context, id string) (*models.Head, error) {
	return r.heads.get(ctx, id)
}

// ListHeads returns every head.
func (r *CashbookRepository) ListHeads(ctx context.Context) ([]models.Head, error) {
	return r.heads.all(ctx)
}

// UpdateHead merges fields into a head.
func (r *CashbookRepository) UpdateHead(ctx context.Context, id string, fields docstore.Fields) error {
	return r.store.Patch(ctx, r.headCollection, id, fields)
}

// DeleteHead removes a head.
func (r *CashbookRepository) DeleteHead(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.headCollection, id)
}

// CreateEntry inserts an entry.
func (r *CashbookRepository) CreateEntry(ctx context.Context, entry *models.CashEntry) error {
	id, err := r.store.Insert(ctx, r.entryColl, entry)
	if err != nil {
		return fmt.Errorf("create %s entry: %w", r.kind, err)
	}
	entry.ID = id
	entry.Version = 1
	return nil
}

// FindEntryByID returns an entry or docstore.ErrNotFound.
func (r *CashbookRepository) FindEntryByID(ctx context.Context, id string) (*models.CashEntry, error) {
	return r.entries.get(ctx, id)
}

// ListEntries returns every entry, or those of one head when headID is set.
func (r *CashbookRepository) ListEntries(ctx context.Context, headID string) ([]models.CashEntry, error) {
	if headID != "" {
		return r.entries.by(ctx, "headId", headID)
	}
	return r.entries.all(ctx)
}

// CountEntriesByHead counts entries tagged with headID.
func (r *CashbookRepository) CountEntriesByHead(ctx context.Context, headID string) (int, error) {
	return r.entries.count(ctx, "headId", headID)
}

// UpdateEntry merges fields into an entry.
func (r *CashbookRepository) UpdateEntry(ctx context.Context, id string, fields docstore.Fields) error {
	return r.store.Patch(ctx, r.entryColl, id, fields)
}

// DeleteEntry removes an entry.
func (r *CashbookRepository) DeleteEntry(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.entryColl, id)
}
