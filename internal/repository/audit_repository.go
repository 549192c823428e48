package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// AuditRepository appends audit trail entries.
type AuditRepository struct {
	store docstore.Store
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(store docstore.Store) *AuditRepository {
	return &AuditRepository{store: store}
}

// CreateAuditLog stores an audit log entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	id, err := r.store.Insert(ctx, CollectionAuditLogs, log)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	log.ID = id
	return nil
}
