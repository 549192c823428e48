package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// SessionRepository persists academic sessions.
type SessionRepository struct {
	store    docstore.Store
	sessions collection[models.Session]
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(store docstore.Store) *SessionRepository {
	return &SessionRepository{store: store, sessions: newCollection[models.Session](store, CollectionSessions)}
}

// Create inserts a session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	id, err := r.store.Insert(ctx, CollectionSessions, session)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	session.ID = id
	session.Version = 1
	return nil
}

// FindByID returns a session or docstore.ErrNotFound.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	return r.sessions.get(ctx, id)
}

// List returns every session.
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	return r.sessions.all(ctx)
}
