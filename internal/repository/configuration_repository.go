package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
)

// ConfigurationRepository persists configuration entries keyed by name.
type ConfigurationRepository struct {
	store   docstore.Store
	configs collection[models.Configuration]
	now     func() time.Time
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(store docstore.Store) *ConfigurationRepository {
	return &ConfigurationRepository{
		store:   store,
		configs: newCollection[models.Configuration](store, CollectionConfigurations),
		now:     time.Now,
	}
}

// ListByKeys returns stored configurations whose key is in keys.
func (r *ConfigurationRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	all, err := r.configs.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	wanted := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		wanted[key] = struct{}{}
	}
	result := make([]models.Configuration, 0, len(keys))
	for _, cfg := range all {
		if _, ok := wanted[cfg.Key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

// Get fetches a single configuration by key, or docstore.ErrNotFound.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	return r.configs.get(ctx, key)
}

// Upsert writes a configuration entry in one store call.
func (r *ConfigurationRepository) Upsert(ctx context.Context, cfg *models.Configuration) error {
	cfg.UpdatedAt = r.now().UTC()
	if err := r.store.Upsert(ctx, CollectionConfigurations, cfg.Key, cfg); err != nil {
		return fmt.Errorf("upsert configuration %s: %w", cfg.Key, err)
	}
	return nil
}

// BulkUpsert writes each entry in turn, stopping at the first failure.
func (r *ConfigurationRepository) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	for i := range cfgs {
		if err := r.Upsert(ctx, &cfgs[i]); err != nil {
			return err
		}
	}
	return nil
}
