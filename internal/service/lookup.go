package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

const unknownName = "Unknown"

// strictLookup resolves a reference on a write path. An empty id is a
// validation error and a missing record is NotFound naming the entity.
func strictLookup[T any](ctx context.Context, entity, id string, find func(context.Context, string) (*T, error)) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, entity+" id is required")
	}
	rec, err := find(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
	}
	return rec, nil
}

// softLookup resolves references on a read path. Results, including misses,
// are memoised for the lifetime of the lookup, which is one call.
type softLookup[T any] struct {
	entity string
	find   func(context.Context, string) (*T, error)
	logger *zap.Logger
	seen   map[string]*T
}

func newSoftLookup[T any](entity string, find func(context.Context, string) (*T, error), logger *zap.Logger) *softLookup[T] {
	return &softLookup[T]{entity: entity, find: find, logger: logger, seen: make(map[string]*T)}
}

// get returns nil when the record is missing or unreadable.
func (l *softLookup[T]) get(ctx context.Context, id string) *T {
	if rec, ok := l.seen[id]; ok {
		return rec
	}
	var rec *T
	if id != "" {
		found, err := l.find(ctx, id)
		switch {
		case err == nil:
			rec = found
		case errors.Is(err, docstore.ErrNotFound):
			l.logger.Debug("reference missing", zap.String("entity", l.entity), zap.String("id", id))
		default:
			l.logger.Warn("reference lookup failed", zap.String("entity", l.entity), zap.String("id", id), zap.Error(err))
		}
	}
	l.seen[id] = rec
	return rec
}

func strPtr(v string) *string {
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
