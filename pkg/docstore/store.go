// Package docstore provides a small document-database contract over
// collections of JSON-shaped records keyed by string identifiers, with
// memory, PostgreSQL (JSONB) and MongoDB backends.
package docstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Reserved document keys managed by the store.
const (
	FieldID      = "id"
	FieldVersion = "version"
)

var (
	// ErrNotFound is returned when no document matches the given id.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrDuplicateKey is returned when inserting an id that already exists.
	ErrDuplicateKey = errors.New("docstore: duplicate key")
	// ErrVersionConflict is returned when a guarded patch observes a newer version.
	ErrVersionConflict = errors.New("docstore: version conflict")
	// ErrInvalidArgument is returned for empty collection names, ids or fields.
	ErrInvalidArgument = errors.New("docstore: invalid argument")
)

// Fields is a partial document used for merge patches.
type Fields map[string]interface{}

// Store is the document store contract used by repositories.
//
// Every document carries an "id" and a "version". Inserts set version to 1
// and every successful patch increments it. Patches merge top-level fields and
// never replace the whole document. Find results have no guaranteed order.
type Store interface {
	Insert(ctx context.Context, collection string, doc interface{}) (string, error)
	InsertWithID(ctx context.Context, collection, id string, doc interface{}) error
	Upsert(ctx context.Context, collection, id string, doc interface{}) error
	Get(ctx context.Context, collection, id string, dest interface{}) error
	Patch(ctx context.Context, collection, id string, fields Fields) error
	PatchIfVersion(ctx context.Context, collection, id string, version int64, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	FindBy(ctx context.Context, collection, field string, value interface{}, dest interface{}) error
	FindAll(ctx context.Context, collection string, dest interface{}) error
	Ping(ctx context.Context) error
}

// NewID returns a fresh document identifier.
func NewID() string {
	return uuid.NewString()
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func checkKey(collection, id string) error {
	if strings.TrimSpace(collection) == "" || strings.TrimSpace(id) == "" {
		return ErrInvalidArgument
	}
	return nil
}

// sanitize drops store-managed keys so callers cannot rewrite identity or version.
func sanitize(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if k == FieldID || k == FieldVersion || k == "_id" || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
