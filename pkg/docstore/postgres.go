package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Schema is the DDL for the single JSONB table backing PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	doc JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_doc ON documents USING GIN (doc jsonb_path_ops);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents (collection, created_at);
`

// PostgresStore keeps every collection in one JSONB table keyed by
// (collection, id). Equality scans use the GIN containment index.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open sqlx handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// EnsureSchema creates the documents table and its indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("docstore: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, collection string, doc interface{}) (string, error) {
	id := NewID()
	if err := s.InsertWithID(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) InsertWithID(ctx context.Context, collection, id string, doc interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	raw, err := encodeJSON(doc, id, 1)
	if err != nil {
		return err
	}
	const query = `INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3::jsonb)`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(raw)); err != nil {
		return mapPostgresError(err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, collection, id string, doc interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	raw, err := encodeJSON(doc, id, 1)
	if err != nil {
		return err
	}
	const query = `INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE
SET doc = EXCLUDED.doc || jsonb_build_object('version', COALESCE((documents.doc->>'version')::bigint, 0) + 1),
	updated_at = NOW()`
	if _, err := s.db.ExecContext(ctx, query, collection, id, string(raw)); err != nil {
		return mapPostgresError(err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string, dest interface{}) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	var raw []byte
	const query = `SELECT doc FROM documents WHERE collection = $1 AND id = $2`
	if err := s.db.QueryRowxContext(ctx, query, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return decodeOne(raw, dest)
}

func (s *PostgresStore) Patch(ctx context.Context, collection, id string, fields Fields) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	raw, err := json.Marshal(sanitize(fields))
	if err != nil {
		return fmt.Errorf("docstore: encode patch: %w", err)
	}
	const query = `UPDATE documents
SET doc = doc || $3::jsonb || jsonb_build_object('version', COALESCE((doc->>'version')::bigint, 0) + 1),
	updated_at = NOW()
WHERE collection = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, query, collection, id, string(raw))
	if err != nil {
		return mapPostgresError(err)
	}
	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) PatchIfVersion(ctx context.Context, collection, id string, version int64, fields Fields) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	raw, err := json.Marshal(sanitize(fields))
	if err != nil {
		return fmt.Errorf("docstore: encode patch: %w", err)
	}
	const query = `UPDATE documents
SET doc = doc || $3::jsonb || jsonb_build_object('version', COALESCE((doc->>'version')::bigint, 0) + 1),
	updated_at = NOW()
WHERE collection = $1 AND id = $2 AND COALESCE((doc->>'version')::bigint, 0) = $4`
	res, err := s.db.ExecContext(ctx, query, collection, id, string(raw), version)
	if err != nil {
		return mapPostgresError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	const existsQuery = `SELECT EXISTS(SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`
	if err := s.db.QueryRowxContext(ctx, existsQuery, collection, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if err := checkKey(collection, id); err != nil {
		return err
	}
	const query = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return err
	}
	return requireAffected(res, ErrNotFound)
}

func (s *PostgresStore) FindBy(ctx context.Context, collection, field string, value interface{}, dest interface{}) error {
	if field == "" {
		return ErrInvalidArgument
	}
	filter, err := json.Marshal(map[string]interface{}{field: value})
	if err != nil {
		return fmt.Errorf("docstore: encode filter: %w", err)
	}
	var raws [][]byte
	const query = `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY created_at, id`
	if err := s.db.SelectContext(ctx, &raws, query, collection, string(filter)); err != nil {
		return err
	}
	return decodeList(raws, dest)
}

func (s *PostgresStore) FindAll(ctx context.Context, collection string, dest interface{}) error {
	var raws [][]byte
	const query = `SELECT doc FROM documents WHERE collection = $1 ORDER BY created_at, id`
	if err := s.db.SelectContext(ctx, &raws, query, collection); err != nil {
		return err
	}
	return decodeList(raws, dest)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

func mapPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ErrDuplicateKey
	}
	return err
}
