package docstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStoreMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresStore(sqlxDB), mock, func() {
		sqlxDB.Close()
	}
}

func TestPostgresStoreInsertWithIDMapsUniqueViolation(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (collection, id, doc)")).
		WithArgs("things", "k1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (collection, id, doc)")).
		WithArgs("things", "k1", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	require.NoError(t, store.InsertWithID(context.Background(), "things", "k1", testDoc{Name: "a"}))
	err := store.InsertWithID(context.Background(), "things", "k1", testDoc{Name: "a"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM documents WHERE collection = $1 AND id = $2")).
		WithArgs("things", "k1").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(`{"id":"k1","name":"tuition","amount":5000,"version":3}`)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM documents WHERE collection = $1 AND id = $2")).
		WithArgs("things", "k2").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	var got testDoc
	require.NoError(t, store.Get(context.Background(), "things", "k1", &got))
	assert.Equal(t, "tuition", got.Name)
	assert.Equal(t, int64(3), got.Version)

	assert.ErrorIs(t, store.Get(context.Background(), "things", "k2", &got), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePatchIfVersion(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	update := regexp.QuoteMeta("UPDATE documents")
	exists := regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM documents")

	mock.ExpectExec(update).
		WithArgs("things", "k1", `{"amount":10}`, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(update).
		WithArgs("things", "k1", `{"amount":20}`, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).
		WithArgs("things", "k1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectExec(update).
		WithArgs("things", "gone", `{"amount":20}`, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).
		WithArgs("things", "gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ctx := context.Background()
	require.NoError(t, store.PatchIfVersion(ctx, "things", "k1", 1, Fields{"amount": 10}))
	assert.ErrorIs(t, store.PatchIfVersion(ctx, "things", "k1", 1, Fields{"amount": 20}), ErrVersionConflict)
	assert.ErrorIs(t, store.PatchIfVersion(ctx, "things", "gone", 1, Fields{"amount": 20, "version": 7}), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePatchAndDeleteMissing(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents")).
		WithArgs("things", "k9", `{"name":"x"}`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).
		WithArgs("things", "k9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.Patch(context.Background(), "things", "k9", Fields{"name": "x"}), ErrNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), "things", "k9"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindByUsesContainment(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"doc"}).
		AddRow([]byte(`{"id":"a","owner":"s1","version":1}`)).
		AddRow([]byte(`{"id":"b","owner":"s1","version":2}`))
	mock.ExpectQuery(regexp.QuoteMeta("doc @> $2::jsonb")).
		WithArgs("things", `{"owner":"s1"}`).
		WillReturnRows(rows)

	var got []testDoc
	require.NoError(t, store.FindBy(context.Background(), "things", "owner", "s1", &got))
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreFindAllPropagatesErrors(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM documents WHERE collection = $1 ORDER BY")).
		WithArgs("things").
		WillReturnError(errors.New("connection reset"))

	var got []testDoc
	assert.EqualError(t, store.FindAll(context.Background(), "things", &got), "connection reset")
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	store, mock, cleanup := newPostgresStoreMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS documents")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
