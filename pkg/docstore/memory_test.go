package docstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	ID      string  `json:"id" bson:"_id"`
	Name    string  `json:"name" bson:"name"`
	Owner   string  `json:"owner" bson:"owner"`
	Amount  float64 `json:"amount" bson:"amount"`
	Version int64   `json:"version" bson:"version"`
}

func TestMemoryStoreInsertAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, "things", testDoc{Name: "tuition", Owner: "s1", Amount: 5000})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var got testDoc
	require.NoError(t, store.Get(ctx, "things", id, &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "tuition", got.Name)
	assert.Equal(t, 5000.0, got.Amount)
	assert.Equal(t, int64(1), got.Version)

	err = store.Get(ctx, "things", "missing", &got)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestMemoryStoreInsertWithIDRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.InsertWithID(ctx, "things", "fixed", testDoc{Name: "a"}))
	err := store.InsertWithID(ctx, "things", "fixed", testDoc{Name: "b"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	var got testDoc
	require.NoError(t, store.Get(ctx, "things", "fixed", &got))
	assert.Equal(t, "a", got.Name)

	// same id in another collection is fine
	require.NoError(t, store.InsertWithID(ctx, "others", "fixed", testDoc{Name: "c"}))
}

func TestMemoryStorePatchMergesAndBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id, err := store.Insert(ctx, "things", testDoc{Name: "tuition", Owner: "s1", Amount: 10})
	require.NoError(t, err)

	require.NoError(t, store.Patch(ctx, "things", id, Fields{"amount": 25.5, "version": 99, "id": "hijack"}))

	var got testDoc
	require.NoError(t, store.Get(ctx, "things", id, &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "tuition", got.Name)
	assert.Equal(t, 25.5, got.Amount)
	assert.Equal(t, int64(2), got.Version)

	assert.ErrorIs(t, store.Patch(ctx, "things", "nope", Fields{"amount": 1}), ErrNotFound)
}

func TestMemoryStorePatchIfVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id, err := store.Insert(ctx, "things", testDoc{Name: "x"})
	require.NoError(t, err)

	require.NoError(t, store.PatchIfVersion(ctx, "things", id, 1, Fields{"amount": 1}))
	assert.ErrorIs(t, store.PatchIfVersion(ctx, "things", id, 1, Fields{"amount": 2}), ErrVersionConflict)
	assert.ErrorIs(t, store.PatchIfVersion(ctx, "things", "nope", 1, Fields{"amount": 2}), ErrNotFound)

	var got testDoc
	require.NoError(t, store.Get(ctx, "things", id, &got))
	assert.Equal(t, 1.0, got.Amount)
}

func TestMemoryStoreConcurrentGuardedPatchesAllowSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	id, err := store.Insert(ctx, "things", testDoc{Name: "x"})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes int32
		conflicts int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := store.PatchIfVersion(ctx, "things", id, 1, Fields{"amount": n})
			switch err {
			case nil:
				atomic.AddInt32(&successes, 1)
			case ErrVersionConflict:
				atomic.AddInt32(&conflicts, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(31), conflicts)
}

func TestMemoryStoreFindByAndFindAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, doc := range []testDoc{
		{Name: "a", Owner: "s1", Amount: 100},
		{Name: "b", Owner: "s2", Amount: 200},
		{Name: "c", Owner: "s1", Amount: 200},
	} {
		_, err := store.Insert(ctx, "things", doc)
		require.NoError(t, err)
	}

	var owned []testDoc
	require.NoError(t, store.FindBy(ctx, "things", "owner", "s1", &owned))
	require.Len(t, owned, 2)
	assert.Equal(t, "a", owned[0].Name)
	assert.Equal(t, "c", owned[1].Name)

	var priced []testDoc
	require.NoError(t, store.FindBy(ctx, "things", "amount", 200, &priced))
	assert.Len(t, priced, 2)

	var byID []testDoc
	require.NoError(t, store.FindBy(ctx, "things", "id", owned[0].ID, &byID))
	require.Len(t, byID, 1)

	var all []testDoc
	require.NoError(t, store.FindAll(ctx, "things", &all))
	assert.Len(t, all, 3)

	var none []testDoc
	require.NoError(t, store.FindAll(ctx, "empty", &none))
	assert.Empty(t, none)
}

func TestMemoryStoreUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "settings", "currency", testDoc{Name: "INR"}))
	require.NoError(t, store.Upsert(ctx, "settings", "currency", testDoc{Name: "IDR"}))

	var got testDoc
	require.NoError(t, store.Get(ctx, "settings", "currency", &got))
	assert.Equal(t, "IDR", got.Name)
	assert.Equal(t, int64(2), got.Version)

	require.NoError(t, store.Delete(ctx, "settings", "currency"))
	assert.ErrorIs(t, store.Delete(ctx, "settings", "currency"), ErrNotFound)
}

func TestMemoryStoreRejectsBlankKeys(t *testing.T) {
	store := NewMemoryStore()
	assert.ErrorIs(t, store.InsertWithID(context.Background(), "", "x", testDoc{}), ErrInvalidArgument)
	assert.ErrorIs(t, store.Get(context.Background(), "things", " ", &testDoc{}), ErrInvalidArgument)
}
