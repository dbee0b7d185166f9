package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readquestapp/readquest-server/internal/store"
)

type TestEntity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestEntity_Create_Success(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	testData := &TestEntity{
		ID:    "1",
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}

	err := entity.Create(context.Background(), "1", testData)
	require.NoError(t, err)

	retrieved, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, testData.ID, retrieved.ID)
	require.Equal(t, testData.Name, retrieved.Name)
	require.Equal(t, testData.Email, retrieved.Email)
}

func TestEntity_Create_Duplicate(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	err := entity.Create(context.Background(), "1", &TestEntity{ID: "1"})
	require.NoError(t, err)

	err = entity.Create(context.Background(), "1", &TestEntity{ID: "1"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_Get_NotFound(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	_, err := entity.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Update(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	require.NoError(t, entity.Create(context.Background(), "1", &TestEntity{ID: "1", Name: "before"}))

	err := entity.Update(context.Background(), "1", &TestEntity{ID: "1", Name: "after"})
	require.NoError(t, err)

	got, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
}

func TestEntity_Update_NotFound(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	err := entity.Update(context.Background(), "missing", &TestEntity{ID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_UpdateWith_AppliesMutation(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	require.NoError(t, entity.Create(context.Background(), "1", &TestEntity{ID: "1", Name: "x"}))

	got, err := entity.UpdateWith(context.Background(), "1", func(e *TestEntity) error {
		e.Name = e.Name + "y"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "xy", got.Name)

	stored, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "xy", stored.Name)
}

func TestEntity_UpdateWith_MutationErrorAborts(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	require.NoError(t, entity.Create(context.Background(), "1", &TestEntity{ID: "1", Name: "keep"}))

	boom := errors.New("boom")
	_, err := entity.UpdateWith(context.Background(), "1", func(e *TestEntity) error {
		e.Name = "discard"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := entity.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "keep", stored.Name, "failed mutation must not be persisted")
}

func TestEntity_UpdateWith_NotFound(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	_, err := entity.UpdateWith(context.Background(), "missing", func(*TestEntity) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Delete_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	require.NoError(t, entity.Create(context.Background(), "1", &TestEntity{ID: "1"}))

	require.NoError(t, entity.Delete(context.Background(), "1"))
	require.NoError(t, entity.Delete(context.Background(), "1"), "second delete is a no-op")

	_, err := entity.Get(context.Background(), "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Index_UniqueConstraint(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:").
		WithIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	require.NoError(t, entity.Create(context.Background(), "1", &TestEntity{ID: "1", Email: "ada@example.com"}))

	err := entity.Create(context.Background(), "2", &TestEntity{ID: "2", Email: "ada@example.com"})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_GetByIndex(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:").
		WithIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	require.NoError(t, entity.Create(context.Background(), "1", &TestEntity{ID: "1", Name: "Ada", Email: "ada@example.com"}))

	got, err := entity.GetByIndex(context.Background(), "email", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = entity.GetByIndex(context.Background(), "email", "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_Index_MovesOnUpdate(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:").
		WithIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	require.NoError(t, entity.Create(context.Background(), "1", &TestEntity{ID: "1", Email: "old@example.com"}))
	require.NoError(t, entity.Update(context.Background(), "1", &TestEntity{ID: "1", Email: "new@example.com"}))

	// Old index key is released, new one resolves.
	_, err := entity.GetByIndex(context.Background(), "email", "old@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := entity.GetByIndex(context.Background(), "email", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
}

func TestEntity_ListPrefix(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	require.NoError(t, entity.Create(context.Background(), "usr-1:book-a", &TestEntity{ID: "usr-1:book-a"}))
	require.NoError(t, entity.Create(context.Background(), "usr-1:book-b", &TestEntity{ID: "usr-1:book-b"}))
	require.NoError(t, entity.Create(context.Background(), "usr-2:book-a", &TestEntity{ID: "usr-2:book-a"}))

	var ids []string
	for e, err := range entity.ListPrefix(context.Background(), "usr-1:") {
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	assert.ElementsMatch(t, []string{"usr-1:book-a", "usr-1:book-b"}, ids)
}

func TestEntity_List_SkipsIndexKeys(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:").
		WithIndex("email", func(e *TestEntity) []string {
			return []string{e.Email}
		})

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("%d", i)
		require.NoError(t, entity.Create(context.Background(), id, &TestEntity{ID: id, Email: id + "@example.com"}))
	}

	var count int
	for _, err := range entity.List(context.Background()) {
		require.NoError(t, err)
		count++
	}

	assert.Equal(t, 3, count)
}

func TestEntity_Page(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("%02d", i)
		require.NoError(t, entity.Create(context.Background(), id, &TestEntity{ID: id}))
	}

	page1, err := entity.Page(context.Background(), store.PaginationParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.True(t, page1.HasMore)
	assert.NotEmpty(t, page1.NextCursor)
	assert.Equal(t, "01", page1.Items[0].ID)
	assert.Equal(t, "02", page1.Items[1].ID)

	page2, err := entity.Page(context.Background(), store.PaginationParams{Limit: 2, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)
	assert.Equal(t, "03", page2.Items[0].ID)
	assert.Equal(t, "04", page2.Items[1].ID)
	assert.True(t, page2.HasMore)

	page3, err := entity.Page(context.Background(), store.PaginationParams{Limit: 2, Cursor: page2.NextCursor})
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.False(t, page3.HasMore)
	assert.Empty(t, page3.NextCursor)
}

func TestEntity_Page_InvalidCursor(t *testing.T) {
	s := setupTestStore(t)
	entity := store.NewEntity[TestEntity](s, "test:")

	_, err := entity.Page(context.Background(), store.PaginationParams{Limit: 2, Cursor: "%%%not-base64%%%"})
	assert.Error(t, err)
}
