package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readquestapp/readquest-server/internal/domain"
	"github.com/readquestapp/readquest-server/internal/store"
)

func TestStore_Users_EmailIndexCaseInsensitive(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := domain.NewUser("usr-1", "Ada@Example.COM", "Ada", domain.RoleUser)
	require.NoError(t, s.Users.Create(ctx, u.ID, u))

	got, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", got.ID)

	got, err = s.GetUserByEmail(ctx, "  ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", got.ID)
}

func TestStore_Users_DuplicateEmailRejected(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := domain.NewUser("usr-1", "ada@example.com", "Ada", domain.RoleUser)
	require.NoError(t, s.Users.Create(ctx, first.ID, first))

	// Same address with different casing collides on the index.
	second := domain.NewUser("usr-2", "ADA@example.com", "Other Ada", domain.RoleUser)
	err := s.Users.Create(ctx, second.ID, second)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestStore_UpdateUserWith_Experience(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := domain.NewUser("usr-1", "ada@example.com", "Ada", domain.RoleUser)
	require.NoError(t, s.Users.Create(ctx, u.ID, u))

	got, err := s.UpdateUserWith(ctx, "usr-1", func(u *domain.User) error {
		return u.AddExperience(150)
	})
	require.NoError(t, err)
	assert.Equal(t, 150, got.Gamification.Experience)
	assert.Equal(t, 2, got.Gamification.Level)

	stored, err := s.Users.Get(ctx, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, 150, stored.Gamification.Experience)
}

func TestStore_ListUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"usr-1", "usr-2", "usr-3"} {
		u := domain.NewUser(id, id+"@example.com", id, domain.RoleUser)
		require.NoError(t, s.Users.Create(ctx, u.ID, u))
	}

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestStore_ListBooks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"book-1", "book-2"} {
		b := domain.NewBook(id, "Title "+id, "Author", 10)
		require.NoError(t, s.Books.Create(ctx, b.ID, b))
	}

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}
