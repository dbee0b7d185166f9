package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readquestapp/readquest-server/internal/domain"
	"github.com/readquestapp/readquest-server/internal/store"
)

func createProgress(t *testing.T, s *store.Store, userID, bookID string) *domain.ReadingProgress {
	t.Helper()
	p := domain.NewReadingProgress(userID, bookID)
	require.NoError(t, s.Progress.Create(context.Background(), domain.ProgressID(userID, bookID), p))
	return p
}

func TestStore_GetProgress(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createProgress(t, s, "usr-1", "book-1")

	got, err := s.GetProgress(ctx, "usr-1", "book-1")
	require.NoError(t, err)
	assert.Equal(t, "usr-1", got.UserID)
	assert.Equal(t, "book-1", got.BookID)
	assert.Equal(t, domain.StatusNotStarted, got.Status)

	_, err = s.GetProgress(ctx, "usr-1", "book-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Progress_OneRecordPerUserBook(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createProgress(t, s, "usr-1", "book-1")

	dup := domain.NewReadingProgress("usr-1", "book-1")
	err := s.Progress.Create(ctx, domain.ProgressID("usr-1", "book-1"), dup)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestStore_ListUserProgress(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createProgress(t, s, "usr-1", "book-a")
	createProgress(t, s, "usr-1", "book-b")
	createProgress(t, s, "usr-2", "book-a")

	records, err := s.ListUserProgress(ctx, "usr-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, p := range records {
		assert.Equal(t, "usr-1", p.UserID)
	}

	records, err = s.ListUserProgress(ctx, "usr-3")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_UpdateProgressWith(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createProgress(t, s, "usr-1", "book-1")
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	got, err := s.UpdateProgressWith(ctx, "usr-1", "book-1", func(p *domain.ReadingProgress) error {
		return p.StartSession(1, now)
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, got.Status)
	require.Len(t, got.Sessions, 1)

	stored, err := s.GetProgress(ctx, "usr-1", "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, stored.Status)
	require.NotNil(t, stored.StartedAt)
	assert.True(t, stored.StartedAt.Equal(now))
}

func TestStore_UpdateProgressWith_InvalidTransitionNotPersisted(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	createProgress(t, s, "usr-1", "book-1")
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.UpdateProgressWith(ctx, "usr-1", "book-1", func(p *domain.ReadingProgress) error {
		return p.SetStatus(domain.StatusCompleted, now)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := s.GetProgress(ctx, "usr-1", "book-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotStarted, stored.Status)
}
