package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readquestapp/readquest-server/internal/config"
	"github.com/readquestapp/readquest-server/internal/domain"
	"github.com/readquestapp/readquest-server/internal/store"
)

type testServices struct {
	store        *store.Store
	users        *UserService
	books        *BookService
	progress     *ProgressService
	gamification *GamificationService
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	testStore, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { testStore.Close() })

	logger := slog.New(slog.DiscardHandler)
	cfg := config.GamificationConfig{
		ChapterCompletionXP: 10,
		SessionMinutesPerXP: 10,
	}

	gamification := NewGamificationService(testStore, logger)
	return &testServices{
		store:        testStore,
		users:        NewUserService(testStore, logger),
		books:        NewBookService(testStore, logger),
		progress:     NewProgressService(testStore, gamification, cfg, logger),
		gamification: gamification,
	}
}

func registerTestUser(t *testing.T, s *testServices, email string) *domain.User {
	t.Helper()
	user, err := s.users.Register(context.Background(), RegisterUserRequest{
		Email:       email,
		DisplayName: "Test Reader",
	})
	require.NoError(t, err)
	return user
}

func createTestBook(t *testing.T, s *testServices, totalChapters int) *domain.Book {
	t.Helper()
	book, err := s.books.Create(context.Background(), CreateBookRequest{
		Title:         "The Test Chronicles",
		Author:        "A. Writer",
		TotalChapters: totalChapters,
		TotalWords:    totalChapters * 2500,
	})
	require.NoError(t, err)
	return book
}

// completeBook marks every chapter of the book finished for the user.
func completeBook(t *testing.T, s *testServices, userID string, book *domain.Book) {
	t.Helper()
	ctx := context.Background()
	for ch := 1; ch <= book.TotalChapters; ch++ {
		_, err := s.progress.CompleteChapter(ctx, userID, book.ID, ChapterRequest{Chapter: ch})
		require.NoError(t, err)
	}
}
