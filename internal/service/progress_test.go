package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readquestapp/readquest-server/internal/domain"
	apperrors "github.com/readquestapp/readquest-server/internal/errors"
)

func TestProgressService_StartReading(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "start@example.com")
	book := createTestBook(t, s, 10)

	progress, err := s.progress.StartReading(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, progress.Status)
	require.NotNil(t, progress.StartedAt)

	// Starting counts as streak activity.
	fetched, err := s.users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.Gamification.Streak.Current)
}

func TestProgressService_StartReading_UnknownBook(t *testing.T) {
	s := setupTestServices(t)
	user := registerTestUser(t, s, "nobook@example.com")

	_, err := s.progress.StartReading(context.Background(), user.ID, "book_missing")
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestProgressService_SetStatus(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "status@example.com")
	book := createTestBook(t, s, 10)

	_, err := s.progress.StartReading(ctx, user.ID, book.ID)
	require.NoError(t, err)

	progress, err := s.progress.SetStatus(ctx, user.ID, book.ID, SetStatusRequest{Status: "paused"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, progress.Status)

	progress, err = s.progress.SetStatus(ctx, user.ID, book.ID, SetStatusRequest{Status: "reading"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, progress.Status)
}

func TestProgressService_SetStatus_InvalidTransition(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "badmove@example.com")
	book := createTestBook(t, s, 10)

	_, err := s.progress.StartReading(ctx, user.ID, book.ID)
	require.NoError(t, err)

	_, err = s.progress.SetStatus(ctx, user.ID, book.ID, SetStatusRequest{Status: "abandoned"})
	require.NoError(t, err)

	// Abandoned is terminal.
	_, err = s.progress.SetStatus(ctx, user.ID, book.ID, SetStatusRequest{Status: "reading"})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)
}

func TestProgressService_SetStatus_UnknownValue(t *testing.T) {
	s := setupTestServices(t)
	user := registerTestUser(t, s, "badstatus@example.com")
	book := createTestBook(t, s, 10)

	_, err := s.progress.SetStatus(context.Background(), user.ID, book.ID, SetStatusRequest{Status: "finished"})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestProgressService_Sessions(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "session@example.com")
	book := createTestBook(t, s, 10)

	progress, err := s.progress.StartSession(ctx, user.ID, book.ID, StartSessionRequest{Chapter: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, progress.Status)
	assert.Equal(t, 2, progress.CurrentChapter)
	require.NotNil(t, progress.OpenSession())

	resp, err := s.progress.EndSession(ctx, user.ID, book.ID, EndSessionRequest{WordsRead: 1200})
	require.NoError(t, err)
	assert.True(t, resp.Closed)
	assert.Nil(t, resp.Progress.OpenSession())
	assert.Equal(t, 1200, resp.Progress.Sessions[0].WordsRead)
	require.NotNil(t, resp.Evaluation)
}

func TestProgressService_EndSession_NoOpenSession(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "noopen@example.com")
	book := createTestBook(t, s, 10)

	_, err := s.progress.StartReading(ctx, user.ID, book.ID)
	require.NoError(t, err)

	resp, err := s.progress.EndSession(ctx, user.ID, book.ID, EndSessionRequest{WordsRead: 500})
	require.NoError(t, err)
	assert.False(t, resp.Closed)
	assert.Equal(t, 0, resp.DurationMin)
	assert.Equal(t, 0, resp.ExperienceAwarded)
	assert.Nil(t, resp.Evaluation)
}

func TestProgressService_StartSession_InvalidChapter(t *testing.T) {
	s := setupTestServices(t)
	user := registerTestUser(t, s, "badchapter@example.com")
	book := createTestBook(t, s, 10)

	for _, chapter := range []int{11, -3} {
		_, err := s.progress.StartSession(context.Background(), user.ID, book.ID, StartSessionRequest{Chapter: chapter})
		require.Error(t, err, "chapter=%d", chapter)

		var appErr *apperrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	}
}

func TestProgressService_CompleteChapter(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "chapter@example.com")
	book := createTestBook(t, s, 10)

	resp, err := s.progress.CompleteChapter(ctx, user.ID, book.ID, ChapterRequest{Chapter: 1})
	require.NoError(t, err)
	assert.False(t, resp.BookCompleted)
	assert.Equal(t, 10, resp.ExperienceAwarded)
	assert.Equal(t, 10, resp.Progress.ProgressPercentage)

	// Completing the same chapter again awards nothing.
	resp, err = s.progress.CompleteChapter(ctx, user.ID, book.ID, ChapterRequest{Chapter: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ExperienceAwarded)
	assert.Len(t, resp.Progress.ChaptersCompleted, 1)

	fetched, err := s.users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, fetched.Gamification.Experience)
}

func TestProgressService_CompleteChapter_AbandonedBook(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "gaveup@example.com")
	book := createTestBook(t, s, 1)

	_, err := s.progress.StartReading(ctx, user.ID, book.ID)
	require.NoError(t, err)
	_, err = s.progress.SetStatus(ctx, user.ID, book.ID, SetStatusRequest{Status: "abandoned"})
	require.NoError(t, err)

	_, err = s.progress.CompleteChapter(ctx, user.ID, book.ID, ChapterRequest{Chapter: 1})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeInvalidState, appErr.Code)

	// The record stays abandoned and nothing was awarded or counted.
	progress, err := s.progress.Get(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAbandoned, progress.Status)
	assert.Empty(t, progress.ChaptersCompleted)
	assert.Nil(t, progress.CompletedAt)

	fetched, err := s.users.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, fetched.Gamification.Experience)
	assert.Empty(t, fetched.Gamification.Achievements)
}

func TestProgressService_CompleteChapter_FinishesBook(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "finish@example.com")
	book := createTestBook(t, s, 3)

	for ch := 1; ch <= 2; ch++ {
		resp, err := s.progress.CompleteChapter(ctx, user.ID, book.ID, ChapterRequest{Chapter: ch})
		require.NoError(t, err)
		assert.False(t, resp.BookCompleted)
	}

	resp, err := s.progress.CompleteChapter(ctx, user.ID, book.ID, ChapterRequest{Chapter: 3})
	require.NoError(t, err)
	assert.True(t, resp.BookCompleted)
	assert.Equal(t, domain.StatusCompleted, resp.Progress.Status)
	assert.Equal(t, 100, resp.Progress.ProgressPercentage)
	require.NotNil(t, resp.Evaluation)

	var ids []string
	for _, rule := range resp.Evaluation.NewAchievements {
		ids = append(ids, rule.ID)
	}
	assert.Contains(t, ids, "first-book-completed")
}

func TestProgressService_Bookmarks(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "bookmark@example.com")
	book := createTestBook(t, s, 10)

	bookmark, err := s.progress.AddBookmark(ctx, user.ID, book.ID, AddBookmarkRequest{
		Chapter:  4,
		Position: "paragraph 12",
		Label:    "plot twist",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, bookmark.ID)

	progress, err := s.progress.Get(ctx, user.ID, book.ID)
	require.NoError(t, err)
	require.Len(t, progress.Bookmarks, 1)
	assert.Equal(t, "plot twist", progress.Bookmarks[0].Label)
}

func TestProgressService_Notes(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "notes@example.com")
	book := createTestBook(t, s, 10)

	note, err := s.progress.AddNote(ctx, user.ID, book.ID, AddNoteRequest{
		Chapter: 2,
		Text:    "The unreliable narrator shows here.",
	})
	require.NoError(t, err)

	err = s.progress.DeleteNote(ctx, user.ID, book.ID, note.ID)
	require.NoError(t, err)

	progress, err := s.progress.Get(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Empty(t, progress.Notes)

	err = s.progress.DeleteNote(ctx, user.ID, book.ID, note.ID)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestProgressService_SubmitQuiz(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "quiz@example.com")
	book := createTestBook(t, s, 10)

	result, err := s.progress.SubmitQuiz(ctx, user.ID, book.ID, SubmitQuizRequest{
		Chapter: 1,
		Score:   8,
		Total:   10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)

	_, err = s.progress.SubmitQuiz(ctx, user.ID, book.ID, SubmitQuizRequest{
		Chapter: 1,
		Score:   11,
		Total:   10,
	})
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestProgressService_ListForUser(t *testing.T) {
	s := setupTestServices(t)
	ctx := context.Background()
	user := registerTestUser(t, s, "list@example.com")
	other := registerTestUser(t, s, "other@example.com")

	first := createTestBook(t, s, 5)
	second := createTestBook(t, s, 5)

	_, err := s.progress.StartReading(ctx, user.ID, first.ID)
	require.NoError(t, err)
	_, err = s.progress.StartReading(ctx, user.ID, second.ID)
	require.NoError(t, err)
	_, err = s.progress.StartReading(ctx, other.ID, first.ID)
	require.NoError(t, err)

	records, err := s.progress.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, user.ID, rec.UserID)
	}
}
