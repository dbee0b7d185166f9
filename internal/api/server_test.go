package api

import (
	"bytes"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/readquestapp/readquest-server/internal/config"
	"github.com/readquestapp/readquest-server/internal/domain"
	"github.com/readquestapp/readquest-server/internal/service"
	"github.com/readquestapp/readquest-server/internal/store"
)

// setupTestServer creates a test server backed by a real store.
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := config.GamificationConfig{
		ChapterCompletionXP: 10,
		SessionMinutesPerXP: 10,
	}

	userService := service.NewUserService(s, logger)
	bookService := service.NewBookService(s, logger)
	gamificationService := service.NewGamificationService(s, logger)
	progressService := service.NewProgressService(s, gamificationService, cfg, logger)

	return NewServer(s, userService, bookService, progressService, gamificationService, logger)
}

// envelope mirrors the response wrapper for decoding in tests.
type envelope struct {
	Data    jsontext.Value `json:"data"`
	Error   string         `json:"error"`
	Success bool           `json:"success"`
}

// doRequest executes a request against the server and returns the recorder.
func doRequest(t *testing.T, server *Server, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the envelope data into out and requires success.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success, "response not successful: %s", env.Error)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// createUser registers a user directly through the service layer.
func createUser(t *testing.T, server *Server, email string, role domain.Role) *domain.User {
	t.Helper()

	user, err := server.userService.Register(context.Background(), service.RegisterUserRequest{
		Email:       email,
		DisplayName: "Test User",
		Role:        string(role),
	})
	require.NoError(t, err)
	return user
}

// createBook adds a catalog entry directly through the service layer.
func createBook(t *testing.T, server *Server, totalChapters int) *domain.Book {
	t.Helper()

	book, err := server.bookService.Create(context.Background(), service.CreateBookRequest{
		Title:         "Test Book",
		Author:        "Test Author",
		TotalChapters: totalChapters,
	})
	require.NoError(t, err)
	return book
}

func TestHealthCheck(t *testing.T) {
	server := setupTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]string
	decodeData(t, rec, &data)
	require.Equal(t, "healthy", data["status"])
}
