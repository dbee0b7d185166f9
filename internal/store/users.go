package store

import (
	"context"
	"fmt"

	"github.com/readquestapp/readquest-server/internal/domain"
)

// GetUserByEmail looks a user up via the case-insensitive email index.
// Returns ErrNotFound if no user has the email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.Users.GetByIndex(ctx, "email", email)
}

// UpdateUserWith atomically mutates a user document inside one
// transaction. Experience and streak updates go through here so that
// racing awards cannot lose an increment.
func (s *Store) UpdateUserWith(ctx context.Context, userID string, mutate func(*domain.User) error) (*domain.User, error) {
	return s.Users.UpdateWith(ctx, userID, mutate)
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	for u, err := range s.Users.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// ListBooks returns the whole catalog.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	for b, err := range s.Books.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing books: %w", err)
		}
		books = append(books, b)
	}
	return books, nil
}
