package store

import (
	"context"
	"fmt"

	"github.com/readquestapp/readquest-server/internal/domain"
)

// Progress records are stored under the composite ID "userID:bookID",
// so Get/Create/UpdateWith on s.Progress take domain.ProgressID values.
// The helpers below wrap the common access patterns.

// GetProgress returns the progress record for a (user, book) pair.
// Returns ErrNotFound if the user has no record for the book.
func (s *Store) GetProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	return s.Progress.Get(ctx, domain.ProgressID(userID, bookID))
}

// UpdateProgressWith atomically mutates the progress record for a
// (user, book) pair inside one transaction.
func (s *Store) UpdateProgressWith(ctx context.Context, userID, bookID string, mutate func(*domain.ReadingProgress) error) (*domain.ReadingProgress, error) {
	return s.Progress.UpdateWith(ctx, domain.ProgressID(userID, bookID), mutate)
}

// ListUserProgress returns all progress records for a user, across all
// books, via a composite-key prefix scan.
func (s *Store) ListUserProgress(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	var records []*domain.ReadingProgress
	for p, err := range s.Progress.ListPrefix(ctx, userID+":") {
		if err != nil {
			return nil, fmt.Errorf("listing progress for user %s: %w", userID, err)
		}
		records = append(records, p)
	}
	return records, nil
}
