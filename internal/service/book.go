package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/readquestapp/readquest-server/internal/domain"
	domainerrors "github.com/readquestapp/readquest-server/internal/errors"
	"github.com/readquestapp/readquest-server/internal/id"
	"github.com/readquestapp/readquest-server/internal/store"
	"github.com/readquestapp/readquest-server/internal/util"
)

// BookService manages the book catalog.
type BookService struct {
	store  *store.Store
	logger *slog.Logger
}

func NewBookService(s *store.Store, logger *slog.Logger) *BookService {
	return &BookService{store: s, logger: logger}
}

type CreateBookRequest struct {
	Title         string `json:"title" validate:"required,min=1,max=300"`
	Author        string `json:"author" validate:"required,min=1,max=200"`
	Description   string `json:"description" validate:"max=5000"`
	CoverURL      string `json:"coverUrl" validate:"omitempty,url"`
	TotalChapters int    `json:"totalChapters" validate:"required,gt=0"`
	TotalWords    int    `json:"totalWords" validate:"gte=0"`
}

func (s *BookService) Create(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book := domain.NewBook(id.MustGenerate(id.PrefixBook), req.Title, req.Author, req.TotalChapters)
	book.Slug = util.Slug(req.Title)
	book.Description = req.Description
	book.CoverURL = req.CoverURL
	book.TotalWords = req.TotalWords

	if err := s.store.Books.Create(ctx, book.ID, book); err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	s.logger.Info("book created", "book_id", book.ID, "title", book.Title)
	return book, nil
}

func (s *BookService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("getting book %s: %w", bookID, err)
	}
	return book, nil
}

func (s *BookService) List(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error) {
	page, err := s.store.Books.Page(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return page, nil
}

type RateBookRequest struct {
	Stars int `json:"stars" validate:"required,min=1,max=5"`
}

// Rate records a star rating and returns the book with its updated average.
func (s *BookService) Rate(ctx context.Context, bookID string, req RateBookRequest) (*domain.Book, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book, err := s.store.Books.UpdateWith(ctx, bookID, func(b *domain.Book) error {
		b.AddRating(req.Stars)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("rating book %s: %w", bookID, err)
	}

	return book, nil
}
