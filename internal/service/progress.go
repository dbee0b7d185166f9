package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/readquestapp/readquest-server/internal/config"
	"github.com/readquestapp/readquest-server/internal/domain"
	domainerrors "github.com/readquestapp/readquest-server/internal/errors"
	"github.com/readquestapp/readquest-server/internal/id"
	"github.com/readquestapp/readquest-server/internal/store"
)

// ProgressService tracks per-user per-book reading state: status
// transitions, reading sessions, chapter completion, bookmarks, notes,
// and quiz results. Actions that represent reading activity feed the
// gamification layer: they award experience, advance the streak, and
// trigger a rule evaluation pass.
type ProgressService struct {
	store        *store.Store
	gamification *GamificationService
	cfg          config.GamificationConfig
	logger       *slog.Logger
}

func NewProgressService(s *store.Store, g *GamificationService, cfg config.GamificationConfig, logger *slog.Logger) *ProgressService {
	return &ProgressService{
		store:        s,
		gamification: g,
		cfg:          cfg,
		logger:       logger,
	}
}

// ensureProgress returns the progress record for the pair, creating a
// fresh not-started record on first touch. A create race with another
// request is resolved by re-reading.
func (s *ProgressService) ensureProgress(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	progress, err := s.store.GetProgress(ctx, userID, bookID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("getting progress: %w", err)
	}

	progress = domain.NewReadingProgress(userID, bookID)
	if err := s.store.Progress.Create(ctx, domain.ProgressID(userID, bookID), progress); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.store.GetProgress(ctx, userID, bookID)
		}
		return nil, fmt.Errorf("creating progress: %w", err)
	}
	return progress, nil
}

// getBook loads the book or reports a not-found domain error.
func (s *ProgressService) getBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("getting book %s: %w", bookID, err)
	}
	return book, nil
}

// StartReading creates the progress record if needed and moves it into
// the reading state. It also counts as streak activity.
func (s *ProgressService) StartReading(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	if _, err := s.getBook(ctx, bookID); err != nil {
		return nil, err
	}
	if _, err := s.ensureProgress(ctx, userID, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	progress, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		if err := p.SetStatus(domain.StatusReading, now); err != nil {
			return mapTransitionError(err, p.Status, domain.StatusReading)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.gamification.RecordActivity(ctx, userID, now); err != nil {
		return nil, err
	}

	s.logger.Debug("reading started", "user_id", userID, "book_id", bookID)
	return progress, nil
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=not-started reading paused completed abandoned"`
}

// SetStatus transitions the progress record. Illegal transitions are
// rejected with a conflict error naming both states.
func (s *ProgressService) SetStatus(ctx context.Context, userID, bookID string, req SetStatusRequest) (*domain.ReadingProgress, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	status := domain.ReadingStatus(req.Status)
	now := time.Now()
	progress, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		if err := p.SetStatus(status, now); err != nil {
			return mapTransitionError(err, p.Status, status)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("no reading progress for this book")
		}
		var appErr *domainerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("setting status for %s/%s: %w", userID, bookID, err)
	}
	return progress, nil
}

func mapTransitionError(err error, from, to domain.ReadingStatus) error {
	if errors.Is(err, domain.ErrInvalidTransition) {
		return domainerrors.InvalidStatef("cannot transition from %s to %s", from, to)
	}
	return err
}

type StartSessionRequest struct {
	Chapter int `json:"chapter" validate:"required,gt=0"`
}

// StartSession opens a reading session on the given chapter. A dangling
// open session is closed first with zero words read. The record moves
// into the reading state if it is not there already.
func (s *ProgressService) StartSession(ctx context.Context, userID, bookID string, req StartSessionRequest) (*domain.ReadingProgress, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book, err := s.getBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.ValidChapter(req.Chapter) {
		return nil, domainerrors.Validationf("chapter must be between 1 and %d", book.TotalChapters)
	}
	if _, err := s.ensureProgress(ctx, userID, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	progress, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		if err := p.StartSession(req.Chapter, now); err != nil {
			return mapTransitionError(err, p.Status, domain.StatusReading)
		}
		return nil
	})
	if err != nil {
		var appErr *domainerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("starting session for %s/%s: %w", userID, bookID, err)
	}

	if _, err := s.gamification.RecordActivity(ctx, userID, now); err != nil {
		return nil, err
	}

	s.logger.Debug("session started", "user_id", userID, "book_id", bookID, "chapter", req.Chapter)
	return progress, nil
}

type EndSessionRequest struct {
	WordsRead int `json:"wordsRead" validate:"gte=0"`
}

// EndSessionResponse reports the closed session and everything the
// activity unlocked. With no open session Closed is false and nothing
// else happens.
type EndSessionResponse struct {
	Progress          *domain.ReadingProgress `json:"progress"`
	Closed            bool                    `json:"closed"`
	DurationMin       int                     `json:"durationMin"`
	ExperienceAwarded int                     `json:"experienceAwarded"`
	Evaluation        *EvaluationResult       `json:"evaluation,omitempty"`
}

// EndSession closes the open reading session, converts its duration into
// experience, advances the streak, and runs a rule evaluation pass.
func (s *ProgressService) EndSession(ctx context.Context, userID, bookID string, req EndSessionRequest) (*EndSessionResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	now := time.Now()
	var durationMin int
	var closed bool
	progress, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		durationMin, closed = p.EndSession(req.WordsRead, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("no reading progress for this book")
		}
		return nil, fmt.Errorf("ending session for %s/%s: %w", userID, bookID, err)
	}

	resp := &EndSessionResponse{
		Progress:    progress,
		Closed:      closed,
		DurationMin: durationMin,
	}
	if !closed {
		return resp, nil
	}

	resp.ExperienceAwarded = durationMin / s.cfg.SessionMinutesPerXP
	if resp.ExperienceAwarded > 0 {
		if _, err := s.gamification.AddExperience(ctx, userID, resp.ExperienceAwarded); err != nil {
			return nil, err
		}
	}
	if _, err := s.gamification.RecordActivity(ctx, userID, now); err != nil {
		return nil, err
	}
	evaluation, err := s.gamification.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp.Evaluation = evaluation

	s.logger.Debug("session ended",
		"user_id", userID,
		"book_id", bookID,
		"duration_min", durationMin,
		"experience", resp.ExperienceAwarded)
	return resp, nil
}

type ChapterRequest struct {
	Chapter int `json:"chapter" validate:"required,gt=0"`
}

// MarkChapterRead records the chapter as read without completing it.
func (s *ProgressService) MarkChapterRead(ctx context.Context, userID, bookID string, req ChapterRequest) (*domain.ReadingProgress, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book, err := s.getBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.ValidChapter(req.Chapter) {
		return nil, domainerrors.Validationf("chapter must be between 1 and %d", book.TotalChapters)
	}
	if _, err := s.ensureProgress(ctx, userID, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	progress, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		p.MarkChapterRead(req.Chapter, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("marking chapter read for %s/%s: %w", userID, bookID, err)
	}
	return progress, nil
}

// CompleteChapterResponse reports chapter completion and its gamification
// side effects.
type CompleteChapterResponse struct {
	Progress          *domain.ReadingProgress `json:"progress"`
	BookCompleted     bool                    `json:"bookCompleted"`
	ExperienceAwarded int                     `json:"experienceAwarded"`
	Evaluation        *EvaluationResult       `json:"evaluation,omitempty"`
}

// CompleteChapter marks a chapter finished, recomputes the completion
// percentage, and awards the per-chapter experience bonus. Completing a
// chapter that is already completed changes nothing and awards nothing.
// When the final chapter pushes the rounded percentage to 100 the book
// is completed in the same update.
func (s *ProgressService) CompleteChapter(ctx context.Context, userID, bookID string, req ChapterRequest) (*CompleteChapterResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	book, err := s.getBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.ValidChapter(req.Chapter) {
		return nil, domainerrors.Validationf("chapter must be between 1 and %d", book.TotalChapters)
	}
	if _, err := s.ensureProgress(ctx, userID, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	var newlyCompleted, bookCompleted bool
	progress, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		newlyCompleted = !p.HasCompletedChapter(req.Chapter)
		var markErr error
		bookCompleted, markErr = p.MarkChapterCompleted(req.Chapter, book.TotalChapters, now)
		if errors.Is(markErr, domain.ErrInvalidTransition) {
			return domainerrors.InvalidStatef("cannot complete a chapter on an %s book", p.Status)
		}
		return markErr
	})
	if err != nil {
		var appErr *domainerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("completing chapter for %s/%s: %w", userID, bookID, err)
	}

	resp := &CompleteChapterResponse{
		Progress:      progress,
		BookCompleted: bookCompleted,
	}
	if !newlyCompleted {
		return resp, nil
	}

	resp.ExperienceAwarded = s.cfg.ChapterCompletionXP
	if resp.ExperienceAwarded > 0 {
		if _, err := s.gamification.AddExperience(ctx, userID, resp.ExperienceAwarded); err != nil {
			return nil, err
		}
	}
	if _, err := s.gamification.RecordActivity(ctx, userID, now); err != nil {
		return nil, err
	}
	evaluation, err := s.gamification.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp.Evaluation = evaluation

	s.logger.Debug("chapter completed",
		"user_id", userID,
		"book_id", bookID,
		"chapter", req.Chapter,
		"book_completed", bookCompleted)
	return resp, nil
}

func (s *ProgressService) Get(ctx context.Context, userID, bookID string) (*domain.ReadingProgress, error) {
	progress, err := s.store.GetProgress(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("no reading progress for this book")
		}
		return nil, fmt.Errorf("getting progress for %s/%s: %w", userID, bookID, err)
	}
	return progress, nil
}

func (s *ProgressService) ListForUser(ctx context.Context, userID string) ([]*domain.ReadingProgress, error) {
	records, err := s.store.ListUserProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing progress for %s: %w", userID, err)
	}
	return records, nil
}

type AddBookmarkRequest struct {
	Chapter  int    `json:"chapter" validate:"required,gt=0"`
	Position string `json:"position" validate:"max=200"`
	Label    string `json:"label" validate:"max=200"`
}

func (s *ProgressService) AddBookmark(ctx context.Context, userID, bookID string, req AddBookmarkRequest) (*domain.Bookmark, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if _, err := s.ensureProgress(ctx, userID, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	var bookmark domain.Bookmark
	_, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		bookmark = p.AddBookmark(id.MustGenerate(id.PrefixBookmark), req.Chapter, req.Position, req.Label, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adding bookmark for %s/%s: %w", userID, bookID, err)
	}
	return &bookmark, nil
}

type AddNoteRequest struct {
	Chapter int    `json:"chapter" validate:"required,gt=0"`
	Text    string `json:"text" validate:"required,min=1,max=5000"`
}

func (s *ProgressService) AddNote(ctx context.Context, userID, bookID string, req AddNoteRequest) (*domain.Note, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if _, err := s.ensureProgress(ctx, userID, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	var note domain.Note
	_, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		note = p.AddNote(id.MustGenerate(id.PrefixNote), req.Chapter, req.Text, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adding note for %s/%s: %w", userID, bookID, err)
	}
	return &note, nil
}

func (s *ProgressService) DeleteNote(ctx context.Context, userID, bookID, noteID string) error {
	now := time.Now()
	_, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		if !p.DeleteNote(noteID, now) {
			return domainerrors.NotFound("note not found")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("no reading progress for this book")
		}
		var appErr *domainerrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return fmt.Errorf("deleting note %s for %s/%s: %w", noteID, userID, bookID, err)
	}
	return nil
}

type SubmitQuizRequest struct {
	Chapter int `json:"chapter" validate:"required,gt=0"`
	Score   int `json:"score" validate:"gte=0"`
	Total   int `json:"total" validate:"required,gt=0"`
}

func (s *ProgressService) SubmitQuiz(ctx context.Context, userID, bookID string, req SubmitQuizRequest) (*domain.QuizResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if req.Score > req.Total {
		return nil, domainerrors.Validation("score cannot exceed total")
	}
	if _, err := s.ensureProgress(ctx, userID, bookID); err != nil {
		return nil, err
	}

	now := time.Now()
	var result domain.QuizResult
	_, err := s.store.UpdateProgressWith(ctx, userID, bookID, func(p *domain.ReadingProgress) error {
		result = p.AddQuizResult(id.MustGenerate(id.PrefixQuiz), req.Chapter, req.Score, req.Total, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording quiz result for %s/%s: %w", userID, bookID, err)
	}
	return &result, nil
}
