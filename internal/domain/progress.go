package domain

import (
	"errors"
	"math"
	"slices"
	"time"
)

// ReadingStatus is the lifecycle state of a reading-progress record.
type ReadingStatus string

const (
	// StatusNotStarted means the book is on the shelf but unopened.
	StatusNotStarted ReadingStatus = "not-started"
	// StatusReading means the user is actively reading.
	StatusReading ReadingStatus = "reading"
	// StatusPaused means reading is on hold.
	StatusPaused ReadingStatus = "paused"
	// StatusCompleted is terminal: the book was finished.
	StatusCompleted ReadingStatus = "completed"
	// StatusAbandoned is terminal: the user gave up on the book.
	StatusAbandoned ReadingStatus = "abandoned"
)

// Valid returns true if the status is a recognized value.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusReading, StatusPaused, StatusCompleted, StatusAbandoned:
		return true
	default:
		return false
	}
}

// Terminal returns true for states with no outgoing transitions.
func (s ReadingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// CanTransitionTo reports whether the status may move to next.
// Setting the same status again is allowed (idempotent, re-stamps).
func (s ReadingStatus) CanTransitionTo(next ReadingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusNotStarted:
		return next == StatusReading
	case StatusReading:
		return next == StatusPaused || next == StatusCompleted || next == StatusAbandoned
	case StatusPaused:
		return next == StatusReading || next == StatusAbandoned
	default:
		return false
	}
}

// ErrInvalidTransition is returned when a status change is not allowed by
// the reading lifecycle.
var ErrInvalidTransition = errors.New("invalid reading status transition")

// ReadingSession is one contiguous reading interval. A session is open
// until EndTime is set; at most one session per record may be open.
type ReadingSession struct {
	Chapter     int        `json:"chapter,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	DurationMin int        `json:"duration_min,omitempty"`
	WordsRead   int        `json:"words_read,omitempty"`
}

// Open returns true if the session has not ended yet.
func (s *ReadingSession) Open() bool {
	return s.EndTime == nil
}

// Bookmark marks a position in a chapter. Immutable once created.
type Bookmark struct {
	ID        string    `json:"id"`
	Chapter   int       `json:"chapter"`
	Position  string    `json:"position,omitempty"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Note is a user annotation on a chapter. Deletable by ID, never edited.
type Note struct {
	ID        string    `json:"id"`
	Chapter   int       `json:"chapter"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizResult records one quiz attempt for a chapter.
type QuizResult struct {
	ID      string    `json:"id"`
	Chapter int       `json:"chapter"`
	Score   int       `json:"score"`
	Total   int       `json:"total"`
	TakenAt time.Time `json:"taken_at"`
}

// ReadingStats is the derived per-record aggregate over closed sessions.
// Fully rebuildable; RecomputeStats is the only writer.
type ReadingStats struct {
	TotalSessions     int `json:"total_sessions"`
	LongestSessionMin int `json:"longest_session_min"`
	AverageSessionMin int `json:"average_session_min"`
	AverageSpeedWPM   int `json:"average_speed_wpm"`
}

// ReadingProgress tracks one user's journey through one book. There is
// exactly one record per (user, book) pair; it is never hard-deleted.
type ReadingProgress struct {
	UserID string        `json:"user_id"`
	BookID string        `json:"book_id"`
	Status ReadingStatus `json:"status"`

	// Chapter numbers are 1-based. ChaptersCompleted is always a subset
	// of ChaptersRead.
	ChaptersRead      []int `json:"chapters_read,omitempty"`
	ChaptersCompleted []int `json:"chapters_completed,omitempty"`
	CurrentChapter    int   `json:"current_chapter,omitempty"`

	// ProgressPercentage is derived from ChaptersCompleted against the
	// book's chapter count, rounded to the nearest whole percent.
	ProgressPercentage int `json:"progress_percentage"`

	Sessions        []ReadingSession `json:"sessions,omitempty"`
	TotalReadingMin int              `json:"total_reading_min"`

	Bookmarks   []Bookmark   `json:"bookmarks,omitempty"`
	Notes       []Note       `json:"notes,omitempty"`
	QuizResults []QuizResult `json:"quiz_results,omitempty"`

	Stats ReadingStats `json:"stats"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressID generates the composite record key: "userID:bookID".
// The key doubles as the (user, book) uniqueness constraint.
func ProgressID(userID, bookID string) string {
	return userID + ":" + bookID
}

// NewReadingProgress creates a fresh not-started record.
func NewReadingProgress(userID, bookID string) *ReadingProgress {
	now := time.Now()
	return &ReadingProgress{
		UserID:    userID,
		BookID:    bookID,
		Status:    StatusNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus transitions the record to status, applying transition side
// effects: first entry into reading stamps StartedAt, entering reading or
// paused stamps LastReadAt, and entering completed stamps CompletedAt and
// forces the percentage to 100.
func (p *ReadingProgress) SetStatus(status ReadingStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(status) {
		return ErrInvalidTransition
	}
	p.Status = status
	switch status {
	case StatusReading:
		if p.StartedAt == nil {
			p.StartedAt = &now
		}
		p.LastReadAt = &now
	case StatusPaused:
		p.LastReadAt = &now
	case StatusCompleted:
		if p.CompletedAt == nil {
			p.CompletedAt = &now
		}
		p.ProgressPercentage = 100
	}
	p.UpdatedAt = now
	return nil
}

// OpenSession returns the currently open session, or nil.
func (p *ReadingProgress) OpenSession() *ReadingSession {
	if len(p.Sessions) == 0 {
		return nil
	}
	last := &p.Sessions[len(p.Sessions)-1]
	if last.Open() {
		return last
	}
	return nil
}

// StartSession begins a new reading session on the given chapter and moves
// the record into the reading state.
//
// If a previous session was left open (client crashed, app killed), it is
// closed at now with zero words read before the new one starts, so the
// at-most-one-open-session invariant always holds.
func (p *ReadingProgress) StartSession(chapter int, now time.Time) error {
	if p.OpenSession() != nil {
		p.EndSession(0, now)
	}
	if err := p.SetStatus(StatusReading, now); err != nil {
		return err
	}
	p.Sessions = append(p.Sessions, ReadingSession{
		Chapter:   chapter,
		StartTime: now,
	})
	p.CurrentChapter = chapter
	return nil
}

// EndSession closes the most recently started session, records words read,
// accumulates total reading time, and recomputes the session statistics.
// If no session is open it is a no-op and returns (0, false).
func (p *ReadingProgress) EndSession(wordsRead int, now time.Time) (durationMin int, closed bool) {
	open := p.OpenSession()
	if open == nil {
		return 0, false
	}
	durationMin = int(math.Round(now.Sub(open.StartTime).Minutes()))
	if durationMin < 0 {
		durationMin = 0
	}
	open.EndTime = &now
	open.DurationMin = durationMin
	open.WordsRead = wordsRead
	p.TotalReadingMin += durationMin
	p.LastReadAt = &now
	p.RecomputeStats()
	p.UpdatedAt = now
	return durationMin, true
}

// MarkChapterRead adds the chapter to the read set. Idempotent.
func (p *ReadingProgress) MarkChapterRead(chapter int, now time.Time) {
	if !slices.Contains(p.ChaptersRead, chapter) {
		p.ChaptersRead = append(p.ChaptersRead, chapter)
	}
	p.LastReadAt = &now
	p.UpdatedAt = now
}

// HasCompletedChapter reports whether the chapter is in the completed set.
func (p *ReadingProgress) HasCompletedChapter(chapter int) bool {
	return slices.Contains(p.ChaptersCompleted, chapter)
}

// MarkChapterCompleted adds the chapter to both the read and completed sets
// and recomputes the percentage against totalChapters. Idempotent on the
// sets. An abandoned record rejects the call with ErrInvalidTransition;
// a completed record accepts it (repeat completions are set no-ops). When
// the recomputed percentage reaches 100 or more the record is forced into
// the completed state; bookCompleted reports whether this call did that.
func (p *ReadingProgress) MarkChapterCompleted(chapter, totalChapters int, now time.Time) (bookCompleted bool, err error) {
	if p.Status == StatusAbandoned {
		return false, ErrInvalidTransition
	}
	p.MarkChapterRead(chapter, now)
	if !slices.Contains(p.ChaptersCompleted, chapter) {
		p.ChaptersCompleted = append(p.ChaptersCompleted, chapter)
	}
	p.recomputePercentage(totalChapters)
	if p.ProgressPercentage >= 100 && p.Status != StatusCompleted {
		p.Status = StatusCompleted
		if p.CompletedAt == nil {
			p.CompletedAt = &now
		}
		p.ProgressPercentage = 100
		return true, nil
	}
	return false, nil
}

// recomputePercentage derives the completion percentage from the completed
// set. The >= 100 completion trigger lives in MarkChapterCompleted.
func (p *ReadingProgress) recomputePercentage(totalChapters int) {
	if totalChapters <= 0 {
		p.ProgressPercentage = 0
		return
	}
	pct := int(math.Round(100 * float64(len(p.ChaptersCompleted)) / float64(totalChapters)))
	if pct > 100 {
		pct = 100
	}
	p.ProgressPercentage = pct
}

// RecomputeStats rebuilds the derived session aggregate from closed
// sessions. Average reading speed guards against zero total duration.
func (p *ReadingProgress) RecomputeStats() {
	var stats ReadingStats
	var totalMin, totalWords int
	for i := range p.Sessions {
		s := &p.Sessions[i]
		if s.Open() {
			continue
		}
		stats.TotalSessions++
		totalMin += s.DurationMin
		totalWords += s.WordsRead
		if s.DurationMin > stats.LongestSessionMin {
			stats.LongestSessionMin = s.DurationMin
		}
	}
	if stats.TotalSessions > 0 {
		stats.AverageSessionMin = int(math.Round(float64(totalMin) / float64(stats.TotalSessions)))
	}
	if totalMin > 0 {
		stats.AverageSpeedWPM = int(math.Round(float64(totalWords) / float64(totalMin)))
	}
	p.Stats = stats
}

// AddBookmark appends a bookmark with a server-assigned timestamp.
func (p *ReadingProgress) AddBookmark(id string, chapter int, position, label string, now time.Time) Bookmark {
	bm := Bookmark{ID: id, Chapter: chapter, Position: position, Label: label, CreatedAt: now}
	p.Bookmarks = append(p.Bookmarks, bm)
	p.UpdatedAt = now
	return bm
}

// AddNote appends a note with a server-assigned timestamp.
func (p *ReadingProgress) AddNote(id string, chapter int, text string, now time.Time) Note {
	n := Note{ID: id, Chapter: chapter, Text: text, CreatedAt: now}
	p.Notes = append(p.Notes, n)
	p.UpdatedAt = now
	return n
}

// DeleteNote removes a note by ID. Returns false if no such note exists.
func (p *ReadingProgress) DeleteNote(id string, now time.Time) bool {
	for i, n := range p.Notes {
		if n.ID == id {
			p.Notes = slices.Delete(p.Notes, i, i+1)
			p.UpdatedAt = now
			return true
		}
	}
	return false
}

// AddQuizResult appends a quiz attempt with a server-assigned timestamp.
func (p *ReadingProgress) AddQuizResult(id string, chapter, score, total int, now time.Time) QuizResult {
	qr := QuizResult{ID: id, Chapter: chapter, Score: score, Total: total, TakenAt: now}
	p.QuizResults = append(p.QuizResults, qr)
	p.UpdatedAt = now
	return qr
}

// Completed returns true if the record is in the completed state with a
// completion timestamp.
func (p *ReadingProgress) Completed() bool {
	return p.Status == StatusCompleted && p.CompletedAt != nil
}
