package domain

import "math"

// Book is a catalog entry. Chapter count drives progress percentages, so
// it must be positive at creation time.
type Book struct {
	Entity

	Title         string `json:"title"`
	Slug          string `json:"slug,omitempty"`
	Author        string `json:"author,omitempty"`
	Description   string `json:"description,omitempty"`
	CoverURL      string `json:"cover_url,omitempty"`
	TotalChapters int    `json:"total_chapters"`
	TotalWords    int    `json:"total_words,omitempty"`

	// Rating aggregate. AverageRating is derived; RateBook is the writer.
	RatingSum     int     `json:"rating_sum,omitempty"`
	RatingCount   int     `json:"rating_count,omitempty"`
	AverageRating float64 `json:"average_rating,omitempty"`
}

// NewBook creates a book with initialized timestamps.
func NewBook(id, title, author string, totalChapters int) *Book {
	b := &Book{
		Title:         title,
		Author:        author,
		TotalChapters: totalChapters,
	}
	b.ID = id
	b.InitTimestamps()
	return b
}

// ValidChapter reports whether the 1-based chapter number exists in
// this book.
func (b *Book) ValidChapter(chapter int) bool {
	return chapter >= 1 && chapter <= b.TotalChapters
}

// AddRating folds one 1..5 star rating into the aggregate and refreshes
// the average, rounded to two decimal places.
func (b *Book) AddRating(stars int) {
	b.RatingSum += stars
	b.RatingCount++
	b.AverageRating = math.Round(float64(b.RatingSum)/float64(b.RatingCount)*100) / 100
	b.Touch()
}
