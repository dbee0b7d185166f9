package store

import (
	"encoding/base64"
	"fmt"
)

// Pagination limits for catalog and progress listings.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// PaginationParams selects one page of a listing.
type PaginationParams struct {
	Limit  int    // Items per page, clamped to [1, MaxPageLimit].
	Cursor string // Opaque cursor from the previous page; empty for the first.
}

// PaginatedResult carries one page of items plus the cursor to the next.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total,omitempty"` // Filled only when cheap to compute.
}

// DefaultPaginationParams returns the first page at the default limit.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: DefaultPageLimit}
}

// Validate clamps the limit into range. Zero and negative limits fall back
// to the default rather than erroring, so handlers can pass query values
// straight through.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// EncodeCursor wraps the last seen key as an opaque page cursor. Badger
// iterates in key order, so the raw key is a resumption point; encoding
// keeps clients from depending on the key layout.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor recovers the resumption key from a page cursor.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}
	return string(decoded), nil
}
