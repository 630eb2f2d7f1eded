// Package session persists per-user pagination state in the shared cache store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const pageSeparator = "|"

// ErrNoSession is returned when a user has no stored pages.
var ErrNoSession = errors.New("no pagination session")

// ErrPageOutOfRange is returned for a cursor move past either end.
var ErrPageOutOfRange = errors.New("page out of range")

// Store keeps each user's current page list and cursor under
// user:<id>:pages and user:<id>:current_page. A new answer overwrites the
// whole session; no history is kept.
type Store struct {
	rdb redis.Cmdable
}

// NewStore creates a session store on the given Redis client.
func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// Save replaces the user's session with pages and resets the cursor to the
// first page, which is returned for immediate display.
func (s *Store) Save(ctx context.Context, userID string, pages []string) (string, error) {
	if len(pages) == 0 {
		return "", errors.New("no pages to save")
	}
	if err := s.rdb.Set(ctx, pagesKey(userID), strings.Join(pages, pageSeparator), 0).Err(); err != nil {
		return "", fmt.Errorf("save pages: %w", err)
	}
	if err := s.rdb.Set(ctx, cursorKey(userID), 0, 0).Err(); err != nil {
		return "", fmt.Errorf("save cursor: %w", err)
	}
	return pages[0], nil
}

// Pages returns the user's stored page list.
func (s *Store) Pages(ctx context.Context, userID string) ([]string, error) {
	raw, err := s.rdb.Get(ctx, pagesKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	return strings.Split(raw, pageSeparator), nil
}

// CurrentPage returns the user's cursor position.
func (s *Store) CurrentPage(ctx context.Context, userID string) (int, error) {
	idx, err := s.rdb.Get(ctx, cursorKey(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoSession
	}
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	return idx, nil
}

// Page moves the cursor to index and returns that page. Indices outside the
// stored page list yield ErrPageOutOfRange and leave the cursor unchanged.
func (s *Store) Page(ctx context.Context, userID string, index int) (string, error) {
	pages, err := s.Pages(ctx, userID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(pages) {
		return "", fmt.Errorf("index %d of %d pages: %w", index, len(pages), ErrPageOutOfRange)
	}
	if err := s.rdb.Set(ctx, cursorKey(userID), index, 0).Err(); err != nil {
		return "", fmt.Errorf("save cursor: %w", err)
	}
	return pages[index], nil
}

// Advance moves the cursor one page forward.
func (s *Store) Advance(ctx context.Context, userID string) (string, error) {
	return s.step(ctx, userID, 1)
}

// Back moves the cursor one page backward.
func (s *Store) Back(ctx context.Context, userID string) (string, error) {
	return s.step(ctx, userID, -1)
}

func (s *Store) step(ctx context.Context, userID string, delta int) (string, error) {
	current, err := s.CurrentPage(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.Page(ctx, userID, current+delta)
}

func pagesKey(userID string) string {
	return "user:" + userID + ":pages"
}

func cursorKey(userID string) string {
	return "user:" + userID + ":current_page"
}
