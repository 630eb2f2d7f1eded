package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), srv
}

func TestSave_ReturnsFirstPageAndResetsCursor(t *testing.T) {
	s, srv := newTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "42", []string{"page one", "page two", "page three"})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if first != "page one" {
		t.Errorf("first=%q", first)
	}
	if got, _ := srv.Get("user:42:pages"); got != "page one|page two|page three" {
		t.Errorf("stored pages=%q", got)
	}
	if got, _ := srv.Get("user:42:current_page"); got != "0" {
		t.Errorf("stored cursor=%q", got)
	}
}

func TestSave_OverwritesPreviousSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "u", []string{"old a", "old b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Page(ctx, "u", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "u", []string{"new only"}); err != nil {
		t.Fatal(err)
	}

	pages, err := s.Pages(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0] != "new only" {
		t.Errorf("pages=%v", pages)
	}
	if idx, _ := s.CurrentPage(ctx, "u"); idx != 0 {
		t.Errorf("cursor=%d after overwrite", idx)
	}
}

func TestPage_Navigation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "u", []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}

	page, err := s.Advance(ctx, "u")
	if err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	if page != "b" {
		t.Errorf("page=%q", page)
	}
	if page, _ = s.Advance(ctx, "u"); page != "c" {
		t.Errorf("page=%q", page)
	}
	if _, err := s.Advance(ctx, "u"); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("past-end advance: %v", err)
	}
	// Failed moves leave the cursor alone.
	if idx, _ := s.CurrentPage(ctx, "u"); idx != 2 {
		t.Errorf("cursor=%d", idx)
	}
	if page, _ = s.Back(ctx, "u"); page != "b" {
		t.Errorf("page=%q", page)
	}
}

func TestPage_OutOfRange(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "u", []string{"only"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Page(ctx, "u", -1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("negative index: %v", err)
	}
	if _, err := s.Page(ctx, "u", 1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("index past end: %v", err)
	}
}

func TestPages_NoSession(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Pages(context.Background(), "nobody"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	if _, err := s.CurrentPage(context.Background(), "nobody"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSave_EmptyPages(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Save(context.Background(), "u", nil); err == nil {
		t.Error("saving an empty page list should fail")
	}
}
