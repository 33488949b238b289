package memory

import (
	"context"
	"testing"
)

func TestAddAndListRecent(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.Add(ctx, "s1", "first note"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	id2, err := s.Add(ctx, "s1", "second note")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, "s2", "other session"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := s.ListRecent(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].ID != id2 {
		t.Fatalf("expected most recent first, got %+v", entries)
	}
}

func TestAddRejectsEmptyText(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Add(context.Background(), "s1", ""); err == nil {
		t.Fatal("expected an error for empty text")
	}
}

func TestDeleteIsScopedToSession(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	id, err := s.Add(ctx, "s1", "note")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Delete(ctx, "s2", id); err == nil {
		t.Fatal("expected an error deleting another session's entry")
	}
	if err := s.Delete(ctx, "s1", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	entries, err := s.ListRecent(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected entry to be gone, got %+v", entries)
	}
}
