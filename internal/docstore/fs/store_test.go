package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rentledger/internal/docstore"
	"rentledger/pkg/domain"
)

func TestWriteReadRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	doc := docstore.Document{
		Rooms: []domain.Room{{Base: domain.Base{ID: "r1"}, Name: "101", Rent: 5000}},
		Bills: []domain.Bill{{Base: domain.Base{ID: "b1"}, TenantID: "t1", Month: "2026-08", Type: domain.BillTypeRent, Amount: 5000}},
	}
	if err := s.Write(ctx, "u1", doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok, err := s.Read(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if len(got.Rooms) != 1 || got.Rooms[0].Rent != 5000 {
		t.Errorf("unexpected rooms %+v", got.Rooms)
	}
	if len(got.Bills) != 1 || got.Bills[0].Type != domain.BillTypeRent {
		t.Errorf("unexpected bills %+v", got.Bills)
	}
}

func TestReadAbsentUser(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_, ok, err := s.Read(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok {
		t.Error("expected no document for unknown user")
	}
}

func TestWriteOverwrites(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	first := docstore.Document{Rooms: []domain.Room{{Base: domain.Base{ID: "r1"}, Name: "101"}}}
	second := docstore.Document{Rooms: []domain.Room{{Base: domain.Base{ID: "r2"}, Name: "202"}}}
	if err := s.Write(ctx, "u1", first); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Write(ctx, "u1", second); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _, err := s.Read(ctx, "u1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Rooms) != 1 || got.Rooms[0].Name != "202" {
		t.Errorf("expected last write to win, got %+v", got.Rooms)
	}
}

func TestInvalidUserIDs(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	for _, id := range []string{"", "  ", "a/b", `a\b`, "../escape"} {
		if err := s.Write(ctx, id, docstore.Document{}); err == nil {
			t.Errorf("expected rejection of user id %q", id)
		}
	}
}

func TestCorruptFileSurfacesError(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "u1.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	if _, _, err := s.Read(context.Background(), "u1"); err == nil {
		t.Error("expected decode error for corrupt document")
	}
}
