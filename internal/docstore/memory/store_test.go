package memory

import (
	"context"
	"testing"

	"rentledger/internal/docstore"
	"rentledger/pkg/domain"
)

func TestReadAbsentUser(t *testing.T) {
	s := New()
	_, ok, err := s.Read(context.Background(), "u1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok {
		t.Error("expected no document for unknown user")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := docstore.Document{
		Rooms:   []domain.Room{{Base: domain.Base{ID: "r1"}, Name: "101", Rent: 5000}},
		Tenants: []domain.Tenant{{Base: domain.Base{ID: "t1"}, Name: "Asha", RoomID: "r1"}},
	}
	if err := s.Write(ctx, "u1", doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok, err := s.Read(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if len(got.Rooms) != 1 || got.Rooms[0].Name != "101" {
		t.Errorf("unexpected rooms %+v", got.Rooms)
	}

	// Users are isolated.
	if _, ok, _ := s.Read(ctx, "u2"); ok {
		t.Error("expected no document for other user")
	}
}

func TestReadReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := docstore.Document{Rooms: []domain.Room{{Base: domain.Base{ID: "r1"}, Name: "101"}}}
	if err := s.Write(ctx, "u1", doc); err != nil {
		t.Fatalf("write: %v", err)
	}
	first, _, _ := s.Read(ctx, "u1")
	first.Rooms[0].Name = "mutated"
	second, _, _ := s.Read(ctx, "u1")
	if second.Rooms[0].Name != "101" {
		t.Error("mutating a read document must not affect the store")
	}
}

func TestEmptyUserIDRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, _, err := s.Read(ctx, ""); err == nil {
		t.Error("expected read error for empty user id")
	}
	if err := s.Write(ctx, "", docstore.Document{}); err == nil {
		t.Error("expected write error for empty user id")
	}
}
