package core

import (
	"context"
	"errors"
	"testing"

	"rentledger/internal/report"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewInMemoryService(NewDefaultRulesEngine())
}

func TestServiceRoomLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, Room{Name: "101", Rent: 5000})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	updated, _, err := svc.UpdateRoom(ctx, room.ID, func(r *Room) error {
		r.Rent = 5500
		return nil
	})
	if err != nil {
		t.Fatalf("update room: %v", err)
	}
	if updated.Rent != 5500 {
		t.Errorf("expected rent 5500, got %v", updated.Rent)
	}

	if _, err := svc.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if _, ok := svc.Store().GetRoom(room.ID); ok {
		t.Error("room still present after delete")
	}
}

func TestAssignTenantRoom(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	roomA, _, err := svc.CreateRoom(ctx, Room{Name: "101", Rent: 5000})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	roomB, _, err := svc.CreateRoom(ctx, Room{Name: "102", Rent: 6000})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	tenant, _, err := svc.CreateTenant(ctx, Tenant{Name: "Asha", RoomID: roomA.ID})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	moved, _, err := svc.AssignTenantRoom(ctx, tenant.ID, roomB.ID)
	if err != nil {
		t.Fatalf("assign room: %v", err)
	}
	if moved.RoomID != roomB.ID {
		t.Errorf("expected room %q, got %q", roomB.ID, moved.RoomID)
	}

	// Empty id unassigns.
	moved, _, err = svc.AssignTenantRoom(ctx, tenant.ID, "")
	if err != nil {
		t.Fatalf("unassign room: %v", err)
	}
	if moved.RoomID != "" {
		t.Errorf("expected no room, got %q", moved.RoomID)
	}
}

func TestAssignTenantRoomUnknownRoom(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, Room{Name: "101", Rent: 5000})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	tenant, _, err := svc.CreateTenant(ctx, Tenant{Name: "Asha", RoomID: room.ID})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	_, _, err = svc.AssignTenantRoom(ctx, tenant.ID, "ghost")
	var nf ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if nf.Entity != EntityRoom {
		t.Errorf("expected room not-found, got %+v", nf)
	}
}

func TestAssignTenantRoomOccupied(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	room, _, err := svc.CreateRoom(ctx, Room{Name: "101", Rent: 5000})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, _, err := svc.CreateTenant(ctx, Tenant{Name: "Asha", RoomID: room.ID}); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	spare, _, err := svc.CreateRoom(ctx, Room{Name: "102", Rent: 6000})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	ben, _, err := svc.CreateTenant(ctx, Tenant{Name: "Ben", RoomID: spare.ID})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	_, _, err = svc.AssignTenantRoom(ctx, ben.ID, room.ID)
	var violation RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	got, _ := svc.Store().GetTenant(ben.ID)
	if got.RoomID != spare.ID {
		t.Error("blocked assignment must leave the tenant in place")
	}
}

// TestLedgerScenario exercises the whole flow: rooms, a tenant, bills, a
// payment, a room deletion, and the derived overview numbers after each step.
func TestLedgerScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	roomA, _, err := svc.CreateRoom(ctx, Room{Name: "101", Rent: 5000})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, _, err := svc.CreateRoom(ctx, Room{Name: "102", Rent: 6000}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	tenant, _, err := svc.CreateTenant(ctx, Tenant{Name: "Asha", RoomID: roomA.ID})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	rent, _, err := svc.CreateBill(ctx, Bill{TenantID: tenant.ID, Month: "2026-08", Type: BillTypeRent, Amount: 5000})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if _, _, err := svc.CreateBill(ctx, Bill{TenantID: tenant.ID, Month: "2026-08", Type: BillTypeElectricity, Amount: 750}); err != nil {
		t.Fatalf("create bill: %v", err)
	}

	snap := svc.Store().ExportState()
	sum := report.Summarize(report.Snapshot{Rooms: snap.Rooms, Tenants: snap.Tenants, Bills: snap.Bills})
	if sum.Rooms != 2 || sum.Tenants != 1 || sum.Occupied != 1 || sum.Vacant != 1 {
		t.Errorf("unexpected occupancy summary %+v", sum)
	}
	if sum.Unpaid != 2 || sum.PendingTotal != 5750 {
		t.Errorf("unexpected billing summary %+v", sum)
	}

	if _, _, err := svc.ToggleBillPaid(ctx, rent.ID); err != nil {
		t.Fatalf("toggle bill: %v", err)
	}
	snap = svc.Store().ExportState()
	sum = report.Summarize(report.Snapshot{Rooms: snap.Rooms, Tenants: snap.Tenants, Bills: snap.Bills})
	if sum.Paid != 1 || sum.Unpaid != 1 || sum.PendingTotal != 750 {
		t.Errorf("unexpected summary after payment %+v", sum)
	}

	if _, err := svc.DeleteRoom(ctx, roomA.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	snap = svc.Store().ExportState()
	sum = report.Summarize(report.Snapshot{Rooms: snap.Rooms, Tenants: snap.Tenants, Bills: snap.Bills})
	if sum.Rooms != 1 || sum.Occupied != 0 || sum.Vacant != 1 {
		t.Errorf("unexpected summary after room delete %+v", sum)
	}
	got, _ := svc.Store().GetTenant(tenant.ID)
	if got.RoomID != "" {
		t.Error("tenant must be unassigned when their room is deleted")
	}
}

func TestServiceRecordsMetrics(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	svc := NewInMemoryService(NewDefaultRulesEngine(), WithMetrics(rec))
	ctx := context.Background()

	if _, _, err := svc.CreateRoom(ctx, Room{Name: "101", Rent: 5000}); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := svc.DeleteRoom(ctx, "ghost"); err == nil {
		t.Fatal("expected delete of missing room to fail")
	}

	snap := rec.Snapshot()
	if snap.Results["create_room"]["success"] != 1 {
		t.Errorf("expected one successful create_room, got %+v", snap.Results)
	}
	if snap.Results["delete_room"]["error"] != 1 {
		t.Errorf("expected one failed delete_room, got %+v", snap.Results)
	}
}
