package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentledger/internal/auth"
	"rentledger/internal/bridge"
	"rentledger/internal/core"
	memstore "rentledger/internal/docstore/memory"
	"rentledger/internal/validate"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	service := core.NewInMemoryService(core.NewDefaultRulesEngine())
	session := auth.NewManager(auth.NewMemoryProvider(), auth.WithErrorPrefix(auth.MemoryProviderPrefix))
	br := bridge.New(memstore.New(), bridge.Options{RetryBackoff: time.Millisecond})
	a := New(service, session, br, Options{})
	a.Start()
	t.Cleanup(a.Stop)
	return a
}

func waitSave(t *testing.T, a *App) {
	t.Helper()
	select {
	case res, ok := <-a.SaveResults():
		if !ok {
			t.Fatal("save results channel closed")
		}
		if res.Err != nil {
			t.Fatalf("save failed: %v", res.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for save")
	}
}

func signUp(t *testing.T, a *App, email string) {
	t.Helper()
	if err := a.SignUp(context.Background(), email, "secret1"); err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
}

func createRoom(t *testing.T, a *App, name, rent string) string {
	t.Helper()
	room, errs, err := a.CreateRoom(context.Background(), validate.RoomDraft{Name: name, Rent: rent})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if !errs.Valid() {
		t.Fatalf("unexpected validation errors %v", errs)
	}
	waitSave(t, a)
	return room.ID
}

func TestMutationsRequireSession(t *testing.T) {
	a := newTestApp(t)
	_, _, err := a.CreateRoom(context.Background(), validate.RoomDraft{Name: "101", Rent: "5000"})
	if !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}
}

func TestValidationErrorsShortCircuit(t *testing.T) {
	a := newTestApp(t)
	signUp(t, a, "asha@example.com")

	_, errs, err := a.CreateRoom(context.Background(), validate.RoomDraft{Name: "", Rent: "5000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if errs["name"] != "Room name is required" {
		t.Errorf("unexpected validation errors %v", errs)
	}
	if len(a.Rooms()) != 0 {
		t.Error("invalid draft must not reach the store")
	}
}

func TestSignOutClearsCollections(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	signUp(t, a, "asha@example.com")
	createRoom(t, a, "101", "5000")

	if err := a.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(a.Rooms()) != 0 {
		t.Error("collections must be cleared on sign-out")
	}
}

func TestSignInRestoresPersistedState(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	signUp(t, a, "asha@example.com")
	roomID := createRoom(t, a, "101", "5000")

	tenant, errs, err := a.CreateTenant(ctx, validate.TenantDraft{Name: "Asha", RoomID: roomID})
	if err != nil || !errs.Valid() {
		t.Fatalf("create tenant: err=%v errs=%v", err, errs)
	}
	waitSave(t, a)

	_, errs, err = a.CreateBill(ctx, validate.BillDraft{TenantID: tenant.ID, Month: "2026-08", Type: "Rent", Amount: "5000"})
	if err != nil || !errs.Valid() {
		t.Fatalf("create bill: err=%v errs=%v", err, errs)
	}
	waitSave(t, a)

	if err := a.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if err := a.SignIn(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	if len(a.Rooms()) != 1 || len(a.Tenants()) != 1 || len(a.Bills()) != 1 {
		t.Fatalf("restored state incomplete: %d rooms, %d tenants, %d bills",
			len(a.Rooms()), len(a.Tenants()), len(a.Bills()))
	}
	got := a.Tenants()[0]
	if got.RoomID != roomID {
		t.Error("restored tenant lost room reference")
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	signUp(t, a, "asha@example.com")
	createRoom(t, a, "101", "5000")
	if err := a.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	signUp(t, a, "ben@example.com")
	if len(a.Rooms()) != 0 {
		t.Error("new account must start with an empty ledger")
	}
	createRoom(t, a, "201", "7000")

	if err := a.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if err := a.SignIn(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	rooms := a.Rooms()
	if len(rooms) != 1 || rooms[0].Name != "101" {
		t.Errorf("expected only the first account's room, got %+v", rooms)
	}
}

func TestDashboard(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	signUp(t, a, "asha@example.com")
	roomID := createRoom(t, a, "101", "5000")
	createRoom(t, a, "102", "6000")

	tenant, errs, err := a.CreateTenant(ctx, validate.TenantDraft{Name: "Asha", RoomID: roomID})
	if err != nil || !errs.Valid() {
		t.Fatalf("create tenant: err=%v errs=%v", err, errs)
	}
	waitSave(t, a)

	for _, amount := range []string{"5000", "750"} {
		_, errs, err := a.CreateBill(ctx, validate.BillDraft{TenantID: tenant.ID, Month: "2026-08", Type: "Rent", Amount: amount})
		if err != nil || !errs.Valid() {
			t.Fatalf("create bill: err=%v errs=%v", err, errs)
		}
		waitSave(t, a)
	}

	d := a.Dashboard()
	if d.Summary.Rooms != 2 || d.Summary.Occupied != 1 || d.Summary.Vacant != 1 {
		t.Errorf("unexpected summary %+v", d.Summary)
	}
	if d.Summary.Unpaid != 2 || d.Summary.PendingTotal != 5750 {
		t.Errorf("unexpected billing summary %+v", d.Summary)
	}
	if len(d.Recent) != 2 {
		t.Errorf("expected 2 recent bills, got %d", len(d.Recent))
	}
	if len(d.Outstanding) != 1 || d.Outstanding[0].Owed != 5750 {
		t.Errorf("unexpected outstanding %+v", d.Outstanding)
	}
}

func TestToggleBillPersists(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	signUp(t, a, "asha@example.com")
	roomID := createRoom(t, a, "101", "5000")
	tenant, _, err := a.CreateTenant(ctx, validate.TenantDraft{Name: "Asha", RoomID: roomID})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	waitSave(t, a)
	bill, _, err := a.CreateBill(ctx, validate.BillDraft{TenantID: tenant.ID, Month: "2026-08", Type: "Rent", Amount: "5000"})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	waitSave(t, a)

	toggled, err := a.ToggleBillPaid(ctx, bill.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Paid {
		t.Error("expected paid flag set")
	}
	waitSave(t, a)

	if err := a.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if err := a.SignIn(ctx, "asha@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	bills := a.Bills()
	if len(bills) != 1 || !bills[0].Paid {
		t.Error("paid flag must survive reload")
	}
}
