// Package app composes the ledger core with authentication and persistence.
// It owns the session-driven lifecycle: signing in hydrates the in-memory
// store from the user's persisted document, every mutation queues a fresh
// save of the whole state, and signing out clears the store so the next
// account never sees a previous account's records.
package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"rentledger/internal/auth"
	"rentledger/internal/bridge"
	"rentledger/internal/core"
	"rentledger/internal/docstore"
	"rentledger/internal/prefs"
	"rentledger/internal/report"
	"rentledger/internal/validate"
	"rentledger/pkg/domain"
)

// ErrNotSignedIn is returned by mutations attempted without an
// authenticated session.
var ErrNotSignedIn = errors.New("not signed in")

// App is the composition root for a single server process.
type App struct {
	service *core.Service
	session *auth.Manager
	bridge  *bridge.Bridge
	prefs   *prefs.Store
	logger  *zap.Logger

	cancelSession func()
}

// Options carries optional collaborators for New.
type Options struct {
	Prefs  *prefs.Store
	Logger *zap.Logger
}

// New assembles an App. Call Start to begin the session lifecycle.
func New(service *core.Service, session *auth.Manager, br *bridge.Bridge, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &App{
		service: service,
		session: session,
		bridge:  br,
		prefs:   opts.Prefs,
		logger:  opts.Logger,
	}
}

// Start wires the session stream to store hydration and begins listening.
func (a *App) Start() {
	a.cancelSession = a.session.OnChange(a.onSession)
	a.session.Start()
}

// Stop detaches from the session stream and drains pending saves.
func (a *App) Stop() {
	if a.cancelSession != nil {
		a.cancelSession()
		a.cancelSession = nil
	}
	a.session.Stop()
	a.bridge.Close()
}

func (a *App) onSession(s auth.Session) {
	switch s.State {
	case auth.StateAuthenticated:
		a.hydrate(s.User)
	case auth.StateAnonymous:
		a.service.Store().Reset()
	}
}

// hydrate replaces the in-memory state with the user's persisted document.
// A missing document starts the account empty; a read failure also starts
// empty but is logged loudly since the next save would overwrite the stored
// document.
func (a *App) hydrate(user *auth.User) {
	a.service.Store().Reset()
	if user == nil {
		return
	}
	doc, ok, err := a.bridge.Load(context.Background(), user.ID)
	if err != nil {
		a.logger.Error("loading persisted document failed",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return
	}
	if !ok {
		return
	}
	a.service.Store().ImportState(core.Snapshot{
		Rooms:   doc.Rooms,
		Tenants: doc.Tenants,
		Bills:   doc.Bills,
	})
}

// Session exposes the session manager for transport handlers.
func (a *App) Session() *auth.Manager { return a.session }

// Service exposes the underlying ledger service.
func (a *App) Service() *core.Service { return a.service }

// SaveResults exposes the persistence outcome stream.
func (a *App) SaveResults() <-chan bridge.SaveResult { return a.bridge.Results() }

func (a *App) currentUser() (string, error) {
	s := a.session.Session()
	if s.State != auth.StateAuthenticated || s.User == nil {
		return "", ErrNotSignedIn
	}
	return s.User.ID, nil
}

// persist queues a save of the whole current state for userID.
func (a *App) persist(userID string) {
	snap := a.service.Store().ExportState()
	doc := docstore.Document{Rooms: snap.Rooms, Tenants: snap.Tenants, Bills: snap.Bills}
	if err := a.bridge.Commit(userID, doc); err != nil {
		a.logger.Error("queueing save failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// SignIn authenticates and, via the session stream, hydrates the store.
func (a *App) SignIn(ctx context.Context, email, password string) error {
	return a.session.SignIn(ctx, email, password)
}

// SignUp registers a new account; the provider signs it in on success.
func (a *App) SignUp(ctx context.Context, email, password string) error {
	return a.session.SignUp(ctx, email, password)
}

// SignOut ends the session. The resulting Anonymous transition clears the
// in-memory collections.
func (a *App) SignOut(ctx context.Context) error {
	return a.session.SignOut(ctx)
}

// CreateRoom validates the draft, stores the room, and queues a save.
func (a *App) CreateRoom(ctx context.Context, d validate.RoomDraft) (domain.Room, validate.Errors, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Room{}, nil, err
	}
	if errs := validate.Room(d); !errs.Valid() {
		return domain.Room{}, errs, nil
	}
	room, _, err := a.service.CreateRoom(ctx, d.Record())
	if err != nil {
		return domain.Room{}, nil, err
	}
	a.persist(userID)
	return room, nil, nil
}

// UpdateRoom validates the draft and applies it over the existing room.
func (a *App) UpdateRoom(ctx context.Context, id string, d validate.RoomDraft) (domain.Room, validate.Errors, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Room{}, nil, err
	}
	if errs := validate.Room(d); !errs.Valid() {
		return domain.Room{}, errs, nil
	}
	rec := d.Record()
	room, _, err := a.service.UpdateRoom(ctx, id, func(r *domain.Room) error {
		r.Name = rec.Name
		r.Floor = rec.Floor
		r.Rent = rec.Rent
		return nil
	})
	if err != nil {
		return domain.Room{}, nil, err
	}
	a.persist(userID)
	return room, nil, nil
}

// DeleteRoom removes the room, unassigning its tenant, and queues a save.
func (a *App) DeleteRoom(ctx context.Context, id string) error {
	userID, err := a.currentUser()
	if err != nil {
		return err
	}
	if _, err := a.service.DeleteRoom(ctx, id); err != nil {
		return err
	}
	a.persist(userID)
	return nil
}

// CreateTenant validates the draft, stores the tenant, and queues a save.
func (a *App) CreateTenant(ctx context.Context, d validate.TenantDraft) (domain.Tenant, validate.Errors, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Tenant{}, nil, err
	}
	if errs := validate.Tenant(d); !errs.Valid() {
		return domain.Tenant{}, errs, nil
	}
	tenant, _, err := a.service.CreateTenant(ctx, d.Record())
	if err != nil {
		return domain.Tenant{}, nil, err
	}
	a.persist(userID)
	return tenant, nil, nil
}

// UpdateTenant validates the draft and applies it over the existing tenant.
func (a *App) UpdateTenant(ctx context.Context, id string, d validate.TenantDraft) (domain.Tenant, validate.Errors, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Tenant{}, nil, err
	}
	if errs := validate.Tenant(d); !errs.Valid() {
		return domain.Tenant{}, errs, nil
	}
	rec := d.Record()
	tenant, _, err := a.service.UpdateTenant(ctx, id, func(t *domain.Tenant) error {
		t.Name = rec.Name
		t.Phone = rec.Phone
		t.Email = rec.Email
		t.MoveIn = rec.MoveIn
		t.RoomID = rec.RoomID
		return nil
	})
	if err != nil {
		return domain.Tenant{}, nil, err
	}
	a.persist(userID)
	return tenant, nil, nil
}

// DeleteTenant removes the tenant, honoring the orphan-bill policy.
func (a *App) DeleteTenant(ctx context.Context, id string) error {
	userID, err := a.currentUser()
	if err != nil {
		return err
	}
	if _, err := a.service.DeleteTenant(ctx, id); err != nil {
		return err
	}
	a.persist(userID)
	return nil
}

// AssignTenantRoom moves a tenant to roomID (empty unassigns).
func (a *App) AssignTenantRoom(ctx context.Context, tenantID, roomID string) (domain.Tenant, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Tenant{}, err
	}
	tenant, _, err := a.service.AssignTenantRoom(ctx, tenantID, roomID)
	if err != nil {
		return domain.Tenant{}, err
	}
	a.persist(userID)
	return tenant, nil
}

// CreateBill validates the draft, stores the bill, and queues a save.
func (a *App) CreateBill(ctx context.Context, d validate.BillDraft) (domain.Bill, validate.Errors, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Bill{}, nil, err
	}
	if errs := validate.Bill(d); !errs.Valid() {
		return domain.Bill{}, errs, nil
	}
	bill, _, err := a.service.CreateBill(ctx, d.Record())
	if err != nil {
		return domain.Bill{}, nil, err
	}
	a.persist(userID)
	return bill, nil, nil
}

// UpdateBill validates the draft and applies it over the existing bill.
func (a *App) UpdateBill(ctx context.Context, id string, d validate.BillDraft) (domain.Bill, validate.Errors, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Bill{}, nil, err
	}
	if errs := validate.Bill(d); !errs.Valid() {
		return domain.Bill{}, errs, nil
	}
	rec := d.Record()
	bill, _, err := a.service.UpdateBill(ctx, id, func(b *domain.Bill) error {
		b.TenantID = rec.TenantID
		b.Month = rec.Month
		b.Type = rec.Type
		b.Amount = rec.Amount
		b.Notes = rec.Notes
		b.Paid = rec.Paid
		return nil
	})
	if err != nil {
		return domain.Bill{}, nil, err
	}
	a.persist(userID)
	return bill, nil, nil
}

// DeleteBill removes the bill and queues a save.
func (a *App) DeleteBill(ctx context.Context, id string) error {
	userID, err := a.currentUser()
	if err != nil {
		return err
	}
	if _, err := a.service.DeleteBill(ctx, id); err != nil {
		return err
	}
	a.persist(userID)
	return nil
}

// ToggleBillPaid flips a bill's paid flag and queues a save.
func (a *App) ToggleBillPaid(ctx context.Context, id string) (domain.Bill, error) {
	userID, err := a.currentUser()
	if err != nil {
		return domain.Bill{}, err
	}
	bill, _, err := a.service.ToggleBillPaid(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	a.persist(userID)
	return bill, nil
}

// Rooms lists rooms in insertion order.
func (a *App) Rooms() []domain.Room { return a.service.Store().ListRooms() }

// Tenants lists tenants in insertion order.
func (a *App) Tenants() []domain.Tenant { return a.service.Store().ListTenants() }

// Bills lists bills in insertion order.
func (a *App) Bills() []domain.Bill { return a.service.Store().ListBills() }

// AvailableRooms lists unoccupied rooms, optionally treating one tenant's
// own room as free for edit flows.
func (a *App) AvailableRooms(excludingTenantID string) []domain.Room {
	return a.service.AvailableRooms(excludingTenantID)
}

// FilteredBills narrows bills by paid status and tenant, newest first.
func (a *App) FilteredBills(status report.StatusFilter, tenantID string) []domain.Bill {
	return report.FilteredBills(a.Bills(), status, tenantID)
}

// Dashboard is the derived overview served to clients.
type Dashboard struct {
	Summary     report.Summary        `json:"summary"`
	Recent      []domain.Bill         `json:"recent"`
	Outstanding []report.TenantBalance `json:"outstanding"`
}

// recentBillCount matches the overview's short list length.
const recentBillCount = 7

// Dashboard recomputes the overview aggregates from the current state.
func (a *App) Dashboard() Dashboard {
	snap := a.service.Store().ExportState()
	return Dashboard{
		Summary: report.Summarize(report.Snapshot{
			Rooms:   snap.Rooms,
			Tenants: snap.Tenants,
			Bills:   snap.Bills,
		}),
		Recent:      report.RecentBills(snap.Bills, recentBillCount),
		Outstanding: report.TenantsWithUnpaidBills(snap.Tenants, snap.Bills),
	}
}

// Pref reads a stored preference into out, reporting whether it decoded.
func (a *App) Pref(key string, out any) bool {
	if a.prefs == nil {
		return false
	}
	return a.prefs.Get(key, out)
}

// SetPref persists a preference value.
func (a *App) SetPref(key string, val any) error {
	if a.prefs == nil {
		return nil
	}
	return a.prefs.Set(key, val)
}
