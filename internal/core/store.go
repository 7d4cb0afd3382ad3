package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryState struct {
	rooms   map[string]Room
	tenants map[string]Tenant
	bills   map[string]Bill
}

func newMemoryState() memoryState {
	return memoryState{
		rooms:   make(map[string]Room),
		tenants: make(map[string]Tenant),
		bills:   make(map[string]Bill),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.rooms {
		cloned.rooms[k] = cloneRoom(v)
	}
	for k, v := range s.tenants {
		cloned.tenants[k] = cloneTenant(v)
	}
	for k, v := range s.bills {
		cloned.bills[k] = cloneBill(v)
	}
	return cloned
}

// Records are flat value types; assignment is a deep copy.
func cloneRoom(r Room) Room       { return r }
func cloneTenant(t Tenant) Tenant { return t }
func cloneBill(b Bill) Bill       { return b }

// Policy controls the store's cross-entity cleanup behavior.
type Policy struct {
	// RetainOrphanedBills keeps a tenant's bills when the tenant is deleted,
	// leaving their tenant reference dangling. When false, deleting a tenant
	// deletes its bills in the same transaction.
	RetainOrphanedBills bool
}

// DefaultPolicy preserves billing history across tenant deletion.
func DefaultPolicy() Policy {
	return Policy{RetainOrphanedBills: true}
}

// MemoryStore provides an in-memory transactional store for the core domain.
type MemoryStore struct {
	mu      sync.RWMutex
	state   memoryState
	engine  *RulesEngine
	policy  Policy
	nowFn   func() time.Time
	nextSeq int64
}

// NewMemoryStore constructs an in-memory store backed by the provided rules
// engine and the default policy.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	return NewMemoryStoreWithPolicy(engine, DefaultPolicy())
}

// NewMemoryStoreWithPolicy constructs an in-memory store with an explicit policy.
func NewMemoryStoreWithPolicy(engine *RulesEngine, policy Policy) *MemoryStore {
	if engine == nil {
		engine = NewRulesEngine()
	}
	return &MemoryStore{
		state:  newMemoryState(),
		engine: engine,
		policy: policy,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// Policy returns the active cleanup policy.
func (s *MemoryStore) Policy() Policy {
	return s.policy
}

func (s *MemoryStore) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	store   *MemoryStore
	state   memoryState
	changes []Change
	now     time.Time
	seq     int64
}

func (tx *Transaction) nextSeq() int64 {
	tx.seq++
	return tx.seq
}

// TransactionView exposes a read-only snapshot of the transactional state to rules.
type TransactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return TransactionView{state: state}
}

// ListRooms returns all rooms within the transaction snapshot in insertion order.
func (v TransactionView) ListRooms() []Room {
	out := make([]Room, 0, len(v.state.rooms))
	for _, r := range v.state.rooms {
		out = append(out, cloneRoom(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// ListTenants returns all tenants in insertion order.
func (v TransactionView) ListTenants() []Tenant {
	out := make([]Tenant, 0, len(v.state.tenants))
	for _, t := range v.state.tenants {
		out = append(out, cloneTenant(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// ListBills returns all bills in insertion order.
func (v TransactionView) ListBills() []Bill {
	out := make([]Bill, 0, len(v.state.bills))
	for _, b := range v.state.bills {
		out = append(out, cloneBill(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// FindRoom retrieves a room by ID from the snapshot.
func (v TransactionView) FindRoom(id string) (Room, bool) {
	r, ok := v.state.rooms[id]
	if !ok {
		return Room{}, false
	}
	return cloneRoom(r), true
}

// FindTenant retrieves a tenant by ID from the snapshot.
func (v TransactionView) FindTenant(id string) (Tenant, bool) {
	t, ok := v.state.tenants[id]
	if !ok {
		return Tenant{}, false
	}
	return cloneTenant(t), true
}

// FindBill retrieves a bill by ID from the snapshot.
func (v TransactionView) FindBill(id string) (Bill, bool) {
	b, ok := v.state.bills[id]
	if !ok {
		return Bill{}, false
	}
	return cloneBill(b), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the post-state; blocking violations abort
// the commit and surface as RuleViolationError.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
		seq:   s.nextSeq,
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	s.nextSeq = tx.seq
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *MemoryStore) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *Transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// CreateRoom stores a new room within the transaction.
func (tx *Transaction) CreateRoom(r Room) (Room, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	if _, exists := tx.state.rooms[r.ID]; exists {
		return Room{}, fmt.Errorf("room %q already exists", r.ID)
	}
	r.Seq = tx.nextSeq()
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.rooms[r.ID] = cloneRoom(r)
	tx.recordChange(Change{Entity: EntityRoom, Action: ActionCreate, After: cloneRoom(r)})
	return cloneRoom(r), nil
}

// UpdateRoom mutates a room using the provided mutator function.
func (tx *Transaction) UpdateRoom(id string, mutator func(*Room) error) (Room, error) {
	current, ok := tx.state.rooms[id]
	if !ok {
		return Room{}, ErrNotFound{Entity: EntityRoom, ID: id}
	}
	before := cloneRoom(current)
	if err := mutator(&current); err != nil {
		return Room{}, err
	}
	current.ID = id
	current.Seq = before.Seq
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.rooms[id] = cloneRoom(current)
	tx.recordChange(Change{Entity: EntityRoom, Action: ActionUpdate, Before: before, After: cloneRoom(current)})
	return cloneRoom(current), nil
}

// DeleteRoom removes a room and clears the room reference on every tenant
// assigned to it, within the same transaction.
func (tx *Transaction) DeleteRoom(id string) error {
	current, ok := tx.state.rooms[id]
	if !ok {
		return ErrNotFound{Entity: EntityRoom, ID: id}
	}
	delete(tx.state.rooms, id)
	tx.recordChange(Change{Entity: EntityRoom, Action: ActionDelete, Before: cloneRoom(current)})
	for tid, tenant := range tx.state.tenants {
		if tenant.RoomID != id {
			continue
		}
		before := cloneTenant(tenant)
		tenant.RoomID = ""
		tenant.UpdatedAt = tx.now
		tx.state.tenants[tid] = cloneTenant(tenant)
		tx.recordChange(Change{Entity: EntityTenant, Action: ActionUpdate, Before: before, After: cloneTenant(tenant)})
	}
	return nil
}

// CreateTenant stores a new tenant.
func (tx *Transaction) CreateTenant(t Tenant) (Tenant, error) {
	if t.ID == "" {
		t.ID = tx.store.newID()
	}
	if _, exists := tx.state.tenants[t.ID]; exists {
		return Tenant{}, fmt.Errorf("tenant %q already exists", t.ID)
	}
	t.Seq = tx.nextSeq()
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.tenants[t.ID] = cloneTenant(t)
	tx.recordChange(Change{Entity: EntityTenant, Action: ActionCreate, After: cloneTenant(t)})
	return cloneTenant(t), nil
}

// UpdateTenant mutates an existing tenant.
func (tx *Transaction) UpdateTenant(id string, mutator func(*Tenant) error) (Tenant, error) {
	current, ok := tx.state.tenants[id]
	if !ok {
		return Tenant{}, ErrNotFound{Entity: EntityTenant, ID: id}
	}
	before := cloneTenant(current)
	if err := mutator(&current); err != nil {
		return Tenant{}, err
	}
	current.ID = id
	current.Seq = before.Seq
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.tenants[id] = cloneTenant(current)
	tx.recordChange(Change{Entity: EntityTenant, Action: ActionUpdate, Before: before, After: cloneTenant(current)})
	return cloneTenant(current), nil
}

// DeleteTenant removes a tenant. Bills referencing the tenant are kept under
// the retention policy and deleted otherwise.
func (tx *Transaction) DeleteTenant(id string) error {
	current, ok := tx.state.tenants[id]
	if !ok {
		return ErrNotFound{Entity: EntityTenant, ID: id}
	}
	delete(tx.state.tenants, id)
	tx.recordChange(Change{Entity: EntityTenant, Action: ActionDelete, Before: cloneTenant(current)})
	if tx.store.policy.RetainOrphanedBills {
		return nil
	}
	for bid, bill := range tx.state.bills {
		if bill.TenantID != id {
			continue
		}
		delete(tx.state.bills, bid)
		tx.recordChange(Change{Entity: EntityBill, Action: ActionDelete, Before: cloneBill(bill)})
	}
	return nil
}

// CreateBill stores a new bill record.
func (tx *Transaction) CreateBill(b Bill) (Bill, error) {
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	if _, exists := tx.state.bills[b.ID]; exists {
		return Bill{}, fmt.Errorf("bill %q already exists", b.ID)
	}
	if b.Type == "" {
		b.Type = BillTypeRent
	}
	b.Seq = tx.nextSeq()
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.bills[b.ID] = cloneBill(b)
	tx.recordChange(Change{Entity: EntityBill, Action: ActionCreate, After: cloneBill(b)})
	return cloneBill(b), nil
}

// UpdateBill mutates an existing bill.
func (tx *Transaction) UpdateBill(id string, mutator func(*Bill) error) (Bill, error) {
	current, ok := tx.state.bills[id]
	if !ok {
		return Bill{}, ErrNotFound{Entity: EntityBill, ID: id}
	}
	before := cloneBill(current)
	if err := mutator(&current); err != nil {
		return Bill{}, err
	}
	current.ID = id
	current.Seq = before.Seq
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.bills[id] = cloneBill(current)
	tx.recordChange(Change{Entity: EntityBill, Action: ActionUpdate, Before: before, After: cloneBill(current)})
	return cloneBill(current), nil
}

// DeleteBill removes a bill from state.
func (tx *Transaction) DeleteBill(id string) error {
	current, ok := tx.state.bills[id]
	if !ok {
		return ErrNotFound{Entity: EntityBill, ID: id}
	}
	delete(tx.state.bills, id)
	tx.recordChange(Change{Entity: EntityBill, Action: ActionDelete, Before: cloneBill(current)})
	return nil
}

// ToggleBillPaid flips a bill's paid flag. Applying it twice restores the
// original value.
func (tx *Transaction) ToggleBillPaid(id string) (Bill, error) {
	return tx.UpdateBill(id, func(b *Bill) error {
		b.Paid = !b.Paid
		return nil
	})
}

// Read helpers ---------------------------------------------------------------

// GetRoom retrieves a room by ID from committed state.
func (s *MemoryStore) GetRoom(id string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.rooms[id]
	if !ok {
		return Room{}, false
	}
	return cloneRoom(r), true
}

// GetTenant retrieves a tenant by ID from committed state.
func (s *MemoryStore) GetTenant(id string) (Tenant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.tenants[id]
	if !ok {
		return Tenant{}, false
	}
	return cloneTenant(t), true
}

// GetBill retrieves a bill by ID from committed state.
func (s *MemoryStore) GetBill(id string) (Bill, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.bills[id]
	if !ok {
		return Bill{}, false
	}
	return cloneBill(b), true
}

// ListRooms returns all rooms from committed state in insertion order.
func (s *MemoryStore) ListRooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state
	return newTransactionView(&snapshot).ListRooms()
}

// ListTenants returns all tenants in insertion order.
func (s *MemoryStore) ListTenants() []Tenant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state
	return newTransactionView(&snapshot).ListTenants()
}

// ListBills returns all bills in insertion order.
func (s *MemoryStore) ListBills() []Bill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state
	return newTransactionView(&snapshot).ListBills()
}

// AvailableRooms returns rooms with no tenant currently assigned. A tenant id
// may be excluded from the occupancy check so that tenant's current room stays
// in its own candidate list while editing.
func (s *MemoryStore) AvailableRooms(excludingTenantID string) []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	occupied := make(map[string]bool, len(s.state.tenants))
	for _, t := range s.state.tenants {
		if t.RoomID == "" || t.ID == excludingTenantID {
			continue
		}
		occupied[t.RoomID] = true
	}
	out := make([]Room, 0, len(s.state.rooms))
	for _, r := range s.state.rooms {
		if !occupied[r.ID] {
			out = append(out, cloneRoom(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Snapshot is a full copy of the three collections, in insertion order.
type Snapshot struct {
	Rooms   []Room   `json:"rooms"`
	Tenants []Tenant `json:"tenants"`
	Bills   []Bill   `json:"bills"`
}

// ExportState clones the current store state for external persistence.
func (s *MemoryStore) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state
	view := newTransactionView(&snapshot)
	return Snapshot{
		Rooms:   view.ListRooms(),
		Tenants: view.ListTenants(),
		Bills:   view.ListBills(),
	}
}

// ImportState replaces the store state with the provided snapshot. The
// sequence counter resumes past the highest imported value.
func (s *MemoryStore) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	var maxSeq int64
	for _, r := range snapshot.Rooms {
		state.rooms[r.ID] = cloneRoom(r)
		if r.Seq > maxSeq {
			maxSeq = r.Seq
		}
	}
	for _, t := range snapshot.Tenants {
		state.tenants[t.ID] = cloneTenant(t)
		if t.Seq > maxSeq {
			maxSeq = t.Seq
		}
	}
	for _, b := range snapshot.Bills {
		state.bills[b.ID] = cloneBill(b)
		if b.Seq > maxSeq {
			maxSeq = b.Seq
		}
	}
	s.state = state
	s.nextSeq = maxSeq
}

// Reset clears all collections, e.g. on sign-out.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = newMemoryState()
	s.nextSeq = 0
}
