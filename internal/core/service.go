package core

import (
	"context"
	"time"
)

// Service exposes higher-level transactional CRUD operations for the core
// schema. Every mutation runs inside a store transaction so the registered
// rules gate the commit.
type Service struct {
	store   *MemoryStore
	metrics MetricsRecorder
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetrics attaches a metrics recorder observing every service operation.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// NewService constructs a service backed by the supplied store.
func NewService(store *MemoryStore, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() *MemoryStore {
	return s.store
}

func (s *Service) observe(ctx context.Context, operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
}

// CreateRoom persists a new room.
func (s *Service) CreateRoom(ctx context.Context, room Room) (Room, Result, error) {
	start := time.Now()
	var created Room
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		created, err = tx.CreateRoom(room)
		return err
	})
	s.observe(ctx, "create_room", start, err)
	return created, res, err
}

// UpdateRoom mutates a room using the provided mutator.
func (s *Service) UpdateRoom(ctx context.Context, id string, mutator func(*Room) error) (Room, Result, error) {
	start := time.Now()
	var updated Room
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		updated, err = tx.UpdateRoom(id, mutator)
		return err
	})
	s.observe(ctx, "update_room", start, err)
	return updated, res, err
}

// DeleteRoom removes a room, unassigning any tenant that held it.
func (s *Service) DeleteRoom(ctx context.Context, id string) (Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.DeleteRoom(id)
	})
	s.observe(ctx, "delete_room", start, err)
	return res, err
}

// CreateTenant persists a new tenant.
func (s *Service) CreateTenant(ctx context.Context, tenant Tenant) (Tenant, Result, error) {
	start := time.Now()
	var created Tenant
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		created, err = tx.CreateTenant(tenant)
		return err
	})
	s.observe(ctx, "create_tenant", start, err)
	return created, res, err
}

// UpdateTenant mutates a tenant using the provided mutator.
func (s *Service) UpdateTenant(ctx context.Context, id string, mutator func(*Tenant) error) (Tenant, Result, error) {
	start := time.Now()
	var updated Tenant
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		updated, err = tx.UpdateTenant(id, mutator)
		return err
	})
	s.observe(ctx, "update_tenant", start, err)
	return updated, res, err
}

// DeleteTenant removes a tenant record, honoring the orphan-bill policy.
func (s *Service) DeleteTenant(ctx context.Context, id string) (Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.DeleteTenant(id)
	})
	s.observe(ctx, "delete_tenant", start, err)
	return res, err
}

// AssignTenantRoom updates a tenant's room reference within a transaction
// that validates the target room exists. The occupancy rule blocks the
// commit when the room is already held by another tenant.
func (s *Service) AssignTenantRoom(ctx context.Context, tenantID, roomID string) (Tenant, Result, error) {
	start := time.Now()
	var updated Tenant
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		if roomID != "" {
			if _, ok := tx.state.rooms[roomID]; !ok {
				return ErrNotFound{Entity: EntityRoom, ID: roomID}
			}
		}
		var err error
		updated, err = tx.UpdateTenant(tenantID, func(t *Tenant) error {
			t.RoomID = roomID
			return nil
		})
		return err
	})
	s.observe(ctx, "assign_tenant_room", start, err)
	return updated, res, err
}

// CreateBill persists a new bill.
func (s *Service) CreateBill(ctx context.Context, bill Bill) (Bill, Result, error) {
	start := time.Now()
	var created Bill
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		created, err = tx.CreateBill(bill)
		return err
	})
	s.observe(ctx, "create_bill", start, err)
	return created, res, err
}

// UpdateBill mutates a bill using the provided mutator.
func (s *Service) UpdateBill(ctx context.Context, id string, mutator func(*Bill) error) (Bill, Result, error) {
	start := time.Now()
	var updated Bill
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		updated, err = tx.UpdateBill(id, mutator)
		return err
	})
	s.observe(ctx, "update_bill", start, err)
	return updated, res, err
}

// DeleteBill removes a bill record.
func (s *Service) DeleteBill(ctx context.Context, id string) (Result, error) {
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.DeleteBill(id)
	})
	s.observe(ctx, "delete_bill", start, err)
	return res, err
}

// ToggleBillPaid flips a bill's paid flag.
func (s *Service) ToggleBillPaid(ctx context.Context, id string) (Bill, Result, error) {
	start := time.Now()
	var updated Bill
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		updated, err = tx.ToggleBillPaid(id)
		return err
	})
	s.observe(ctx, "toggle_bill_paid", start, err)
	return updated, res, err
}

// AvailableRooms lists rooms without an assigned tenant, optionally treating
// one tenant's own assignment as vacant (for edit flows).
func (s *Service) AvailableRooms(excludingTenantID string) []Room {
	return s.store.AvailableRooms(excludingTenantID)
}
