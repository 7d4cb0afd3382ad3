package domain

import "context"

// RuleView exposes a read-only snapshot of transactional state to rules.
type RuleView interface {
	ListRooms() []Room
	ListTenants() []Tenant
	ListBills() []Bill
	FindRoom(id string) (Room, bool)
	FindTenant(id string) (Tenant, bool)
	FindBill(id string) (Bill, bool)
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}
