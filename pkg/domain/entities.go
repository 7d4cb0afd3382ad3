// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by rentledger.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityRoom identifies a rentable unit record.
	EntityRoom EntityType = "room"
	// EntityTenant identifies a tenant record.
	EntityTenant EntityType = "tenant"
	// EntityBill identifies a billing record.
	EntityBill EntityType = "bill"
)

// BillType enumerates the recurring charge categories a bill can carry.
type BillType string

// Canonical bill types offered when recording a charge.
const (
	BillTypeRent        BillType = "Rent"
	BillTypeElectricity BillType = "Electricity"
	BillTypeWater       BillType = "Water"
	BillTypeInternet    BillType = "Internet"
	BillTypeMaintenance BillType = "Maintenance"
	BillTypeOther       BillType = "Other"
)

// BillTypes lists every canonical bill type in display order.
func BillTypes() []BillType {
	return []BillType{
		BillTypeRent,
		BillTypeElectricity,
		BillTypeWater,
		BillTypeInternet,
		BillTypeMaintenance,
		BillTypeOther,
	}
}

// Valid reports whether t is one of the canonical bill types.
func (t BillType) Valid() bool {
	switch t {
	case BillTypeRent, BillTypeElectricity, BillTypeWater, BillTypeInternet, BillTypeMaintenance, BillTypeOther:
		return true
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. Seq is a monotonic
// insertion counter persisted with the record so equal-timestamp sorts keep
// insertion order across reloads.
type Base struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Room represents a rentable unit with a name and monthly rent.
type Room struct {
	Base
	Name  string  `json:"name"`
	Floor string  `json:"floor,omitempty"`
	Rent  float64 `json:"rent"`
}

// Tenant represents a person optionally assigned to one room. RoomID is a
// soft reference: empty means unassigned.
type Tenant struct {
	Base
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	MoveIn string `json:"move_in,omitempty"`
	RoomID string `json:"room_id"`
}

// Bill is a dated, typed monetary charge against one tenant. TenantID must
// resolve at creation time; it may dangle afterwards when the orphan-bill
// retention policy is active.
type Bill struct {
	Base
	TenantID string   `json:"tenant_id"`
	Month    string   `json:"month"`
	Type     BillType `json:"type"`
	Amount   float64  `json:"amount"`
	Notes    string   `json:"notes,omitempty"`
	Paid     bool     `json:"paid"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured per transaction.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// ErrNotFound is returned when an operation targets an id with no record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
