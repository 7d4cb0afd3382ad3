package core

import (
	"context"
	"fmt"

	"rentledger/pkg/domain"
)

// NewRoomReferenceRule returns the rule requiring every non-empty tenant room
// reference to resolve to an existing room. Evaluating view-wide is safe
// because room deletion clears dependent references inside the same
// transaction.
func NewRoomReferenceRule() domain.Rule {
	return roomReferenceRule{}
}

type roomReferenceRule struct{}

func (roomReferenceRule) Name() string { return "room_reference" }

func (roomReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, tenant := range view.ListTenants() {
		if tenant.RoomID == "" {
			continue
		}
		if _, ok := view.FindRoom(tenant.RoomID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "room_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("tenant %s references unknown room %s", tenant.Name, tenant.RoomID),
				Entity:   domain.EntityTenant,
				EntityID: tenant.ID,
			})
		}
	}
	return res, nil
}

// NewBillTenantReferenceRule returns the rule requiring created or updated
// bills to reference an existing tenant. The check is scoped to the
// transaction's changes: bills already dangling because their tenant was
// deleted later are tolerated under the orphan retention policy.
func NewBillTenantReferenceRule() domain.Rule {
	return billTenantReferenceRule{}
}

type billTenantReferenceRule struct{}

func (billTenantReferenceRule) Name() string { return "bill_tenant_reference" }

func (billTenantReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityBill {
			continue
		}
		if change.Action != domain.ActionCreate && change.Action != domain.ActionUpdate {
			continue
		}
		bill, ok := change.After.(domain.Bill)
		if !ok {
			continue
		}
		if change.Action == domain.ActionUpdate {
			// An already-dangling bill stays editable; only a changed
			// reference must resolve.
			if before, ok := change.Before.(domain.Bill); ok && before.TenantID == bill.TenantID {
				continue
			}
		}
		if _, exists := view.FindTenant(bill.TenantID); !exists {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "bill_tenant_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("bill %s references unknown tenant %s", bill.ID, bill.TenantID),
				Entity:   domain.EntityBill,
				EntityID: bill.ID,
			})
		}
	}
	return res, nil
}
