// Package report derives dashboard aggregates and filtered projections from a
// snapshot of the three collections. Every function is pure and recomputes
// from scratch on each call; there is no memoization to invalidate.
package report

import (
	"sort"

	"rentledger/pkg/domain"
)

// Snapshot is the read-only input to every derivation.
type Snapshot struct {
	Rooms   []domain.Room
	Tenants []domain.Tenant
	Bills   []domain.Bill
}

// Summary carries the dashboard headline numbers.
type Summary struct {
	Rooms        int     `json:"rooms"`
	Tenants      int     `json:"tenants"`
	Occupied     int     `json:"occupied"`
	Vacant       int     `json:"vacant"`
	Paid         int     `json:"paid"`
	Unpaid       int     `json:"unpaid"`
	PendingTotal float64 `json:"pending_total"`
}

// Summarize computes the headline aggregates. Occupancy counts distinct
// non-empty room references across tenants.
func Summarize(s Snapshot) Summary {
	occupied := make(map[string]bool)
	for _, t := range s.Tenants {
		if t.RoomID != "" {
			occupied[t.RoomID] = true
		}
	}
	sum := Summary{
		Rooms:    len(s.Rooms),
		Tenants:  len(s.Tenants),
		Occupied: len(occupied),
		Vacant:   len(s.Rooms) - len(occupied),
	}
	for _, b := range s.Bills {
		if b.Paid {
			sum.Paid++
		} else {
			sum.Unpaid++
			sum.PendingTotal += b.Amount
		}
	}
	return sum
}

// byCreatedDesc stable-sorts bills newest first. Input order breaks ties, so
// callers passing insertion-ordered slices keep insertion order for records
// sharing a timestamp.
func byCreatedDesc(bills []domain.Bill) []domain.Bill {
	out := make([]domain.Bill, len(bills))
	copy(out, bills)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RecentBills returns the n most recent bills, newest first.
func RecentBills(bills []domain.Bill, n int) []domain.Bill {
	out := byCreatedDesc(bills)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TenantBalance pairs a tenant with their outstanding total.
type TenantBalance struct {
	Tenant domain.Tenant `json:"tenant"`
	Unpaid int           `json:"unpaid"`
	Owed   float64       `json:"owed"`
}

// TenantsWithUnpaidBills lists tenants holding at least one unpaid bill,
// each with the count and sum of their unpaid amounts.
func TenantsWithUnpaidBills(tenants []domain.Tenant, bills []domain.Bill) []TenantBalance {
	owed := make(map[string]*TenantBalance)
	for _, b := range bills {
		if b.Paid {
			continue
		}
		bal, ok := owed[b.TenantID]
		if !ok {
			bal = &TenantBalance{}
			owed[b.TenantID] = bal
		}
		bal.Unpaid++
		bal.Owed += b.Amount
	}
	out := make([]TenantBalance, 0, len(owed))
	for _, t := range tenants {
		if bal, ok := owed[t.ID]; ok {
			out = append(out, TenantBalance{Tenant: t, Unpaid: bal.Unpaid, Owed: bal.Owed})
		}
	}
	return out
}

// StatusFilter narrows bills by their paid flag.
type StatusFilter string

// Status filter values accepted by FilteredBills.
const (
	StatusAll    StatusFilter = "all"
	StatusPaid   StatusFilter = "paid"
	StatusUnpaid StatusFilter = "unpaid"
)

// FilteredBills returns bills matching an optional paid/unpaid status and an
// optional exact tenant id, newest first.
func FilteredBills(bills []domain.Bill, status StatusFilter, tenantID string) []domain.Bill {
	filtered := make([]domain.Bill, 0, len(bills))
	for _, b := range bills {
		switch status {
		case StatusPaid:
			if !b.Paid {
				continue
			}
		case StatusUnpaid:
			if b.Paid {
				continue
			}
		}
		if tenantID != "" && b.TenantID != tenantID {
			continue
		}
		filtered = append(filtered, b)
	}
	return byCreatedDesc(filtered)
}
