// Package validate checks entity drafts before they reach the store. Drafts
// carry raw string input; validation returns a field-to-message map and an
// empty map means the draft is acceptable.
package validate

import (
	"regexp"
	"strconv"
	"strings"

	"rentledger/pkg/domain"
)

// Errors maps an offending field to a human-readable message.
type Errors map[string]string

// Valid reports whether the draft passed validation.
func (e Errors) Valid() bool { return len(e) == 0 }

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// RoomDraft is raw input for a room create or update.
type RoomDraft struct {
	Name  string `json:"name"`
	Floor string `json:"floor"`
	Rent  string `json:"rent"`
}

// TenantDraft is raw input for a tenant create or update.
type TenantDraft struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	MoveIn string `json:"move_in"`
	RoomID string `json:"room_id"`
}

// BillDraft is raw input for a bill create or update.
type BillDraft struct {
	TenantID string `json:"tenant_id"`
	Month    string `json:"month"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Notes    string `json:"notes"`
	Paid     bool   `json:"paid"`
}

func positiveNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Room validates a room draft.
func Room(d RoomDraft) Errors {
	e := Errors{}
	if strings.TrimSpace(d.Name) == "" {
		e["name"] = "Room name is required"
	}
	if _, ok := positiveNumber(d.Rent); !ok {
		e["rent"] = "Enter a valid rent amount"
	}
	return e
}

// Tenant validates a tenant draft.
func Tenant(d TenantDraft) Errors {
	e := Errors{}
	if strings.TrimSpace(d.Name) == "" {
		e["name"] = "Tenant name is required"
	}
	if d.RoomID == "" {
		e["room_id"] = "Please assign a room"
	}
	if d.Email != "" && !emailPattern.MatchString(d.Email) {
		e["email"] = "Invalid email format"
	}
	return e
}

// Bill validates a bill draft.
func Bill(d BillDraft) Errors {
	e := Errors{}
	if d.TenantID == "" {
		e["tenant_id"] = "Select a tenant"
	}
	if d.Month == "" {
		e["month"] = "Select a month"
	}
	if _, ok := positiveNumber(d.Amount); !ok {
		e["amount"] = "Enter a valid amount"
	}
	return e
}

// Record converts a validated room draft into a domain record.
func (d RoomDraft) Record() domain.Room {
	rent, _ := positiveNumber(d.Rent)
	return domain.Room{
		Name:  strings.TrimSpace(d.Name),
		Floor: strings.TrimSpace(d.Floor),
		Rent:  rent,
	}
}

// Record converts a validated tenant draft into a domain record.
func (d TenantDraft) Record() domain.Tenant {
	return domain.Tenant{
		Name:   strings.TrimSpace(d.Name),
		Phone:  strings.TrimSpace(d.Phone),
		Email:  strings.TrimSpace(d.Email),
		MoveIn: strings.TrimSpace(d.MoveIn),
		RoomID: d.RoomID,
	}
}

// Record converts a validated bill draft into a domain record. An unknown or
// empty type falls back to Rent.
func (d BillDraft) Record() domain.Bill {
	amount, _ := positiveNumber(d.Amount)
	billType := domain.BillType(d.Type)
	if !billType.Valid() {
		billType = domain.BillTypeRent
	}
	return domain.Bill{
		TenantID: d.TenantID,
		Month:    d.Month,
		Type:     billType,
		Amount:   amount,
		Notes:    strings.TrimSpace(d.Notes),
		Paid:     d.Paid,
	}
}
