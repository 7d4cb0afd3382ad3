package core

import "rentledger/pkg/domain"

type (
	EntityType         = domain.EntityType
	BillType           = domain.BillType
	Severity           = domain.Severity
	Base               = domain.Base
	Room               = domain.Room
	Tenant             = domain.Tenant
	Bill               = domain.Bill
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	ErrNotFound        = domain.ErrNotFound
)

const (
	EntityRoom   = domain.EntityRoom
	EntityTenant = domain.EntityTenant
	EntityBill   = domain.EntityBill
)

const (
	BillTypeRent        = domain.BillTypeRent
	BillTypeElectricity = domain.BillTypeElectricity
	BillTypeWater       = domain.BillTypeWater
	BillTypeInternet    = domain.BillTypeInternet
	BillTypeMaintenance = domain.BillTypeMaintenance
	BillTypeOther       = domain.BillTypeOther
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
