// Package docstore defines the remote document store contract: one full
// document per user holding the three collections, read once at sign-in and
// unconditionally overwritten on every save (last writer wins).
package docstore

import (
	"context"

	"rentledger/pkg/domain"
)

// Driver identifies a concrete document store implementation.
type Driver string

// Available document store drivers.
const (
	DriverMemory     Driver = "memory"
	DriverFilesystem Driver = "fs"
	DriverSQLite     Driver = "sqlite"
	DriverPostgres   Driver = "postgres"
	DriverS3         Driver = "s3"
)

// Document is the per-user persisted unit: the three collections, whole.
type Document struct {
	Rooms   []domain.Room   `json:"rooms"`
	Tenants []domain.Tenant `json:"tenants"`
	Bills   []domain.Bill   `json:"bills"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{}
	if d.Rooms != nil {
		out.Rooms = append([]domain.Room(nil), d.Rooms...)
	}
	if d.Tenants != nil {
		out.Tenants = append([]domain.Tenant(nil), d.Tenants...)
	}
	if d.Bills != nil {
		out.Bills = append([]domain.Bill(nil), d.Bills...)
	}
	return out
}

// Store reads and writes one document per user id. Write is a full
// overwrite; there is no partial update surface.
type Store interface {
	Driver() Driver
	Read(ctx context.Context, userID string) (Document, bool, error)
	Write(ctx context.Context, userID string, doc Document) error
}
