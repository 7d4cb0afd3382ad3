package bridge

import (
	"context"
	"fmt"

	"rentledger/internal/config"
	"rentledger/internal/docstore"
	fsstore "rentledger/internal/docstore/fs"
	memstore "rentledger/internal/docstore/memory"
	pgstore "rentledger/internal/docstore/postgres"
	s3store "rentledger/internal/docstore/s3"
	sqlitestore "rentledger/internal/docstore/sqlite"
)

// OpenStore constructs the document store named by cfg.Driver. An empty
// driver selects sqlite, the embedded default.
func OpenStore(ctx context.Context, cfg config.Docstore) (docstore.Store, error) {
	switch docstore.Driver(cfg.Driver) {
	case docstore.DriverMemory:
		return memstore.New(), nil
	case docstore.DriverFilesystem:
		return fsstore.New(cfg.Path)
	case docstore.DriverSQLite, "":
		return sqlitestore.New(cfg.Path)
	case docstore.DriverPostgres:
		return pgstore.New(ctx, cfg.DSN)
	case docstore.DriverS3:
		return s3store.New(ctx, s3store.Config{
			Region:    cfg.Region,
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown docstore driver %q", cfg.Driver)
	}
}
