package main

import (
	"context"
	"fmt"

	"github.com/rpattn/masterdata/internal/config"
	"github.com/rpattn/masterdata/internal/db"
	"github.com/rpattn/masterdata/internal/repository"
	"github.com/rpattn/masterdata/internal/repository/sqlite"
	"github.com/rpattn/masterdata/internal/upsert"
)

// storage bundles the repositories of one backend.
type storage struct {
	mappings repository.MappingRepository
	schema   repository.SchemaIntrospector
	exec     repository.QueryExecutor
	logs     repository.IngestionLogRepository
	dialect  upsert.Dialect
	close    func()
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	switch cfg.Storage.Kind {
	case config.StorageSQLite:
		conn, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, conn); err != nil {
			conn.Close()
			return nil, err
		}
		return &storage{
			mappings: sqlite.NewMappingRepository(conn),
			schema:   sqlite.NewSchemaIntrospector(conn),
			exec:     sqlite.NewQueryExecutor(conn),
			logs:     sqlite.NewIngestionLogRepository(conn),
			dialect:  upsert.SQLite,
			close:    func() { conn.Close() },
		}, nil

	case config.StoragePostgres, "":
		conn, err := db.NewConnection(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(conn.Pool); err != nil {
			conn.Close()
			return nil, err
		}
		return &storage{
			mappings: repository.NewMappingRepository(conn),
			schema:   repository.NewSchemaIntrospector(conn.Pool, cfg.Database.Schema),
			exec:     repository.NewQueryExecutor(conn.Pool),
			logs:     repository.NewIngestionLogRepository(conn.Pool),
			dialect:  upsert.Postgres,
			close:    conn.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Storage.Kind)
	}
}
