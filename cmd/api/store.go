package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bryanwahyu/knowledge-extractor/internal/application"
	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
	"github.com/bryanwahyu/knowledge-extractor/internal/config"
	mysqlp "github.com/bryanwahyu/knowledge-extractor/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/knowledge-extractor/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/knowledge-extractor/internal/infra/db/sqlite"
)

// openStore connects to the configured database and returns its repository.
func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, domain.Repository, error) {
	clock := application.NewMonotonicClock(application.SystemClock{})
	dsn := cfg.DatabaseDSN()

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqlitep.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlitep.NewAnalysisRepository(db, clock), nil
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, mysqlp.NewAnalysisRepository(db, clock), nil
	case config.DriverPostgres:
		db, err := postgresp.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, postgresp.NewAnalysisRepository(db, clock), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
