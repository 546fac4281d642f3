package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := normalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build mysql connector")
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping mysql")
	}
	return db, nil
}

// normalizeDSN forces the settings the repository relies on: DATETIME columns
// scan into time.Time and are read and written as UTC.
func normalizeDSN(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mysql dsn")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}
