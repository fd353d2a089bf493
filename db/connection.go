// Package db opens the *sql.DB that the storage executor runs statements on.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/entorm/am"
	"github.com/teranos/entorm/errors"
	"github.com/teranos/entorm/logger"
	"github.com/teranos/entorm/query"
)

// SQLiteBusyTimeoutMS is the busy timeout applied by Open
const SQLiteBusyTimeoutMS = 5000

// Open opens a SQLite database at the specified path with optimized settings.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	return openSQLite(path, SQLiteBusyTimeoutMS, logger)
}

func openSQLite(path string, busyTimeoutMS int, log *zap.SugaredLogger) (*sql.DB, error) {
	if log != nil {
		log.Debugw("Opening database", logger.FieldPath, path, logger.FieldDriver, am.DriverSQLite)
	}
	db, err := sql.Open(am.DriverSQLite, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Enable WAL mode for concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	// Relations rely on foreign keys being enforced
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS)); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if log != nil {
		log.Infow("Database opened successfully",
			logger.FieldPath, path,
			logger.FieldDriver, am.DriverSQLite,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// OpenPostgres opens a Postgres database through the pgx stdlib driver and pings it.
func OpenPostgres(dsn string, log *zap.SugaredLogger) (*sql.DB, error) {
	db, err := sql.Open(am.DriverPostgres, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to reach database")
	}
	if log != nil {
		log.Infow("Database opened successfully", logger.FieldDriver, am.DriverPostgres)
	}
	return db, nil
}

// OpenConfig opens the database described by cfg and returns the dialect
// statements must be compiled with.
func OpenConfig(cfg am.DatabaseConfig, log *zap.SugaredLogger) (*sql.DB, query.Dialect, error) {
	dialect, err := query.DialectFor(cfg.Driver)
	if err != nil {
		return nil, query.Dialect{}, err
	}

	var conn *sql.DB
	switch dialect.Name() {
	case query.Postgres.Name():
		conn, err = OpenPostgres(cfg.DSN, log)
	default:
		timeout := cfg.BusyTimeoutMS
		if timeout <= 0 {
			timeout = SQLiteBusyTimeoutMS
		}
		conn, err = openSQLite(cfg.Path, timeout, log)
	}
	if err != nil {
		return nil, query.Dialect{}, err
	}
	return conn, dialect, nil
}
