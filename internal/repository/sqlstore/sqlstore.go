// Package sqlstore implements the repository interfaces on top of
// database/sql, for SQLite (modernc.org/sqlite, pure Go) and PostgreSQL
// (github.com/lib/pq).
//
// Queries are written once with ? placeholders; sqlx rebinds them to $1, $2
// for PostgreSQL. The schema lives in embedded golang-migrate migrations,
// one directory per dialect, and is applied by New.
//
// Usage:
//
//	db, err := sqlstore.New("sqlite", "data/diary.db")
//	if err != nil { ... }
//	defer db.Close()
package sqlstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect is the SQL backend in use. Its value is also the database/sql
// driver name.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

func init() {
	// sqlx only knows "sqlite3" out of the box.
	sqlx.BindDriver(string(SQLite), sqlx.QUESTION)
}

// DB wraps a connection pool. Each repository interface is served by a
// small store that shares the pool: Users, Diaries, Comments and Likes.
type DB struct {
	conn    *sqlx.DB
	dialect Dialect
}

func (db *DB) Users() *UserStore { return &UserStore{db: db} }
func (db *DB) Diaries() *DiaryStore { return &DiaryStore{db: db} }
func (db *DB) Comments() *CommentStore { return &CommentStore{db: db} }
func (db *DB) Likes() *LikeStore { return &LikeStore{db: db} }

// New opens the database, verifies the connection and runs migrations.
//
// For SQLite, dsn is a file path or ":memory:". Foreign keys and a busy
// timeout are enabled on every connection; file databases also use WAL.
// An in-memory database is limited to one connection, since each new
// connection would otherwise see its own empty database.
func New(driver, dsn string) (*DB, error) {
	dialect := Dialect(driver)

	openDSN := dsn
	switch dialect {
	case SQLite:
		openDSN = sqliteDSN(dsn)
	case Postgres:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(string(dialect), openDSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}
	if dialect == SQLite && isMemory(dsn) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect returns the backend in use.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(db.dialect))
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	var drv database.Driver
	switch db.dialect {
	case SQLite:
		drv, err = migratesqlite.WithInstance(db.conn.DB, &migratesqlite.Config{})
	case Postgres:
		drv, err = migratepg.WithInstance(db.conn.DB, &migratepg.Config{})
	}
	if err != nil {
		return fmt.Errorf("creating %s migration driver: %w", db.dialect, err)
	}

	// m is not closed: closing it would close the shared pool.
	m, err := migrate.NewWithInstance("iofs", src, string(db.dialect), drv)
	if err != nil {
		return fmt.Errorf("creating migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// inTx runs fn in a transaction, rolling back if fn fails.
func (db *DB) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	return nil
}

func sqliteDSN(path string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	if !isMemory(path) {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// now returns the current time at the precision both backends keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch code := sqliteErr.Code(); code {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// Primary code only, when extended codes are off.
			return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
		}
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	return n, nil
}

// q rebinds a ?-placeholder query for the active dialect.
func (db *DB) q(query string) string {
	return db.conn.Rebind(query)
}
