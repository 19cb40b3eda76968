// Package sqldb is the relational backend for users and issues. One set of
// repositories serves PostgreSQL, MySQL and SQLite; the differences are kept
// to placeholder syntax, id retrieval and duplicate-key detection.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pingTimeout = 5 * time.Second

// Dialect names a supported SQL database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

// ParseDialect maps a STORE_DRIVER value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case Postgres, MySQL, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("sqldb: unsupported dialect %q", s)
	}
}

// DB is a connection pool together with the dialect it speaks.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	// dsn lets migrations open their own short-lived handle.
	dsn string
}

// Open connects to the database and verifies the connection with a ping.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch dialect {
	case Postgres:
		conn, err = sql.Open("postgres", dsn)
		if err == nil {
			conn.SetMaxOpenConns(25)
			conn.SetMaxIdleConns(25)
			conn.SetConnMaxLifetime(30 * time.Minute)
		}
	case MySQL:
		conn, err = openMySQL(dsn)
	case SQLite:
		conn, err = openSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("sqldb: unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", dialect, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sqldb: ping %s: %w", dialect, err)
	}

	return &DB{conn: conn, dialect: dialect, dsn: dsn}, nil
}

// openMySQL forces the DSN options the repositories depend on: DATETIME
// columns scanned as UTC time.Time, and affected-row counts that include
// matched-but-unchanged rows.
func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["charset"] = "utf8mb4"

	conn, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(30 * time.Minute)
	return conn, nil
}

// openSQLite allows a single connection: SQLite has one writer at a time and
// the pragmas below are per connection.
func openSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	return conn, nil
}

func (d *DB) Dialect() Dialect { return d.dialect }

// SQL exposes the underlying pool.
func (d *DB) SQL() *sql.DB { return d.conn }

func (d *DB) Close() error { return d.conn.Close() }

// Ping satisfies the readiness check.
func (d *DB) Ping(ctx context.Context) error { return d.conn.PingContext(ctx) }

// rebind rewrites ? placeholders into the dialect's syntax.
func (d *DB) rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insert runs an INSERT and returns the generated id column.
func (d *DB) insert(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	if d.dialect == Postgres {
		var id int64
		if err := q.QueryRowContext(ctx, d.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := q.ExecContext(ctx, d.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// isUniqueViolation reports whether err is a duplicate-key error.
func (d *DB) isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// timestamp normalises t to the precision every dialect round-trips.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
