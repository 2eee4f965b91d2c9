package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver
)

// Dialect captures the SQL differences between the supported engines
type Dialect struct {
	Name        string
	DriverName  string
	createTable string
	placeholder func(n int) string
	inIDs       func(ids []string) (string, []any)
}

// SQLite stores each collection as a table in a single database file
var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite3",
	createTable: `CREATE TABLE IF NOT EXISTS %s (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	doc TEXT NOT NULL
)`,
	placeholder: func(int) string { return "?" },
	inIDs: func(ids []string) (string, []any) {
		marks := make([]string, len(ids))
		args := make([]any, len(ids))
		for i, id := range ids {
			marks[i] = "?"
			args[i] = id
		}
		return "id IN (" + strings.Join(marks, ", ") + ")", args
	},
}

// Postgres stores each collection as a table in a PostgreSQL database
var Postgres = Dialect{
	Name:       "postgres",
	DriverName: "pgx",
	createTable: `CREATE TABLE IF NOT EXISTS %s (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	doc TEXT NOT NULL
)`,
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	inIDs: func(ids []string) (string, []any) {
		return "id = ANY($1)", []any{pq.Array(ids)}
	},
}

// SQLDriver stores documents as JSON text in one table per collection
type SQLDriver struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLDriver wraps an open database handle
func NewSQLDriver(db *sql.DB, dialect Dialect) *SQLDriver {
	return &SQLDriver{db: db, dialect: dialect}
}

// OpenSQLite opens (creating if needed) a SQLite database file
func OpenSQLite(path string) (*SQLDriver, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open(SQLite.DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids "database is locked".
	db.SetMaxOpenConns(1)
	return NewSQLDriver(db, SQLite), nil
}

// OpenPostgres opens a PostgreSQL connection pool
func OpenPostgres(dsn string) (*SQLDriver, error) {
	db, err := sql.Open(Postgres.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	return NewSQLDriver(db, Postgres), nil
}

// Ping verifies the database connection
func (d *SQLDriver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Open creates the collection table if absent and returns a handle on it
func (d *SQLDriver) Open(ctx context.Context, name string) (Collection, error) {
	table := pq.QuoteIdentifier(name)
	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(d.dialect.createTable, table)); err != nil {
		return nil, fmt.Errorf("failed to create table for %s: %w", name, err)
	}
	return &sqlCollection{name: name, table: table, db: d.db, dialect: d.dialect}, nil
}

// Close closes the database handle
func (d *SQLDriver) Close() error {
	return d.db.Close()
}

type sqlCollection struct {
	name    string
	table   string
	db      *sql.DB
	dialect Dialect
}

func (c *sqlCollection) Name() string {
	return c.name
}

func (c *sqlCollection) Find(ctx context.Context, q Query) ([]Record, error) {
	query := fmt.Sprintf("SELECT id, doc FROM %s", c.table)
	var args []any
	if !q.All() {
		ids := idSet(q.IDs)
		if len(ids) == 0 {
			return []Record{}, nil
		}
		var where string
		where, args = c.dialect.inIDs(ids)
		query += " WHERE " + where
	}
	query += " ORDER BY seq"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		record, err := decodeRecord(id, []byte(doc))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (c *sqlCollection) FindOne(ctx context.Context, id string) (Record, error) {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = %s", c.table, c.dialect.placeholder(1))

	var doc string
	err := c.db.QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(c.name, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(id, []byte(doc))
}

func (c *sqlCollection) Insert(ctx context.Context, record Record) (Record, error) {
	data, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}

	id := NewID()
	query := fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (%s, %s)",
		c.table, c.dialect.placeholder(1), c.dialect.placeholder(2))
	if _, err := c.db.ExecContext(ctx, query, id, string(data)); err != nil {
		return nil, err
	}
	return decodeRecord(id, data)
}

func (c *sqlCollection) Update(ctx context.Context, id string, partial Record) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var doc string
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = %s", c.table, c.dialect.placeholder(1))
	err = tx.QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(c.name, id)
	}
	if err != nil {
		return err
	}

	current, err := decodeRecord(id, []byte(doc))
	if err != nil {
		return err
	}
	data, err := encodeRecord(merge(current, partial))
	if err != nil {
		return err
	}

	update := fmt.Sprintf("UPDATE %s SET doc = %s WHERE id = %s",
		c.table, c.dialect.placeholder(1), c.dialect.placeholder(2))
	if _, err := tx.ExecContext(ctx, update, string(data), id); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *sqlCollection) Remove(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", c.table, c.dialect.placeholder(1))
	result, err := c.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound(c.name, id)
	}
	return nil
}
