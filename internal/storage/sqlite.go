package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrCatalogMissing is returned when a catalog file does not exist
	ErrCatalogMissing = errors.New("catalog file does not exist")
)

// OpenReadOnly opens an existing catalog for queries. Every call returns an
// independent pool; callers that need separate handles on one file call it
// once per handle.
func OpenReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, path)
		}
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}

	db, err := sql.Open(DriverName, readOnlyDSN(path))
	if err != nil {
		return nil, err
	}

	// Nested queries (a lookup while iterating) need a second connection
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	return db, nil
}

// catalogURI renders path as an absolute SQLite file: URI with the given
// query. Characters that would start a query or fragment, or read as an
// escape, are percent-encoded.
func catalogURI(path, query string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: query}
	return u.String()
}

// openDatabase opens a catalog for writing
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, catalogURI(dbPath, ""))
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// SQLiteWriter implements the Writer interface using SQLite
type SQLiteWriter struct {
	db *sql.DB
}

// Create opens or creates a catalog file and brings its schema up to date.
func Create(ctx context.Context, dbPath string) (*SQLiteWriter, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteWriter{db: db}, nil
}

// Close checkpoints the write-ahead log back into the catalog file and
// closes the database connection. Catalogs are distributed as single files.
func (w *SQLiteWriter) Close() error {
	_, err := w.db.Exec("PRAGMA journal_mode=DELETE")
	return errors.Join(err, w.db.Close())
}

// BeginTx starts a new transaction
func (w *SQLiteWriter) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, writer: w}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx     *sql.Tx
	writer *SQLiteWriter
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (w *SQLiteWriter) querier() querier {
	return w.db
}

// Reset drops the standard relations with their rows and recreates them
// empty. Relations added with CreateRelation are kept.
func (w *SQLiteWriter) Reset(ctx context.Context) error {
	if err := RollbackMigration(ctx, w.db); err != nil {
		return fmt.Errorf("failed to reset catalog: %w", err)
	}
	if err := ApplyMigrations(ctx, w.db); err != nil {
		return fmt.Errorf("failed to reset catalog: %w", err)
	}
	return nil
}

// CreateRelation adds a relation outside the standard schema.
func (w *SQLiteWriter) CreateRelation(ctx context.Context, rel Relation) error {
	if _, err := w.db.ExecContext(ctx, relationDDL(rel)); err != nil {
		return fmt.Errorf("failed to create relation %s: %w", rel.Name, err)
	}
	return nil
}

// insertWithQuerier is the internal implementation that uses a querier
func (w *SQLiteWriter) insertWithQuerier(ctx context.Context, q querier, rel Relation, row *Row) error {
	cols := []string{"name", "triangulation", "hash", "volume", "cusps", "tets", "betti"}
	args := []interface{}{row.Name, row.Triangulation, row.Hash, row.Volume, row.Cusps, row.Tets, row.Betti}

	switch rel.Shape {
	case ClosedShape:
		cols = append(cols, "m", "l")
		args = append(args, row.M, row.L)
	case LinkShape:
		cols = append(cols, "perm", "DT")
		args = append(args, row.Perm, row.DT)
	default:
		cols = append(cols, "perm")
		args = append(args, row.Perm)
	}
	if row.ID != 0 {
		cols = append(cols, "id")
		args = append(args, row.ID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		rel.Name, strings.Join(cols, ", "), placeholders)

	if err := q.QueryRowContext(ctx, query, args...).Scan(&row.ID); err != nil {
		return fmt.Errorf("failed to insert %s into %s: %w", row.Name, rel.Name, err)
	}
	return nil
}

func (w *SQLiteWriter) Insert(ctx context.Context, rel Relation, row *Row) error {
	return w.insertWithQuerier(ctx, w.querier(), rel, row)
}

func (t *sqliteTx) Insert(ctx context.Context, rel Relation, row *Row) error {
	return t.writer.insertWithQuerier(ctx, t.querier(), rel, row)
}
