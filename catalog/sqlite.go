package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultMaxRows bounds result sets so a runaway query cannot flood the
// shared context.
const DefaultMaxRows = 1000

// compile-time interface checks
var (
	_ Catalog       = (*SQLite)(nil)
	_ QueryExecutor = (*SQLite)(nil)
)

// SQLiteOptions configure the sqlite-backed catalog.
type SQLiteOptions struct {
	// Database is the logical database name reported to workers. SQLite has
	// a single namespace, so the catalog presents it under one name.
	Database string
	// MaxRows caps Execute results. Defaults to DefaultMaxRows.
	MaxRows int
}

// SQLite implements Catalog and QueryExecutor over a single sqlite database.
// It serves as the reference engine; production deployments swap in a
// warehouse-backed implementation of the same interfaces.
type SQLite struct {
	db   *sql.DB
	opts SQLiteOptions
}

// OpenSQLite opens (or creates) a sqlite database at the given DSN, e.g. a
// file path or ":memory:".
func OpenSQLite(dsn string, optFns ...func(o *SQLiteOptions)) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	return NewSQLiteFromDB(db, optFns...), nil
}

// NewSQLiteFromDB wraps an existing *sql.DB.
func NewSQLiteFromDB(db *sql.DB, optFns ...func(o *SQLiteOptions)) *SQLite {
	opts := SQLiteOptions{Database: "main", MaxRows: DefaultMaxRows}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SQLite{db: db, opts: opts}
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Exec runs a statement that returns no rows (DDL, seeding). Not part of
// the worker-facing interfaces; runs only execute through Execute.
func (s *SQLite) Exec(ctx context.Context, stmt string, args ...any) error {
	_, err := s.db.ExecContext(ctx, stmt, args...)
	return err
}

// ListDatabases implements Catalog.
func (s *SQLite) ListDatabases(ctx context.Context) ([]string, error) {
	return []string{s.opts.Database}, nil
}

// ListTables implements Catalog.
func (s *SQLite) ListTables(ctx context.Context, database string) ([]string, error) {
	if database != s.opts.Database {
		return nil, fmt.Errorf("unknown database %q", database)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeTable implements Catalog using PRAGMA table_info.
func (s *SQLite) DescribeTable(ctx context.Context, database, table string) (TableInfo, error) {
	if database != s.opts.Database {
		return TableInfo{}, fmt.Errorf("unknown database %q", database)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return TableInfo{}, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	info := TableInfo{Database: database, Name: table}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return TableInfo{}, err
		}
		info.Columns = append(info.Columns, ColumnInfo{
			Name:       name,
			Type:       ctype,
			Nullable:   notnull == 0,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return TableInfo{}, err
	}
	if len(info.Columns) == 0 {
		return TableInfo{}, fmt.Errorf("table %q not found", table)
	}
	return info, nil
}

// Execute implements QueryExecutor with the configured row cap.
func (s *SQLite) Execute(ctx context.Context, query string) (ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return ResultSet{}, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return ResultSet{}, err
	}
	rs := ResultSet{Columns: cols}
	for rows.Next() {
		if len(rs.Rows) >= s.opts.MaxRows {
			rs.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return ResultSet{}, err
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, rows.Err()
}
