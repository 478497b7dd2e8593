// Package catalog exposes database schema metadata and bounded query
// execution to workers. Implementations hide the concrete engine; workers
// only see databases, tables and column descriptions.
package catalog

import "context"

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	PrimaryKey   bool   `json:"primary_key"`
	PartitionKey bool   `json:"partition_key"`
	Comment      string `json:"comment,omitempty"`
}

// TableInfo describes one table, rich enough for a model to reason about
// which tables answer a question. Relevance is an optional ranking hint set
// by catalog implementations that score tables against a request.
type TableInfo struct {
	Database  string       `json:"database"`
	Name      string       `json:"name"`
	Comment   string       `json:"comment,omitempty"`
	Relevance float64      `json:"relevance,omitempty"`
	Columns   []ColumnInfo `json:"columns"`
}

// ResultSet is the bounded output of one query execution.
type ResultSet struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"` // row cap hit; more rows existed
}

// Catalog lists and describes the schema objects visible to a run.
type Catalog interface {
	ListDatabases(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, database string) ([]string, error)
	DescribeTable(ctx context.Context, database, table string) (TableInfo, error)
}

// QueryExecutor runs read-only SQL and returns a bounded result set.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (ResultSet, error)
}
