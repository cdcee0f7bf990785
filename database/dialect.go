// database/dialect.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gewnthar/ulsync/models"
)

// execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect hides the SQL differences between the embedded SQLite file and a
// MySQL/MariaDB server.
type Dialect interface {
	Name() string
	Quote(ident string) string
	// ColumnDef renders one column definition; indexed text columns need a
	// bounded type on MySQL.
	ColumnDef(c models.Column, indexed bool) string
	TableOptions() string
	AutoIncrementPK() string
	TimestampType() string

	CreateTempTable(name, columnDefs string) string
	DropTempTable(name string) string
	DropIndex(table, index string) string
	// ListIndexes returns the non-unique secondary indexes present on table.
	ListIndexes(ctx context.Context, q execer, table string) ([]string, error)

	// LikeEscape is appended to LIKE predicates whose pattern escapes with '\'.
	LikeEscape() string

	// BulkSession returns statements applied to the load connection before a
	// merge and the statements restoring normal settings afterwards.
	BulkSession() (apply, restore []string)

	// Compact refreshes planner statistics and reclaims free space.
	Compact(ctx context.Context, q execer, tables []string) error
	SizeBytes(ctx context.Context, q execer) (int64, error)
}

func quoteList(d Dialect, names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = d.Quote(n)
	}
	return strings.Join(q, ", ")
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite3" }

func (sqliteDialect) Quote(ident string) string { return `"` + ident + `"` }

func (d sqliteDialect) ColumnDef(c models.Column, _ bool) string {
	var typ string
	switch c.Type {
	case models.TypeInteger, models.TypeFlag:
		typ = "INTEGER"
	default:
		typ = "TEXT"
	}
	def := d.Quote(c.Name) + " " + typ
	if c.NoCase {
		def += " COLLATE NOCASE"
	}
	return def
}

func (sqliteDialect) TableOptions() string    { return "" }
func (sqliteDialect) AutoIncrementPK() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }
func (sqliteDialect) TimestampType() string   { return "DATETIME" }

func (d sqliteDialect) CreateTempTable(name, columnDefs string) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s)", d.Quote(name), columnDefs)
}

func (d sqliteDialect) DropTempTable(name string) string {
	return "DROP TABLE IF EXISTS temp." + d.Quote(name)
}

func (d sqliteDialect) DropIndex(_, index string) string {
	return "DROP INDEX IF EXISTS " + d.Quote(index)
}

func (sqliteDialect) ListIndexes(ctx context.Context, q execer, table string) ([]string, error) {
	// Constraint indexes have no sql text.
	return queryStrings(ctx, q,
		`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL ORDER BY name`, table)
}

func (sqliteDialect) LikeEscape() string { return ` ESCAPE '\'` }

func (sqliteDialect) BulkSession() (apply, restore []string) {
	apply = []string{
		"PRAGMA journal_mode = MEMORY",
		"PRAGMA synchronous = OFF",
		"PRAGMA cache_size = -262144",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA locking_mode = EXCLUSIVE",
	}
	restore = []string{
		"PRAGMA locking_mode = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -2000",
		"PRAGMA temp_store = DEFAULT",
	}
	return apply, restore
}

func (sqliteDialect) Compact(ctx context.Context, q execer, _ []string) error {
	for _, stmt := range []string{"ANALYZE", "VACUUM", "PRAGMA optimize"} {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func (sqliteDialect) SizeBytes(ctx context.Context, q execer) (int64, error) {
	var pages, size int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pages); err != nil {
		return 0, err
	}
	if err := q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&size); err != nil {
		return 0, err
	}
	return pages * size, nil
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Quote(ident string) string { return "`" + ident + "`" }

func (d mysqlDialect) ColumnDef(c models.Column, indexed bool) string {
	var typ string
	switch c.Type {
	case models.TypeInteger:
		typ = "BIGINT"
	case models.TypeFlag:
		typ = "TINYINT(1)"
	case models.TypeDate:
		typ = "DATE"
	default:
		if indexed {
			typ = "VARCHAR(255)"
		} else {
			typ = "TEXT"
		}
	}
	return d.Quote(c.Name) + " " + typ
}

func (mysqlDialect) TableOptions() string {
	return " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
}
func (mysqlDialect) AutoIncrementPK() string { return "BIGINT AUTO_INCREMENT PRIMARY KEY" }
func (mysqlDialect) TimestampType() string   { return "DATETIME(6)" }

func (d mysqlDialect) CreateTempTable(name, columnDefs string) string {
	return fmt.Sprintf("CREATE TEMPORARY TABLE %s (%s)%s", d.Quote(name), columnDefs, d.TableOptions())
}

func (d mysqlDialect) DropTempTable(name string) string {
	return "DROP TEMPORARY TABLE IF EXISTS " + d.Quote(name)
}

func (d mysqlDialect) DropIndex(table, index string) string {
	return fmt.Sprintf("DROP INDEX %s ON %s", d.Quote(index), d.Quote(table))
}

func (mysqlDialect) ListIndexes(ctx context.Context, q execer, table string) ([]string, error) {
	return queryStrings(ctx, q, `
		SELECT DISTINCT INDEX_NAME FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND NON_UNIQUE = 1
		ORDER BY INDEX_NAME`, table)
}

// Backslash is already the default LIKE escape in MySQL.
func (mysqlDialect) LikeEscape() string { return "" }

func (mysqlDialect) BulkSession() (apply, restore []string) {
	return []string{"SET SESSION foreign_key_checks = 0"}, []string{"SET SESSION foreign_key_checks = 1"}
}

func (d mysqlDialect) Compact(ctx context.Context, q execer, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	list := quoteList(d, tables)
	// Both statements return a status result set that must be drained.
	for _, stmt := range []string{"ANALYZE TABLE " + list, "OPTIMIZE TABLE " + list} {
		rows, err := q.QueryContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
		for rows.Next() {
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func (mysqlDialect) SizeBytes(ctx context.Context, q execer) (int64, error) {
	var size int64
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(data_length + index_length), 0)
		FROM information_schema.TABLES WHERE table_schema = DATABASE()`).Scan(&size)
	return size, err
}

func queryStrings(ctx context.Context, q execer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
