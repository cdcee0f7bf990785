// database/connection.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// Store is the persistent license store: one SQLite file by default, or a
// MySQL/MariaDB schema. A Store has a single writer; loads, pruning and
// compaction must not overlap with lookups.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured store and makes sure every table exists.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case "", "sqlite3":
		return OpenSQLite(ctx, cfg.Path)
	case "mysql":
		return OpenMySQL(ctx, cfg)
	}
	return nil, models.Errorf(models.ConfigError, "opening store", "unsupported database driver %q", cfg.Driver)
}

// OpenSQLite creates or opens the SQLite file at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Connection settings go in the DSN so a replaced connection gets them too.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=0"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has one writer; temp tables and session pragmas are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return newStore(ctx, db, sqliteDialect{})
}

// OpenMySQL connects to a MySQL/MariaDB server.
func OpenMySQL(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.ParseTime = true

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newStore(ctx, db, mysqlDialect{})
}

func newStore(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, dialect: d}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	logging.FromContext(ctx).Debug("store opened", "driver", d.Name())
	return s, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

// TableCount returns the number of rows in kind's table.
func (s *Store) TableCount(ctx context.Context, kind models.TableKind) (int64, error) {
	return countRows(ctx, s.db, s.dialect, string(kind))
}

// TableCounts returns row counts for every table kind.
func (s *Store) TableCounts(ctx context.Context) (map[models.TableKind]int64, error) {
	out := make(map[models.TableKind]int64, len(models.AllTableKinds()))
	for _, k := range models.AllTableKinds() {
		n, err := s.TableCount(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

// SizeBytes reports the on-disk size of the store.
func (s *Store) SizeBytes(ctx context.Context) (int64, error) {
	return s.dialect.SizeBytes(ctx, s.db)
}

func countRows(ctx context.Context, q execer, d Dialect, table string) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.Quote(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// withBulkSession applies the dialect's bulk-load settings to conn for the
// duration of fn.
func (s *Store) withBulkSession(ctx context.Context, conn *sql.Conn, fn func() error) error {
	apply, restore := s.dialect.BulkSession()
	defer func() {
		rctx := context.WithoutCancel(ctx)
		for _, stmt := range restore {
			if _, err := conn.ExecContext(rctx, stmt); err != nil {
				logging.FromContext(ctx).Warn("failed to restore session setting", "stmt", stmt, "error", err)
			}
		}
	}()
	for _, stmt := range apply {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}
	return fn()
}
