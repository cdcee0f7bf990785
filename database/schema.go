// database/schema.go
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/gewnthar/ulsync/models"
)

// Schema version tracking (SQLite user_version):
// 1 - license tables, sync_runs
const currentSchemaVersion = 1

const syncRunsTable = "sync_runs"

// indexedColumns returns the columns that appear in any index or constraint.
func indexedColumns(s *models.TableSchema) map[string]bool {
	cols := map[string]bool{}
	if s.KeyColumn != "" {
		cols[s.KeyColumn] = true
	}
	if s.UniqueColumn != "" {
		cols[s.UniqueColumn] = true
	}
	for _, ix := range s.Indexes {
		for _, c := range ix.Columns {
			cols[c] = true
		}
	}
	return cols
}

func columnDefs(d Dialect, s *models.TableSchema) []string {
	indexed := indexedColumns(s)
	defs := make([]string, 0, len(s.Columns)+1)
	for _, c := range s.Columns {
		defs = append(defs, d.ColumnDef(c, indexed[c.Name]))
	}
	return defs
}

// createTableSQL renders the persistent table for s. Secondary indexes are
// not part of it; they are managed by IndexManager.
func createTableSQL(d Dialect, s *models.TableSchema) string {
	defs := columnDefs(d, s)
	if s.UniqueColumn != "" {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)",
			d.Quote(fmt.Sprintf("uq_%s_%s", s.Kind, s.UniqueColumn)), d.Quote(s.UniqueColumn)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)%s",
		d.Quote(string(s.Kind)), strings.Join(defs, ",\n\t"), d.TableOptions())
}

func createSyncRunsSQL(d Dialect) string {
	text := "TEXT"
	if d.Name() == "mysql" {
		text = "VARCHAR(255)"
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	run_id %s NOT NULL,
	source_url TEXT,
	remote_marker %s,
	total_rows BIGINT NOT NULL DEFAULT 0,
	skipped_lines BIGINT NOT NULL DEFAULT 0,
	elapsed_ms BIGINT NOT NULL DEFAULT 0,
	finished_at %s NOT NULL
)%s`, d.Quote(syncRunsTable), d.AutoIncrementPK(), text, text, d.TimestampType(), d.TableOptions())
}

// EnsureSchema creates every license table, its indexes and the sync log.
// It is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ts := range models.Catalog() {
		if _, err := s.db.ExecContext(ctx, createTableSQL(s.dialect, ts)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", ts.Kind, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, createSyncRunsSQL(s.dialect)); err != nil {
		return fmt.Errorf("failed to create %s: %w", syncRunsTable, err)
	}

	// Creates only what is missing, which also repairs a store whose indexes
	// were dropped by an interrupted load.
	if _, err := NewIndexManager(s).Rebuild(ctx, models.AllTableKinds()); err != nil {
		return err
	}

	if s.dialect.Name() == "sqlite3" {
		var version int
		if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return fmt.Errorf("get user_version: %w", err)
		}
		if version < currentSchemaVersion {
			if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
				return fmt.Errorf("set user_version: %w", err)
			}
		}
	}
	return nil
}
