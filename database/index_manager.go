// database/index_manager.go
package database

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// IndexReport compares a table's declared secondary indexes with the ones
// present in the store.
type IndexReport struct {
	Table    models.TableKind `json:"table"`
	Declared []string         `json:"declared"`
	Present  []string         `json:"present"`
	Missing  []string         `json:"missing,omitempty"`
	Extra    []string         `json:"extra,omitempty"`
	Created  []string         `json:"created,omitempty"`
}

func (r IndexReport) OK() bool { return len(r.Missing) == 0 }

// IndexManager drops secondary indexes before bulk loads and rebuilds them
// afterwards. Constraint indexes (the HD call-sign UNIQUE) are never touched.
type IndexManager struct {
	store *Store
}

func NewIndexManager(s *Store) *IndexManager {
	return &IndexManager{store: s}
}

// Drop removes the declared indexes of every kind that are present.
func (m *IndexManager) Drop(ctx context.Context, kinds []models.TableKind) error {
	d := m.store.dialect
	for _, k := range kinds {
		present, err := d.ListIndexes(ctx, m.store.db, string(k))
		if err != nil {
			return fmt.Errorf("failed to list indexes on %s: %w", k, err)
		}
		for _, ix := range models.Schema(k).Indexes {
			if !slices.Contains(present, ix.Name) {
				continue
			}
			if _, err := m.store.db.ExecContext(ctx, d.DropIndex(string(k), ix.Name)); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", ix.Name, err)
			}
		}
		logging.WithFields(ctx, "table", k).Debug("indexes dropped")
	}
	return nil
}

// Rebuild creates every declared index that is missing and returns the
// resulting report per table.
func (m *IndexManager) Rebuild(ctx context.Context, kinds []models.TableKind) ([]IndexReport, error) {
	d := m.store.dialect
	reports := make([]IndexReport, 0, len(kinds))
	for _, k := range kinds {
		start := time.Now()
		present, err := d.ListIndexes(ctx, m.store.db, string(k))
		if err != nil {
			return reports, fmt.Errorf("failed to list indexes on %s: %w", k, err)
		}
		var created []string
		for _, ix := range models.Schema(k).Indexes {
			if slices.Contains(present, ix.Name) {
				continue
			}
			stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", d.Quote(ix.Name), d.Quote(string(k)), quoteList(d, ix.Columns))
			if _, err := m.store.db.ExecContext(ctx, stmt); err != nil {
				return reports, fmt.Errorf("failed to create index %s: %w", ix.Name, err)
			}
			created = append(created, ix.Name)
		}
		r, err := m.report(ctx, k)
		if err != nil {
			return reports, err
		}
		r.Created = created
		reports = append(reports, r)
		if len(created) > 0 {
			logging.WithFields(ctx, "table", k).Info("indexes rebuilt",
				"created", len(created), "elapsed", time.Since(start).Round(time.Millisecond))
		}
	}
	return reports, nil
}

// Verify reports declared against present indexes without changing anything.
func (m *IndexManager) Verify(ctx context.Context, kinds []models.TableKind) ([]IndexReport, error) {
	reports := make([]IndexReport, 0, len(kinds))
	for _, k := range kinds {
		r, err := m.report(ctx, k)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (m *IndexManager) report(ctx context.Context, k models.TableKind) (IndexReport, error) {
	present, err := m.store.dialect.ListIndexes(ctx, m.store.db, string(k))
	if err != nil {
		return IndexReport{}, fmt.Errorf("failed to list indexes on %s: %w", k, err)
	}
	r := IndexReport{Table: k, Present: present}
	for _, ix := range models.Schema(k).Indexes {
		r.Declared = append(r.Declared, ix.Name)
		if !slices.Contains(present, ix.Name) {
			r.Missing = append(r.Missing, ix.Name)
		}
	}
	for _, p := range present {
		if !slices.Contains(r.Declared, p) {
			r.Extra = append(r.Extra, p)
		}
	}
	return r, nil
}
