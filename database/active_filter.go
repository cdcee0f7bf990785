// database/active_filter.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

const DefaultPruneSample = 10

// PrunePreview describes what Apply would remove.
type PrunePreview struct {
	ActiveStatus string `json:"active_status"`
	// Inactive is the number of license rows whose status is not ActiveStatus.
	Inactive int64    `json:"inactive"`
	Total    int64    `json:"total"`
	Sample   []string `json:"sample"`
	// ByStatus counts the inactive licenses per status code.
	ByStatus map[string]int64 `json:"by_status"`
	// Affected counts the rows per table, license table included, that
	// belong to inactive licenses.
	Affected map[models.TableKind]int64 `json:"affected"`
}

// Empty reports whether there is nothing to prune.
func (p PrunePreview) Empty() bool { return p.Inactive == 0 }

type PruneResult struct {
	ActiveStatus string                     `json:"active_status"`
	Removed      map[models.TableKind]int64 `json:"removed"`
	// Remaining is the license row count after pruning.
	Remaining int64 `json:"remaining"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

// TotalRemoved sums Removed over every table.
func (r PruneResult) TotalRemoved() int64 {
	var n int64
	for _, v := range r.Removed {
		n += v
	}
	return n
}

// ActiveFilter removes licenses that are not in force, together with their
// dependent rows. Preview never mutates; only Apply deletes.
type ActiveFilter struct {
	store        *Store
	ActiveStatus string
	SampleSize   int
}

func NewActiveFilter(s *Store, activeStatus string) *ActiveFilter {
	return &ActiveFilter{store: s, ActiveStatus: activeStatus, SampleSize: DefaultPruneSample}
}

// inactiveKeys selects the keys of licenses whose status is missing or not active.
func (f *ActiveFilter) inactiveKeys() string {
	d := f.store.dialect
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NULL OR %s <> ?",
		d.Quote(models.ColumnKey), d.Quote(string(models.KindHD)),
		d.Quote(models.ColumnLicenseStatus), d.Quote(models.ColumnLicenseStatus))
}

func (f *ActiveFilter) Preview(ctx context.Context) (*PrunePreview, error) {
	d := f.store.dialect
	db := f.store.db
	hd := d.Quote(string(models.KindHD))
	status := d.Quote(models.ColumnLicenseStatus)
	p := &PrunePreview{
		ActiveStatus: f.ActiveStatus,
		ByStatus:     map[string]int64{},
		Affected:     map[models.TableKind]int64{},
	}

	var err error
	if p.Total, err = countRows(ctx, db, d, string(models.KindHD)); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		"SELECT COALESCE(%s, ''), COUNT(*) FROM %s WHERE %s IS NULL OR %s <> ? GROUP BY COALESCE(%s, '')",
		status, hd, status, status, status), f.ActiveStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count inactive licenses: %w", err)
	}
	for rows.Next() {
		var code string
		var n int64
		if err := rows.Scan(&code, &n); err != nil {
			rows.Close()
			return nil, err
		}
		p.ByStatus[code] += n
		p.Inactive += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if f.SampleSize > 0 && p.Inactive > 0 {
		cs := d.Quote(models.ColumnCallSign)
		p.Sample, err = queryStrings(ctx, db, fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s IS NULL OR %s <> ? ORDER BY %s LIMIT %d",
			cs, hd, status, status, cs, f.SampleSize), f.ActiveStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to sample inactive licenses: %w", err)
		}
	}

	for _, k := range models.AllTableKinds() {
		if k == models.KindHD {
			p.Affected[k] = p.Inactive
			continue
		}
		var n int64
		q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IN (%s)",
			d.Quote(string(k)), d.Quote(models.ColumnKey), f.inactiveKeys())
		if err := db.QueryRowContext(ctx, q, f.ActiveStatus).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count affected %s rows: %w", k, err)
		}
		p.Affected[k] = n
	}

	logging.FromContext(ctx).Info("prune preview", "active_status", f.ActiveStatus,
		"inactive", p.Inactive, "total", p.Total)
	return p, nil
}

// Apply deletes every inactive license and its dependent rows in one
// transaction. Dependent tables go first since they are selected through the
// license table.
func (f *ActiveFilter) Apply(ctx context.Context) (*PruneResult, error) {
	start := time.Now()
	d := f.store.dialect
	res := &PruneResult{ActiveStatus: f.ActiveStatus, Removed: map[models.TableKind]int64{}}

	tx, err := f.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	kinds := models.AllTableKinds()
	for i := len(kinds) - 1; i >= 0; i-- {
		k := kinds[i]
		var stmt string
		if k == models.KindHD {
			status := d.Quote(models.ColumnLicenseStatus)
			stmt = fmt.Sprintf("DELETE FROM %s WHERE %s IS NULL OR %s <> ?", d.Quote(string(k)), status, status)
		} else {
			stmt = fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", d.Quote(string(k)), d.Quote(models.ColumnKey), f.inactiveKeys())
		}
		r, err := tx.ExecContext(ctx, stmt, f.ActiveStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to prune %s: %w", k, err)
		}
		res.Removed[k], _ = r.RowsAffected()
	}

	if res.Remaining, err = countRows(ctx, tx, d, string(models.KindHD)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit prune: %w", err)
	}
	res.ElapsedMS = time.Since(start).Milliseconds()

	logging.FromContext(ctx).Info("inactive licenses pruned", "removed", res.TotalRemoved(),
		"remaining", res.Remaining, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}
