// database/sync_log.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// RecordSyncRun appends one completed run to the sync_runs log.
func (s *Store) RecordSyncRun(ctx context.Context, run models.SyncRun) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (
			run_id, source_url, remote_marker,
			total_rows, skipped_lines, elapsed_ms, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.dialect.Quote(syncRunsTable))

	_, err := s.db.ExecContext(ctx, query,
		run.RunID, run.SourceURL, run.RemoteMarker,
		run.TotalRows, run.SkippedLines, run.ElapsedMS, run.FinishedAt.UTC(),
	)
	if err != nil {
		logging.FromContext(ctx).Error("failed to log sync run", "error", err)
		return fmt.Errorf("failed to log sync run %s: %w", run.RunID, err)
	}
	return nil
}

// SyncRuns returns the most recent runs first, at most limit of them
// (0 = all).
func (s *Store) SyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	query := fmt.Sprintf(`
		SELECT id, run_id, COALESCE(source_url, ''), COALESCE(remote_marker, ''),
		       total_rows, skipped_lines, elapsed_ms, finished_at
		FROM %s
		ORDER BY id DESC`, s.dialect.Quote(syncRunsTable))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", syncRunsTable, err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.SourceURL, &r.RemoteMarker,
			&r.TotalRows, &r.SkippedLines, &r.ElapsedMS, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync runs: %w", err)
	}
	return runs, nil
}
