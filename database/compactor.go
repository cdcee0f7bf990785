// database/compactor.go
package database

import (
	"context"
	"time"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// CompactResult reports the store size around a compaction.
type CompactResult struct {
	SizeBefore int64 `json:"size_before"`
	SizeAfter  int64 `json:"size_after"`
	ElapsedMS  int64 `json:"elapsed_ms"`
}

// Reclaimed is the number of bytes freed, never negative.
func (r CompactResult) Reclaimed() int64 {
	return max(r.SizeBefore-r.SizeAfter, 0)
}

// Compact refreshes planner statistics and reclaims free space. It needs the
// store to itself. Failures are CompactError; the merged data is unaffected.
func (s *Store) Compact(ctx context.Context) (CompactResult, error) {
	start := time.Now()
	log := logging.FromContext(ctx)
	var res CompactResult

	before, err := s.SizeBytes(ctx)
	if err != nil {
		return res, models.NewSyncError(models.CompactError, "compacting", err)
	}
	res.SizeBefore = before

	tables := make([]string, 0, len(models.AllTableKinds()))
	for _, k := range models.AllTableKinds() {
		tables = append(tables, string(k))
	}
	if err := s.dialect.Compact(ctx, s.db, tables); err != nil {
		return res, models.NewSyncError(models.CompactError, "compacting", err)
	}

	after, err := s.SizeBytes(ctx)
	if err != nil {
		return res, models.NewSyncError(models.CompactError, "compacting", err)
	}
	res.SizeAfter = after
	res.ElapsedMS = time.Since(start).Milliseconds()

	log.Info("store compacted", "size_before", res.SizeBefore, "size_after", res.SizeAfter,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}
