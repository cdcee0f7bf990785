// services/maintenance.go
package services

import (
	"context"
	"fmt"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// PruneOutcome pairs the preview shown to the Confirmer with what was
// removed. Result is nil when nothing was deleted.
type PruneOutcome struct {
	Preview  *database.PrunePreview `json:"preview"`
	Result   *database.PruneResult  `json:"result,omitempty"`
	Declined bool                   `json:"declined,omitempty"`
}

// StatusReport summarizes the store and the last completed run.
type StatusReport struct {
	Metadata  *models.UpdateMetadata     `json:"metadata"`
	Counts    map[models.TableKind]int64 `json:"counts"`
	SizeBytes int64                      `json:"size_bytes"`
	Indexes   []database.IndexReport     `json:"indexes"`
	Runs      []models.SyncRun           `json:"runs"`
}

// StatusRuns is how many sync runs Status reports.
const StatusRuns = 5

// Maintenance runs the stand-alone store operations.
type Maintenance struct {
	store *database.Store
	cfg   *config.Config
	meta  *MetadataStore
}

func NewMaintenance(cfg *config.Config, store *database.Store) *Maintenance {
	return &Maintenance{store: store, cfg: cfg, meta: NewMetadataStore(cfg.Paths.MetadataPath)}
}

// PruneInactive previews the inactive licenses, asks confirm, and deletes
// them only on approval. A decline returns ConfirmationDeclined with the
// store untouched.
func (m *Maintenance) PruneInactive(ctx context.Context, confirm Confirmer) (*PruneOutcome, error) {
	return pruneInactive(ctx, database.NewActiveFilter(m.store, m.cfg.Load.ActiveStatus), confirm)
}

func pruneInactive(ctx context.Context, f *database.ActiveFilter, confirm Confirmer) (*PruneOutcome, error) {
	preview, err := f.Preview(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to preview prune: %w", err)
	}
	out := &PruneOutcome{Preview: preview}
	if preview.Empty() {
		return out, nil
	}

	ok := false
	if confirm != nil {
		if ok, err = confirm.Confirm(ctx, preview); err != nil {
			return out, fmt.Errorf("confirmation failed: %w", err)
		}
	}
	if !ok {
		out.Declined = true
		logging.FromContext(ctx).Info("prune declined", "inactive", preview.Inactive)
		return out, models.Errorf(models.ConfirmationDeclined, "pruning",
			"removal of %d inactive licenses was not confirmed", preview.Inactive)
	}

	if out.Result, err = f.Apply(ctx); err != nil {
		return out, fmt.Errorf("failed to prune: %w", err)
	}
	return out, nil
}

// RebuildIndexes creates any missing declared index and reports every table.
func (m *Maintenance) RebuildIndexes(ctx context.Context) ([]database.IndexReport, error) {
	return database.NewIndexManager(m.store).Rebuild(ctx, models.AllTableKinds())
}

func (m *Maintenance) Compact(ctx context.Context) (database.CompactResult, error) {
	return m.store.Compact(ctx)
}

func (m *Maintenance) Status(ctx context.Context) (*StatusReport, error) {
	var r StatusReport
	var err error
	if r.Metadata, err = m.meta.Load(ctx); err != nil {
		return nil, err
	}
	if r.Counts, err = m.store.TableCounts(ctx); err != nil {
		return nil, err
	}
	if r.SizeBytes, err = m.store.SizeBytes(ctx); err != nil {
		return nil, fmt.Errorf("failed to read store size: %w", err)
	}
	if r.Indexes, err = database.NewIndexManager(m.store).Verify(ctx, models.AllTableKinds()); err != nil {
		return nil, err
	}
	if r.Runs, err = m.store.SyncRuns(ctx, StatusRuns); err != nil {
		return nil, err
	}
	return &r, nil
}
