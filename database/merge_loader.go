// database/merge_loader.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// DefaultBatchSize bounds how many parsed records are in flight between the
// parser and the staging insert.
const DefaultBatchSize = 50000

// RecordSource yields one table's records. Scan may be called more than once.
type RecordSource interface {
	Kind() models.TableKind
	Scan(ctx context.Context, fn func(models.Record) error) (models.ParseStats, error)
}

// MergeLoader bulk-loads a table through a staging table.
//
// For each call: rows are streamed into an index-less temporary table inside
// one transaction, then the persistent table is merged from it (keyed tables)
// or replaced by it (unkeyed tables) and the transaction commits. Any failure
// or cancellation rolls the table back to its state before the call. The
// staging table is dropped on every path.
type MergeLoader struct {
	store     *Store
	BatchSize int
}

func NewMergeLoader(s *Store, batchSize int) *MergeLoader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MergeLoader{store: s, BatchSize: batchSize}
}

func stagingName(kind models.TableKind) string { return "stage_" + string(kind) }

// Merge loads src into its table. Failures are LoadError; a canceled ctx is
// returned as ctx.Err().
func (l *MergeLoader) Merge(ctx context.Context, src RecordSource) (res models.TableResult, err error) {
	kind := src.Kind()
	schema := models.Schema(kind)
	d := l.store.dialect
	log := logging.WithFields(ctx, "table", kind)
	start := time.Now()
	res.Table = kind

	defer func() {
		res.ElapsedMS = time.Since(start).Milliseconds()
		switch {
		case err == nil:
		case ctx.Err() != nil:
			err = ctx.Err()
		default:
			err = models.TableError(models.LoadError, "loading", kind, err)
		}
	}()

	conn, err := l.store.db.Conn(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = l.store.withBulkSession(ctx, conn, func() error {
		stage := stagingName(kind)
		// Always runs, even when ctx is already canceled.
		defer func() {
			if _, derr := conn.ExecContext(context.WithoutCancel(ctx), d.DropTempTable(stage)); derr != nil {
				log.Error("failed to drop staging table", "stage", stage, "error", derr)
			}
		}()
		// Left over by a crashed run on the same connection.
		if _, err := conn.ExecContext(ctx, d.DropTempTable(stage)); err != nil {
			return fmt.Errorf("failed to clear staging table: %w", err)
		}

		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		committed := false
		defer func() {
			if !committed {
				if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
					log.Error("rollback failed", "error", rerr)
				}
			}
		}()

		if _, err := tx.ExecContext(ctx, d.CreateTempTable(stage, strings.Join(columnDefs(d, schema), ", "))); err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		st, err := newStager(ctx, tx, d, schema, stage)
		if err != nil {
			return err
		}
		defer st.close()

		stats, err := l.stream(ctx, src, st)
		res.Parsed, res.Skipped, res.SkippedLines = stats.Parsed, stats.Skipped, stats.SkippedLines
		if err != nil {
			return err
		}
		res.Staged = st.staged

		replaced, err := mergeFromStage(ctx, tx, d, schema, stage)
		if err != nil {
			return err
		}
		res.Replaced = replaced

		if res.Total, err = countRows(ctx, tx, d, string(kind)); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		committed = true
		return nil
	})
	if err != nil {
		log.Warn("merge rolled back", "error", err)
		return res, err
	}

	log.Info("merge committed",
		"parsed", res.Parsed, "skipped", res.Skipped, "staged", res.Staged,
		"replaced", res.Replaced, "rows", res.Total, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

// stream runs the parser and the staging insert concurrently, handing
// records over in batches.
func (l *MergeLoader) stream(ctx context.Context, src RecordSource, st *stager) (models.ParseStats, error) {
	var stats models.ParseStats
	batches := make(chan []models.Record, 1)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		batch := make([]models.Record, 0, l.BatchSize)
		send := func() error {
			select {
			case batches <- batch:
				batch = make([]models.Record, 0, l.BatchSize)
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		var err error
		stats, err = src.Scan(gctx, func(r models.Record) error {
			batch = append(batch, r)
			if len(batch) >= l.BatchSize {
				return send()
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", src.Kind(), err)
		}
		if len(batch) > 0 {
			return send()
		}
		return nil
	})

	g.Go(func() error {
		n := 0
		for batch := range batches {
			for _, rec := range batch {
				if err := st.add(gctx, rec); err != nil {
					return err
				}
			}
			n++
			logging.FromContext(ctx).Debug("batch staged", "table", src.Kind(), "batch", n, "rows", len(batch))
		}
		return nil
	})

	err := g.Wait()
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return stats, err
}

// mergeFromStage moves the staged rows into the persistent table inside tx
// and returns how many persisted rows were deleted.
func mergeFromStage(ctx context.Context, tx *sql.Tx, d Dialect, s *models.TableSchema, stage string) (int64, error) {
	table := d.Quote(string(s.Kind))
	cols := quoteList(d, s.ColumnNames())

	var deletes, cascades []string
	if s.HasKey() {
		key := d.Quote(s.KeyColumn)
		deletes = append(deletes, fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT %s FROM %s)", table, key, key, d.Quote(stage)))
		if s.UniqueColumn != "" {
			// A call sign that moved to another license frees its old row,
			// along with that license's rows in the other keyed tables. Once
			// the key delete has run, every row still matching the stage on
			// the unique column belongs to such a license.
			uc := d.Quote(s.UniqueColumn)
			freed := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (SELECT %s FROM %s)", key, table, uc, uc, d.Quote(stage))
			for _, dep := range models.AllTableKinds() {
				if dep == s.Kind || models.Schema(dep).KeyColumn != s.KeyColumn {
					continue
				}
				cascades = append(cascades, fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", d.Quote(string(dep)), key, freed))
			}
			deletes = append(deletes, fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT %s FROM %s)", table, uc, uc, d.Quote(stage)))
		}
	} else {
		deletes = append(deletes, "DELETE FROM "+table)
	}

	var replaced int64
	for i, stmt := range deletes {
		// The freed licenses are found through rows the last delete removes.
		if i == len(deletes)-1 {
			for _, c := range cascades {
				if _, err := tx.ExecContext(ctx, c); err != nil {
					return 0, fmt.Errorf("failed to delete rows of freed licenses: %w", err)
				}
			}
		}
		r, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return 0, fmt.Errorf("failed to delete replaced rows: %w", err)
		}
		n, _ := r.RowsAffected()
		replaced += n
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", table, cols, cols, d.Quote(stage))
	if _, err := tx.ExecContext(ctx, insert); err != nil {
		return 0, fmt.Errorf("failed to insert staged rows: %w", err)
	}
	return replaced, nil
}

// stager inserts records into the staging table, resolving duplicates inside
// the file for unique-key tables: the last row for a key wins, and two keys
// claiming the same unique value resolve to the larger key.
type stager struct {
	schema    *models.TableSchema
	insert    *sql.Stmt
	deleteKey *sql.Stmt
	staged    int64

	uniqueIdx int              // column index of UniqueColumn, -1 if none
	keys      map[int64]string // staged key -> its unique value
	owners    map[string]int64 // unique value -> staged key
}

func newStager(ctx context.Context, tx *sql.Tx, d Dialect, s *models.TableSchema, stage string) (*stager, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.Columns)), ", ")
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(stage), quoteList(d, s.ColumnNames()), placeholders))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare staging insert: %w", err)
	}
	st := &stager{schema: s, insert: insert, uniqueIdx: -1}

	if s.Merge == models.MergeUnique {
		st.deleteKey, err = tx.PrepareContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", d.Quote(stage), d.Quote(s.KeyColumn)))
		if err != nil {
			insert.Close()
			return nil, fmt.Errorf("failed to prepare staging delete: %w", err)
		}
		st.keys = map[int64]string{}
		if s.UniqueColumn != "" {
			st.uniqueIdx = slices.Index(s.ColumnNames(), s.UniqueColumn)
			st.owners = map[string]int64{}
		}
	}
	return st, nil
}

func (st *stager) close() {
	st.insert.Close()
	if st.deleteKey != nil {
		st.deleteKey.Close()
	}
}

func (st *stager) unstage(ctx context.Context, key int64) error {
	r, err := st.deleteKey.ExecContext(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to replace staged key %d: %w", key, err)
	}
	n, _ := r.RowsAffected()
	st.staged -= n
	if st.owners != nil {
		if u, ok := st.keys[key]; ok && st.owners[u] == key {
			delete(st.owners, u)
		}
	}
	delete(st.keys, key)
	return nil
}

func (st *stager) add(ctx context.Context, rec models.Record) error {
	vals := st.schema.Values(rec)

	if st.keys != nil {
		key := rec.Key()
		if _, seen := st.keys[key]; seen {
			if err := st.unstage(ctx, key); err != nil {
				return err
			}
		}
		if st.owners != nil {
			u, _ := vals[st.uniqueIdx].(string)
			u = strings.ToUpper(u)
			if owner, ok := st.owners[u]; ok && owner != key {
				if owner > key {
					return nil
				}
				if err := st.unstage(ctx, owner); err != nil {
					return err
				}
			}
			st.owners[u] = key
			st.keys[key] = u
		} else {
			st.keys[key] = ""
		}
	}

	if _, err := st.insert.ExecContext(ctx, vals...); err != nil {
		return fmt.Errorf("failed to stage %s row (key %d): %w", st.schema.Kind, rec.Key(), err)
	}
	st.staged++
	return nil
}
