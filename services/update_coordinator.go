// services/update_coordinator.go
package services

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/gewnthar/ulsync/config"
	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
	"github.com/gewnthar/ulsync/scraper"
)

// State is a step of an update run.
type State string

const (
	StateIdle            State = "Idle"
	StateCheckingVersion State = "CheckingVersion"
	StateUpToDate        State = "UpToDate"
	StateFetching        State = "Fetching"
	StateExtracting      State = "Extracting"
	StateLoading         State = "Loading"
	StateIndexing        State = "Indexing"
	StatePruningInactive State = "PruningInactive"
	StateCompacting      State = "Compacting"
	StateDone            State = "Done"
	StateFailed          State = "Failed"
)

// Terminal reports whether a run ends in s.
func (s State) Terminal() bool {
	return s == StateUpToDate || s == StateDone || s == StateFailed
}

type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Options tune one Run.
type Options struct {
	// Force loads even when the remote archive is not newer.
	Force bool
	// SkipFetch loads the archive (or extracted files) already on disk.
	SkipFetch bool
	// Prune removes inactive licenses after indexing, if Confirmer approves.
	Prune     bool
	Confirmer Confirmer
	KeepFiles bool
}

// RunResult is the structured outcome of Run.
type RunResult struct {
	RunID       string                  `json:"run_id"`
	State       State                   `json:"state"`
	Transitions []Transition            `json:"transitions"`
	Check       *scraper.CheckResult    `json:"check,omitempty"`
	Fetch       *scraper.FetchResult    `json:"fetch,omitempty"`
	Tables      []models.TableResult    `json:"tables,omitempty"`
	Warnings    []string                `json:"warnings,omitempty"`
	Indexes     []database.IndexReport  `json:"indexes,omitempty"`
	Prune       *PruneOutcome           `json:"prune,omitempty"`
	Compact     *database.CompactResult `json:"compact,omitempty"`

	// CompactError is set when compaction failed; the run still completes.
	CompactError string        `json:"compact_error,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`

	// FailedIn is the state the run was in when it failed.
	FailedIn State  `json:"failed_in,omitempty"`
	Failure  string `json:"failure,omitempty"`
}

// TotalRows sums the loaded tables' row counts.
func (r *RunResult) TotalRows() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Total
	}
	return n
}

func (r *RunResult) SkippedLines() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Skipped
	}
	return n
}

// UpdateCoordinator drives one update run through its states:
//
//	Idle -> CheckingVersion -> UpToDate
//	                        -> Fetching -> Extracting -> Loading -> Indexing
//	                           [-> PruningInactive] -> Compacting -> Done
//
// Any step may end in Failed. Metadata is written only on reaching Done.
type UpdateCoordinator struct {
	cfg       *config.Config
	store     *database.Store
	checker   *scraper.VersionChecker
	fetcher   *scraper.Fetcher
	extractor *scraper.Extractor
	loader    *database.MergeLoader
	indexes   *database.IndexManager
	filter    *database.ActiveFilter
	meta      *MetadataStore
	now       func() time.Time
}

func NewUpdateCoordinator(cfg *config.Config, store *database.Store) *UpdateCoordinator {
	return &UpdateCoordinator{
		cfg:       cfg,
		store:     store,
		checker:   scraper.NewVersionChecker(cfg.Source),
		fetcher:   scraper.NewFetcher(cfg.Source),
		extractor: &scraper.Extractor{},
		loader:    database.NewMergeLoader(store, cfg.Load.BatchSize),
		indexes:   database.NewIndexManager(store),
		filter:    database.NewActiveFilter(store, cfg.Load.ActiveStatus),
		meta:      NewMetadataStore(cfg.Paths.MetadataPath),
		now:       time.Now,
	}
}

// Check compares the remote archive with the last completed run without
// changing anything.
func (c *UpdateCoordinator) Check(ctx context.Context) (scraper.CheckResult, error) {
	stored, err := c.meta.Load(ctx)
	if err != nil {
		return scraper.CheckResult{}, err
	}
	return c.checker.Check(ctx, stored)
}

// run tracks the state of one Run call.
type run struct {
	c      *UpdateCoordinator
	ctx    context.Context
	res    *RunResult
	state  State
	start  time.Time
	marker models.RemoteMarker
}

func (r *run) to(next State) {
	r.res.Transitions = append(r.res.Transitions, Transition{From: r.state, To: next, At: r.c.now()})
	logging.FromContext(r.ctx).Info("state", "from", r.state, "to", next)
	r.state = next
	r.res.State = next
}

func (r *run) fail(err error) (*RunResult, error) {
	r.res.FailedIn = r.state
	r.res.Failure = err.Error()
	r.to(StateFailed)
	r.res.Elapsed = time.Since(r.start)
	logging.FromContext(r.ctx).Error("update failed", "stage", r.res.FailedIn, "error", err)
	return r.res, err
}

func (r *run) finish() *RunResult {
	r.res.Elapsed = time.Since(r.start)
	return r.res
}

// Run executes one update. The returned result is always non-nil; err is
// the reason for a Failed run.
func (c *UpdateCoordinator) Run(ctx context.Context, opts Options) (*RunResult, error) {
	runID := uuid.Must(uuid.NewV7()).String()
	ctx = logging.WithRunID(ctx, runID)
	r := &run{c: c, ctx: ctx, res: &RunResult{RunID: runID, State: StateIdle}, state: StateIdle, start: time.Now()}
	kinds := c.cfg.TableKinds()
	log := logging.FromContext(ctx)
	log.Info("update started", "force", opts.Force, "skip_fetch", opts.SkipFetch, "tables", len(kinds))

	r.to(StateCheckingVersion)
	stored, err := c.meta.Load(ctx)
	if err != nil {
		return r.fail(err)
	}
	if stored != nil {
		r.marker = stored.Marker
	}
	if !opts.SkipFetch {
		check, err := c.checker.Check(ctx, stored)
		switch {
		case err != nil && opts.Force && models.Recoverable(err):
			log.Warn("version check failed, continuing because the run is forced", "error", err)
			r.marker = models.RemoteMarker{}
		case err != nil:
			return r.fail(err)
		default:
			r.res.Check = &check
			r.marker = check.Remote
			if check.Status == scraper.UpToDate && !opts.Force {
				r.to(StateUpToDate)
				log.Info("store is up to date", "remote", check.Remote.Raw)
				return r.finish(), nil
			}
		}
	}

	archive := c.cfg.Paths.ArchivePath
	if !opts.SkipFetch {
		r.to(StateFetching)
		fetched, err := c.fetcher.Fetch(ctx, c.cfg.Source.ArchiveURL, archive)
		if err != nil {
			return r.fail(err)
		}
		r.res.Fetch = &fetched
		if r.marker.IsZero() && !fetched.LastModified.IsZero() {
			r.marker = models.RemoteMarker{
				LastModified: fetched.LastModified,
				Size:         fetched.Bytes,
				Raw:          fetched.LastModified.UTC().Format(time.RFC1123),
				Source:       "download",
			}
		}
	}

	r.to(StateExtracting)
	ext, err := c.extract(ctx, archive, opts.SkipFetch, kinds)
	if err != nil {
		return r.fail(err)
	}

	r.to(StateLoading)
	if err := c.indexes.Drop(ctx, kinds); err != nil {
		c.restoreIndexes(ctx, kinds)
		return r.fail(models.NewSyncError(models.LoadError, "loading", err))
	}
	for _, k := range kinds {
		tr, err := c.loader.Merge(ctx, scraper.NewRecordParser(ext.Files[k], k))
		tr.Expected = ext.Expected[k]
		if err != nil {
			// The failed table rolled back; its indexes still have to come back.
			c.restoreIndexes(ctx, kinds)
			return r.fail(err)
		}
		r.res.Tables = append(r.res.Tables, tr)
		if warn := tr.ParseStats().Warning(); warn != nil {
			log.Warn("malformed lines skipped", "table", k, "error", warn)
			r.res.Warnings = append(r.res.Warnings, warn.Error())
		}
		if tr.Expected > 0 && tr.Expected != tr.Parsed+tr.Skipped {
			log.Warn("line count differs from archive manifest", "table", k, "expected", tr.Expected, "lines", tr.Parsed+tr.Skipped)
		}
	}

	r.to(StateIndexing)
	if r.res.Indexes, err = c.indexes.Rebuild(ctx, kinds); err != nil {
		c.restoreIndexes(ctx, kinds)
		return r.fail(err)
	}

	if opts.Prune {
		r.to(StatePruningInactive)
		outcome, err := pruneInactive(ctx, c.filter, opts.Confirmer)
		r.res.Prune = outcome
		switch {
		case errors.Is(err, models.ErrConfirmationDeclined):
			r.res.Warnings = append(r.res.Warnings, "inactive licenses kept: removal not confirmed")
		case err != nil:
			return r.fail(err)
		}
	}

	r.to(StateCompacting)
	if cr, err := c.store.Compact(ctx); err != nil {
		r.res.CompactError = err.Error()
		log.Warn("compaction failed; data is loaded", "error", err)
	} else {
		r.res.Compact = &cr
	}

	if err := c.complete(ctx, r); err != nil {
		return r.fail(err)
	}
	r.to(StateDone)

	// Files supplied for a skip-fetch run belong to the user.
	if !opts.KeepFiles && !c.cfg.Load.KeepFiles && !opts.SkipFetch {
		c.cleanup(ctx, archive)
	}
	log.Info("update done", "rows", r.res.TotalRows(), "skipped", r.res.SkippedLines(),
		"elapsed", time.Since(r.start).Round(time.Millisecond))
	return r.finish(), nil
}

// extract unpacks the archive, or with skipFetch and no archive on disk
// reuses a previously extracted directory.
func (c *UpdateCoordinator) extract(ctx context.Context, archive string, skipFetch bool, kinds []models.TableKind) (*scraper.Extraction, error) {
	if skipFetch {
		if _, err := os.Stat(archive); errors.Is(err, os.ErrNotExist) {
			logging.FromContext(ctx).Info("no archive on disk, using extracted files", "dir", c.cfg.Paths.ExtractDir)
			return scraper.LocateExtracted(c.cfg.Paths.ExtractDir, kinds)
		}
	}
	return c.extractor.Extract(ctx, archive, c.cfg.Paths.ExtractDir, kinds)
}

// complete persists the run: metadata first, since the next check depends
// on it, then the sync log entry.
func (c *UpdateCoordinator) complete(ctx context.Context, r *run) error {
	counts, err := c.store.TableCounts(ctx)
	if err != nil {
		return err
	}
	md := &models.UpdateMetadata{
		Marker:      r.marker,
		SourceURL:   c.cfg.Source.ArchiveURL,
		LastLoad:    c.now().UTC(),
		RunID:       r.res.RunID,
		TableCounts: counts,
	}
	if err := c.meta.Save(md); err != nil {
		return err
	}

	err = c.store.RecordSyncRun(ctx, models.SyncRun{
		RunID:        r.res.RunID,
		SourceURL:    md.SourceURL,
		RemoteMarker: r.marker.Raw,
		TotalRows:    r.res.TotalRows(),
		SkippedLines: r.res.SkippedLines(),
		ElapsedMS:    time.Since(r.start).Milliseconds(),
		FinishedAt:   md.LastLoad,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("sync run not logged", "error", err)
	}
	return nil
}

// restoreIndexes recreates the indexes dropped for loading after the run
// failed. It ignores cancellation of ctx.
func (c *UpdateCoordinator) restoreIndexes(ctx context.Context, kinds []models.TableKind) {
	if _, err := c.indexes.Rebuild(context.WithoutCancel(ctx), kinds); err != nil {
		logging.FromContext(ctx).Error("failed to restore indexes", "error", err)
	}
}

// cleanup removes the staging files of a completed run.
func (c *UpdateCoordinator) cleanup(ctx context.Context, archive string) {
	log := logging.FromContext(ctx)
	if err := os.RemoveAll(c.cfg.Paths.ExtractDir); err != nil {
		log.Warn("failed to remove extracted files", "dir", c.cfg.Paths.ExtractDir, "error", err)
	}
	if err := os.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove archive", "path", archive, "error", err)
	}
}
