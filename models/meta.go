// models/meta.go
package models

import "time"

// RemoteMarker identifies one published snapshot of the remote archive.
type RemoteMarker struct {
	LastModified time.Time `json:"last_modified"`
	// Size is the advertised archive size in bytes, -1 when unknown.
	Size int64 `json:"size"`
	// Raw is the marker text as received (Last-Modified header or index page date).
	Raw    string `json:"raw,omitempty"`
	Source string `json:"source,omitempty"` // "header" or "index"
}

// IsZero reports whether the marker carries no usable timestamp.
func (m RemoteMarker) IsZero() bool { return m.LastModified.IsZero() }

// UpdateMetadata is persisted after a fully successful load and read back by
// the version check of the next run. Its absence means no prior load.
type UpdateMetadata struct {
	Marker      RemoteMarker        `json:"marker"`
	SourceURL   string              `json:"source_url"`
	LastLoad    time.Time           `json:"last_load"`
	RunID       string              `json:"run_id,omitempty"`
	TableCounts map[TableKind]int64 `json:"table_counts"`
}

// SyncRun is one row of the sync_runs log kept in the store.
type SyncRun struct {
	ID           int64     `db:"id" json:"id"`
	RunID        string    `db:"run_id" json:"run_id"`
	SourceURL    string    `db:"source_url" json:"source_url"`
	RemoteMarker string    `db:"remote_marker" json:"remote_marker"`
	TotalRows    int64     `db:"total_rows" json:"total_rows"`
	SkippedLines int64     `db:"skipped_lines" json:"skipped_lines"`
	ElapsedMS    int64     `db:"elapsed_ms" json:"elapsed_ms"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
}
