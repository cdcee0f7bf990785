// models/stats.go
package models

import "fmt"

// MaxSkippedSample bounds how many malformed line numbers a parse keeps.
const MaxSkippedSample = 5

// ParseStats summarizes one pass over a flat file.
type ParseStats struct {
	Table   TableKind `json:"table"`
	Lines   int64     `json:"lines"`
	Parsed  int64     `json:"parsed"`
	Skipped int64     `json:"skipped"`
	// SkippedLines holds the first few malformed line numbers (1-based).
	SkippedLines []int64 `json:"skipped_lines,omitempty"`
}

// NoteSkipped counts a malformed line.
func (s *ParseStats) NoteSkipped(line int64) {
	s.Skipped++
	if len(s.SkippedLines) < MaxSkippedSample {
		s.SkippedLines = append(s.SkippedLines, line)
	}
}

// Warning returns a ParseWarning error when lines were skipped, nil otherwise.
func (s ParseStats) Warning() error {
	if s.Skipped == 0 {
		return nil
	}
	return TableError(ParseWarning, "parsing", s.Table,
		fmt.Errorf("skipped %d malformed lines (first at %v)", s.Skipped, s.SkippedLines))
}

// TableResult reports the outcome of merging one table.
type TableResult struct {
	Table     TableKind `json:"table"`
	Parsed    int64     `json:"parsed"`
	Skipped   int64     `json:"skipped"`
	Staged    int64     `json:"staged"`   // rows left after in-file de-duplication
	Replaced  int64     `json:"replaced"` // persisted rows deleted by the merge
	Total     int64     `json:"total"`    // rows in the table after commit
	Expected  int64     `json:"expected"` // from the archive counts file, 0 when unknown
	ElapsedMS int64     `json:"elapsed_ms"`

	// SkippedLines holds the first few malformed line numbers (1-based).
	SkippedLines []int64 `json:"skipped_lines,omitempty"`
}

// ParseStats returns the parse half of the result.
func (r TableResult) ParseStats() ParseStats {
	return ParseStats{
		Table:        r.Table,
		Lines:        r.Parsed + r.Skipped,
		Parsed:       r.Parsed,
		Skipped:      r.Skipped,
		SkippedLines: r.SkippedLines,
	}
}
