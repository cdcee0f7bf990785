// handlers/render.go
package handlers

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/gewnthar/ulsync/database"
	"github.com/gewnthar/ulsync/models"
	"github.com/gewnthar/ulsync/scraper"
	"github.com/gewnthar/ulsync/services"
)

// Text renderings of command results. JSON output bypasses these.

func markerText(m models.RemoteMarker) string {
	if m.IsZero() {
		return "unknown"
	}
	s := m.LastModified.UTC().Format(time.RFC3339)
	if m.Source != "" {
		s += " via " + m.Source
	}
	if m.Size > 0 {
		s += fmt.Sprintf(", %d bytes", m.Size)
	}
	return s
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
}

func statusLabel(code string) string {
	if code == "" {
		return "(no status)"
	}
	return models.Describe(models.LicenseStatusCodes, code)
}

// kindCounts renders non-zero per-table counts in load order.
func kindCounts(counts map[models.TableKind]int64) string {
	var parts []string
	for _, k := range models.AllTableKinds() {
		if n := counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", k, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func renderCheck(w io.Writer, r scraper.CheckResult) {
	fmt.Fprintf(w, "Status: %s\n", r.Status)
	fmt.Fprintf(w, "Remote: %s\n", markerText(r.Remote))
	stored := "none"
	if r.Stored != nil {
		stored = markerText(*r.Stored)
	}
	fmt.Fprintf(w, "Stored: %s\n", stored)
}

func renderRun(w io.Writer, r *services.RunResult) {
	fmt.Fprintf(w, "Run %s: %s in %s\n", r.RunID, r.State, r.Elapsed.Round(time.Millisecond))
	if len(r.Transitions) > 0 {
		path := []string{string(r.Transitions[0].From)}
		for _, t := range r.Transitions {
			path = append(path, string(t.To))
		}
		fmt.Fprintf(w, "States: %s\n", strings.Join(path, " -> "))
	}
	if r.Check != nil {
		fmt.Fprintf(w, "Remote: %s (%s)\n", markerText(r.Check.Remote), r.Check.Status)
	}
	if r.Fetch != nil {
		fmt.Fprintf(w, "Downloaded: %d bytes, %d attempt(s)\n", r.Fetch.Bytes, r.Fetch.Attempts)
	}

	if len(r.Tables) > 0 {
		fmt.Fprintf(w, "%-5s %9s %8s %9s %9s %9s %9s\n", "TABLE", "PARSED", "SKIPPED", "STAGED", "REPLACED", "TOTAL", "EXPECTED")
		for _, t := range r.Tables {
			expected := "-"
			if t.Expected > 0 {
				expected = fmt.Sprint(t.Expected)
			}
			fmt.Fprintf(w, "%-5s %9d %8d %9d %9d %9d %9s\n", t.Table, t.Parsed, t.Skipped, t.Staged, t.Replaced, t.Total, expected)
		}
		fmt.Fprintf(w, "Rows: %d stored, %d lines skipped\n", r.TotalRows(), r.SkippedLines())
	}

	if r.Prune != nil {
		renderPrune(w, r.Prune)
	}
	if r.Compact != nil {
		renderCompact(w, *r.Compact)
	}
	if r.CompactError != "" {
		fmt.Fprintf(w, "Compaction failed: %s\n", r.CompactError)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
	if r.Failure != "" {
		fmt.Fprintf(w, "Failed in %s: %s\n", r.FailedIn, r.Failure)
	}
}

func renderPreview(w io.Writer, p *database.PrunePreview) {
	if p.Empty() {
		fmt.Fprintf(w, "All %d licenses have status %s; nothing to prune.\n", p.Total, p.ActiveStatus)
		return
	}
	fmt.Fprintf(w, "%d of %d licenses do not have status %s:\n", p.Inactive, p.Total, p.ActiveStatus)
	codes := make([]string, 0, len(p.ByStatus))
	for code := range p.ByStatus {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %-32s %d\n", statusLabel(code), p.ByStatus[code])
	}
	fmt.Fprintf(w, "Rows to delete: %s\n", kindCounts(p.Affected))
	if len(p.Sample) > 0 {
		fmt.Fprintf(w, "Sample: %s\n", strings.Join(p.Sample, ", "))
	}
}

func renderPrune(w io.Writer, o *services.PruneOutcome) {
	if o.Preview != nil {
		renderPreview(w, o.Preview)
	}
	switch {
	case o.Declined:
		fmt.Fprintln(w, "Not confirmed; nothing was removed.")
	case o.Result != nil:
		fmt.Fprintf(w, "Removed %d rows (%s); %d licenses remain.\n",
			o.Result.TotalRemoved(), kindCounts(o.Result.Removed), o.Result.Remaining)
	}
}

func renderIndexes(w io.Writer, reports []database.IndexReport) {
	for _, r := range reports {
		status := "ok"
		if !r.OK() {
			status = "missing"
		}
		fmt.Fprintf(w, "%-3s %-8s %d declared, %d present\n", r.Table, status, len(r.Declared), len(r.Present))
		if len(r.Created) > 0 {
			fmt.Fprintf(w, "    created: %s\n", strings.Join(r.Created, ", "))
		}
		if len(r.Missing) > 0 {
			fmt.Fprintf(w, "    missing: %s\n", strings.Join(r.Missing, ", "))
		}
		if len(r.Extra) > 0 {
			fmt.Fprintf(w, "    extra: %s\n", strings.Join(r.Extra, ", "))
		}
	}
}

func renderCompact(w io.Writer, r database.CompactResult) {
	fmt.Fprintf(w, "Compacted: %d -> %d bytes, %d reclaimed\n", r.SizeBefore, r.SizeAfter, r.Reclaimed())
}

func address(v models.LicenseView) string {
	var parts []string
	for _, p := range []string{v.StreetAddress, v.City, strings.TrimSpace(v.State + " " + v.ZipCode)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func renderLicense(w io.Writer, d *models.LicenseDetail) {
	v := d.License
	fmt.Fprintf(w, "%s  %s\n", v.CallSign, v.DisplayName())
	field(w, "Status", statusLabel(v.LicenseStatus))
	field(w, "Class", models.Describe(models.OperatorClassCodes, v.OperatorClass))
	field(w, "Service", v.RadioServiceCode)
	field(w, "Granted", v.GrantDate.String())
	field(w, "Expires", v.ExpiredDate.String())
	field(w, "Canceled", v.CancellationDate.String())
	field(w, "Entity", models.Describe(models.EntityTypeCodes, v.EntityType))
	field(w, "Applicant", models.Describe(models.ApplicantTypeCodes, v.ApplicantTypeCode))
	field(w, "Address", address(v))
	field(w, "FRN", v.FRN)
	field(w, "Previous", v.PreviousCallSign)
	field(w, "Key", fmt.Sprint(v.UniqueSystemIdentifier))

	if len(d.History) > 0 {
		fmt.Fprintln(w, "History:")
		for _, h := range d.History {
			fmt.Fprintf(w, "  %-10s %s\n", h.LogDate, h.Code)
		}
	}
	if len(d.Comments) > 0 {
		fmt.Fprintln(w, "Comments:")
		for _, c := range d.Comments {
			fmt.Fprintf(w, "  %-10s %s\n", c.CommentDate, c.Description)
		}
	}
	if len(d.SpecialConditions) > 0 {
		fmt.Fprintln(w, "Special conditions:")
		for _, c := range d.SpecialConditions {
			fmt.Fprintf(w, "  %s %s\n", c.SpecialConditionType, intText(c.SpecialConditionCode))
		}
	}
	if len(d.FreeFormConditions) > 0 {
		fmt.Fprintln(w, "Free-form conditions:")
		for _, c := range d.FreeFormConditions {
			fmt.Fprintf(w, "  %s. %s\n", intText(c.SequenceNumber), c.LicenseFreeFormCondition)
		}
	}
}

func intText(n models.NullInt) string {
	if !n.Valid {
		return "-"
	}
	return fmt.Sprint(n.Int64)
}

func renderSearch(w io.Writer, views []models.LicenseView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No matching licenses.")
		return
	}
	fmt.Fprintf(w, "%-8s %-6s %-28s %s\n", "CALL", "STATUS", "NAME", "LOCATION")
	for _, v := range views {
		loc := strings.Trim(v.City+", "+v.State, ", ")
		fmt.Fprintf(w, "%-8s %-6s %-28s %s\n", v.CallSign, v.LicenseStatus, v.DisplayName(), loc)
	}
	noun := "licenses"
	if len(views) == 1 {
		noun = "license"
	}
	fmt.Fprintf(w, "%d %s\n", len(views), noun)
}

func renderStatus(w io.Writer, r *services.StatusReport) {
	if r.Metadata == nil {
		fmt.Fprintln(w, "Last load:  never")
	} else {
		fmt.Fprintf(w, "Last load:  %s (run %s)\n", r.Metadata.LastLoad.UTC().Format(time.RFC3339), r.Metadata.RunID)
		fmt.Fprintf(w, "Remote:     %s\n", markerText(r.Metadata.Marker))
		fmt.Fprintf(w, "Source:     %s\n", r.Metadata.SourceURL)
	}
	fmt.Fprintf(w, "Store size: %d bytes\n", r.SizeBytes)
	fmt.Fprintf(w, "Rows:       %s\n", kindCounts(r.Counts))

	var missing []string
	for _, ix := range r.Indexes {
		missing = append(missing, ix.Missing...)
	}
	if len(missing) == 0 {
		fmt.Fprintln(w, "Indexes:    all present")
	} else {
		fmt.Fprintf(w, "Indexes:    missing %s (run reindex)\n", strings.Join(missing, ", "))
	}

	if len(r.Runs) > 0 {
		fmt.Fprintln(w, "Recent runs:")
		for _, run := range r.Runs {
			fmt.Fprintf(w, "  %s  %s  %d rows, %d skipped, %dms\n",
				run.FinishedAt.UTC().Format(time.RFC3339), run.RunID, run.TotalRows, run.SkippedLines, run.ElapsedMS)
		}
	}
}
