// scraper/parser.go
package scraper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/ulsync/logging"
	"github.com/gewnthar/ulsync/models"
)

// FieldDelimiter separates values in the archive's flat files. There is no
// quoting and no escaping.
const FieldDelimiter = "|"

const maxLineBytes = 4 * 1024 * 1024

// fieldCountError is returned by pipeReader for a line with the wrong number of fields.
type fieldCountError struct {
	line      int64
	got, want int
}

func (e *fieldCountError) Error() string {
	return fmt.Sprintf("line %d: %d fields, want %d", e.line, e.got, e.want)
}

// pipeReader implements csvutil.Reader over pipe-delimited lines.
type pipeReader struct {
	sc    *bufio.Scanner
	want  int
	line  int64
	ioErr error
}

func newPipeReader(r io.Reader, want int) *pipeReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &pipeReader{sc: sc, want: want}
}

func (r *pipeReader) Read() ([]string, error) {
	for r.sc.Scan() {
		r.line++
		text := strings.TrimRight(r.sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, FieldDelimiter)
		if len(fields) != r.want {
			return nil, &fieldCountError{line: r.line, got: len(fields), want: r.want}
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields, nil
	}
	if err := r.sc.Err(); err != nil {
		r.ioErr = fmt.Errorf("read error after line %d: %w", r.line, err)
		return nil, r.ioErr
	}
	return nil, io.EOF
}

// RecordParser turns one table's flat file into typed records. Every Scan
// reopens the file, so the sequence can be restarted.
type RecordParser struct {
	Path   string
	Schema *models.TableSchema
}

func NewRecordParser(path string, kind models.TableKind) *RecordParser {
	return &RecordParser{Path: path, Schema: models.Schema(kind)}
}

func (p *RecordParser) Kind() models.TableKind { return p.Schema.Kind }

// Scan calls fn for every well-formed line in file order. Malformed lines
// (wrong field count, a value that does not fit its column type, a missing
// merge key) are skipped and counted in the returned stats. An error from fn
// stops the scan and is returned as is.
func (p *RecordParser) Scan(ctx context.Context, fn func(models.Record) error) (models.ParseStats, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return models.ParseStats{Table: p.Schema.Kind}, fmt.Errorf("failed to open %s: %w", p.Path, err)
	}
	defer f.Close()
	return ScanReader(ctx, f, p.Schema, fn)
}

// ReadAll collects every record. Meant for small files and tests.
func (p *RecordParser) ReadAll(ctx context.Context) ([]models.Record, models.ParseStats, error) {
	var out []models.Record
	stats, err := p.Scan(ctx, func(r models.Record) error {
		out = append(out, r)
		return nil
	})
	return out, stats, err
}

// ScanReader is Scan over an arbitrary reader.
func ScanReader(ctx context.Context, r io.Reader, schema *models.TableSchema, fn func(models.Record) error) (models.ParseStats, error) {
	stats := models.ParseStats{Table: schema.Kind}
	log := logging.WithFields(ctx, "table", schema.Kind)

	pr := newPipeReader(r, len(schema.Columns))
	dec, err := csvutil.NewDecoder(pr, schema.ColumnNames()...)
	if err != nil {
		return stats, fmt.Errorf("failed to create decoder for %s: %w", schema.Kind, err)
	}

	skip := func(reason error) {
		stats.NoteSkipped(pr.line)
		if stats.Skipped <= models.MaxSkippedSample {
			log.Debug("skipping malformed line", "line", pr.line, "reason", reason)
		}
	}

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		rec := schema.NewRecord()
		err := dec.Decode(rec)
		stats.Lines = pr.line
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if pr.ioErr != nil {
				return stats, pr.ioErr
			}
			skip(err)
			continue
		}
		if schema.HasKey() && rec.Key() == 0 {
			skip(errors.New("missing merge key"))
			continue
		}

		stats.Parsed++
		if err := fn(rec); err != nil {
			return stats, err
		}
	}

	if stats.Skipped > 0 {
		log.Warn("skipped malformed lines", "skipped", stats.Skipped, "parsed", stats.Parsed)
	}
	return stats, nil
}
